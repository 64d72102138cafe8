package ecommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexibleString decodes JSON strings and numbers alike. Marketplaces are
// not consistent about the type of identifiers.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexibleString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexibleString(n.String())
	return nil
}

// String returns the decoded value.
func (s FlexibleString) String() string {
	return string(s)
}

func itoa(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
