package order

import (
	"fmt"
	"sort"
	"strings"
)

// VerificationMode sets how many scans each ordered unit requires.
type VerificationMode string

const (
	VerifyPerUnit VerificationMode = "per-unit"
	VerifyPerPair VerificationMode = "per-pair"
	VerifyOff     VerificationMode = "off"
)

// ParseVerificationMode validates a configured mode; empty means per-pair.
func ParseVerificationMode(s string) (VerificationMode, error) {
	switch VerificationMode(s) {
	case VerifyPerUnit, VerifyPerPair, VerifyOff:
		return VerificationMode(s), nil
	case "":
		return VerifyPerPair, nil
	}
	return "", fmt.Errorf("unknown pick verification mode %q", s)
}

// Multiplier is the number of scans expected per ordered unit.
func (m VerificationMode) Multiplier() int {
	switch m {
	case VerifyPerUnit:
		return 1
	case VerifyOff:
		return 0
	default:
		return 2
	}
}

// ExpectedScans derives the multiset of canonical barcodes the operator must
// present for details.
func ExpectedScans(d Details, mode VerificationMode, resolve func(string) string) map[string]int {
	mult := mode.Multiplier()
	expected := make(map[string]int)
	if mult == 0 {
		return expected
	}
	for _, l := range d {
		if l.Quantity <= 0 {
			continue
		}
		expected[resolve(l.Barcode)] += mult * l.Quantity
	}
	return expected
}

// VerifyScans compares scanned canonical barcodes against expected. Any
// difference fails with a summary of what is missing and what is extra.
func VerifyScans(expected map[string]int, scans []string) error {
	got := make(map[string]int, len(scans))
	for _, s := range scans {
		if s == "" {
			continue
		}
		got[s]++
	}

	var missing, extra []string
	for b, want := range expected {
		if have := got[b]; have < want {
			missing = append(missing, fmt.Sprintf("%s x%d", b, want-have))
		}
	}
	for b, have := range got {
		if want := expected[b]; have > want {
			extra = append(extra, fmt.Sprintf("%s x%d", b, have-want))
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	return ErrPickVerificationFailed.WithDetails("%s", strings.Join(parts, "; "))
}
