package marketplace

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/sellerops/console/internal/domain/barcode"
)

// FingerprintPrefix marks synthetic order numbers derived from content.
const FingerprintPrefix = "SIG:"

// Fingerprint derives a synthetic order number for payloads without a stable
// id: md5 over the sorted "barcode|size|qty" lines joined by newlines.
func Fingerprint(lines []RemoteLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s|%s|%d", barcode.Normalize(l.Barcode), strings.TrimSpace(l.Size), l.Quantity))
	}
	sort.Strings(parts)
	sum := md5.Sum([]byte(strings.Join(parts, "\n")))
	return FingerprintPrefix + hex.EncodeToString(sum[:])
}
