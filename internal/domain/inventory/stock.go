// Package inventory models on-hand stock: one central counter per canonical
// barcode and a per-shelf breakdown that must always sum to it.
package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/shared"
)

// Errors raised by the inventory engine.
var (
	ErrInsufficientStock      = shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient stock")
	ErrInsufficientShelfStock = shared.NewDomainError(shared.CodeInsufficientShelfStock, "Insufficient shelf stock")
	ErrInvariantViolation     = shared.NewDomainError(shared.CodeInventoryInvariantViolation, "Inventory invariant violated")
	ErrInvalidQuantity        = shared.NewDomainError(shared.CodeValidation, "Invalid quantity")
	ErrInvalidShelf           = shared.NewDomainError(shared.CodeValidation, "Invalid shelf code")
)

// CentralStock is the authoritative on-hand total for one canonical barcode.
type CentralStock struct {
	Barcode   string
	Qty       int
	UpdatedAt time.Time
}

// Shelf is a physical storage location. Zone, Subzone and Level are opaque.
type Shelf struct {
	Code    string
	Zone    string
	Subzone string
	Level   string
}

// ShelfStock is one shelf/barcode line (a RafUrun row).
type ShelfStock struct {
	ShelfCode string
	Barcode   string
	Adet      int
}

// Line is a quantity of one barcode requested from stock.
type Line struct {
	Barcode string `json:"barcode"`
	Qty     int    `json:"qty"`
}

// Allocation records how many units of a barcode were taken from a shelf.
type Allocation struct {
	ShelfCode string `json:"shelf"`
	Barcode   string `json:"barcode"`
	Qty       int    `json:"qty"`
}

// ShelfQty is a read-model row for breakdown queries.
type ShelfQty struct {
	ShelfCode string `json:"shelf"`
	Barcode   string `json:"barcode"`
	Qty       int    `json:"qty"`
}

// NormalizeShelfCode trims a shelf code. Codes are otherwise opaque and
// case-sensitive: "a1" and "A1" are different shelves.
func NormalizeShelfCode(code string) (string, error) {
	c := strings.TrimSpace(code)
	if c == "" {
		return "", ErrInvalidShelf.WithDetails("shelf code must not be empty")
	}
	return c, nil
}

// InsufficientStock builds the error for a consume line that cannot be met.
func InsufficientStock(barcode string, missing int) error {
	return ErrInsufficientStock.WithDetails("barcode %s missing %d", barcode, missing)
}

// CheckSum verifies that central equals the sum of shelf rows for barcode.
func CheckSum(barcode string, central int, shelfSum int) error {
	if central != shelfSum {
		return ErrInvariantViolation.WithDetails(
			"barcode %s central=%d shelves=%d", barcode, central, shelfSum)
	}
	if central < 0 {
		return ErrInvariantViolation.WithDetails("barcode %s negative central %d", barcode, central)
	}
	return nil
}

// SortedUnique returns the distinct barcodes in ascending order, which is
// the order central rows must be locked in.
func SortedUnique(barcodes []string) []string {
	seen := make(map[string]struct{}, len(barcodes))
	out := make([]string, 0, len(barcodes))
	for _, b := range barcodes {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// MergeAllocations folds allocations on the same shelf and barcode together.
func MergeAllocations(allocs []Allocation) []Allocation {
	index := make(map[string]int)
	var out []Allocation
	for _, a := range allocs {
		key := fmt.Sprintf("%s\x00%s", a.ShelfCode, a.Barcode)
		if i, ok := index[key]; ok {
			out[i].Qty += a.Qty
			continue
		}
		index[key] = len(out)
		out = append(out, a)
	}
	return out
}
