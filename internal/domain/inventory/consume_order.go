package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// ConsumeOrder decides which shelves are drained first when stock is consumed.
type ConsumeOrder string

const (
	ConsumeShelfCodeAscending  ConsumeOrder = "shelf-code-ascending"
	ConsumeShelfCodeDescending ConsumeOrder = "shelf-code-descending"
	// ConsumeCustom drains shelves whose code starts with an earlier entry of
	// the configured priority list first, ties broken by ascending code.
	ConsumeCustom ConsumeOrder = "custom"
)

// ParseConsumeOrder validates a configured consume order.
func ParseConsumeOrder(s string) (ConsumeOrder, error) {
	switch ConsumeOrder(s) {
	case ConsumeShelfCodeAscending, ConsumeShelfCodeDescending, ConsumeCustom:
		return ConsumeOrder(s), nil
	case "":
		return ConsumeShelfCodeAscending, nil
	default:
		return "", fmt.Errorf("unknown consume order %q", s)
	}
}

// ShelfOrdering is a total order over shelf codes.
type ShelfOrdering struct {
	order    ConsumeOrder
	priority []string
}

// NewShelfOrdering builds the ordering; priority is only used by ConsumeCustom.
func NewShelfOrdering(order ConsumeOrder, priority []string) ShelfOrdering {
	p := make([]string, 0, len(priority))
	for _, s := range priority {
		if c := strings.TrimSpace(s); c != "" {
			p = append(p, c)
		}
	}
	if order == "" {
		order = ConsumeShelfCodeAscending
	}
	return ShelfOrdering{order: order, priority: p}
}

func (o ShelfOrdering) rank(code string) int {
	for i, prefix := range o.priority {
		if strings.HasPrefix(code, prefix) {
			return i
		}
	}
	return len(o.priority)
}

// Less reports whether shelf a is drained before shelf b.
func (o ShelfOrdering) Less(a, b string) bool {
	switch o.order {
	case ConsumeShelfCodeDescending:
		return a > b
	case ConsumeCustom:
		ra, rb := o.rank(a), o.rank(b)
		if ra != rb {
			return ra < rb
		}
		return a < b
	default:
		return a < b
	}
}

// Sort orders rows in place.
func (o ShelfOrdering) Sort(rows []ShelfStock) {
	sort.SliceStable(rows, func(i, j int) bool {
		return o.Less(rows[i].ShelfCode, rows[j].ShelfCode)
	})
}

// PlanConsume drains rows in shelf order until qty is met. rows is mutated to
// the post-consume quantities. It returns the allocations taken, or the
// number of units still missing when the rows cannot cover qty.
func (o ShelfOrdering) PlanConsume(rows []ShelfStock, qty int) ([]Allocation, int) {
	o.Sort(rows)
	available := 0
	for _, r := range rows {
		available += r.Adet
	}
	if available < qty {
		return nil, qty - available
	}
	remaining := qty
	var allocs []Allocation
	for i := range rows {
		if remaining == 0 {
			break
		}
		if rows[i].Adet <= 0 {
			continue
		}
		take := min(rows[i].Adet, remaining)
		rows[i].Adet -= take
		remaining -= take
		allocs = append(allocs, Allocation{ShelfCode: rows[i].ShelfCode, Barcode: rows[i].Barcode, Qty: take})
	}
	return allocs, 0
}
