package marketplace

import (
	"strings"

	"github.com/sellerops/console/internal/domain/order"
)

// StatusMap translates remote status names to local status tables. Keys are
// compared case-insensitively.
type StatusMap map[string]order.Status

// Map looks up remote; ok is false for statuses the core ignores.
func (m StatusMap) Map(remote string) (order.Status, bool) {
	s, ok := m[strings.ToLower(strings.TrimSpace(remote))]
	return s, ok
}

// CommonStatuses covers the status names shared by most marketplaces.
// Invoiced folds into Picking.
var CommonStatuses = StatusMap{
	"created":     order.StatusCreated,
	"awaiting":    order.StatusCreated,
	"new":         order.StatusCreated,
	"readytoship": order.StatusReadyToShip,
	"picking":     order.StatusPicking,
	"invoiced":    order.StatusPicking,
	"shipped":     order.StatusShipped,
	"delivered":   order.StatusDelivered,
	"cancelled":   order.StatusCancelled,
	"canceled":    order.StatusCancelled,
}

// Extend returns a copy of m with extra entries.
func (m StatusMap) Extend(extra StatusMap) StatusMap {
	out := make(StatusMap, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}
