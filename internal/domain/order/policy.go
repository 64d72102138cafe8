package order

// CancelPolicy decides when cancellation or archiving gives stock back.
type CancelPolicy struct {
	RestoreFromPicking        bool
	RestoreFromShippedOrLater bool
}

// DefaultCancelPolicy restores only when the order was still in Picking.
func DefaultCancelPolicy() CancelPolicy {
	return CancelPolicy{RestoreFromPicking: true}
}

// ShouldRestore reports whether moving from -> to must add stock back.
func (p CancelPolicy) ShouldRestore(from, to Status) bool {
	if to != StatusCancelled && to != StatusArchive {
		return false
	}
	switch from {
	case StatusPicking:
		return p.RestoreFromPicking
	case StatusShipped, StatusDelivered:
		return p.RestoreFromShippedOrLater
	}
	return false
}
