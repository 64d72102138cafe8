// Package order models the marketplace order lifecycle. An order lives in
// exactly one status table at a time and moves between them by migration.
package order

import (
	"fmt"

	"github.com/sellerops/console/internal/domain/shared"
)

// Status is the status table an order currently lives in.
type Status string

const (
	StatusCreated     Status = "Created"
	StatusReadyToShip Status = "ReadyToShip"
	StatusPicking     Status = "Picking"
	StatusShipped     Status = "Shipped"
	StatusDelivered   Status = "Delivered"
	StatusCancelled   Status = "Cancelled"
	StatusArchive     Status = "Archive"
)

// AllStatuses lists every status table in lifecycle order.
var AllStatuses = []Status{
	StatusCreated,
	StatusReadyToShip,
	StatusPicking,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusArchive,
}

// OpenStatuses are the statuses whose lines count as reserved.
var OpenStatuses = []Status{StatusCreated, StatusReadyToShip, StatusPicking}

// Errors raised by the state machine.
var (
	ErrIllegalTransition      = shared.NewDomainError(shared.CodeIllegalTransition, "Illegal transition")
	ErrOrderLocationConflict  = shared.NewDomainError(shared.CodeOrderLocationConflict, "Order location conflict")
	ErrPickVerificationFailed = shared.NewDomainError(shared.CodePickVerificationFailed, "Pick verification failed")
	ErrArchiveReasonRequired  = shared.NewDomainError(shared.CodeValidation, "Archive reason is required")
	ErrInvalidOrder           = shared.NewDomainError(shared.CodeValidation, "Invalid order")
)

// IsValid checks if the status is one of the seven status tables
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusReadyToShip, StatusPicking, StatusShipped,
		StatusDelivered, StatusCancelled, StatusArchive:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsOpen reports whether lines in this status count as reserved.
func (s Status) IsOpen() bool {
	return s == StatusCreated || s == StatusReadyToShip || s == StatusPicking
}

// ParseStatus accepts the canonical names case-insensitively plus a few
// operator spellings such as "ready_to_ship".
func ParseStatus(s string) (Status, error) {
	switch normalizeStatusName(s) {
	case "created":
		return StatusCreated, nil
	case "readytoship":
		return StatusReadyToShip, nil
	case "picking":
		return StatusPicking, nil
	case "shipped":
		return StatusShipped, nil
	case "delivered":
		return StatusDelivered, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "archive", "archived":
		return StatusArchive, nil
	}
	return "", ErrInvalidOrder.WithDetails("unknown status %q", s)
}

func normalizeStatusName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == '_' || r == '-' || r == ' ':
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Rules carries the configurable parts of the transition table.
type Rules struct {
	// AllowPickingFromCreated makes Created -> Picking legal.
	AllowPickingFromCreated bool
	// RestoreToOriginalStatus lets Archive restore into the status recorded
	// at archive time instead of Created.
	RestoreToOriginalStatus bool
}

// CanTransitionTo checks the fixed transition table. Archive restores are
// handled by CanRestoreTo because they depend on the archived row.
func (s Status) CanTransitionTo(target Status, rules Rules) bool {
	switch s {
	case StatusCreated:
		return target == StatusReadyToShip || target == StatusCancelled || target == StatusArchive ||
			(rules.AllowPickingFromCreated && target == StatusPicking)
	case StatusReadyToShip:
		return target == StatusPicking || target == StatusCancelled
	case StatusPicking:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered || target == StatusCancelled
	case StatusDelivered:
		return target == StatusArchive
	case StatusCancelled:
		return target == StatusArchive
	case StatusArchive:
		return target == StatusCreated
	}
	return false
}

// CanRestoreTo reports whether an archived order with the recorded
// pre-archive status may move to target.
func CanRestoreTo(preArchive Status, target Status, rules Rules) bool {
	if target == StatusCreated {
		return true
	}
	return rules.RestoreToOriginalStatus && preArchive.IsValid() &&
		preArchive != StatusArchive && target == preArchive
}

// IllegalTransition builds the error for a rejected move.
func IllegalTransition(from, to Status) error {
	return ErrIllegalTransition.WithDetails("%s -> %s", from, to)
}

// LocationConflict builds the error for an order found in an unexpected table.
func LocationConflict(orderNumber string, detail string, args ...any) error {
	return ErrOrderLocationConflict.WithDetails("order %s: %s", orderNumber, fmt.Sprintf(detail, args...))
}
