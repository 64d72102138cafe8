package order

import (
	"context"
	"time"
)

// Repository stores orders across the seven status tables.
type Repository interface {
	// Locate returns every status table holding orderNumber. More than one
	// entry means the one-row invariant is already broken.
	Locate(ctx context.Context, orderNumber string) ([]Status, error)
	// LocateMany maps each known order number to the first table holding it.
	LocateMany(ctx context.Context, orderNumbers []string) (map[string]Status, error)
	// FindForUpdate reads and row-locks the order in status. It returns
	// shared.ErrOrderNotFound when the row is not there.
	FindForUpdate(ctx context.Context, status Status, orderNumber string) (*Order, error)
	Find(ctx context.Context, status Status, orderNumber string) (*Order, error)
	// Insert writes o into the table named by o.Status.
	Insert(ctx context.Context, o *Order) error
	// Update rewrites o in the table named by o.Status.
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, status Status, orderNumber string) error
	// ListDetails returns the raw details of every order in the statuses.
	ListDetails(ctx context.Context, statuses []Status) ([]string, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Order, int64, error)
}

// TransitionEvent is published after a transition commits.
type TransitionEvent struct {
	EventID     string    `json:"event_id"`
	OrderNumber string    `json:"order_number"`
	Marketplace string    `json:"marketplace,omitempty"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	Reason      string    `json:"reason,omitempty"`
	Origin      Origin    `json:"origin"`
	At          time.Time `json:"at"`
	Details     Details   `json:"details,omitempty"`
}

// EventPublisher delivers transition events to downstream collaborators.
type EventPublisher interface {
	Publish(ctx context.Context, event TransitionEvent) error
}

// Origin tells who asked for a transition.
type Origin string

const (
	OriginOperator    Origin = "operator"
	OriginMarketplace Origin = "marketplace"
)

// TransitionRequest asks the state machine to move one order.
type TransitionRequest struct {
	OrderNumber string
	To          Status
	Reason      string
	Origin      Origin
	// Scans are the barcodes presented when an operator starts picking.
	Scans []string
}
