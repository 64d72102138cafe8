package event

import (
	"context"
	"sync"

	"github.com/sellerops/console/internal/domain/order"
	"go.uber.org/zap"
)

// Handler consumes transition events in process.
type Handler func(ctx context.Context, event order.TransitionEvent) error

// InMemoryBus fans events out to in-process handlers. With no handlers it
// is the publisher used when Kafka is not configured.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *zap.Logger
}

// NewInMemoryBus creates a new in-memory bus
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{logger: logger}
}

// Subscribe registers h for every event.
func (b *InMemoryBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish runs every handler synchronously. Handler failures and panics are
// logged; the caller never sees them.
func (b *InMemoryBus) Publish(ctx context.Context, event order.TransitionEvent) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.dispatch(ctx, h, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_id", event.EventID),
				zap.String("order_number", event.OrderNumber),
				zap.Error(err),
			)
		}
	}
	return nil
}

// dispatch safely dispatches an event to a handler
func (b *InMemoryBus) dispatch(ctx context.Context, h Handler, event order.TransitionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_id", event.EventID),
				zap.Any("panic", r),
			)
		}
	}()
	return h(ctx, event)
}

// Ensure InMemoryBus implements order.EventPublisher
var _ order.EventPublisher = (*InMemoryBus)(nil)
