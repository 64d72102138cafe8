// Package tx defines the transaction boundary shared by the core services.
package tx

import (
	"context"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/catalog"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
)

// Scope provides transactional access to the core repositories.
// When a function is executed within a scope, all repository operations
// are part of the same database transaction and commit or roll back together.
type Scope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories exposes every repository bound to one transaction.
type Repositories interface {
	Aliases() barcode.AliasRepository
	Stock() inventory.StockRepository
	Orders() order.Repository
	Products() catalog.ProductRepository
	// Savepoint runs fn in a nested transaction: a failure rolls back only
	// the work done inside fn.
	Savepoint(ctx context.Context, fn func(repos Repositories) error) error
}
