package persistence

import (
	"context"

	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/catalog"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope implements tx.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos tx.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormRepositories{tx: db})
	})
}

// gormRepositories provides access to all repositories within a transaction.
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Aliases() barcode.AliasRepository {
	return NewGormBarcodeAliasRepository(r.tx)
}

func (r *gormRepositories) Stock() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Savepoint nests a transaction; GORM issues SAVEPOINT / ROLLBACK TO.
func (r *gormRepositories) Savepoint(ctx context.Context, fn func(repos tx.Repositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(nested *gorm.DB) error {
		return fn(&gormRepositories{tx: nested})
	})
}

// Ensure GormTransactionScope implements tx.Scope
var _ tx.Scope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements tx.Repositories
var _ tx.Repositories = (*gormRepositories)(nil)
