package inventory

import "context"

// StockRepository persists central counters, shelves and shelf rows.
// Implementations scoped to a transaction must honour LockCentral row locks
// until commit.
type StockRepository interface {
	// LockCentral creates missing central rows with qty 0, then locks every
	// row in ascending barcode order and returns them keyed by barcode.
	LockCentral(ctx context.Context, barcodes []string) (map[string]*CentralStock, error)
	// FindCentral returns shared.ErrNotFound for unknown barcodes.
	FindCentral(ctx context.Context, barcode string) (*CentralStock, error)
	FindCentrals(ctx context.Context, barcodes []string) (map[string]int, error)
	SaveCentral(ctx context.Context, stock *CentralStock) error
	DeleteCentral(ctx context.Context, barcode string) error

	// ShelfRows lists the rows of barcode ordered by shelf code.
	ShelfRows(ctx context.Context, barcode string) ([]ShelfStock, error)
	// ShelfRow returns shared.ErrNotFound when the pair has no row.
	ShelfRow(ctx context.Context, shelfCode, barcode string) (*ShelfStock, error)
	SaveShelfRow(ctx context.Context, row *ShelfStock) error
	DeleteShelfRow(ctx context.Context, shelfCode, barcode string) error
	// PurgeEmptyRows removes rows with adet <= 0 for the given barcodes.
	PurgeEmptyRows(ctx context.Context, barcodes []string) error
	ShelfSum(ctx context.Context, barcode string) (int, error)
	ShelfContents(ctx context.Context, shelfCode string) ([]ShelfStock, error)

	EnsureShelf(ctx context.Context, code string) error
	FindShelf(ctx context.Context, code string) (*Shelf, error)
}
