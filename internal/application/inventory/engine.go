package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config tunes the engine.
type Config struct {
	ConsumeOrder        inventory.ConsumeOrder
	CustomShelfPriority []string
	// ReturnShelf receives restored stock for orders that carry no
	// allocation record.
	ReturnShelf string
}

// StockView is the central counter of a barcode with its shelf breakdown.
type StockView struct {
	Barcode string               `json:"barcode"`
	Central int                  `json:"central"`
	Shelves []inventory.ShelfQty `json:"shelves"`
}

// Engine owns CentralStock and the shelf rows. Every mutation runs in one
// transaction, locks central rows in ascending barcode order, and verifies
// the central-equals-shelf-sum invariant before commit.
type Engine struct {
	scope           tx.Scope
	ordering        inventory.ShelfOrdering
	returnShelf     string
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// NewEngine creates a new Engine
func NewEngine(scope tx.Scope, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	returnShelf := cfg.ReturnShelf
	if returnShelf == "" {
		returnShelf = "IADE"
	}
	return &Engine{
		scope:       scope,
		ordering:    inventory.NewShelfOrdering(cfg.ConsumeOrder, cfg.CustomShelfPriority),
		returnShelf: returnShelf,
		logger:      logger,
		now:         time.Now,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (e *Engine) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	e.businessMetrics = bm
}

// ReturnShelf is where stock without an allocation record is restored to.
func (e *Engine) ReturnShelf() string {
	return e.returnShelf
}

// Add appends count units of code to shelf and to the central counter.
func (e *Engine) Add(ctx context.Context, shelf, code string, count int) (*StockView, error) {
	if count <= 0 {
		return nil, inventory.ErrInvalidQuantity.WithDetails("count must be positive, got %d", count)
	}
	shelf, err := inventory.NormalizeShelfCode(shelf)
	if err != nil {
		return nil, err
	}

	var view *StockView
	err = e.scope.Execute(ctx, func(repos tx.Repositories) error {
		b, err := e.canonical(ctx, repos, code)
		if err != nil {
			return err
		}
		if err := e.AddIn(ctx, repos, []inventory.Allocation{{ShelfCode: shelf, Barcode: b, Qty: count}}); err != nil {
			return err
		}
		view, err = e.stockView(ctx, repos.Stock(), b)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Stock added",
		zap.String("shelf", shelf),
		zap.String("barcode", view.Barcode),
		zap.Int("count", count),
		zap.Int("central", view.Central))
	return view, nil
}

// Renew sets the shelf row of code to exactly count and moves the central
// counter by the same delta.
func (e *Engine) Renew(ctx context.Context, shelf, code string, count int) (*StockView, error) {
	if count < 0 {
		return nil, inventory.ErrInvalidQuantity.WithDetails("count must not be negative, got %d", count)
	}
	shelf, err := inventory.NormalizeShelfCode(shelf)
	if err != nil {
		return nil, err
	}

	var view *StockView
	err = e.scope.Execute(ctx, func(repos tx.Repositories) error {
		b, err := e.canonical(ctx, repos, code)
		if err != nil {
			return err
		}
		stock := repos.Stock()
		centrals, err := stock.LockCentral(ctx, []string{b})
		if err != nil {
			return err
		}
		if err := stock.EnsureShelf(ctx, shelf); err != nil {
			return err
		}
		row, err := e.shelfRow(ctx, stock, shelf, b)
		if err != nil {
			return err
		}
		delta := count - row.Adet
		row.Adet = count
		if err := stock.SaveShelfRow(ctx, row); err != nil {
			return err
		}
		if err := e.bumpCentral(ctx, stock, centrals[b], delta); err != nil {
			return err
		}
		if err := e.settle(ctx, stock, centrals); err != nil {
			return err
		}
		view, err = e.stockView(ctx, stock, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Stock renewed",
		zap.String("shelf", shelf),
		zap.String("barcode", view.Barcode),
		zap.Int("count", count),
		zap.Int("central", view.Central))
	return view, nil
}

// Consume takes the lines from stock in shelf order. Either every line is
// satisfied or nothing changes.
func (e *Engine) Consume(ctx context.Context, lines []inventory.Line) ([]inventory.Allocation, error) {
	var allocs []inventory.Allocation
	err := e.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		allocs, err = e.ConsumeIn(ctx, repos, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

// Transfer moves count units of code between shelves; the central counter
// does not change.
func (e *Engine) Transfer(ctx context.Context, fromShelf, toShelf, code string, count int) (*StockView, error) {
	if count <= 0 {
		return nil, inventory.ErrInvalidQuantity.WithDetails("count must be positive, got %d", count)
	}
	from, err := inventory.NormalizeShelfCode(fromShelf)
	if err != nil {
		return nil, err
	}
	to, err := inventory.NormalizeShelfCode(toShelf)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, inventory.ErrInvalidShelf.WithDetails("source and destination are both %s", from)
	}

	var view *StockView
	err = e.scope.Execute(ctx, func(repos tx.Repositories) error {
		b, err := e.canonical(ctx, repos, code)
		if err != nil {
			return err
		}
		stock := repos.Stock()
		centrals, err := stock.LockCentral(ctx, []string{b})
		if err != nil {
			return err
		}
		src, err := e.shelfRow(ctx, stock, from, b)
		if err != nil {
			return err
		}
		if src.Adet < count {
			return inventory.ErrInsufficientShelfStock.WithDetails(
				"shelf %s holds %d of %s, need %d", from, src.Adet, b, count)
		}
		if err := stock.EnsureShelf(ctx, to); err != nil {
			return err
		}
		dst, err := e.shelfRow(ctx, stock, to, b)
		if err != nil {
			return err
		}
		src.Adet -= count
		dst.Adet += count
		if err := stock.SaveShelfRow(ctx, src); err != nil {
			return err
		}
		if err := stock.SaveShelfRow(ctx, dst); err != nil {
			return err
		}
		if err := e.settle(ctx, stock, centrals); err != nil {
			return err
		}
		view, err = e.stockView(ctx, stock, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Stock transferred",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("barcode", view.Barcode),
		zap.Int("count", count))
	return view, nil
}

// CentralOf returns the central counter of code, zero when unknown.
func (e *Engine) CentralOf(ctx context.Context, code string) (int, error) {
	view, err := e.Stock(ctx, code)
	if err != nil {
		return 0, err
	}
	return view.Central, nil
}

// ShelfBreakdown lists the shelves holding code.
func (e *Engine) ShelfBreakdown(ctx context.Context, code string) ([]inventory.ShelfQty, error) {
	view, err := e.Stock(ctx, code)
	if err != nil {
		return nil, err
	}
	return view.Shelves, nil
}

// Stock reads the central counter and breakdown of code in one snapshot.
func (e *Engine) Stock(ctx context.Context, code string) (*StockView, error) {
	var view *StockView
	err := e.scope.Execute(ctx, func(repos tx.Repositories) error {
		b, err := e.canonical(ctx, repos, code)
		if err != nil {
			return err
		}
		view, err = e.stockView(ctx, repos.Stock(), b)
		return err
	})
	return view, err
}

// ShelfContents lists the barcodes stored on shelf.
func (e *Engine) ShelfContents(ctx context.Context, shelf string) ([]inventory.ShelfQty, error) {
	code, err := inventory.NormalizeShelfCode(shelf)
	if err != nil {
		return nil, err
	}
	var out []inventory.ShelfQty
	err = e.scope.Execute(ctx, func(repos tx.Repositories) error {
		rows, err := repos.Stock().ShelfContents(ctx, code)
		if err != nil {
			return err
		}
		out = toShelfQty(rows)
		return nil
	})
	return out, err
}

// AddIn adds every allocation back to its shelf within an open transaction.
// It is used for stock-in and for compensating restores. Barcodes are
// canonicalized first, so units recorded before an alias merge land on the
// canonical barcode.
func (e *Engine) AddIn(ctx context.Context, repos tx.Repositories, allocs []inventory.Allocation) error {
	canon := make([]inventory.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if a.Qty <= 0 {
			return inventory.ErrInvalidQuantity.WithDetails("count must be positive, got %d", a.Qty)
		}
		b, err := e.canonical(ctx, repos, a.Barcode)
		if err != nil {
			return err
		}
		a.Barcode = b
		canon = append(canon, a)
	}
	allocs = inventory.MergeAllocations(canon)
	barcodes := make([]string, 0, len(allocs))
	for i := range allocs {
		barcodes = append(barcodes, allocs[i].Barcode)
	}
	if len(allocs) == 0 {
		return nil
	}

	stock := repos.Stock()
	centrals, err := stock.LockCentral(ctx, inventory.SortedUnique(barcodes))
	if err != nil {
		return err
	}
	for _, a := range allocs {
		if err := stock.EnsureShelf(ctx, a.ShelfCode); err != nil {
			return err
		}
		row, err := e.shelfRow(ctx, stock, a.ShelfCode, a.Barcode)
		if err != nil {
			return err
		}
		row.Adet += a.Qty
		if err := stock.SaveShelfRow(ctx, row); err != nil {
			return err
		}
		if err := e.bumpCentral(ctx, stock, centrals[a.Barcode], a.Qty); err != nil {
			return err
		}
	}
	return e.settle(ctx, stock, centrals)
}

// ConsumeIn is Consume within an open transaction. Barcodes are
// canonicalized first; lines for the same barcode draw from what earlier
// lines left behind.
func (e *Engine) ConsumeIn(ctx context.Context, repos tx.Repositories, lines []inventory.Line) ([]inventory.Allocation, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	canon := make([]inventory.Line, 0, len(lines))
	barcodes := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Qty <= 0 {
			return nil, inventory.ErrInvalidQuantity.WithDetails("qty must be positive, got %d for %s", l.Qty, l.Barcode)
		}
		b, err := e.canonical(ctx, repos, l.Barcode)
		if err != nil {
			return nil, err
		}
		canon = append(canon, inventory.Line{Barcode: b, Qty: l.Qty})
		barcodes = append(barcodes, b)
	}

	stock := repos.Stock()
	centrals, err := stock.LockCentral(ctx, inventory.SortedUnique(barcodes))
	if err != nil {
		return nil, err
	}

	working := make(map[string][]inventory.ShelfStock)
	consumed := make(map[string]int)
	var allocs []inventory.Allocation
	for _, l := range canon {
		rows, ok := working[l.Barcode]
		if !ok {
			rows, err = stock.ShelfRows(ctx, l.Barcode)
			if err != nil {
				return nil, err
			}
			working[l.Barcode] = rows
		}
		taken, missing := e.ordering.PlanConsume(rows, l.Qty)
		if missing > 0 {
			return nil, inventory.InsufficientStock(l.Barcode, missing)
		}
		allocs = append(allocs, taken...)
		consumed[l.Barcode] += l.Qty
	}

	touched := make(map[string]bool)
	for _, a := range allocs {
		touched[a.ShelfCode+"\x00"+a.Barcode] = true
	}
	for b, rows := range working {
		for i := range rows {
			if !touched[rows[i].ShelfCode+"\x00"+b] {
				continue
			}
			if rows[i].Adet == 0 {
				err = stock.DeleteShelfRow(ctx, rows[i].ShelfCode, b)
			} else {
				err = stock.SaveShelfRow(ctx, &rows[i])
			}
			if err != nil {
				return nil, err
			}
		}
	}
	for _, b := range inventory.SortedUnique(barcodes) {
		if err := e.bumpCentral(ctx, stock, centrals[b], -consumed[b]); err != nil {
			return nil, err
		}
	}
	if err := e.settle(ctx, stock, centrals); err != nil {
		return nil, err
	}
	return inventory.MergeAllocations(allocs), nil
}

// MergeIn folds every central and shelf unit of from into into, then removes
// the rows keyed by from.
func (e *Engine) MergeIn(ctx context.Context, repos tx.Repositories, from, into string) error {
	stock := repos.Stock()
	centrals, err := stock.LockCentral(ctx, inventory.SortedUnique([]string{from, into}))
	if err != nil {
		return err
	}
	rows, err := stock.ShelfRows(ctx, from)
	if err != nil {
		return err
	}
	for _, r := range rows {
		dst, err := e.shelfRow(ctx, stock, r.ShelfCode, into)
		if err != nil {
			return err
		}
		dst.Adet += r.Adet
		if err := stock.DeleteShelfRow(ctx, r.ShelfCode, from); err != nil {
			return err
		}
		if err := stock.SaveShelfRow(ctx, dst); err != nil {
			return err
		}
	}

	moved := centrals[from].Qty
	if err := e.bumpCentral(ctx, stock, centrals[into], moved); err != nil {
		return err
	}
	if err := stock.DeleteCentral(ctx, from); err != nil {
		return err
	}
	if left, err := stock.ShelfSum(ctx, from); err != nil {
		return err
	} else if left != 0 {
		return e.violation(inventory.ErrInvariantViolation.WithDetails("barcode %s still holds %d after merge", from, left))
	}
	return e.settle(ctx, stock, map[string]*inventory.CentralStock{into: centrals[into]})
}

func (e *Engine) canonical(ctx context.Context, repos tx.Repositories, code string) (string, error) {
	if _, err := barcode.Require(code); err != nil {
		return "", err
	}
	return barcode.Canonicalize(ctx, repos.Aliases(), code)
}

func (e *Engine) shelfRow(ctx context.Context, stock inventory.StockRepository, shelf, b string) (*inventory.ShelfStock, error) {
	row, err := stock.ShelfRow(ctx, shelf, b)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &inventory.ShelfStock{ShelfCode: shelf, Barcode: b}, nil
		}
		return nil, err
	}
	return row, nil
}

func (e *Engine) bumpCentral(ctx context.Context, stock inventory.StockRepository, c *inventory.CentralStock, delta int) error {
	if c == nil {
		return shared.ErrInternal.WithDetails("central row was not locked")
	}
	c.Qty += delta
	c.UpdatedAt = e.now()
	return stock.SaveCentral(ctx, c)
}

// settle drops empty shelf rows and checks the sum invariant for every
// touched barcode.
func (e *Engine) settle(ctx context.Context, stock inventory.StockRepository, centrals map[string]*inventory.CentralStock) error {
	barcodes := make([]string, 0, len(centrals))
	for b := range centrals {
		barcodes = append(barcodes, b)
	}
	barcodes = inventory.SortedUnique(barcodes)
	if err := stock.PurgeEmptyRows(ctx, barcodes); err != nil {
		return err
	}
	for _, b := range barcodes {
		sum, err := stock.ShelfSum(ctx, b)
		if err != nil {
			return err
		}
		if err := inventory.CheckSum(b, centrals[b].Qty, sum); err != nil {
			return e.violation(err)
		}
	}
	return nil
}

func (e *Engine) violation(err error) error {
	e.logger.Error("Inventory invariant violated", zap.Error(err))
	if e.businessMetrics != nil {
		e.businessMetrics.RecordInvariantViolation(context.Background())
	}
	return err
}

func (e *Engine) stockView(ctx context.Context, stock inventory.StockRepository, b string) (*StockView, error) {
	view := &StockView{Barcode: b, Shelves: []inventory.ShelfQty{}}
	c, err := stock.FindCentral(ctx, b)
	switch {
	case err == nil:
		view.Central = c.Qty
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	rows, err := stock.ShelfRows(ctx, b)
	if err != nil {
		return nil, err
	}
	view.Shelves = toShelfQty(rows)
	return view, nil
}

func toShelfQty(rows []inventory.ShelfStock) []inventory.ShelfQty {
	out := make([]inventory.ShelfQty, 0, len(rows))
	for _, r := range rows {
		out = append(out, inventory.ShelfQty{ShelfCode: r.ShelfCode, Barcode: r.Barcode, Qty: r.Adet})
	}
	return out
}
