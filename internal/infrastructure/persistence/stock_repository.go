package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements inventory.StockRepository using GORM.
// Row locks taken by LockCentral are only meaningful when db is a
// transaction handle.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// LockCentral creates missing central rows and locks every row with
// SELECT ... FOR UPDATE, one barcode at a time in ascending order.
func (r *GormStockRepository) LockCentral(ctx context.Context, barcodes []string) (map[string]*inventory.CentralStock, error) {
	out := make(map[string]*inventory.CentralStock, len(barcodes))
	if len(barcodes) == 0 {
		return out, nil
	}
	sorted := inventory.SortedUnique(barcodes)

	now := time.Now()
	seed := make([]models.CentralStockModel, 0, len(sorted))
	for _, b := range sorted {
		seed = append(seed, models.CentralStockModel{Barcode: b, UpdatedAt: now})
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			DoNothing: true,
		}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	for _, b := range sorted {
		var model models.CentralStockModel
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("barcode = ?", b).
			First(&model).Error; err != nil {
			return nil, err
		}
		out[b] = model.ToDomain()
	}
	return out, nil
}

// FindCentral finds the central counter of barcode
func (r *GormStockRepository) FindCentral(ctx context.Context, barcode string) (*inventory.CentralStock, error) {
	var model models.CentralStockModel
	if err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCentrals returns the central qty of every known barcode in barcodes
func (r *GormStockRepository) FindCentrals(ctx context.Context, barcodes []string) (map[string]int, error) {
	out := make(map[string]int, len(barcodes))
	if len(barcodes) == 0 {
		return out, nil
	}
	var rows []models.CentralStockModel
	if err := r.db.WithContext(ctx).Where("barcode IN ?", barcodes).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Barcode] = row.Qty
	}
	return out, nil
}

// SaveCentral upserts the central counter
func (r *GormStockRepository) SaveCentral(ctx context.Context, stock *inventory.CentralStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			DoUpdates: clause.AssignmentColumns([]string{"qty", "updated_at"}),
		}).
		Create(models.CentralStockModelFromDomain(stock)).Error
}

// DeleteCentral removes the counter row of barcode
func (r *GormStockRepository) DeleteCentral(ctx context.Context, barcode string) error {
	return r.db.WithContext(ctx).Where("barcode = ?", barcode).Delete(&models.CentralStockModel{}).Error
}

// ShelfRows lists the shelf rows of barcode ordered by shelf code
func (r *GormStockRepository) ShelfRows(ctx context.Context, barcode string) ([]inventory.ShelfStock, error) {
	var rows []models.RafUrunModel
	if err := r.db.WithContext(ctx).
		Where("urun_barkodu = ?", barcode).
		Order("raf_kodu ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toShelfStocks(rows), nil
}

// ShelfRow finds one shelf/barcode row
func (r *GormStockRepository) ShelfRow(ctx context.Context, shelfCode, barcode string) (*inventory.ShelfStock, error) {
	var model models.RafUrunModel
	if err := r.db.WithContext(ctx).
		Where("raf_kodu = ? AND urun_barkodu = ?", shelfCode, barcode).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	row := model.ToDomain()
	return &row, nil
}

// SaveShelfRow upserts a shelf row. Rows at zero are kept until PurgeEmptyRows.
func (r *GormStockRepository) SaveShelfRow(ctx context.Context, row *inventory.ShelfStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "raf_kodu"}, {Name: "urun_barkodu"}},
			DoUpdates: clause.AssignmentColumns([]string{"adet"}),
		}).
		Create(models.RafUrunModelFromDomain(row)).Error
}

// DeleteShelfRow removes one shelf/barcode row
func (r *GormStockRepository) DeleteShelfRow(ctx context.Context, shelfCode, barcode string) error {
	return r.db.WithContext(ctx).
		Where("raf_kodu = ? AND urun_barkodu = ?", shelfCode, barcode).
		Delete(&models.RafUrunModel{}).Error
}

// PurgeEmptyRows deletes rows with adet <= 0 for barcodes
func (r *GormStockRepository) PurgeEmptyRows(ctx context.Context, barcodes []string) error {
	if len(barcodes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("urun_barkodu IN ? AND adet <= 0", barcodes).
		Delete(&models.RafUrunModel{}).Error
}

// ShelfSum sums adet over every shelf row of barcode
func (r *GormStockRepository) ShelfSum(ctx context.Context, barcode string) (int, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.RafUrunModel{}).
		Where("urun_barkodu = ?", barcode).
		Select("COALESCE(SUM(adet), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return int(sum), nil
}

// ShelfContents lists the rows stored on shelfCode ordered by barcode
func (r *GormStockRepository) ShelfContents(ctx context.Context, shelfCode string) ([]inventory.ShelfStock, error) {
	var rows []models.RafUrunModel
	if err := r.db.WithContext(ctx).
		Where("raf_kodu = ? AND adet > 0", shelfCode).
		Order("urun_barkodu ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toShelfStocks(rows), nil
}

// EnsureShelf registers code as a shelf if it is not known yet
func (r *GormStockRepository) EnsureShelf(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(&models.ShelfModel{Code: code, CreatedAt: time.Now()}).Error
}

// FindShelf finds a shelf by code
func (r *GormStockRepository) FindShelf(ctx context.Context, code string) (*inventory.Shelf, error) {
	var model models.ShelfModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func toShelfStocks(rows []models.RafUrunModel) []inventory.ShelfStock {
	out := make([]inventory.ShelfStock, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// Ensure GormStockRepository implements inventory.StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
