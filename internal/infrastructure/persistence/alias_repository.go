package persistence

import (
	"context"
	"errors"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBarcodeAliasRepository implements barcode.AliasRepository using GORM
type GormBarcodeAliasRepository struct {
	db *gorm.DB
}

// NewGormBarcodeAliasRepository creates a new GormBarcodeAliasRepository
func NewGormBarcodeAliasRepository(db *gorm.DB) *GormBarcodeAliasRepository {
	return &GormBarcodeAliasRepository{db: db}
}

// FindByAlias finds the alias row keyed by alias
func (r *GormBarcodeAliasRepository) FindByAlias(ctx context.Context, alias string) (*barcode.Alias, error) {
	var model models.BarcodeAliasModel
	if err := r.db.WithContext(ctx).Where("alias = ?", alias).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCanonical lists the aliases pointing at canonical
func (r *GormBarcodeAliasRepository) FindByCanonical(ctx context.Context, canonical string) ([]barcode.Alias, error) {
	var rows []models.BarcodeAliasModel
	if err := r.db.WithContext(ctx).
		Where("canonical = ?", canonical).
		Order("alias ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]barcode.Alias, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// All returns the whole alias table keyed by alias
func (r *GormBarcodeAliasRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.BarcodeAliasModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Alias] = row.Canonical
	}
	return out, nil
}

// Save inserts the alias row
func (r *GormBarcodeAliasRepository) Save(ctx context.Context, alias *barcode.Alias) error {
	return r.db.WithContext(ctx).Create(models.BarcodeAliasModelFromDomain(alias)).Error
}

// Delete removes the alias row, or returns shared.ErrNotFound
func (r *GormBarcodeAliasRepository) Delete(ctx context.Context, alias string) error {
	result := r.db.WithContext(ctx).Where("alias = ?", alias).Delete(&models.BarcodeAliasModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormBarcodeAliasRepository implements barcode.AliasRepository
var _ barcode.AliasRepository = (*GormBarcodeAliasRepository)(nil)
