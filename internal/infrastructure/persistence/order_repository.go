package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// locateChunkSize bounds the IN list of LocateMany.
const locateChunkSize = 500

// GormOrderRepository implements order.Repository over the seven status
// tables. Every query names its table explicitly.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func tableFor(status order.Status) (string, error) {
	table, ok := models.OrderTables[status]
	if !ok {
		return "", order.ErrInvalidOrder.WithDetails("unknown status %q", status)
	}
	return table, nil
}

type locateRow struct {
	OrderNumber string
	Status      string
}

// locateSQL builds one UNION ALL over every status table.
func locateSQL(predicate string) string {
	parts := make([]string, 0, len(order.AllStatuses))
	for _, s := range order.AllStatuses {
		parts = append(parts, fmt.Sprintf(
			"SELECT order_number, '%s' AS status FROM %s WHERE %s",
			s, models.OrderTables[s], predicate))
	}
	return strings.Join(parts, " UNION ALL ")
}

// Locate returns every status table holding orderNumber, in lifecycle order
func (r *GormOrderRepository) Locate(ctx context.Context, orderNumber string) ([]order.Status, error) {
	args := make([]any, len(order.AllStatuses))
	for i := range args {
		args[i] = orderNumber
	}
	var rows []locateRow
	if err := r.db.WithContext(ctx).Raw(locateSQL("order_number = ?"), args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	found := make(map[order.Status]bool, len(rows))
	for _, row := range rows {
		found[order.Status(row.Status)] = true
	}
	var out []order.Status
	for _, s := range order.AllStatuses {
		if found[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// LocateMany maps each known order number to its status table. When an
// order is in Archive and somewhere else, Archive is reported.
func (r *GormOrderRepository) LocateMany(ctx context.Context, orderNumbers []string) (map[string]order.Status, error) {
	out := make(map[string]order.Status, len(orderNumbers))
	for start := 0; start < len(orderNumbers); start += locateChunkSize {
		end := min(start+locateChunkSize, len(orderNumbers))
		chunk := orderNumbers[start:end]
		args := make([]any, len(order.AllStatuses))
		for i := range args {
			args[i] = chunk
		}
		var rows []locateRow
		if err := r.db.WithContext(ctx).Raw(locateSQL("order_number IN ?"), args...).Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			status := order.Status(row.Status)
			if prev, ok := out[row.OrderNumber]; ok && prev == order.StatusArchive {
				continue
			}
			out[row.OrderNumber] = status
		}
	}
	return out, nil
}

// FindForUpdate reads the order row and locks it until the transaction ends
func (r *GormOrderRepository) FindForUpdate(ctx context.Context, status order.Status, orderNumber string) (*order.Order, error) {
	return r.find(ctx, status, orderNumber, true)
}

// Find reads the order row without locking
func (r *GormOrderRepository) Find(ctx context.Context, status order.Status, orderNumber string) (*order.Order, error) {
	return r.find(ctx, status, orderNumber, false)
}

func (r *GormOrderRepository) find(ctx context.Context, status order.Status, orderNumber string, lock bool) (*order.Order, error) {
	table, err := tableFor(status)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Table(table)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model models.OrderModel
	if err := query.Where("order_number = ?", orderNumber).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrOrderNotFound.WithDetails("order %s not in %s", orderNumber, status)
		}
		return nil, err
	}
	return model.ToDomain(status), nil
}

// Insert writes o into the table of o.Status
func (r *GormOrderRepository) Insert(ctx context.Context, o *order.Order) error {
	table, err := tableFor(o.Status)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Table(table).Create(models.OrderModelFromDomain(o)).Error
}

// Update rewrites every column of o in the table of o.Status
func (r *GormOrderRepository) Update(ctx context.Context, o *order.Order) error {
	table, err := tableFor(o.Status)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Table(table).
		Where("order_number = ?", o.OrderNumber).
		Select("*").
		Updates(models.OrderModelFromDomain(o))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOrderNotFound.WithDetails("order %s not in %s", o.OrderNumber, o.Status)
	}
	return nil
}

// Delete removes the order row from the table of status
func (r *GormOrderRepository) Delete(ctx context.Context, status order.Status, orderNumber string) error {
	table, err := tableFor(status)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Table(table).
		Where("order_number = ?", orderNumber).
		Delete(&models.OrderModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOrderNotFound.WithDetails("order %s not in %s", orderNumber, status)
	}
	return nil
}

// ListDetails returns the details document of every order in statuses
func (r *GormOrderRepository) ListDetails(ctx context.Context, statuses []order.Status) ([]string, error) {
	var out []string
	for _, s := range statuses {
		table, err := tableFor(s)
		if err != nil {
			return nil, err
		}
		var details []string
		if err := r.db.WithContext(ctx).Table(table).Pluck("details", &details).Error; err != nil {
			return nil, err
		}
		out = append(out, details...)
	}
	return out, nil
}

// List pages through one status table, newest orders first
func (r *GormOrderRepository) List(ctx context.Context, status order.Status, limit, offset int) ([]order.Order, int64, error) {
	table, err := tableFor(status)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.WithContext(ctx).Table(table).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).Table(table).
		Order("order_date DESC, order_number ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]order.Order, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain(status))
	}
	return out, total, nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
