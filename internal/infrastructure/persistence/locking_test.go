package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockRepository_LockCentralLocksInBarcodeOrder(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormStockRepository(gormDB)

	mock.ExpectExec(`INSERT INTO "central_stocks" .* ON CONFLICT \("barcode"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	for _, b := range []string{"a", "b"} {
		mock.ExpectQuery(`SELECT \* FROM "central_stocks" WHERE barcode = \$1 .*FOR UPDATE`).
			WithArgs(b, 1).
			WillReturnRows(sqlmock.NewRows([]string{"barcode", "qty", "updated_at"}).
				AddRow(b, 1, time.Now()))
	}

	locked, err := repo.LockCentral(context.Background(), []string{"b", "a", "b"})
	require.NoError(t, err)
	assert.Len(t, locked, 2)
	assert.Equal(t, 1, locked["a"].Qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_FindForUpdateLocksRow(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormOrderRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "orders_picking" WHERE order_number = \$1 LIMIT \$2 FOR UPDATE`).
		WithArgs("ON-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"order_number", "marketplace", "details"}).
			AddRow("ON-1", "trendyol", "[]"))

	o, err := repo.FindForUpdate(context.Background(), order.StatusPicking, "ON-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPicking, o.Status)
	assert.Equal(t, "trendyol", o.Marketplace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocateSQL(t *testing.T) {
	sql := locateSQL("order_number = ?")
	assert.Contains(t, sql, "FROM orders_created WHERE order_number = ?")
	assert.Contains(t, sql, "'Archive' AS status FROM orders_archive")
	assert.Equal(t, len(order.AllStatuses)-1, strings.Count(sql, "UNION ALL"))
}
