// Package persistencetest opens throwaway sqlite databases for tests.
package persistencetest

import (
	"testing"

	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database. The pool holds one
// connection so every statement sees the same memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

// Scope returns a transaction scope over a fresh database.
func Scope(t testing.TB) (*persistence.GormTransactionScope, *gorm.DB) {
	t.Helper()
	db := Open(t)
	return persistence.NewGormTransactionScope(db), db
}
