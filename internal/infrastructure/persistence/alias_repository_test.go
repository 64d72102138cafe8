package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/catalog"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/sellerops/console/internal/infrastructure/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormBarcodeAliasRepository(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewGormBarcodeAliasRepository(persistencetest.Open(t))

	require.NoError(t, repo.Save(ctx, &barcode.Alias{Alias: "OLD-1", Canonical: "NEW", CreatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, &barcode.Alias{Alias: "OLD-2", Canonical: "NEW", CreatedAt: time.Now()}))
	assert.Error(t, repo.Save(ctx, &barcode.Alias{Alias: "OLD-1", Canonical: "OTHER"}), "alias is the primary key")

	a, err := repo.FindByAlias(ctx, "OLD-1")
	require.NoError(t, err)
	assert.Equal(t, "NEW", a.Canonical)

	list, err := repo.FindByCanonical(ctx, "NEW")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "OLD-1", list[0].Alias)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"OLD-1": "NEW", "OLD-2": "NEW"}, all)

	require.NoError(t, repo.Delete(ctx, "OLD-1"))
	assert.True(t, errors.Is(repo.Delete(ctx, "OLD-1"), shared.ErrNotFound))
	_, err = repo.FindByAlias(ctx, "OLD-1")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewGormProductRepository(persistencetest.Open(t))

	require.NoError(t, repo.Save(ctx, &catalog.Product{Barcode: "B", Title: "Boot", Marketplaces: []string{"trendyol", "idefix"}}))
	require.NoError(t, repo.Save(ctx, &catalog.Product{Barcode: "A", Title: "Sandal", Marketplaces: []string{"trendyol"}}))
	require.NoError(t, repo.Save(ctx, &catalog.Product{Barcode: "C", Marketplaces: []string{"trendyol"}, Archived: true}))
	require.NoError(t, repo.Save(ctx, &catalog.Product{Barcode: "D", Marketplaces: []string{"trendyol-express"}}))

	listed, err := repo.ListByMarketplace(ctx, "trendyol")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "A", listed[0].Barcode)

	require.NoError(t, repo.Save(ctx, &catalog.Product{Barcode: "A", Title: "Sandal v2", Marketplaces: []string{"idefix"}}))
	p, err := repo.FindByBarcode(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Sandal v2", p.Title)
	assert.Equal(t, []string{"idefix"}, p.Marketplaces)

	_, err = repo.FindByBarcode(ctx, "Z")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
