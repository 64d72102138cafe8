package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sellerops/console/internal/infrastructure/cache"
	"github.com/sellerops/console/internal/infrastructure/config"
	"github.com/sellerops/console/internal/infrastructure/event"
	"github.com/sellerops/console/internal/interfaces/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:      config.AppConfig{Name: "sellerops-test", Env: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "console.db")},
		JWT:      config.JWTConfig{Secret: "test-secret", AccessTokenExpiration: time.Hour, Issuer: "sellerops"},
		Log:      config.LogConfig{Level: "error", Format: "console", Output: "stderr"},
		Stock:    config.StockConfig{PushBatchSize: 50, ReturnShelf: "IADE"},
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, sqliteConfig(t), zap.NewNop(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(ctx)) })

	assert.Equal(t, "sqlite", a.Database.Driver)
	require.NoError(t, a.Database.Ping(ctx))
	assert.IsType(t, &cache.InMemoryCheckpointStore{}, a.Checkpoints)
	assert.IsType(t, &event.InMemoryBus{}, a.Publisher)
	assert.Empty(t, a.Adapters.Enabled())
	assert.Nil(t, a.Tracer)
	assert.Nil(t, a.Meters)

	for _, svc := range []any{a.Engine, a.Orders, a.Sync, a.Reservations, a.Aliases, a.Products, a.Tokens} {
		assert.NotNil(t, svc)
	}
}

func TestOpen_CommandsRunAgainstMigratedSchema(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, sqliteConfig(t), zap.NewNop(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	var out bytes.Buffer
	c := cli.New(a.CLIServices(), &out, nil)
	require.Equal(t, 0, c.Run(ctx, []string{"stock", "add", "--shelf", "A1", "--barcode", "8690001", "--count", "4"}), out.String())

	var doc struct {
		OK     bool `json:"ok"`
		Result struct {
			Central int `json:"central"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.True(t, doc.OK)
	assert.Equal(t, 4, doc.Result.Central)
}

func TestOpen_TelemetryDisabledProviders(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Telemetry.LogsEnabled = true
	base := zap.NewNop()
	a, err := Open(ctx, cfg, base, Options{Telemetry: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	require.NotNil(t, a.Tracer)
	require.NotNil(t, a.Meters)
	require.NotNil(t, a.Logs)
	assert.False(t, a.Tracer.IsEnabled())
	assert.False(t, a.Meters.IsEnabled())
	assert.False(t, a.Logs.IsEnabled(), "log export needs telemetry.enabled as well")
	assert.Same(t, base, a.Logger)
}

func TestOpen_BadDatabaseReleasesResources(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "console.db")

	_, err := Open(context.Background(), cfg, zap.NewNop(), Options{})
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, sqliteConfig(t), zap.NewNop(), Options{})
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))
	assert.NoError(t, a.Close(ctx))
}
