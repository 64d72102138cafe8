package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type shelfRow struct {
	Code string `gorm:"primaryKey"`
	Qty  int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&shelfRow{}))
	return db
}

func withRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("otel_slow_query:query"))
}

func TestDBTracingPlugin_RegistersCallbacks(t *testing.T) {
	withRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))
	assert.NotNil(t, db.Callback().Create().Get("otel_timing:before_create"))
	require.NoError(t, db.Create(&shelfRow{Code: "A1", Qty: 2}).Error)
}

func TestDBTracingPlugin_AfterTagsSpan(t *testing.T) {
	_, recorder := withRecorder(t)
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.NewNop())

	ctx, span := otel.Tracer("test").Start(context.Background(), "lookup")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))
	result := db.WithContext(ctx).Where("code = ?", "ZZ").First(&shelfRow{})
	require.True(t, errors.Is(result.Error, gorm.ErrRecordNotFound))
	plugin.after(result)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.NotEqual(t, codes.Error, ended[0].Status().Code, "record-not-found is not a span error")

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, "shelf_rows", attrs["db.sql.table"].AsString())
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "slow_query_warning", ended[0].Events()[0].Name)
}

func TestDBTracingPlugin_AfterWithoutSpan(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)
	assert.NotPanics(t, func() { plugin.after(db.WithContext(context.Background())) })
}

func TestStartSpanAndIDs(t *testing.T) {
	withRecorder(t)
	traceID, spanID := Correlation(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)

	ctx, span := StartServiceSpan(context.Background(), "order", "transition",
		WithAttribute(SpanAttrOrderNumber, "ON-1"))
	SetAttributes(span, SpanAttrQuantity, 3, "ignored")
	AddEvent(span, "consumed", SpanAttrBarcode, "x")
	RecordError(span, errors.New("failed"))
	span.End()

	traceID, spanID = Correlation(ctx)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
}
