package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider owns the SDK logger provider that receives zap records
// through the otelzap bridge. It is inert unless both telemetry and log
// export are enabled.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	logger   *zap.Logger
	config   Config
}

// NewLoggerProvider installs a batching OTLP logger provider as the global
// log provider.
func NewLoggerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger, config: cfg}
	if !cfg.Enabled || !cfg.Logs {
		logger.Debug("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("Log export enabled", zap.String("collector", cfg.CollectorEndpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool { return lp.provider != nil }

// Bridge returns base teed into the OTLP pipeline, or base itself when log
// export is disabled.
func (lp *LoggerProvider) Bridge(base *zap.Logger) (*zap.Logger, error) {
	if lp.provider == nil {
		return base, nil
	}
	return BridgeLogger(base, lp.provider, lp.config.ServiceName)
}

// ForceFlush exports buffered records now.
func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return lp.provider.ForceFlush(ctx)
}

// Shutdown flushes pending records. Safe to call when log export is disabled.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdown(ctx, lp.logger, "logger", lp.provider.Shutdown)
}

// BridgeLogger tees base with an otelzap core writing to provider. The
// bridge only sees records at or above base's level.
func BridgeLogger(base *zap.Logger, provider otellog.LoggerProvider, name string) (*zap.Logger, error) {
	bridge, err := zapcore.NewIncreaseLevelCore(
		otelzap.NewCore(name, otelzap.WithLoggerProvider(provider)),
		base.Level(),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge zap to otel: %w", err)
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, bridge)
	})), nil
}
