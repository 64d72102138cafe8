// Package app wires configuration into the services the server and the
// operator commands drive.
package app

import (
	"context"
	"errors"
	"fmt"

	appbarcode "github.com/sellerops/console/internal/application/barcode"
	appcatalog "github.com/sellerops/console/internal/application/catalog"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/application/reservation"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/sellerops/console/internal/infrastructure/cache"
	"github.com/sellerops/console/internal/infrastructure/config"
	"github.com/sellerops/console/internal/infrastructure/ecommerce"
	"github.com/sellerops/console/internal/infrastructure/event"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/migration"
	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"github.com/sellerops/console/internal/interfaces/cli"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// App holds the opened infrastructure and the application services built
// on it. Close releases everything Open acquired.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Database    *persistence.Database
	Checkpoints ordersync.CheckpointStore
	Publisher   order.EventPublisher
	Adapters    *ecommerce.Registry
	Tokens      *auth.JWTService
	Tracer      *telemetry.TracerProvider
	Meters      *telemetry.MeterProvider
	Logs        *telemetry.LoggerProvider

	Engine       *appinventory.Engine
	Orders       *apporder.StateMachine
	Sync         *ordersync.Service
	Reservations *reservation.Service
	Aliases      *appbarcode.AliasService
	Products     *appcatalog.ProductService

	closers []func(ctx context.Context) error
}

// Options select the optional parts of the wiring.
type Options struct {
	// Telemetry starts the tracer, meter and logger providers. With log
	// export on, Logger is replaced by one teed into the collector.
	Telemetry bool
}

// Open connects the database, migrates its schema and builds the services.
// On error everything acquired so far is released.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if opts.Telemetry {
		if err := a.openTelemetry(ctx); err != nil {
			return nil, err
		}
		log = a.Logger
	}

	gormLog := logger.NewGormLogger(log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	a.Database, err = persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return a.Database.Close() })
	log.Info("Database connected", zap.String("driver", a.Database.Driver))

	if opts.Telemetry && cfg.Telemetry.DBTraceEnabled {
		dbCfg := telemetry.DefaultDBTracingConfig()
		dbCfg.Enabled = true
		dbCfg.DBSystem = a.Database.Driver
		dbCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		if err := telemetry.NewDBTracingPlugin(dbCfg, log).RegisterOtelGorm(a.Database.DB); err != nil {
			return nil, fmt.Errorf("register db tracing: %w", err)
		}
	}

	if err := a.migrate(); err != nil {
		return nil, err
	}

	a.Checkpoints, err = cache.NewCheckpointStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		return nil, err
	}
	if c, ok := a.Checkpoints.(interface{ Close() error }); ok {
		a.onClose(func(context.Context) error { return c.Close() })
	}

	a.Publisher = a.openPublisher()

	a.Adapters, err = ecommerce.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	a.Tokens = auth.NewJWTService(cfg.JWT)

	a.buildServices()
	if err := a.attachMetrics(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openTelemetry(ctx context.Context) error {
	cfg, log := a.Config, a.Logger
	tcfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		Logs:              cfg.Telemetry.LogsEnabled,
	}
	var err error
	a.Tracer, err = telemetry.NewTracerProvider(ctx, tcfg, log)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	a.onClose(a.Tracer.Shutdown)

	a.Meters, err = telemetry.NewMeterProvider(ctx, tcfg, log)
	if err != nil {
		return fmt.Errorf("init meter provider: %w", err)
	}
	a.onClose(a.Meters.Shutdown)

	a.Logs, err = telemetry.NewLoggerProvider(ctx, tcfg, log)
	if err != nil {
		return fmt.Errorf("init logger provider: %w", err)
	}
	a.onClose(a.Logs.Shutdown)
	a.Logger, err = a.Logs.Bridge(log)
	if err != nil {
		return fmt.Errorf("bridge logger: %w", err)
	}
	return nil
}

// migrate brings the schema up to date. sqlite files are created on the fly
// with AutoMigrate; postgres runs the versioned migrations.
func (a *App) migrate() error {
	if a.Database.Driver == "sqlite" {
		return persistence.AutoMigrate(a.Database.DB)
	}
	sqlDB, err := a.Database.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, a.Logger)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared pool
	return m.Up()
}

func (a *App) openPublisher() order.EventPublisher {
	cfg := a.Config
	if !cfg.Kafka.Enabled() {
		a.Logger.Info("Kafka not configured, transition events stay in process")
		return event.NewInMemoryBus(a.Logger)
	}
	p := event.NewKafkaPublisher(event.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), a.Logger)
	a.onClose(func(context.Context) error { return p.Close() })
	a.Logger.Info("Publishing transition events to Kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic))
	return p
}

func (a *App) buildServices() {
	cfg, log := a.Config, a.Logger
	scope := persistence.NewGormTransactionScope(a.Database.DB)

	a.Engine = appinventory.NewEngine(scope, appinventory.Config{
		ConsumeOrder:        cfg.Inventory.ConsumeOrder,
		CustomShelfPriority: cfg.Inventory.CustomShelfPriority,
		ReturnShelf:         cfg.Stock.ReturnShelf,
	}, log)
	a.Orders = apporder.NewStateMachine(scope, a.Engine, a.Publisher, apporder.Config{
		Rules:        cfg.OrderRules(),
		CancelPolicy: cfg.CancelPolicy(),
		Verification: cfg.Pick.VerificationMode,
	}, log)
	a.Reservations = reservation.NewService(scope, cfg.Stock.PushBatchSize, log)
	a.Sync = ordersync.NewService(scope, a.Orders, ordersync.Config{
		LookbackDays:       cfg.Sync.LookbackWindowDays,
		MaxConcurrentPages: cfg.Sync.MaxConcurrentPages,
		PageTimeout:        cfg.Sync.HTTPTimeout,
		MaxRetries:         cfg.Sync.MaxRetries,
		BackoffBase:        cfg.Sync.RetryBackoff,
		BackoffCap:         cfg.Sync.RetryBackoffCap,
	}, log)
	a.Aliases = appbarcode.NewAliasService(scope, a.Engine, log)
	a.Products = appcatalog.NewProductService(scope, log)
}

func (a *App) attachMetrics() error {
	if a.Meters == nil || !a.Meters.IsEnabled() {
		return nil
	}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  a.Meters.Meter("sellerops.console"),
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init business metrics: %w", err)
	}
	a.Engine.SetBusinessMetrics(bm)
	a.Orders.SetBusinessMetrics(bm)
	a.Reservations.SetBusinessMetrics(bm)
	a.Sync.SetBusinessMetrics(bm)
	return nil
}

// CLIServices exposes the services to the operator commands.
func (a *App) CLIServices() cli.Services {
	return cli.Services{
		Aliases:      a.Aliases,
		Engine:       a.Engine,
		Orders:       a.Orders,
		Sync:         a.Sync,
		Reservations: a.Reservations,
		Products:     a.Products,
		Adapters:     a.Adapters,
		Tokens:       a.Tokens,
	}
}

func (a *App) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close waits for background sync work and releases resources in reverse
// order of acquisition.
func (a *App) Close(ctx context.Context) error {
	if a.Sync != nil {
		a.Sync.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
