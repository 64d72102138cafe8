// Command server runs the operator HTTP API together with the background
// marketplace sync and stock push scheduler.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/app"
	"github.com/sellerops/console/internal/infrastructure/config"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/scheduler"
	"github.com/sellerops/console/internal/interfaces/http/handler"
	"github.com/sellerops/console/internal/interfaces/http/middleware"
	"github.com/sellerops/console/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// syncLockTTL bounds how long a crashed instance keeps a source claimed.
const syncLockTTL = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting sellerops console",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", app.Version),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.Options{Telemetry: true})
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	log = a.Logger

	// Scheduler and trigger
	var (
		jobs    handler.Jobs
		sched   *scheduler.Scheduler
		trigger *scheduler.Trigger
	)
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewMarketplaceExecutor(a.Adapters, a.Sync, a.Reservations, a.Checkpoints, syncLockTTL, log)
		sched, err = scheduler.New(scheduler.Config{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, executor, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		jobs = sched

		trigger = scheduler.NewTrigger(scheduler.TriggerConfig{
			SyncInterval: cfg.Sync.Interval,
			PushInterval: cfg.Stock.PushInterval,
			SyncSources:  cfg.EnabledSources(),
			PushTargets:  a.Adapters.Enabled(),
			MaxRetries:   cfg.Scheduler.RetryAttempts,
		}, sched, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start trigger", zap.Error(err))
		}
	} else {
		log.Info("Scheduler disabled, marketplace sync runs on demand only")
	}

	// Health checks
	checks := map[string]handler.Pinger{"database": a.Database}
	if p, ok := a.Checkpoints.(handler.Pinger); ok {
		checks["redis"] = p
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go sweepLimiter(ctx, limiter, cfg.HTTP.RateLimitWindow)
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}

	engine := router.New(router.Handlers{
		Stock:        handler.NewStockHandler(a.Engine, a.Reservations),
		Aliases:      handler.NewAliasHandler(a.Aliases),
		Orders:       handler.NewOrderHandler(a.Orders),
		Sync:         handler.NewSyncHandler(a.Sync, a.Adapters, jobs),
		Reservations: handler.NewReservationHandler(a.Reservations, a.Adapters),
		Products:     handler.NewProductHandler(a.Products),
		System:       handler.NewSystemHandler(cfg.App.Name, checks),
	}, router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		JWT:            a.Tokens,
		CORS:           cors,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		RateLimiter:    limiter,
		Tracing:        cfg.Telemetry.Enabled,
		Meters:         a.Meters,
		Logger:         log,
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Trigger did not stop cleanly", zap.Error(err))
		}
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("Error releasing resources", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// sweepLimiter drops idle rate limit buckets once per window.
func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
