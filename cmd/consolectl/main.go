// Command consolectl runs one operator command against the configured
// database and prints its result document to stdout.
//
//	consolectl [--config path] <group> <command> [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sellerops/console/internal/app"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/config"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/interfaces/cli"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("consolectl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	configPath := fs.String("config", "", "path to config.toml")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return shared.ExitCode(shared.ErrInvalidInput)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return shared.ExitConfig
	}

	log, err := logger.ForCommand(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		return shared.ExitConfig
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return shared.ExitCode(err)
	}
	// Close waits for background inserts queued by a pull.
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
	}()

	return cli.New(a.CLIServices(), os.Stdout, log).Run(ctx, fs.Args())
}
