// Package cli implements the operator commands. Every command prints one
// result document to stdout and maps its error to a process exit code.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	appbarcode "github.com/sellerops/console/internal/application/barcode"
	appcatalog "github.com/sellerops/console/internal/application/catalog"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/application/reservation"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Adapters resolves marketplace adapters by name.
type Adapters interface {
	Source(m marketplace.Marketplace) (marketplace.OrderSource, error)
	Pusher(m marketplace.Marketplace) (marketplace.StockPusher, error)
}

// Services are the application services the commands drive. Commands whose
// service is nil fail with a configuration error.
type Services struct {
	Aliases      *appbarcode.AliasService
	Engine       *appinventory.Engine
	Orders       *apporder.StateMachine
	Sync         *ordersync.Service
	Reservations *reservation.Service
	Products     *appcatalog.ProductService
	Adapters     Adapters
	Tokens       *auth.JWTService
}

type handler func(ctx context.Context, args []string) (any, error)

// CLI dispatches operator commands.
type CLI struct {
	svc      Services
	out      io.Writer
	logger   *zap.Logger
	commands map[string]handler
}

// New creates a new CLI writing result documents to out.
func New(svc Services, out io.Writer, logger *zap.Logger) *CLI {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CLI{svc: svc, out: out, logger: logger}
	c.commands = map[string]handler{
		"stock add":         c.stockAdd,
		"stock renew":       c.stockRenew,
		"stock transfer":    c.stockTransfer,
		"stock show":        c.stockShow,
		"stock available":   c.stockAvailable,
		"stock push":        c.stockPush,
		"shelf show":        c.shelfShow,
		"alias add":         c.aliasAdd,
		"alias remove":      c.aliasRemove,
		"alias info":        c.aliasInfo,
		"order transition":  c.orderTransition,
		"order pick-verify": c.orderPickVerify,
		"order show":        c.orderShow,
		"sync pull":         c.syncPull,
		"product upsert":    c.productUpsert,
		"product show":      c.productShow,
		"token issue":       c.tokenIssue,
	}
	return c
}

// Commands lists the known commands, sorted.
func (c *CLI) Commands() []string {
	out := make([]string, 0, len(c.commands))
	for name := range c.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes one command and returns its exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	payload, err := c.dispatch(ctx, args)
	if err != nil {
		c.logger.Debug("Command failed",
			zap.Strings("args", args),
			zap.String("code", shared.CodeOf(err)),
			zap.Error(err))
		c.write(shared.ErrorResult(err))
		return shared.ExitCode(err)
	}
	c.write(shared.OKResult(payload))
	return shared.ExitOK
}

func (c *CLI) dispatch(ctx context.Context, args []string) (any, error) {
	if len(args) < 2 {
		return nil, usageError("usage: <group> <command> [flags]; commands: %s", strings.Join(c.Commands(), ", "))
	}
	name := args[0] + " " + args[1]
	h, ok := c.commands[name]
	if !ok {
		return nil, usageError("unknown command %q", name)
	}
	return h(ctx, args[2:])
}

func (c *CLI) write(r shared.Result) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		c.logger.Error("Failed to write result", zap.Error(err))
	}
}

func usageError(format string, args ...any) error {
	return shared.ErrInvalidInput.WithDetails(format, args...)
}

func notConfigured(what string) error {
	return shared.ErrConfig.WithDetails("%s is not configured", what)
}

// newFlags returns a flag set that reports errors instead of exiting.
func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

func required(fs *pflag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		f := fs.Lookup(n)
		if f == nil || !f.Changed {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return usageError("%s: missing %s", fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func positional(fs *pflag.FlagSet, n int, names string) ([]string, error) {
	if fs.NArg() != n {
		return nil, usageError("%s: expected %s", fs.Name(), names)
	}
	return fs.Args(), nil
}
