package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	appbarcode "github.com/sellerops/console/internal/application/barcode"
	appcatalog "github.com/sellerops/console/internal/application/catalog"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

type stockFlags struct {
	shelf, from, to, barcode string
	count                    int
}

func (c *CLI) stockMutation(name string, args []string, transfer bool) (*stockFlags, error) {
	if c.svc.Engine == nil {
		return nil, notConfigured("inventory engine")
	}
	var f stockFlags
	fs := newFlags(name)
	if transfer {
		fs.StringVar(&f.from, "from", "", "source shelf")
		fs.StringVar(&f.to, "to", "", "target shelf")
	} else {
		fs.StringVar(&f.shelf, "shelf", "", "shelf code")
	}
	fs.StringVar(&f.barcode, "barcode", "", "barcode or alias")
	fs.IntVar(&f.count, "count", 0, "unit count")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	names := []string{"shelf", "barcode", "count"}
	if transfer {
		names = []string{"from", "to", "barcode", "count"}
	}
	if err := required(fs, names...); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *CLI) stockAdd(ctx context.Context, args []string) (any, error) {
	f, err := c.stockMutation("stock add", args, false)
	if err != nil {
		return nil, err
	}
	return c.svc.Engine.Add(ctx, f.shelf, f.barcode, f.count)
}

func (c *CLI) stockRenew(ctx context.Context, args []string) (any, error) {
	f, err := c.stockMutation("stock renew", args, false)
	if err != nil {
		return nil, err
	}
	return c.svc.Engine.Renew(ctx, f.shelf, f.barcode, f.count)
}

func (c *CLI) stockTransfer(ctx context.Context, args []string) (any, error) {
	f, err := c.stockMutation("stock transfer", args, true)
	if err != nil {
		return nil, err
	}
	return c.svc.Engine.Transfer(ctx, f.from, f.to, f.barcode, f.count)
}

func (c *CLI) stockShow(ctx context.Context, args []string) (any, error) {
	if c.svc.Engine == nil {
		return nil, notConfigured("inventory engine")
	}
	fs := newFlags("stock show")
	code := fs.String("barcode", "", "barcode or alias")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "barcode"); err != nil {
		return nil, err
	}
	return c.svc.Engine.Stock(ctx, *code)
}

func (c *CLI) stockAvailable(ctx context.Context, args []string) (any, error) {
	if c.svc.Reservations == nil {
		return nil, notConfigured("reservation service")
	}
	fs := newFlags("stock available")
	code := fs.String("barcode", "", "barcode or alias")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "barcode"); err != nil {
		return nil, err
	}
	return c.svc.Reservations.Snapshot(ctx, *code)
}

func (c *CLI) stockPush(ctx context.Context, args []string) (any, error) {
	if c.svc.Reservations == nil || c.svc.Adapters == nil {
		return nil, notConfigured("stock push")
	}
	fs := newFlags("stock push")
	name := fs.String("marketplace", "", "target marketplace")
	dryRun := fs.Bool("dry-run", false, "print the payload without posting it")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "marketplace"); err != nil {
		return nil, err
	}
	m, err := marketplace.Parse(*name)
	if err != nil {
		return nil, err
	}
	if *dryRun {
		return c.svc.Reservations.PushPayload(ctx, m)
	}
	pusher, err := c.svc.Adapters.Pusher(m)
	if err != nil {
		return nil, err
	}
	return c.svc.Reservations.PushStock(ctx, pusher)
}

func (c *CLI) shelfShow(ctx context.Context, args []string) (any, error) {
	if c.svc.Engine == nil {
		return nil, notConfigured("inventory engine")
	}
	fs := newFlags("shelf show")
	shelf := fs.String("shelf", "", "shelf code")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "shelf"); err != nil {
		return nil, err
	}
	return c.svc.Engine.ShelfContents(ctx, *shelf)
}

// ---------------------------------------------------------------------------
// Aliases
// ---------------------------------------------------------------------------

func (c *CLI) aliasAdd(ctx context.Context, args []string) (any, error) {
	if c.svc.Aliases == nil {
		return nil, notConfigured("alias service")
	}
	fs := newFlags("alias add")
	merge := fs.Bool("merge", true, "fold stock held under the alias into the canonical barcode")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	pos, err := positional(fs, 2, "ALIAS CANONICAL")
	if err != nil {
		return nil, err
	}
	return c.svc.Aliases.AddAlias(ctx, appbarcode.AddAliasRequest{
		Alias:       pos[0],
		Canonical:   pos[1],
		MergeStocks: merge,
	})
}

func (c *CLI) aliasRemove(ctx context.Context, args []string) (any, error) {
	if c.svc.Aliases == nil {
		return nil, notConfigured("alias service")
	}
	fs := newFlags("alias remove")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	pos, err := positional(fs, 1, "ALIAS")
	if err != nil {
		return nil, err
	}
	if err := c.svc.Aliases.RemoveAlias(ctx, pos[0]); err != nil {
		return nil, err
	}
	return map[string]string{"removed": pos[0]}, nil
}

func (c *CLI) aliasInfo(ctx context.Context, args []string) (any, error) {
	if c.svc.Aliases == nil {
		return nil, notConfigured("alias service")
	}
	fs := newFlags("alias info")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	pos, err := positional(fs, 1, "BARCODE")
	if err != nil {
		return nil, err
	}
	return c.svc.Aliases.Info(ctx, pos[0])
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func (c *CLI) orderTransition(ctx context.Context, args []string) (any, error) {
	if c.svc.Orders == nil {
		return nil, notConfigured("order state machine")
	}
	fs := newFlags("order transition")
	number := fs.String("order", "", "order number")
	to := fs.String("to", "", "target status")
	reason := fs.String("reason", "", "cancellation or archive reason")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "order", "to"); err != nil {
		return nil, err
	}
	target, err := order.ParseStatus(*to)
	if err != nil {
		return nil, err
	}
	o, err := c.svc.Orders.Transition(ctx, order.TransitionRequest{
		OrderNumber: *number,
		To:          target,
		Reason:      *reason,
		Origin:      order.OriginOperator,
	})
	if err != nil {
		return nil, err
	}
	return apporder.ToOrderResponse(o), nil
}

func (c *CLI) orderPickVerify(ctx context.Context, args []string) (any, error) {
	if c.svc.Orders == nil {
		return nil, notConfigured("order state machine")
	}
	fs := newFlags("order pick-verify")
	number := fs.String("order", "", "order number")
	scans := fs.StringSlice("scans", nil, "scanned barcodes, comma separated")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "order"); err != nil {
		return nil, err
	}
	if !fs.Changed("scans") {
		expected, err := c.svc.Orders.ExpectedScans(ctx, *number)
		if err != nil {
			return nil, err
		}
		return map[string]any{"order_number": *number, "expected_scans": expected}, nil
	}
	o, err := c.svc.Orders.PickVerify(ctx, *number, *scans)
	if err != nil {
		return nil, err
	}
	return apporder.ToOrderResponse(o), nil
}

func (c *CLI) orderShow(ctx context.Context, args []string) (any, error) {
	if c.svc.Orders == nil {
		return nil, notConfigured("order state machine")
	}
	fs := newFlags("order show")
	number := fs.String("order", "", "order number")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "order"); err != nil {
		return nil, err
	}
	o, err := c.svc.Orders.Get(ctx, *number)
	if err != nil {
		return nil, err
	}
	return apporder.ToOrderResponse(o), nil
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

func (c *CLI) syncPull(ctx context.Context, args []string) (any, error) {
	if c.svc.Sync == nil || c.svc.Adapters == nil {
		return nil, notConfigured("order sync")
	}
	fs := newFlags("sync pull")
	source := fs.String("source", "", "marketplace to pull")
	since := fs.String("since", "", "window start (RFC 3339 or YYYY-MM-DD)")
	until := fs.String("until", "", "window end (RFC 3339 or YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "source"); err != nil {
		return nil, err
	}
	m, err := marketplace.Parse(*source)
	if err != nil {
		return nil, err
	}
	window, err := c.window(*since, *until)
	if err != nil {
		return nil, err
	}
	src, err := c.svc.Adapters.Source(m)
	if err != nil {
		return nil, err
	}

	report, err := c.svc.Sync.Pull(ctx, src, window)
	// the process exits after the command; finish the background path first
	c.svc.Sync.Wait()
	if err != nil {
		return nil, err
	}
	return report.View(), nil
}

// window parses the optional bounds of sync pull.
func (c *CLI) window(since, until string) (marketplace.Window, error) {
	var sincePtr, untilPtr *time.Time
	if since != "" {
		t, err := parseTime("since", since)
		if err != nil {
			return marketplace.Window{}, err
		}
		sincePtr = &t
	}
	if until != "" {
		t, err := parseTime("until", until)
		if err != nil {
			return marketplace.Window{}, err
		}
		untilPtr = &t
	}
	return c.svc.Sync.Window(sincePtr, untilPtr)
}

func parseTime(flag, v string) (time.Time, error) {
	t, err := marketplace.ParseOrderDate(v)
	if err != nil {
		return time.Time{}, usageError("--%s: cannot parse %q", flag, v)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Products and tokens
// ---------------------------------------------------------------------------

func (c *CLI) productUpsert(ctx context.Context, args []string) (any, error) {
	if c.svc.Products == nil {
		return nil, notConfigured("product service")
	}
	fs := newFlags("product upsert")
	req := appcatalog.UpsertProductRequest{}
	fs.StringVar(&req.Barcode, "barcode", "", "canonical barcode")
	fs.StringVar(&req.Title, "title", "", "product title")
	fs.StringVar(&req.ModelID, "model", "", "model id")
	fs.StringVar(&req.Color, "color", "", "color")
	fs.StringVar(&req.Size, "size", "", "size")
	price := fs.String("price", "", "list price")
	fs.StringSliceVar(&req.Marketplaces, "marketplaces", nil, "listing marketplaces, comma separated")
	fs.BoolVar(&req.Archived, "archived", false, "archived")
	fs.BoolVar(&req.Hidden, "hidden", false, "hidden from stock pushes")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "barcode", "title"); err != nil {
		return nil, err
	}
	if *price != "" {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, usageError("--price: %v", err)
		}
		req.Price = &p
	}
	for i, m := range req.Marketplaces {
		parsed, err := marketplace.Parse(m)
		if err != nil {
			return nil, err
		}
		req.Marketplaces[i] = string(parsed)
	}
	return c.svc.Products.Upsert(ctx, req)
}

func (c *CLI) productShow(ctx context.Context, args []string) (any, error) {
	if c.svc.Products == nil {
		return nil, notConfigured("product service")
	}
	fs := newFlags("product show")
	code := fs.String("barcode", "", "barcode or alias")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "barcode"); err != nil {
		return nil, err
	}
	return c.svc.Products.Get(ctx, *code)
}

func (c *CLI) tokenIssue(ctx context.Context, args []string) (any, error) {
	if c.svc.Tokens == nil {
		return nil, notConfigured("jwt")
	}
	fs := newFlags("token issue")
	operator := fs.String("operator", "", "operator name")
	scopes := fs.StringSlice("scopes", nil, "granted scopes, comma separated")
	ttl := fs.Duration("ttl", 0, "token lifetime")
	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if err := required(fs, "operator"); err != nil {
		return nil, err
	}
	parsed, err := auth.ParseScopes(*scopes)
	if err != nil {
		return nil, usageError("--scopes: %v", err)
	}
	issued, err := c.svc.Tokens.Issue(strings.TrimSpace(*operator), parsed, *ttl)
	switch {
	case errors.Is(err, auth.ErrMissingSecret):
		return nil, notConfigured("jwt.secret")
	case err != nil:
		return nil, usageError("%v", err)
	}
	return issued, nil
}
