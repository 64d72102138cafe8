// Package ordersync pulls marketplace order pages and reconciles them into
// the status tables.
package ordersync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config tunes pulls.
type Config struct {
	LookbackDays       int
	MaxConcurrentPages int
	PageTimeout        time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	// RateLimitFloor is the minimum wait after a 429 without Retry-After.
	RateLimitFloor time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDays:       14,
		MaxConcurrentPages: 10,
		PageTimeout:        60 * time.Second,
		MaxRetries:         5,
		BackoffBase:        time.Second,
		BackoffCap:         60 * time.Second,
		RateLimitFloor:     5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.MaxConcurrentPages <= 0 {
		c.MaxConcurrentPages = d.MaxConcurrentPages
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = d.PageTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = d.BackoffCap
	}
	if c.RateLimitFloor <= 0 {
		c.RateLimitFloor = d.RateLimitFloor
	}
	return c
}

// PullReport summarizes one pull of one source.
type PullReport struct {
	RunID      string             `json:"run_id"`
	Source     string             `json:"source"`
	Window     marketplace.Window `json:"-"`
	Pages      int                `json:"pages"`
	Fetched    int                `json:"fetched"`
	Deduped    int                `json:"deduped"`
	Archived   int                `json:"archived"`
	Inserted   int                `json:"inserted"`
	Migrated   int                `json:"migrated"`
	Updated    int                `json:"updated"`
	Unchanged  int                `json:"unchanged"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Background int                `json:"background"`
	// FailedPages lists pages that exhausted their retries.
	FailedPages []PageError `json:"-"`
	// FailedOrders maps order numbers to the error that rolled them back.
	FailedOrders map[string]string `json:"failed_orders,omitempty"`
}

// Partial reports whether some pages or orders could not be applied.
func (r *PullReport) Partial() bool {
	return len(r.FailedPages) > 0 || r.Failed > 0
}

// PullView is the flattened output of a pull.
type PullView struct {
	*PullReport
	Since       time.Time `json:"since"`
	Until       time.Time `json:"until"`
	Partial     bool      `json:"partial"`
	FailedPages []string  `json:"failed_pages,omitempty"`
}

// View flattens the report for output.
func (r *PullReport) View() PullView {
	out := PullView{
		PullReport: r,
		Since:      r.Window.Since,
		Until:      r.Window.Until,
		Partial:    r.Partial(),
	}
	for _, pe := range r.FailedPages {
		out.FailedPages = append(out.FailedPages, pe.Error())
	}
	return out
}

func (r *PullReport) add(o outcome, number string, err error) {
	switch o {
	case outcomeInserted:
		r.Inserted++
	case outcomeMigrated:
		r.Migrated++
	case outcomeUpdated:
		r.Updated++
	case outcomeUnchanged:
		r.Unchanged++
	case outcomeSkipped:
		r.Skipped++
	case outcomeArchived:
		r.Archived++
	case outcomeFailed:
		r.Failed++
		if r.FailedOrders == nil {
			r.FailedOrders = make(map[string]string)
		}
		r.FailedOrders[number] = err.Error()
	}
}

// Service reconciles marketplace orders through the state machine.
type Service struct {
	scope           tx.Scope
	machine         *apporder.StateMachine
	cfg             Config
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	background sync.WaitGroup
}

// NewService creates a new sync Service.
func NewService(scope tx.Scope, machine *apporder.StateMachine, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		scope:   scope,
		machine: machine,
		cfg:     cfg.withDefaults(),
		logger:  log,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// DefaultWindow is the lookback window ending now.
func (s *Service) DefaultWindow() marketplace.Window {
	return marketplace.LookbackWindow(s.now(), s.cfg.LookbackDays)
}

// Window builds a pull window from optional bounds. A missing until is
// now; a missing since is until minus the lookback.
func (s *Service) Window(since, until *time.Time) (marketplace.Window, error) {
	w := s.DefaultWindow()
	if until != nil {
		lookback := w.Until.Sub(w.Since)
		w.Until = *until
		w.Since = until.Add(-lookback)
	}
	if since != nil {
		w.Since = *since
	}
	return w, w.Validate()
}

// Pull fetches every page of src in window and applies the candidates.
// Created, ReadyToShip, Picking and Cancelled candidates commit in one
// transaction before Pull returns; Shipped and Delivered candidates are
// handed to a background worker, see Wait.
func (s *Service) Pull(ctx context.Context, src marketplace.OrderSource, window marketplace.Window) (*PullReport, error) {
	if window.Since.IsZero() && window.Until.IsZero() {
		window = s.DefaultWindow()
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	source := string(src.Marketplace())
	runID := uuid.NewString()
	ctx, log := logger.WithRunID(ctx, s.logger, runID)
	ctx, span := telemetry.StartServiceSpan(ctx, "ordersync", "pull",
		telemetry.WithAttribute(telemetry.SpanAttrSource, source))
	defer span.End()

	report := &PullReport{RunID: runID, Source: source, Window: window}

	// Network first; no transaction is open while pages are fetched.
	pages, failedPages, err := s.fetchAll(ctx, src, window)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Order pull failed",
			zap.String("source", source),
			zap.Error(err))
		return nil, err
	}
	report.Pages = len(pages)
	report.FailedPages = failedPages
	for _, pe := range failedPages {
		log.Warn("Page skipped after retries",
			zap.String("source", source),
			zap.Int("page", pe.Page),
			zap.Error(pe.Err))
	}

	candidates := collect(source, pages, report)
	candidates, err = s.dropArchived(ctx, candidates, report)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	foreground, background := classify(candidates)
	if err := s.applyBatch(ctx, source, foreground, report); err != nil {
		telemetry.RecordError(span, err)
		log.Error("Order sync batch rolled back",
			zap.String("source", source),
			zap.Int("candidates", len(foreground)),
			zap.Error(err))
		return report, err
	}

	report.Background = len(background)
	if len(background) > 0 {
		s.runBackground(ctx, source, background)
	}

	s.recordReport(ctx, report)
	telemetry.SetAttributes(span,
		"sync.inserted", report.Inserted,
		"sync.migrated", report.Migrated,
		"sync.failed", report.Failed)
	log.Info("Order pull completed",
		zap.String("source", source),
		zap.Time("since", window.Since),
		zap.Time("until", window.Until),
		zap.Int("pages", report.Pages),
		zap.Int("failed_pages", len(report.FailedPages)),
		zap.Int("fetched", report.Fetched),
		zap.Int("deduped", report.Deduped),
		zap.Int("archived", report.Archived),
		zap.Int("inserted", report.Inserted),
		zap.Int("migrated", report.Migrated),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("background", report.Background))
	return report, nil
}

// Wait blocks until every background batch started by Pull has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// runBackground applies later-status candidates in their own transaction.
// Each candidate re-locates its row inside that transaction, so a row the
// foreground path moved meanwhile is seen in its new table.
func (s *Service) runBackground(ctx context.Context, source string, candidates []candidate) {
	// The batch outlives the request; keep the logger and trace, not the deadline.
	bgCtx := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		report := &PullReport{Source: source}
		if err := s.applyBatch(bgCtx, source, candidates, report); err != nil {
			logger.Enrich(bgCtx, s.logger).Error("Background sync batch rolled back",
				zap.String("source", source),
				zap.Int("candidates", len(candidates)),
				zap.Error(err))
			return
		}
		s.recordReport(bgCtx, report)
		logger.Enrich(bgCtx, s.logger).Info("Background sync batch applied",
			zap.String("source", source),
			zap.Int("migrated", report.Migrated),
			zap.Int("inserted", report.Inserted),
			zap.Int("updated", report.Updated),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}()
}

// dropArchived removes candidates already present in Archive.
func (s *Service) dropArchived(ctx context.Context, candidates []candidate, report *PullReport) ([]candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	numbers := make([]string, 0, len(candidates))
	for _, c := range candidates {
		numbers = append(numbers, c.remote.OrderNumber)
	}
	var located map[string]order.Status
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		located, err = repos.Orders().LocateMany(ctx, numbers)
		return err
	})
	if err != nil {
		return nil, err
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if located[c.remote.OrderNumber] == order.StatusArchive {
			report.Archived++
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func (s *Service) recordReport(ctx context.Context, r *PullReport) {
	if s.businessMetrics == nil {
		return
	}
	bm := s.businessMetrics
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeInserted, r.Inserted)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeMigrated, r.Migrated)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeUpdated, r.Updated)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeUnchanged, r.Unchanged)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeSkipped, r.Skipped)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeDeduped, r.Deduped)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeArchived, r.Archived)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeFailed, r.Failed)
	bm.RecordSyncOrders(ctx, r.Source, telemetry.SyncOutcomeBackground, r.Background)
}
