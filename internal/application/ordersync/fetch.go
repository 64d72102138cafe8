package ordersync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageError records a page that could not be fetched after all retries.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e PageError) Unwrap() error {
	return e.Err
}

// fetchAll reads page 0 to learn the page count, then the remaining pages
// with at most MaxConcurrentPages in flight. A failure of page 0 fails the
// pull; later page failures are returned alongside the pages that worked.
func (s *Service) fetchAll(ctx context.Context, src marketplace.OrderSource, window marketplace.Window) ([]*marketplace.Page, []PageError, error) {
	first, err := s.fetchPage(ctx, src, window, 0)
	if err != nil {
		return nil, nil, err
	}
	total := max(first.TotalPages, 1)
	pages := make([]*marketplace.Page, total)
	pages[0] = first
	if total == 1 {
		return pages, nil, nil
	}

	var (
		mu     sync.Mutex
		failed []PageError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentPages)
	for p := 1; p < total; p++ {
		g.Go(func() error {
			page, err := s.fetchPage(gctx, src, window, p)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				failed = append(failed, PageError{Page: p, Err: err})
				mu.Unlock()
				return nil
			}
			pages[p] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pages, failed, nil
}

// fetchPage fetches one page with a per-attempt timeout. Retryable errors
// back off exponentially; 429 honors Retry-After when the source sent one.
func (s *Service) fetchPage(ctx context.Context, src marketplace.OrderSource, window marketplace.Window, page int) (*marketplace.Page, error) {
	source := string(src.Marketplace())
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff(attempt, lastErr)
			logger.Enrich(ctx, s.logger).Debug("Retrying page fetch",
				zap.String("source", source),
				zap.Int("page", page),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
		start := time.Now()
		result, err := src.FetchOrders(attemptCtx, window, page)
		cancel()
		if s.businessMetrics != nil {
			s.businessMetrics.RecordPageFetch(ctx, source, time.Since(start), err)
		}
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, marketplace.ErrUnreachable) {
			err = &marketplace.FetchError{Kind: marketplace.ErrUnreachable, Err: err}
		}
		lastErr = err
		if !marketplace.Retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// backoff is base * 2^(attempt-1) capped, or the server's Retry-After. A
// rate limit without Retry-After waits at least RateLimitFloor.
func (s *Service) backoff(attempt int, err error) time.Duration {
	if d, ok := marketplace.RetryAfter(err); ok {
		return min(d, s.cfg.BackoffCap)
	}
	delay := s.cfg.BackoffBase << (attempt - 1)
	if delay <= 0 || delay > s.cfg.BackoffCap {
		delay = s.cfg.BackoffCap
	}
	if errors.Is(err, marketplace.ErrRateLimited) && delay < s.cfg.RateLimitFloor {
		delay = s.cfg.RateLimitFloor
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
