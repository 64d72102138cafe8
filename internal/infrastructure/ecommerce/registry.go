package ecommerce

import (
	"fmt"
	"sort"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/infrastructure/config"
)

// Adapter is both sides of one marketplace integration.
type Adapter interface {
	marketplace.OrderSource
	marketplace.StockPusher
}

// New builds the adapter for cfg.Marketplace.
func New(cfg Config) (Adapter, error) {
	switch cfg.Marketplace {
	case marketplace.Trendyol:
		return NewTrendyolAdapter(cfg)
	case marketplace.Amazon:
		return NewAmazonAdapter(cfg)
	case marketplace.Idefix:
		return NewIdefixAdapter(cfg)
	case marketplace.WooCommerce:
		return NewWooCommerceAdapter(cfg)
	}
	return nil, fmt.Errorf("ecommerce: unsupported marketplace %q", cfg.Marketplace)
}

// Registry holds the adapters of every enabled marketplace.
type Registry struct {
	adapters map[marketplace.Marketplace]Adapter
}

// NewRegistry builds an adapter for every marketplace enabled in cfg. Page
// size, timeout and pacing come from the sync settings.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{adapters: make(map[marketplace.Marketplace]Adapter)}
	for _, m := range marketplace.All {
		mc := cfg.Marketplace(m)
		if !mc.Enabled {
			continue
		}
		adapter, err := New(Config{
			Marketplace:   m,
			BaseURL:       mc.BaseURL,
			SellerID:      mc.SellerID,
			APIKey:        mc.APIKey,
			APISecret:     mc.APISecret,
			MarketplaceID: mc.MarketplaceID,
			PageSize:      cfg.Sync.PageSize,
			Timeout:       cfg.Sync.HTTPTimeout,
			RateLimitRPS:  cfg.Sync.RateLimitRPS,
		})
		if err != nil {
			return nil, fmt.Errorf("marketplaces.%s: %w", m, err)
		}
		r.adapters[m] = adapter
	}
	return r, nil
}

// Register adds or replaces the adapter of its marketplace.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Marketplace()] = a
}

// Source returns the order source of m.
func (r *Registry) Source(m marketplace.Marketplace) (marketplace.OrderSource, error) {
	a, ok := r.adapters[m]
	if !ok {
		return nil, marketplace.ErrRejected.WithDetails("marketplace %s is not enabled", m)
	}
	return a, nil
}

// Pusher returns the stock pusher of m.
func (r *Registry) Pusher(m marketplace.Marketplace) (marketplace.StockPusher, error) {
	a, ok := r.adapters[m]
	if !ok {
		return nil, marketplace.ErrRejected.WithDetails("marketplace %s is not enabled", m)
	}
	return a, nil
}

// Enabled lists the registered marketplaces in name order.
func (r *Registry) Enabled() []marketplace.Marketplace {
	out := make([]marketplace.Marketplace, 0, len(r.adapters))
	for m := range r.adapters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
