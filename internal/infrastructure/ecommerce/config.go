package ecommerce

import (
	"errors"
	"time"

	"github.com/sellerops/console/internal/domain/marketplace"
)

// Config holds the connection settings of one marketplace account.
type Config struct {
	Marketplace marketplace.Marketplace
	// BaseURL is the API root; empty uses the production endpoint.
	BaseURL   string
	SellerID  string
	APIKey    string
	APISecret string
	// MarketplaceID selects the Amazon storefront.
	MarketplaceID string
	// PageSize is the number of orders requested per page.
	PageSize int
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration
	// RateLimitRPS paces outgoing requests; burst is one request.
	RateLimitRPS float64
}

// Production endpoints.
const (
	TrendyolBaseURL = "https://api.trendyol.com/sapigw"
	AmazonBaseURL   = "https://sellingpartnerapi-eu.amazon.com"
	IdefixBaseURL   = "https://merchantapi.idefix.com"

	// AmazonTurkeyMarketplaceID is used when MarketplaceID is empty.
	AmazonTurkeyMarketplaceID = "A33AVAJ2PDY3EV"
)

// Errors for marketplace configuration
var (
	ErrConfigMissingSellerID = errors.New("ecommerce: seller id is required")
	ErrConfigMissingAPIKey   = errors.New("ecommerce: api key is required")
	ErrConfigMissingBaseURL  = errors.New("ecommerce: base url is required")
)

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	switch c.Marketplace {
	case marketplace.Trendyol, marketplace.Idefix:
		if c.SellerID == "" {
			return ErrConfigMissingSellerID
		}
	case marketplace.Amazon:
		if c.SellerID == "" {
			return ErrConfigMissingSellerID
		}
		if c.MarketplaceID == "" {
			c.MarketplaceID = AmazonTurkeyMarketplaceID
		}
	case marketplace.WooCommerce:
		if c.BaseURL == "" {
			return ErrConfigMissingBaseURL
		}
	}
	if c.BaseURL == "" {
		switch c.Marketplace {
		case marketplace.Trendyol:
			c.BaseURL = TrendyolBaseURL
		case marketplace.Amazon:
			c.BaseURL = AmazonBaseURL
		case marketplace.Idefix:
			c.BaseURL = IdefixBaseURL
		}
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 5
	}
	return nil
}
