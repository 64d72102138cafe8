package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
	Sync         SyncConfig
	Stock        StockConfig
	Pick         PickConfig
	Cancel       CancelConfig
	Inventory    InventoryConfig
	Archive      ArchiveConfig
	Marketplaces map[string]MarketplaceConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// KafkaConfig holds the transition event sink. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether events are published to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	TrustedProxies    []string
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
	// LogsEnabled exports zap records to the collector as OTLP logs in
	// addition to the configured output.
	LogsEnabled bool
}

// SyncConfig tunes marketplace pulls.
type SyncConfig struct {
	LookbackWindowDays int
	PageSize           int
	MaxConcurrentPages int
	HTTPTimeout        time.Duration
	RetryBackoff       time.Duration
	RetryBackoffCap    time.Duration
	MaxRetries         int
	RateLimitRPS       float64
	Interval           time.Duration
	Sources            []string
}

// StockConfig tunes outbound stock pushes.
type StockConfig struct {
	PushBatchSize int
	PushInterval  time.Duration
	ReturnShelf   string
}

// PickConfig controls barcode-verified picking.
type PickConfig struct {
	VerificationMode order.VerificationMode
	AllowFromCreated bool
}

// CancelConfig controls compensating stock restores.
type CancelConfig struct {
	RestoreStockFromPicking        bool
	RestoreStockFromShippedOrLater bool
}

// InventoryConfig controls the consume order.
type InventoryConfig struct {
	ConsumeOrder        inventory.ConsumeOrder
	CustomShelfPriority []string
}

// ArchiveConfig controls archive restores.
type ArchiveConfig struct {
	RestoreToOriginalStatus bool
}

// MarketplaceConfig holds credentials of one marketplace.
type MarketplaceConfig struct {
	BaseURL       string
	SellerID      string
	APIKey        string
	APISecret     string
	MarketplaceID string
	Enabled       bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SELLEROPS_ prefix (e.g., SELLEROPS_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path
// searches the default locations.
func LoadFile(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sellerops")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, shared.ErrConfig.WithDetails("error reading config file: %v", err)
		}
	}

	v.SetEnvPrefix("SELLEROPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setBoolDefaults(v)

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, shared.ErrConfig.WithDetails("%v", err)
	}
	return cfg, nil
}

// setBoolDefaults registers the options whose zero value is not the default.
func setBoolDefaults(v *viper.Viper) {
	v.SetDefault("cancel.restore_stock_from_picking", true)
	v.SetDefault("cancel.restore_stock_from_shipped_or_later", false)
	v.SetDefault("scheduler.enabled", true)
}

func build(v *viper.Viper) (*Config, error) {
	consumeOrder, err := inventory.ParseConsumeOrder(v.GetString("inventory.consume_order"))
	if err != nil {
		return nil, shared.ErrConfig.WithDetails("inventory.consume_order: %v", err)
	}
	mode, err := order.ParseVerificationMode(v.GetString("pick.verification_mode"))
	if err != nil {
		return nil, shared.ErrConfig.WithDetails("pick.verification_mode: %v", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Sync: SyncConfig{
			LookbackWindowDays: v.GetInt("sync.lookback_window_days"),
			PageSize:           v.GetInt("sync.page_size"),
			MaxConcurrentPages: v.GetInt("sync.max_concurrent_pages"),
			HTTPTimeout:        time.Duration(v.GetInt("sync.http_timeout_seconds")) * time.Second,
			RetryBackoff:       seconds(v.GetFloat64("sync.retry_backoff_seconds")),
			RetryBackoffCap:    seconds(v.GetFloat64("sync.retry_backoff_cap_seconds")),
			MaxRetries:         v.GetInt("sync.max_retries"),
			RateLimitRPS:       v.GetFloat64("sync.rate_limit_rps"),
			Interval:           v.GetDuration("sync.interval"),
			Sources:            v.GetStringSlice("sync.sources"),
		},
		Stock: StockConfig{
			PushBatchSize: v.GetInt("stock.push_batch_size"),
			PushInterval:  v.GetDuration("stock.push_interval"),
			ReturnShelf:   v.GetString("stock.return_shelf"),
		},
		Pick: PickConfig{
			VerificationMode: mode,
			AllowFromCreated: v.GetBool("pick.allow_from_created"),
		},
		Cancel: CancelConfig{
			RestoreStockFromPicking:        v.GetBool("cancel.restore_stock_from_picking"),
			RestoreStockFromShippedOrLater: v.GetBool("cancel.restore_stock_from_shipped_or_later"),
		},
		Inventory: InventoryConfig{
			ConsumeOrder:        consumeOrder,
			CustomShelfPriority: v.GetStringSlice("inventory.custom_shelf_priority"),
		},
		Archive: ArchiveConfig{
			RestoreToOriginalStatus: v.GetBool("archive.restore_to_original_status"),
		},
		Marketplaces: make(map[string]MarketplaceConfig),
	}

	for _, m := range marketplace.All {
		key := "marketplaces." + string(m)
		cfg.Marketplaces[string(m)] = MarketplaceConfig{
			BaseURL:       v.GetString(key + ".base_url"),
			SellerID:      v.GetString(key + ".seller_id"),
			APIKey:        v.GetString(key + ".api_key"),
			APISecret:     v.GetString(key + ".api_secret"),
			MarketplaceID: v.GetString(key + ".marketplace_id"),
			Enabled:       v.GetBool(key + ".enabled"),
		}
	}
	return cfg, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sellerops-console"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sellerops"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sellerops.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order-transitions"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 12 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "sellerops-console"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// sync pulls run inside the request
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sellerops-console"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Sync.LookbackWindowDays == 0 {
		cfg.Sync.LookbackWindowDays = 14
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 200
	}
	if cfg.Sync.MaxConcurrentPages == 0 {
		cfg.Sync.MaxConcurrentPages = 10
	}
	if cfg.Sync.HTTPTimeout == 0 {
		cfg.Sync.HTTPTimeout = 60 * time.Second
	}
	if cfg.Sync.RetryBackoff == 0 {
		cfg.Sync.RetryBackoff = time.Second
	}
	if cfg.Sync.RetryBackoffCap == 0 {
		cfg.Sync.RetryBackoffCap = 60 * time.Second
	}
	if cfg.Sync.RetryBackoff > cfg.Sync.RetryBackoffCap {
		cfg.Sync.RetryBackoff = cfg.Sync.RetryBackoffCap
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 5
	}
	if cfg.Sync.RateLimitRPS == 0 {
		cfg.Sync.RateLimitRPS = 5
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Stock.PushBatchSize == 0 {
		cfg.Stock.PushBatchSize = 100
	}
	if cfg.Stock.PushInterval == 0 {
		cfg.Stock.PushInterval = 15 * time.Minute
	}
	if cfg.Stock.ReturnShelf == "" {
		cfg.Stock.ReturnShelf = "IADE"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	positive := map[string]int{
		"sync.lookback_window_days": c.Sync.LookbackWindowDays,
		"sync.page_size":            c.Sync.PageSize,
		"sync.max_concurrent_pages": c.Sync.MaxConcurrentPages,
		"sync.max_retries":          c.Sync.MaxRetries,
		"stock.push_batch_size":     c.Stock.PushBatchSize,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}
	if c.Sync.HTTPTimeout <= 0 {
		return fmt.Errorf("sync.http_timeout_seconds must be positive")
	}
	if c.Sync.RetryBackoff <= 0 {
		return fmt.Errorf("sync.retry_backoff_seconds must be positive")
	}
	if c.Sync.RateLimitRPS < 0 {
		return fmt.Errorf("sync.rate_limit_rps cannot be negative")
	}
	for _, s := range c.Sync.Sources {
		if _, err := marketplace.Parse(s); err != nil {
			return fmt.Errorf("sync.sources: %w", err)
		}
	}
	if c.Inventory.ConsumeOrder == inventory.ConsumeCustom && len(c.Inventory.CustomShelfPriority) == 0 {
		return fmt.Errorf("inventory.custom_shelf_priority is required when inventory.consume_order is custom")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Marketplace returns the settings of m; the zero value when unconfigured.
func (c *Config) Marketplace(m marketplace.Marketplace) MarketplaceConfig {
	return c.Marketplaces[string(m)]
}

// EnabledSources lists the marketplaces pulled by the scheduler. Without an
// explicit sync.sources list every enabled marketplace is pulled.
func (c *Config) EnabledSources() []marketplace.Marketplace {
	var out []marketplace.Marketplace
	if len(c.Sync.Sources) > 0 {
		for _, s := range c.Sync.Sources {
			if m, err := marketplace.Parse(s); err == nil {
				out = append(out, m)
			}
		}
		return out
	}
	for _, m := range marketplace.All {
		if c.Marketplace(m).Enabled {
			out = append(out, m)
		}
	}
	return out
}

// OrderRules is the transition rule set implied by the configuration.
func (c *Config) OrderRules() order.Rules {
	return order.Rules{
		AllowPickingFromCreated: c.Pick.AllowFromCreated,
		RestoreToOriginalStatus: c.Archive.RestoreToOriginalStatus,
	}
}

// CancelPolicy is the compensating-restore policy implied by the configuration.
func (c *Config) CancelPolicy() order.CancelPolicy {
	return order.CancelPolicy{
		RestoreFromPicking:        c.Cancel.RestoreStockFromPicking,
		RestoreFromShippedOrLater: c.Cancel.RestoreStockFromShippedOrLater,
	}
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
