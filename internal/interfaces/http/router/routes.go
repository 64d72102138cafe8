package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"github.com/sellerops/console/internal/interfaces/http/dto"
	"github.com/sellerops/console/internal/interfaces/http/handler"
	"github.com/sellerops/console/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the route targets of the operator API.
type Handlers struct {
	Stock        *handler.StockHandler
	Aliases      *handler.AliasHandler
	Orders       *handler.OrderHandler
	Sync         *handler.SyncHandler
	Reservations *handler.ReservationHandler
	Products     *handler.ProductHandler
	System       *handler.SystemHandler
}

// Options configure the engine built by New.
type Options struct {
	ServiceName    string
	JWT            *auth.JWTService
	CORS           middleware.CORSConfig
	TrustedProxies []string
	MaxBodySize    int64
	RequestTimeout time.Duration
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *middleware.RateLimiter
	Tracing     bool
	Meters      *telemetry.MeterProvider
	Logger      *zap.Logger
}

// New builds the gin engine with the global middleware chain and every
// operator route.
func New(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.Tracing}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(opts.Meters))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(opts.CORS))
	engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	engine.Use(middleware.Timeout(opts.RequestTimeout))

	engine.NoRoute(func(c *gin.Context) {
		c.Set("error_code", dto.ErrCodeRouteNotFound)
		c.JSON(http.StatusNotFound, dto.NewCodeResponse(dto.ErrCodeRouteNotFound,
			c.Request.Method+" "+c.Request.URL.Path, middleware.GetRequestID(c)))
	})
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(middleware.JWTMiddlewareConfig{JWTService: opts.JWT, Logger: log}))
	r.Use(middleware.SpanAttributes())
	if opts.RateLimiter != nil {
		r.Use(middleware.RateLimit(opts.RateLimiter))
	}

	for _, group := range Groups(h) {
		r.Register(group)
	}
	r.Setup()
	return engine
}

// Groups lists the versioned route groups. Reads need the read scope;
// each mutating route needs the scope of its area.
func Groups(h Handlers) []*DomainGroup {
	stock := NewDomainGroup("stock", "/stock")
	stock.Scoped(http.MethodPost, "/add", auth.ScopeStock, h.Stock.Add)
	stock.Scoped(http.MethodPost, "/renew", auth.ScopeStock, h.Stock.Renew)
	stock.Scoped(http.MethodPost, "/transfer", auth.ScopeStock, h.Stock.Transfer)
	stock.Scoped(http.MethodGet, "/:barcode", auth.ScopeRead, h.Stock.Get)

	shelves := NewDomainGroup("shelves", "/shelves").RequireScope(auth.ScopeRead)
	shelves.GET("/:code", h.Stock.Shelf)

	aliases := NewDomainGroup("aliases", "/aliases")
	aliases.Scoped(http.MethodPost, "", auth.ScopeAlias, h.Aliases.Add)
	aliases.Scoped(http.MethodDelete, "/:alias", auth.ScopeAlias, h.Aliases.Remove)
	aliases.Scoped(http.MethodGet, "/:barcode", auth.ScopeRead, h.Aliases.Info)

	orders := NewDomainGroup("orders", "/orders")
	orders.Scoped(http.MethodGet, "", auth.ScopeRead, h.Orders.List)
	orders.Scoped(http.MethodGet, "/:number", auth.ScopeRead, h.Orders.Get)
	orders.Scoped(http.MethodPost, "/:number/transition", auth.ScopeOrder, h.Orders.Transition)
	orders.Scoped(http.MethodPost, "/:number/pick-verify", auth.ScopeOrder, h.Orders.PickVerify)

	sync := NewDomainGroup("sync", "/sync")
	sync.Scoped(http.MethodPost, "/:source/pull", auth.ScopeSync, h.Sync.Pull)
	sync.Scoped(http.MethodPost, "/jobs", auth.ScopeSync, h.Sync.SubmitJob)
	sync.Scoped(http.MethodGet, "/jobs", auth.ScopeRead, h.Sync.Jobs)

	reservations := NewDomainGroup("reservations", "/reservations").RequireScope(auth.ScopeRead)
	reservations.GET("/:barcode", h.Reservations.Available)

	push := NewDomainGroup("stock-push", "/stock-push").RequireScope(auth.ScopeSync)
	push.POST("/:marketplace", h.Reservations.Push)

	products := NewDomainGroup("products", "/products")
	products.Scoped(http.MethodGet, "", auth.ScopeRead, h.Products.List)
	products.Scoped(http.MethodGet, "/:barcode", auth.ScopeRead, h.Products.Get)
	products.Scoped(http.MethodPut, "/:barcode", auth.ScopeStock, h.Products.Upsert)

	return []*DomainGroup{stock, shelves, aliases, orders, sync, reservations, push, products}
}
