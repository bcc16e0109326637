package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/egotech-storefront/internal/cart"
	"github.com/noah-isme/egotech-storefront/internal/checkout"
	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/config"
	"github.com/noah-isme/egotech-storefront/internal/events"
	"github.com/noah-isme/egotech-storefront/internal/health"
	"github.com/noah-isme/egotech-storefront/internal/lock"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/order"
	"github.com/noah-isme/egotech-storefront/internal/ratelimit"
	"github.com/noah-isme/egotech-storefront/internal/refdata"
	"github.com/noah-isme/egotech-storefront/internal/resilience"
	"github.com/noah-isme/egotech-storefront/internal/security"
)

const (
	keyPrefix         = "storefront:"
	eventStreamMaxLen = 10000
)

// Dependencies enumerates the shared clients the HTTP surface is built from.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Redis        *redis.Client
	Data         refdata.Dataset
	Validator    *validator.Validate
	LimiterStore limiter.Store
	// SinkClient performs order sink calls. Nil builds one from Config.
	SinkClient      *resilience.HTTPClient
	MetricsGatherer prometheus.Gatherer
	HTTPMetrics     *obs.HTTPMetrics
	Now             func() time.Time
}

// Services groups the domain services behind the router.
type Services struct {
	Quotes   *checkout.Service
	Sessions *cart.Service
	Orders   *order.Service
}

// NewServices builds the pricing, session and order services.
func NewServices(d Dependencies) *Services {
	cfg := d.Config
	logger := d.Logger.With().Str("component", "pricing").Logger()
	quotes := checkout.NewService(d.Data, checkout.Options{
		Currency: cfg.Currency,
		TaxLabel: cfg.TaxDisplayLabel,
		ApplyTax: cfg.ApplyTax,
		Now:      d.Now,
		Logger:   &logger,
	})
	sessions := &cart.Service{
		Store:   cart.NewRedisStore(d.Redis, cfg.CartSessionTTL).WithPrefix(keyPrefix + "session:"),
		Coupons: d.Data.Coupons,
		Locker:  lock.Locker{R: d.Redis, Prefix: keyPrefix, MaxWait: 3 * time.Second},
		Now:     d.Now,
	}
	client := d.SinkClient
	if client == nil {
		c := NewSinkClient(cfg, d.Logger)
		client = &c
	}
	bus := &events.Bus{
		Store:     events.RedisStore{R: d.Redis, Stream: keyPrefix + "events", MaxLen: eventStreamMaxLen},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: d.Logger.With().Str("component", "events").Logger()}},
		Now:       d.Now,
	}
	orders := &order.Service{
		Sink: &order.HTTPSink{
			URL:    cfg.OrderSinkURL,
			Token:  cfg.OrderSinkToken,
			Client: *client,
			Logger: d.Logger.With().Str("component", "order_sink").Logger(),
		},
		Events:    bus,
		Quotes:    quotes,
		Sessions:  sessions,
		Validator: d.Validator,
		Now:       d.Now,
		Logger:    d.Logger.With().Str("component", "order").Logger(),
	}
	return &Services{Quotes: quotes, Sessions: sessions, Orders: orders}
}

// NewRouter mounts every public route.
func NewRouter(d Dependencies) (http.Handler, *Services, error) {
	cfg := d.Config
	svcs := NewServices(d)

	apiLimit, err := ratelimit.APIMiddleware(d.LimiterStore, cfg.APIRateLimit, d.Logger)
	if err != nil {
		return nil, nil, err
	}
	orderLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: d.Redis, Prefix: keyPrefix + "ratelimit:"},
		Config: ratelimit.Config{
			Scope:  "order",
			Key:    ratelimit.ClientIPKey,
			Window: cfg.OrderRateLimitWindow,
			Max:    cfg.OrderRateLimitMax,
		},
		Logger: d.Logger,
	}
	idem := common.Idem{R: d.Redis, TTL: 24 * time.Hour, Prefix: keyPrefix + "idem:"}

	cartHandler := &cart.Handler{Svc: svcs.Sessions, Quotes: svcs.Quotes}
	checkoutHandler := &checkout.Handler{Svc: svcs.Quotes}
	orderHandler := &order.Handler{Svc: svcs.Orders}
	healthHandler := health.Handler{Probes: []health.Probe{
		health.RedisProbe(d.Redis, cfg.RedisPingTimeout),
	}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Order-Reference", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		if d.MetricsGatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(d.MetricsGatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	bodyLimit := security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(apiLimit)
		v.Use(bodyLimit)

		v.Route("/sessions", func(s chi.Router) {
			s.Post("/", cartHandler.Create)
			s.Route("/{id}", func(one chi.Router) {
				one.Get("/", cartHandler.Get)
				one.Delete("/", cartHandler.Delete)
				one.Post("/items", cartHandler.AddItem)
				one.Patch("/items/{itemId}", cartHandler.UpdateItem)
				one.Delete("/items/{itemId}", cartHandler.RemoveItem)
				one.Post("/items/{itemId}/increment", cartHandler.IncrementItem)
				one.Post("/items/{itemId}/decrement", cartHandler.DecrementItem)
				one.Put("/location", cartHandler.SetLocation)
				one.Put("/shipping-method", cartHandler.SetShippingMethod)
				one.Post("/coupon", cartHandler.ApplyCoupon)
				one.Delete("/coupon", cartHandler.RemoveCoupon)
			})
		})

		v.Post("/checkout/quote", checkoutHandler.Quote)
		v.Get("/shipping/zones", checkoutHandler.Zones)
		v.Get("/pickup-points", checkoutHandler.PickupPoints)
	})

	r.With(orderLimit.Middleware, bodyLimit, idem.Middleware).Post("/api/order", orderHandler.Submit)

	return r, svcs, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
