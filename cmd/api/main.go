package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/egotech-storefront/internal/app"
	"github.com/noah-isme/egotech-storefront/internal/config"
	"github.com/noah-isme/egotech-storefront/internal/health"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/ratelimit"
	"github.com/noah-isme/egotech-storefront/internal/refdata"
	"github.com/noah-isme/egotech-storefront/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.MetricsNamespace, prometheus.DefaultRegisterer)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampleRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	data, err := refdata.Load(cfg.RefdataPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.RefdataPath).Msg("load reference data")
	}
	logger.Info().
		Int("zones", len(data.Zones)).
		Int("tax_rules", len(data.TaxRules)).
		Int("coupons", data.Coupons.Len()).
		Int("pickup_points", len(data.PickupPoints)).
		Msg("reference data loaded")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := app.InstrumentRedis(redisClient, otel.GetTracerProvider(), otel.GetMeterProvider(), cfg.MetricsEnabled); err != nil {
		logger.Error().Err(err).Msg("instrument redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("ping redis")
	}
	cancel()

	limiterStore, err := ratelimit.NewLimiterStore(redisClient, "storefront:api-limit")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise api rate limiter")
	}

	if cfg.OrderSinkURL == "" {
		logger.Warn().Msg("ORDER_SINK_URL not set; order submissions will fail")
	}

	router, _, err := app.NewRouter(app.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Redis:        redisClient,
		Data:         data,
		Validator:    validator.New(validator.WithRequiredStructEnabled()),
		LimiterStore: limiterStore,
		HTTPMetrics:  httpMetrics,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build router")
	}

	root := chi.NewRouter()
	if envBool("OBS_ENABLE_PPROF", false) {
		user := os.Getenv("SECURE_PPROF_BASIC_AUTH_USER")
		pass := os.Getenv("SECURE_PPROF_BASIC_AUTH_PASS")
		root.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}
	root.Mount("/", router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server exited unexpectedly")
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
