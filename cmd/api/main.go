package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/amarastays/backend-villa/internal/analytics"
	"github.com/amarastays/backend-villa/internal/auth"
	"github.com/amarastays/backend-villa/internal/basket"
	"github.com/amarastays/backend-villa/internal/booking"
	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/config"
	"github.com/amarastays/backend-villa/internal/events"
	"github.com/amarastays/backend-villa/internal/health"
	"github.com/amarastays/backend-villa/internal/lock"
	"github.com/amarastays/backend-villa/internal/notify"
	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/payment"
	"github.com/amarastays/backend-villa/internal/promo"
	"github.com/amarastays/backend-villa/internal/ratelimit"
	"github.com/amarastays/backend-villa/internal/store"
	"github.com/amarastays/backend-villa/internal/villa"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "villa")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "villa-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.AutoMigrate {
		if err := runMigrations(cfg); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "villa-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := store.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	mailer := &common.InMemoryEmail{}

	bus := events.NewBus(queries, logger, notify.NewEmailNotifier(mailer, logger))
	locker := lock.NewLocker(redisClient, 30*time.Second)
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limit, err := ratelimit.New(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	limited := ratelimit.Middleware(limit)

	villaSvc := villa.NewService(queries, villa.NewCache(redisClient, cfg.VillaCacheTTL), logger)
	villaHandler := villa.NewHandler(villaSvc)
	villaAdmin := villa.NewAdminHandler(villaSvc)

	promoSvc := promo.NewService(queries)
	promoAdmin := promo.NewAdminHandler(promoSvc, logger)

	basketSvc := &basket.Service{
		Q:           queries,
		Promos:      promoSvc,
		Logger:      logger,
		TTL:         cfg.BasketTTL,
		CleaningFee: cfg.CleaningFee,
		TaxBps:      cfg.TaxRateBps,
		Currency:    cfg.CurrencyCode,
		Now:         time.Now,
	}
	basketHandler := basket.NewHandler(basketSvc)

	authSvc, err := auth.NewService(auth.Config{
		Queries:         queries,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := auth.NewHandler(authSvc, logger)
	authMiddleware := auth.Middleware{Service: authSvc}

	bookingSvc := &booking.Service{
		Q:           queries,
		Locks:       locker,
		Bus:         bus,
		Tasks:       taskClient,
		Email:       mailer,
		Logger:      logger,
		CleaningFee: cfg.CleaningFee,
		TaxBps:      cfg.TaxRateBps,
		Currency:    cfg.CurrencyCode,
		PendingTTL:  cfg.PendingBookingTTL,
		Now:         time.Now,
	}
	bookingHandler := booking.NewHandler(bookingSvc)
	bookingAdmin := booking.NewAdminHandler(bookingSvc)

	paymentSvc := &payment.Service{Q: queries, Provider: paymentProvider(cfg), Logger: logger}
	paymentHandler := payment.NewHandler(paymentSvc)

	analyticsSvc := &analytics.Service{Q: queries, Redis: redisClient, TTL: cfg.AnalyticsCacheTTL, Logger: logger}
	analyticsHandler := analytics.NewHandler(analyticsSvc)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.NewHandler(map[string]health.Checker{
		"postgres": health.CheckerFunc(func(ctx context.Context) error { return pool.Ping(ctx) }),
		"redis":    health.CheckerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	})
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/villas", villaHandler.List)
		v.Get("/villas/{slug}", villaHandler.Get)
		v.Get("/villas/{slug}/availability", villaHandler.Availability)

		v.Route("/auth", func(a chi.Router) {
			a.Use(limited)
			a.Post("/register", authHandler.Register)
			a.Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)

			a.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/me", authHandler.Me)
			})
		})

		v.Route("/baskets", func(b chi.Router) {
			b.Use(authMiddleware.Authenticate)
			b.Get("/{basketID}", basketHandler.Get)
			b.Post("/{basketID}/quote", basketHandler.Quote)
			b.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", basketHandler.Create)
				g.Post("/{basketID}/items", basketHandler.AddItem)
				g.Patch("/{basketID}/items/{itemID}", basketHandler.UpdateItem)
				g.Delete("/{basketID}/items/{itemID}", basketHandler.RemoveItem)
				g.Post("/{basketID}/apply-promo", basketHandler.ApplyPromo)
				g.Delete("/{basketID}/promo", basketHandler.RemovePromo)
			})
		})

		v.Group(func(guest chi.Router) {
			guest.Use(authMiddleware.RequireAuth)
			guest.With(limited, idem.Middleware).Post("/bookings", bookingHandler.Create)
			guest.Get("/bookings", bookingHandler.List)
			guest.Get("/bookings/{bookingID}", bookingHandler.Get)
			guest.With(limited).Post("/bookings/{bookingID}/cancel", bookingHandler.Cancel)
			guest.With(limited, idem.Middleware).Post("/payments/intent", paymentHandler.CreateIntent)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			admin.Post("/villas", villaAdmin.Create)
			admin.Put("/villas/{id}", villaAdmin.Update)
			admin.Post("/promos", promoAdmin.Upsert)
			admin.Put("/promos", promoAdmin.Upsert)
			admin.Get("/promos", promoAdmin.List)
			admin.Patch("/bookings/{bookingID}/status", bookingAdmin.Transition)
		})

		v.Route("/analytics", func(an chi.Router) {
			an.Use(authMiddleware.RequireAuth)
			an.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			an.Get("/revenue", analyticsHandler.Revenue)
			an.Get("/occupancy", analyticsHandler.Occupancy)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, graceCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer graceCancel()
		if err := srv.Shutdown(graceCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, migrateURL(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// migrateURL points golang-migrate at the pgx/v5 driver regardless of the
// scheme the connection string arrived with.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://", "pgx://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func paymentProvider(cfg *config.Config) payment.Provider {
	switch cfg.PaymentProvider {
	case "sandbox", "":
		return payment.NewSandbox()
	default:
		return payment.NewSandbox()
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
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
