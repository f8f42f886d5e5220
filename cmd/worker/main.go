package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/booking"
	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/config"
	"github.com/amarastays/backend-villa/internal/events"
	"github.com/amarastays/backend-villa/internal/lock"
	"github.com/amarastays/backend-villa/internal/notify"
	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/store"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	queries := store.New(pool)

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

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

	mux := asynq.NewServeMux()
	mux.HandleFunc(booking.TypeBookingExpire, bookingSvc.HandleExpireTask)
	mux.HandleFunc(booking.TypeBookingReminder, bookingSvc.HandleReminderTask)

	srv := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues:      map[string]int{"default": 1},
	})

	// One worker at a time scans for upcoming arrivals; the task IDs keep
	// the enqueue idempotent even if the lock ever fails open.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		scan := func() {
			err := locker.WithLock(ctx, "reminders:scan", func(ctx context.Context) error {
				return bookingSvc.ScheduleReminders(ctx, cfg.ReminderLeadDays)
			})
			if err != nil && !errors.Is(err, lock.ErrNotAcquired) {
				logger.Error().Err(err).Msg("schedule reminders")
			}
		}
		scan()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scan()
			}
		}
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "villa-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
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

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
