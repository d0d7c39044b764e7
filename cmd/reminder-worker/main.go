package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/config"
	"github.com/telecare/booking-service/internal/db"
	"github.com/telecare/booking-service/internal/metrics"
	"github.com/telecare/booking-service/internal/notify"
	redisclient "github.com/telecare/booking-service/internal/redis"
	"github.com/telecare/booking-service/internal/reminder"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "reminder-worker").Logger()
	logger.Info().Msg("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.ReminderInterval).
		Dur("lookahead", cfg.ReminderLookahead).
		Msg("configuration loaded")

	metrics.Register()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	var sender notify.Sender = notify.NoopSender{}
	if cfg.EmailAPIURL != "" {
		sender = notify.NewHTTPSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, 10*time.Second)
	}

	worker := reminder.NewWorker(
		appointment.NewPgRepository(pgPool),
		sender,
		reminder.NewRedisMarker(rdb),
		cfg.ReminderInterval,
		cfg.ReminderLookahead,
		logger,
	)
	worker.Run(rootCtx)
}
