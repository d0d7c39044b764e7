package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/api"
	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/config"
	"github.com/telecare/booking-service/internal/db"
	"github.com/telecare/booking-service/internal/insights"
	"github.com/telecare/booking-service/internal/metrics"
	"github.com/telecare/booking-service/internal/notify"
	"github.com/telecare/booking-service/internal/patient"
	redisclient "github.com/telecare/booking-service/internal/redis"
	"github.com/telecare/booking-service/internal/triage"
	"github.com/telecare/booking-service/internal/video"
)

var version = "dev"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Str("version", version).Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

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

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, pgPool)
	cancelMigrate()
	if err != nil {
		logger.Fatal().Err(err).Msg("schema migration error")
	}

	// Connect Redis
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

	availabilityRepo := availability.NewPgRepository(pgPool)
	availabilitySvc := availability.NewService(availabilityRepo, logger)

	patientSvc := patient.NewService(patient.NewPgRepository(pgPool), logger)

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	apptRepo := appointment.NewPgRepository(pgPool)
	apptSvc := appointment.NewService(apptRepo, availabilityRepo, locker, patientSvc, sender, cfg.BookingHorizon, logger)

	triageSvc := triage.NewService(
		triage.NewClient(cfg.TriageURL, cfg.TriageAPIKey, cfg.TriageTimeout),
		apptRepo,
		logger,
	)

	videoSvc := video.NewService(
		video.NewIssuer(cfg.VideoTokenSecret, cfg.VideoTokenIssuer, cfg.VideoTokenTTL),
		apptSvc,
	)

	insightsSvc := insights.NewService(pgPool, cfg.ExportSalt, logger)

	router := api.NewRouter(api.RouterConfig{
		Availability: availabilitySvc,
		Appointments: apptSvc,
		Patients:     patientSvc,
		Triage:       triageSvc,
		Video:        videoSvc,
		Insights:     insightsSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
