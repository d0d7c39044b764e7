package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/insights"
	"github.com/telecare/booking-service/internal/patient"
	"github.com/telecare/booking-service/internal/triage"
	"github.com/telecare/booking-service/internal/video"
)

type RouterConfig struct {
	Availability *availability.Service
	Appointments *appointment.Service
	Patients     *patient.Service
	Triage       *triage.Service
	Video        *video.Service
	Insights     *insights.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Doctor availability management
	r.Post("/availability", createAvailabilityHandler(cfg.Availability))
	r.Get("/availability", listAvailabilityHandler(cfg.Availability))
	r.Put("/availability/{id}", updateAvailabilityHandler(cfg.Availability))
	r.Delete("/availability/{id}", deleteAvailabilityHandler(cfg.Availability))

	// Patient-facing slot discovery
	r.Get("/doctors/{doctor}/available-dates", availableDatesHandler(cfg.Appointments))
	r.Get("/doctors/{doctor}/available-slots", availableSlotsHandler(cfg.Appointments))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/counts", appointmentCountsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/schedule", scheduleAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))

	// Triage side channel
	r.Post("/appointments/{id}/triage", runTriageHandler(cfg.Triage))
	r.Get("/appointments/{id}/triage", getTriageHandler(cfg.Triage))
	r.Post("/appointments/{id}/triage/review", reviewTriageHandler(cfg.Triage))

	// Video consultations
	r.Post("/appointments/{id}/video-token", videoTokenHandler(cfg.Video))

	// Patients
	r.Post("/patients", registerPatientHandler(cfg.Patients))
	r.Get("/patients", listPatientsHandler(cfg.Patients))
	r.Get("/patients/{id}", getPatientHandler(cfg.Patients))
	r.Put("/patients/{id}", updatePatientHandler(cfg.Patients))

	// Reporting
	r.Get("/insights/weekly-volumes", weeklyVolumesHandler(cfg.Insights))
	r.Get("/insights/export", exportHandler(cfg.Insights))

	return r
}
