package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/metrics"
	"github.com/telecare/booking-service/internal/notify"
)

// Store is the slice of the appointment store the worker reads.
type Store interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]appointment.UpcomingAppointment, error)
}

// Marker records that an appointment has been reminded. Claim returns
// false when some worker already holds the marker.
type Marker interface {
	Claim(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error)
}

type redisMarker struct {
	client *redis.Client
}

func NewRedisMarker(client *redis.Client) Marker {
	return &redisMarker{client: client}
}

func (m *redisMarker) Claim(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("reminder:%s", appointmentID)
	return m.client.SetNX(ctx, key, "1", ttl).Result()
}

// Worker periodically emails patients about confirmed appointments
// starting within the lookahead. A marker per appointment keeps
// reminders single-shot even with several workers running.
type Worker struct {
	store     Store
	sender    notify.Sender
	marker    Marker
	logger    zerolog.Logger
	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time
}

func NewWorker(store Store, sender notify.Sender, marker Marker, interval, lookahead time.Duration, logger zerolog.Logger) *Worker {
	return &Worker{
		store:     store,
		sender:    sender,
		marker:    marker,
		logger:    logger,
		interval:  interval,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// Run loops until the context is cancelled. One pass runs immediately.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().
		Dur("interval", w.interval).
		Dur("lookahead", w.lookahead).
		Msg("reminder worker started")

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error().Err(err).Msg("reminder pass failed")
		}
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single reminder pass.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.now().UTC()
	upcoming, err := w.store.ListUpcoming(ctx, now, now.Add(w.lookahead))
	if err != nil {
		return fmt.Errorf("list upcoming appointments: %w", err)
	}

	// The marker outlives the lookahead so a reminder never repeats
	// for the same visit.
	ttl := w.lookahead + 24*time.Hour

	sent := 0
	for _, appt := range upcoming {
		ok, err := w.marker.Claim(ctx, appt.ID.String(), ttl)
		if err != nil {
			w.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("claim reminder marker")
			continue
		}
		if !ok {
			continue
		}

		err = w.sender.Send(ctx, notify.Message{
			To:      appt.PatientEmail,
			ToName:  appt.PatientName,
			Subject: "Upcoming appointment reminder",
			Body: fmt.Sprintf("Reminder: your appointment with %s is on %s.",
				appt.DoctorName, appt.Schedule.Format("2006-01-02 15:04")),
		})
		if err != nil {
			metrics.IncEmailSent("failed")
			w.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("send reminder")
			continue
		}
		metrics.IncEmailSent("ok")
		sent++
	}

	if len(upcoming) > 0 {
		w.logger.Info().Int("candidates", len(upcoming)).Int("sent", sent).Msg("reminder pass complete")
	}
	return nil
}
