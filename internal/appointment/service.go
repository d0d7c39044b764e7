package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/metrics"
	"github.com/telecare/booking-service/internal/notify"
	redisclient "github.com/telecare/booking-service/internal/redis"
	"github.com/telecare/booking-service/internal/slots"
)

var (
	// ErrDoctorUnavailable means no active availability window covers
	// the requested weekday and time.
	ErrDoctorUnavailable = errors.New("doctor is not available at the requested time")

	// ErrSlotContended means another request holds the booking lock for
	// this exact slot right now.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")

	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

const dateLayout = "2006-01-02"

// WindowSource is the slice of the availability store the booking
// resolver needs. *availability.PgRepository satisfies it.
type WindowSource interface {
	ActiveForDoctorDay(ctx context.Context, doctor string, day availability.Day) ([]availability.Window, error)
}

// ContactDirectory resolves a patient id to contact details for
// best-effort notifications.
type ContactDirectory interface {
	Contact(ctx context.Context, id uuid.UUID) (name, email string, err error)
}

type Service struct {
	repo     Repository
	windows  WindowSource
	locker   redisclient.Locker
	contacts ContactDirectory
	sender   notify.Sender
	logger   zerolog.Logger
	horizon  int
	now      func() time.Time
}

func NewService(repo Repository, windows WindowSource, locker redisclient.Locker, contacts ContactDirectory, sender notify.Sender, horizon int, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		windows:  windows,
		locker:   locker,
		contacts: contacts,
		sender:   sender,
		logger:   logger,
		horizon:  horizon,
		now:      time.Now,
	}
}

// AvailableDates walks the next horizon days, expands the doctor's
// windows into slots and subtracts non-cancelled bookings. Nothing is
// cached: every call re-derives from the store.
func (s *Service) AvailableDates(ctx context.Context, doctor string) (*Availability, error) {
	byDay := make(map[availability.Day][]availability.Window, 7)
	hasWindows := false
	for d := availability.Monday; d <= availability.Sunday; d++ {
		ws, err := s.windows.ActiveForDoctorDay(ctx, doctor, d)
		if err != nil {
			return nil, fmt.Errorf("load windows for %s: %w", d, err)
		}
		byDay[d] = ws
		if len(ws) > 0 {
			hasWindows = true
		}
	}

	result := &Availability{HasWindows: hasWindows}
	if !hasWindows {
		return result, nil
	}

	today := s.today()
	for i := 0; i < s.horizon; i++ {
		date := today.AddDate(0, 0, i)
		windows := byDay[availability.DayOfDate(date)]
		if len(windows) == 0 {
			continue
		}

		remaining, err := s.remainingSlots(ctx, doctor, date, windows)
		if err != nil {
			return nil, err
		}
		if len(remaining) == 0 {
			continue
		}

		result.Dates = append(result.Dates, DateAvailability{
			Date:      date,
			Day:       availability.DayOfDate(date),
			SlotCount: len(remaining),
		})
	}
	return result, nil
}

// AvailableSlots returns the remaining slot start times for one date.
func (s *Service) AvailableSlots(ctx context.Context, doctor string, dateStr string) ([]slots.Slot, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}

	windows, err := s.windows.ActiveForDoctorDay(ctx, doctor, availability.DayOfDate(date))
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	return s.remainingSlots(ctx, doctor, date, windows)
}

func (s *Service) remainingSlots(ctx context.Context, doctor string, date time.Time, windows []availability.Window) ([]slots.Slot, error) {
	candidates := slots.GenerateAll(date, windows)
	if len(candidates) == 0 {
		return nil, nil
	}

	booked, err := s.repo.BookedTimes(ctx, doctor, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}

	taken := make(map[int]struct{}, len(booked))
	for _, t := range booked {
		// The driver hands timestamptz back in the process-local zone;
		// schedules are stored as UTC wall clock, so normalize before
		// recovering minutes since midnight.
		t = t.UTC()
		taken[t.Hour()*60+t.Minute()] = struct{}{}
	}

	var remaining []slots.Slot
	for _, slot := range candidates {
		if _, ok := taken[slot.Minutes]; ok {
			continue
		}
		remaining = append(remaining, slot)
	}
	return remaining, nil
}

type BookRequest struct {
	DoctorName string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	PatientID  uuid.UUID
	Reason     string
}

// Book reserves a slot. The read that showed the patient the slot grid
// may be arbitrarily stale, so availability and occupancy are
// re-verified here, inside a per-slot lock, and the insert itself is
// backstopped by the store's uniqueness constraint. Two concurrent
// calls for the same slot yield exactly one success.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		metrics.IncBookingAttempt("invalid")
		return nil, ErrInvalidDate
	}
	minutes, err := availability.ParseClock(req.Time)
	if err != nil {
		metrics.IncBookingAttempt("invalid")
		return nil, &availability.ValidationError{Field: "time", Message: err.Error()}
	}
	if req.PatientID == uuid.Nil {
		metrics.IncBookingAttempt("invalid")
		return nil, &availability.ValidationError{Field: "patientId", Message: "must not be empty"}
	}

	windows, err := s.windows.ActiveForDoctorDay(ctx, req.DoctorName, availability.DayOfDate(date))
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	if !slotCovered(windows, minutes) {
		metrics.IncBookingAttempt("unavailable")
		return nil, ErrDoctorUnavailable
	}

	schedule := date.Add(time.Duration(minutes) * time.Minute)
	lockKey := fmt.Sprintf("slot:%s:%s:%s", req.DoctorName, req.Date, req.Time)

	var created *Appointment
	err = s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		// Re-check occupancy inside the critical section.
		existing, err := s.repo.FindOccupant(lockCtx, req.DoctorName, schedule)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check occupancy: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.Create(lockCtx, &Appointment{
			PatientID:  req.PatientID,
			DoctorName: req.DoctorName,
			Schedule:   schedule,
			Reason:     req.Reason,
			Status:     StatusPending,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			metrics.IncBookingAttempt("contended")
			return nil, ErrSlotContended
		case errors.Is(err, ErrSlotTaken):
			metrics.IncBookingAttempt("slot_taken")
			return nil, ErrSlotTaken
		default:
			metrics.IncBookingAttempt("error")
			return nil, err
		}
	}

	metrics.IncBookingAttempt("created")
	s.logger.Info().
		Str("doctor", req.DoctorName).
		Time("schedule", schedule).
		Str("appointment_id", created.ID.String()).
		Msg("appointment requested")

	s.sendEmail(ctx, created.PatientID,
		"Appointment request received",
		fmt.Sprintf("Your appointment request with %s on %s at %s was received and is awaiting confirmation.",
			req.DoctorName, req.Date, req.Time))

	return created, nil
}

// slotCovered reports whether the requested time is a slot some active
// window actually generates: aligned to the window's grid and fully
// inside it.
func slotCovered(windows []availability.Window, minutes int) bool {
	for _, w := range windows {
		if minutes < w.StartMinutes || minutes+w.SlotMinutes > w.EndMinutes {
			continue
		}
		if (minutes-w.StartMinutes)%w.SlotMinutes == 0 {
			return true
		}
	}
	return false
}

// Schedule confirms a pending appointment (administrative approval).
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	appt, err := s.repo.MarkScheduled(ctx, id, note)
	if err != nil {
		return nil, err
	}

	metrics.IncStatusTransition(string(StatusScheduled))
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment scheduled")

	s.sendEmail(ctx, appt.PatientID,
		"Appointment confirmed",
		fmt.Sprintf("Your appointment with %s on %s is confirmed.",
			appt.DoctorName, appt.Schedule.Format("2006-01-02 15:04")))

	return appt, nil
}

// Cancel frees the slot. Allowed from pending or scheduled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.repo.MarkCancelled(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	metrics.IncStatusTransition(string(StatusCancelled))
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")

	s.sendEmail(ctx, appt.PatientID,
		"Appointment cancelled",
		fmt.Sprintf("Your appointment with %s on %s has been cancelled.",
			appt.DoctorName, appt.Schedule.Format("2006-01-02 15:04")))

	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// Counts powers the administrative dashboard tiles.
func (s *Service) Counts(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// sendEmail is strictly best-effort: failures are logged and swallowed,
// never surfaced to the booking caller.
func (s *Service) sendEmail(ctx context.Context, patientID uuid.UUID, subject, body string) {
	name, email, err := s.contacts.Contact(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("lookup contact for email")
		return
	}

	err = s.sender.Send(ctx, notify.Message{
		To:      email,
		ToName:  name,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		metrics.IncEmailSent("failed")
		s.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("send email")
		return
	}
	metrics.IncEmailSent("ok")
}
