package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/metrics"
)

const (
	ReviewPending    = "pending_review"
	ReviewAccepted   = "accepted"
	ReviewOverridden = "overridden"
)

var (
	ErrNoTriage      = errors.New("appointment has no triage record")
	ErrAlreadyFinal  = errors.New("triage review is already final")
	ErrInvalidReview = errors.New("review decision must be accepted or overridden")
)

// Record is the full triage document stored alongside an appointment.
// It is advisory only: nothing in slot resolution or booking reads it.
type Record struct {
	Assessment Assessment `json:"assessment"`
	Review     Review     `json:"review"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Review captures the clinician's sign-off on the automated
// assessment. An override replaces the urgency the model proposed.
type Review struct {
	State      string     `json:"state"`
	Reviewer   string     `json:"reviewer,omitempty"`
	Urgency    string     `json:"urgency,omitempty"`
	Note       string     `json:"note,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
}

// Assessor is the upstream model boundary, satisfied by *Client.
type Assessor interface {
	Assess(ctx context.Context, symptoms string) (*Assessment, error)
}

// AppointmentStore is the slice of the appointment store triage needs.
type AppointmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	SetTriage(ctx context.Context, id uuid.UUID, triage []byte) error
}

type Service struct {
	assessor Assessor
	store    AppointmentStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(assessor Assessor, store AppointmentStore, logger zerolog.Logger) *Service {
	return &Service{
		assessor: assessor,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Run assesses the symptoms and attaches the result to the appointment
// with the review left open for a clinician.
func (s *Service) Run(ctx context.Context, appointmentID uuid.UUID, symptoms string) (*Record, error) {
	if _, err := s.store.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}

	assessment, err := s.assessor.Assess(ctx, symptoms)
	if err != nil {
		metrics.IncTriageRequest("failed")
		s.logger.Warn().Err(err).Str("appointment_id", appointmentID.String()).Msg("triage assessment failed")
		return nil, err
	}
	metrics.IncTriageRequest("ok")

	record := &Record{
		Assessment: *assessment,
		Review:     Review{State: ReviewPending},
		CreatedAt:  s.now().UTC(),
	}
	if err := s.save(ctx, appointmentID, record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("urgency", assessment.Urgency).
		Msg("triage recorded")
	return record, nil
}

// Get returns the stored triage record, if any.
func (s *Service) Get(ctx context.Context, appointmentID uuid.UUID) (*Record, error) {
	appt, err := s.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if len(appt.Triage) == 0 {
		return nil, ErrNoTriage
	}

	var record Record
	if err := json.Unmarshal(appt.Triage, &record); err != nil {
		return nil, fmt.Errorf("decode triage record: %w", err)
	}
	return &record, nil
}

// Review finalizes the clinician's decision. Accepting keeps the
// model's urgency; overriding requires a replacement urgency.
func (s *Service) Review(ctx context.Context, appointmentID uuid.UUID, reviewer, decision, urgency, note string) (*Record, error) {
	record, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if record.Review.State != ReviewPending {
		return nil, ErrAlreadyFinal
	}

	switch decision {
	case ReviewAccepted:
		record.Review = Review{
			State:    ReviewAccepted,
			Reviewer: reviewer,
			Urgency:  record.Assessment.Urgency,
			Note:     note,
		}
	case ReviewOverridden:
		if !validUrgency(urgency) {
			return nil, ErrInvalidReview
		}
		record.Review = Review{
			State:    ReviewOverridden,
			Reviewer: reviewer,
			Urgency:  urgency,
			Note:     note,
		}
	default:
		return nil, ErrInvalidReview
	}

	reviewedAt := s.now().UTC()
	record.Review.ReviewedAt = &reviewedAt

	if err := s.save(ctx, appointmentID, record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("decision", record.Review.State).
		Msg("triage reviewed")
	return record, nil
}

func (s *Service) save(ctx context.Context, appointmentID uuid.UUID, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode triage record: %w", err)
	}
	return s.store.SetTriage(ctx, appointmentID, raw)
}
