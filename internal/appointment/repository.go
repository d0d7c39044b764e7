package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken means a non-cancelled appointment already occupies
	// the (doctor, schedule) slot. The storage layer raises it from its
	// uniqueness constraint, so it holds even if two requests race past
	// the application-level check.
	ErrSlotTaken = errors.New("slot already booked")

	ErrInvalidTransition = errors.New("invalid status transition")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	// Create inserts a new appointment. Returns ErrSlotTaken if the
	// occupancy constraint rejects the row.
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindOccupant returns the non-cancelled appointment holding the
	// exact (doctor, schedule) slot, or ErrAppointmentNotFound.
	FindOccupant(ctx context.Context, doctor string, schedule time.Time) (*Appointment, error)

	// BookedTimes returns schedule values of non-cancelled appointments
	// for the doctor within [dayStart, dayEnd).
	BookedTimes(ctx context.Context, doctor string, dayStart, dayEnd time.Time) ([]time.Time, error)

	// MarkScheduled moves pending -> scheduled.
	MarkScheduled(ctx context.Context, id uuid.UUID, note string) (*Appointment, error)

	// MarkCancelled moves pending or scheduled -> cancelled, freeing
	// the slot. Cancelling an already cancelled appointment returns
	// ErrInvalidTransition.
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Appointment, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)

	// SetTriage replaces the appointment's AI-analysis side channel.
	SetTriage(ctx context.Context, id uuid.UUID, triage []byte) error

	// ListUpcoming returns scheduled appointments with schedule in
	// [from, to), joined with patient contact details.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]UpcomingAppointment, error)
}
