package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/availability"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Appointment is the persisted booking. Occupancy of a (doctor, schedule)
// slot is held by any row whose status is not cancelled.
type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorName         string
	Schedule           time.Time // date + chosen slot time, wall clock
	Reason             string
	Status             Status
	Note               string
	CancellationReason string

	// Triage is an optional AI-analysis side channel. Booking logic
	// never reads it; its content cannot affect slot occupancy.
	Triage []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateAvailability is one bookable calendar date with the number of
// slots still free on it.
type DateAvailability struct {
	Date      time.Time
	Day       availability.Day
	SlotCount int
}

// Availability distinguishes "doctor has no schedule at all" from
// "every slot in the horizon is taken": HasWindows is false only in the
// former case.
type Availability struct {
	HasWindows bool
	Dates      []DateAvailability
}

// UpcomingAppointment joins the patient contact fields needed by the
// reminder worker.
type UpcomingAppointment struct {
	Appointment
	PatientName  string
	PatientEmail string
}
