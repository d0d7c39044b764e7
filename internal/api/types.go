package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/slots"
)

type CreateAvailabilityRequest struct {
	DoctorName  string   `json:"doctor_name"`
	Days        []string `json:"days"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	SlotMinutes int      `json:"slot_minutes"`
}

type UpdateAvailabilityRequest struct {
	DoctorName  string `json:"doctor_name"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SlotMinutes int    `json:"slot_minutes"`
}

type WindowResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorName  string    `json:"doctor_name"`
	Day         string    `json:"day"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
}

func toWindowResponse(w availability.Window) WindowResponse {
	return WindowResponse{
		ID:          w.ID,
		DoctorName:  w.DoctorName,
		Day:         w.Day.String(),
		StartTime:   availability.FormatClock(w.StartMinutes),
		EndTime:     availability.FormatClock(w.EndMinutes),
		SlotMinutes: w.SlotMinutes,
	}
}

type AvailableDatesResponse struct {
	DoctorName   string         `json:"doctor_name"`
	HasSchedule  bool           `json:"has_schedule"`
	Dates        []DateResponse `json:"dates"`
}

type DateResponse struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	SlotCount int    `json:"slot_count"`
}

type AvailableSlotsResponse struct {
	DoctorName string         `json:"doctor_name"`
	Date       string         `json:"date"`
	Slots      []SlotResponse `json:"slots"`
}

// SlotResponse keys follow the published availability contract rather
// than the snake_case used elsewhere.
type SlotResponse struct {
	Time          string `json:"time"`
	FormattedTime string `json:"formattedTime"`
}

func toSlotResponses(in []slots.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(in))
	for _, s := range in {
		out = append(out, SlotResponse{
			Time:          s.Clock(),
			FormattedTime: s.Formatted(),
		})
	}
	return out
}

type BookAppointmentRequest struct {
	DoctorName string `json:"doctor_name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	PatientID  string `json:"patient_id"`
	Reason     string `json:"reason"`
}

type ScheduleAppointmentRequest struct {
	Note string `json:"note"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	DoctorName         string    `json:"doctor_name"`
	Schedule           time.Time `json:"schedule"`
	Reason             string    `json:"reason,omitempty"`
	Status             string    `json:"status"`
	Note               string    `json:"note,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type PatientRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	BirthDate         string `json:"birth_date,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Address           string `json:"address,omitempty"`
	EmergencyContact  string `json:"emergency_contact,omitempty"`
	PrimaryPhysician  string `json:"primary_physician,omitempty"`
	InsuranceProvider string `json:"insurance_provider,omitempty"`
	InsurancePolicy   string `json:"insurance_policy,omitempty"`
	IdentificationRef string `json:"identification_ref,omitempty"`
}

type PatientResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	BirthDate         string    `json:"birth_date,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Address           string    `json:"address,omitempty"`
	EmergencyContact  string    `json:"emergency_contact,omitempty"`
	PrimaryPhysician  string    `json:"primary_physician,omitempty"`
	InsuranceProvider string    `json:"insurance_provider,omitempty"`
	InsurancePolicy   string    `json:"insurance_policy,omitempty"`
	IdentificationRef string    `json:"identification_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type TriageRequest struct {
	Symptoms string `json:"symptoms"`
}

type TriageReviewRequest struct {
	Reviewer string `json:"reviewer"`
	Decision string `json:"decision"`
	Urgency  string `json:"urgency,omitempty"`
	Note     string `json:"note,omitempty"`
}

type VideoTokenRequest struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

type VideoTokenResponse struct {
	Token string `json:"token"`
	Room  string `json:"room"`
}
