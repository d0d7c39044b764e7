package patient

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")

	// ErrEmailTaken is raised when registration or an update collides
	// with another patient's email. Matching is case-insensitive.
	ErrEmailTaken = errors.New("a patient with this email already exists")
)

// Patient is a registered care recipient. Insurance and identification
// fields are free text captured during onboarding.
type Patient struct {
	ID                uuid.UUID
	Name              string
	Email             string
	Phone             string
	BirthDate         *time.Time
	Gender            string
	Address           string
	EmergencyContact  string
	PrimaryPhysician  string
	InsuranceProvider string
	InsurancePolicy   string
	IdentificationRef string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (p *Patient) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}
