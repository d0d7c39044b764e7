package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/appointment"
)

// ErrNotJoinable means the appointment is not in a state that permits
// a video consultation. Only confirmed appointments get room tokens.
var ErrNotJoinable = errors.New("appointment is not joinable")

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Claims is the signed payload a video room token carries. The room is
// the appointment id, so one consultation maps to one room.
type Claims struct {
	Room string `json:"room"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints HS256 room tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) Mint(appointmentID uuid.UUID, subject, role string) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		Room: appointmentID.String(),
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token the issuer previously minted.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("parse room token: %w", err)
	}
	return &claims, nil
}

// AppointmentGetter is satisfied by the appointment service.
type AppointmentGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Service gates token minting on the appointment's state.
type Service struct {
	issuer *Issuer
	appts  AppointmentGetter
}

func NewService(issuer *Issuer, appts AppointmentGetter) *Service {
	return &Service{issuer: issuer, appts: appts}
}

// RoomToken mints a token for a confirmed appointment. Pending and
// cancelled appointments are rejected.
func (s *Service) RoomToken(ctx context.Context, appointmentID uuid.UUID, subject, role string) (string, error) {
	if role != RolePatient && role != RoleDoctor {
		return "", fmt.Errorf("%w: unknown role %q", ErrNotJoinable, role)
	}

	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if appt.Status != appointment.StatusScheduled {
		return "", ErrNotJoinable
	}
	return s.issuer.Mint(appointmentID, subject, role)
}
