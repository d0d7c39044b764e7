package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Querier is the slice of the pool the reporting queries need.
// Satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// WeeklyVolume is one (week, doctor, status) bucket of appointment
// counts. Week is the Monday the ISO week starts on.
type WeeklyVolume struct {
	Week   time.Time `json:"week"`
	Doctor string    `json:"doctor"`
	Status string    `json:"status"`
	Count  int       `json:"count"`
}

// ExportRow is an anonymized appointment record. The patient reference
// is a salted SHA-256 digest, stable within one export so visit
// patterns survive but identities do not.
type ExportRow struct {
	PatientRef string    `json:"patientRef"`
	Doctor     string    `json:"doctor"`
	Schedule   time.Time `json:"schedule"`
	Status     string    `json:"status"`
	Urgency    string    `json:"urgency,omitempty"`
}

type Service struct {
	db     Querier
	salt   string
	logger zerolog.Logger
}

func NewService(db Querier, salt string, logger zerolog.Logger) *Service {
	return &Service{db: db, salt: salt, logger: logger}
}

// WeeklyVolumes aggregates appointment counts per doctor and status
// for weeks intersecting [from, to).
func (s *Service) WeeklyVolumes(ctx context.Context, from, to time.Time) ([]WeeklyVolume, error) {
	rows, err := s.db.Query(ctx, `
		SELECT date_trunc('week', schedule) AS week,
		       doctor_name,
		       status,
		       count(*)
		FROM appointments
		WHERE schedule >= $1 AND schedule < $2
		GROUP BY week, doctor_name, status
		ORDER BY week, doctor_name, status
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate weekly volumes: %w", err)
	}
	defer rows.Close()

	var out []WeeklyVolume
	for rows.Next() {
		var v WeeklyVolume
		if err := rows.Scan(&v.Week, &v.Doctor, &v.Status, &v.Count); err != nil {
			return nil, fmt.Errorf("scan weekly volume: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Export produces anonymized appointment rows for research use. The
// triage urgency is included when a reviewed assessment exists.
func (s *Service) Export(ctx context.Context, from, to time.Time) ([]ExportRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT patient_id::text,
		       doctor_name,
		       schedule,
		       status,
		       coalesce(triage->'review'->>'urgency', '')
		FROM appointments
		WHERE schedule >= $1 AND schedule < $2
		ORDER BY schedule
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("export appointments: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		var patientID string
		if err := rows.Scan(&patientID, &r.Doctor, &r.Schedule, &r.Status, &r.Urgency); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		r.PatientRef = HashRef(s.salt, patientID)
		out = append(out, r)
	}

	s.logger.Info().Int("rows", len(out)).Msg("anonymized export produced")
	return out, rows.Err()
}

// HashRef derives the anonymized patient reference.
func HashRef(salt, patientID string) string {
	sum := sha256.Sum256([]byte(salt + ":" + patientID))
	return hex.EncodeToString(sum[:])
}
