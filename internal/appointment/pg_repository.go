package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const apptCols = `id, patient_id, doctor_name, schedule, reason, status, note, cancellation_reason, triage, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorName,
		&a.Schedule,
		&a.Reason,
		&a.Status,
		&a.Note,
		&a.CancellationReason,
		&a.Triage,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_name, schedule, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+apptCols+`
	`, appt.ID, appt.PatientID, appt.DoctorName, appt.Schedule, appt.Reason, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_active_slot" {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindOccupant(ctx context.Context, doctor string, schedule time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE doctor_name = $1
		  AND schedule = $2
		  AND status <> 'cancelled'
	`, doctor, schedule)
	return scanAppointment(row)
}

func (r *PgRepository) BookedTimes(ctx context.Context, doctor string, dayStart, dayEnd time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT schedule
		FROM appointments
		WHERE doctor_name = $1
		  AND schedule >= $2
		  AND schedule < $3
		  AND status <> 'cancelled'
	`, doctor, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PgRepository) MarkScheduled(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'scheduled',
		    note = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+apptCols+`
	`, id, note)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.transitionFailure(ctx, id)
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'scheduled')
		RETURNING `+apptCols+`
	`, id, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.transitionFailure(ctx, id)
		}
		return nil, err
	}
	return appt, nil
}

// transitionFailure distinguishes a missing appointment from one whose
// current status forbids the transition.
func (r *PgRepository) transitionFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY schedule DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status = $1
		ORDER BY schedule
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) SetTriage(ctx context.Context, id uuid.UUID, triage []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET triage = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, triage)
	if err != nil {
		return fmt.Errorf("set triage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]UpcomingAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_name, a.schedule, a.reason, a.status,
		       a.note, a.cancellation_reason, a.triage, a.created_at, a.updated_at,
		       p.name, p.email
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.status = 'scheduled'
		  AND a.schedule >= $1
		  AND a.schedule < $2
		ORDER BY a.schedule
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UpcomingAppointment
	for rows.Next() {
		var u UpcomingAppointment
		err := rows.Scan(
			&u.ID, &u.PatientID, &u.DoctorName, &u.Schedule, &u.Reason, &u.Status,
			&u.Note, &u.CancellationReason, &u.Triage, &u.CreatedAt, &u.UpdatedAt,
			&u.PatientName, &u.PatientEmail,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
