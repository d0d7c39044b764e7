package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const windowCols = `id, doctor_name, day_of_week, start_minutes, end_minutes, slot_duration_minutes, active, created_at, updated_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(
		&w.ID,
		&w.DoctorName,
		&w.Day,
		&w.StartMinutes,
		&w.EndMinutes,
		&w.SlotMinutes,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}
	return &w, nil
}

// lockDoctor serializes availability edits for one doctor within the
// current transaction. Released automatically at commit/rollback.
func lockDoctor(ctx context.Context, tx pgx.Tx, doctor string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doctor)
	if err != nil {
		return fmt.Errorf("lock doctor calendar: %w", err)
	}
	return nil
}

func activeWindowsTx(ctx context.Context, tx pgx.Tx, doctor string) ([]Window, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE doctor_name = $1 AND active
	`, doctor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *PgRepository) CreateBatch(ctx context.Context, windows []Window) ([]Window, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	doctor := windows[0].DoctorName

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDoctor(ctx, tx, doctor); err != nil {
		return nil, err
	}

	existing, err := activeWindowsTx(ctx, tx, doctor)
	if err != nil {
		return nil, fmt.Errorf("load active windows: %w", err)
	}

	// Every window is checked against the doctor's prior calendar and
	// against the windows earlier in the batch; one conflict fails the
	// whole batch before any insert.
	if c := FirstBatchConflict(windows, existing); c != nil {
		return nil, &OverlapError{Conflict: *c}
	}

	created := make([]Window, 0, len(windows))
	for _, w := range windows {
		row := tx.QueryRow(ctx, `
			INSERT INTO availability_windows
				(id, doctor_name, day_of_week, start_minutes, end_minutes, slot_duration_minutes, active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			RETURNING `+windowCols+`
		`, w.ID, w.DoctorName, w.Day, w.StartMinutes, w.EndMinutes, w.SlotMinutes)

		out, err := scanWindow(row)
		if err != nil {
			return nil, fmt.Errorf("insert window: %w", err)
		}
		created = append(created, *out)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, w Window) (Window, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDoctor(ctx, tx, w.DoctorName); err != nil {
		return Window{}, err
	}

	current, err := scanWindow(tx.QueryRow(ctx, `
		SELECT `+windowCols+` FROM availability_windows WHERE id = $1 AND active
	`, w.ID))
	if err != nil {
		return Window{}, err
	}
	if current.DoctorName != w.DoctorName {
		return Window{}, ErrWindowNotFound
	}

	existing, err := activeWindowsTx(ctx, tx, w.DoctorName)
	if err != nil {
		return Window{}, fmt.Errorf("load active windows: %w", err)
	}
	if c := FirstConflict(w.Day, w.StartMinutes, w.EndMinutes, existing, w.ID); c != nil {
		return Window{}, &OverlapError{Conflict: *c}
	}

	row := tx.QueryRow(ctx, `
		UPDATE availability_windows
		SET day_of_week = $2,
		    start_minutes = $3,
		    end_minutes = $4,
		    slot_duration_minutes = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+windowCols+`
	`, w.ID, w.Day, w.StartMinutes, w.EndMinutes, w.SlotMinutes)

	updated, err := scanWindow(row)
	if err != nil {
		return Window{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Window{}, fmt.Errorf("commit: %w", err)
	}
	return *updated, nil
}

func (r *PgRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_windows
		SET active = false,
		    updated_at = now()
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE active
		ORDER BY day_of_week, doctor_name, start_minutes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *PgRepository) ActiveForDoctorDay(ctx context.Context, doctor string, day Day) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE doctor_name = $1 AND day_of_week = $2 AND active
		ORDER BY start_minutes
	`, doctor, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
