package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patientCols = `id, name, email, phone, birth_date, gender, address,
	emergency_contact, primary_physician, insurance_provider,
	insurance_policy, identification_ref, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.BirthDate, &p.Gender,
		&p.Address, &p.EmergencyContact, &p.PrimaryPhysician,
		&p.InsuranceProvider, &p.InsurancePolicy, &p.IdentificationRef,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "patients_email_key"
}

func (r *PgRepository) Create(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (
			id, name, email, phone, birth_date, gender, address,
			emergency_contact, primary_physician, insurance_provider,
			insurance_policy, identification_ref
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+patientCols,
		p.ID, p.Name, p.Email, p.Phone, p.BirthDate, p.Gender, p.Address,
		p.EmergencyContact, p.PrimaryPhysician, p.InsuranceProvider,
		p.InsurancePolicy, p.IdentificationRef,
	)
	created, err := scanPatient(row)
	if err != nil {
		if isEmailConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE lower(email) = lower($1)`, email)
	return scanPatient(row)
}

func (r *PgRepository) Update(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients SET
			name = $2, email = $3, phone = $4, birth_date = $5,
			gender = $6, address = $7, emergency_contact = $8,
			primary_physician = $9, insurance_provider = $10,
			insurance_policy = $11, identification_ref = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+patientCols,
		p.ID, p.Name, p.Email, p.Phone, p.BirthDate, p.Gender, p.Address,
		p.EmergencyContact, p.PrimaryPhysician, p.InsuranceProvider,
		p.InsurancePolicy, p.IdentificationRef,
	)
	updated, err := scanPatient(row)
	if err != nil {
		if isEmailConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientCols+`
		FROM patients
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
