package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 40)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Printf("seed complete: %d doctors with schedules", len(doctors))
}

// seedDoctors creates named doctors and gives each a weekly schedule
// of two or three windows.
func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]string, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
	}
	durations := []int{15, 20, 30, 45, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	doctors := make([]string, 0, count)
	for i := 0; i < count; i++ {
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		doctor := fmt.Sprintf("Dr. %s (%s)", gofakeit.Name(), spec)
		doctors = append(doctors, doctor)

		windows := gofakeit.Number(2, 3)
		for w := 0; w < windows; w++ {
			day := availability.Day(gofakeit.Number(int(availability.Monday), int(availability.Friday)))
			// Morning or afternoon block aligned to the hour.
			startHour := gofakeit.Number(8, 14)
			length := gofakeit.Number(2, 4)

			_, err := tx.Exec(ctx, `
				INSERT INTO availability_windows
					(id, doctor_name, day_of_week, start_minutes, end_minutes, slot_duration_minutes, active)
				VALUES ($1, $2, $3, $4, $5, $6, true)
				ON CONFLICT DO NOTHING
			`, uuid.New(), doctor, int(day), startHour*60, (startHour+length)*60,
				durations[gofakeit.Number(0, len(durations)-1)])
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return doctors, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			birth := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients
					(id, name, email, phone, birth_date, gender, address, insurance_provider, insurance_policy)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT DO NOTHING
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(),
				birth, gofakeit.Gender(), gofakeit.Address().Address,
				gofakeit.Company(), gofakeit.AchAccount())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
