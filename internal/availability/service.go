package availability

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateBatch creates one window per day, all sharing the same start,
// end and slot duration. The operation is all-or-nothing: if any day
// overlaps an existing active window, nothing is created.
func (s *Service) CreateBatch(ctx context.Context, doctor string, dayNames []string, start, end string, slotMinutes int) ([]Window, error) {
	if len(dayNames) == 0 {
		return nil, &ValidationError{Field: "daysOfWeek", Message: "at least one day is required"}
	}

	days := make([]Day, 0, len(dayNames))
	seen := make(map[Day]struct{}, len(dayNames))
	for _, name := range dayNames {
		d, err := ParseDay(name)
		if err != nil {
			return nil, &ValidationError{Field: "daysOfWeek", Message: err.Error()}
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}

	startMin, err := ParseClock(start)
	if err != nil {
		return nil, &ValidationError{Field: "startTime", Message: err.Error()}
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return nil, &ValidationError{Field: "endTime", Message: err.Error()}
	}

	windows := make([]Window, 0, len(days))
	for _, d := range days {
		w := Window{
			ID:           uuid.New(),
			DoctorName:   strings.TrimSpace(doctor),
			Day:          d,
			StartMinutes: startMin,
			EndMinutes:   endMin,
			SlotMinutes:  slotMinutes,
			Active:       true,
		}
		if err := w.validate(); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	created, err := s.repo.CreateBatch(ctx, windows)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor", doctor).
		Int("windows", len(created)).
		Str("start", start).
		Str("end", end).
		Msg("availability windows created")

	return created, nil
}

// Update overwrites one window's day, times and slot duration.
func (s *Service) Update(ctx context.Context, id uuid.UUID, doctor, dayName, start, end string, slotMinutes int) (Window, error) {
	day, err := ParseDay(dayName)
	if err != nil {
		return Window{}, &ValidationError{Field: "dayOfWeek", Message: err.Error()}
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return Window{}, &ValidationError{Field: "startTime", Message: err.Error()}
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return Window{}, &ValidationError{Field: "endTime", Message: err.Error()}
	}

	w := Window{
		ID:           id,
		DoctorName:   strings.TrimSpace(doctor),
		Day:          day,
		StartMinutes: startMin,
		EndMinutes:   endMin,
		SlotMinutes:  slotMinutes,
		Active:       true,
	}
	if err := w.validate(); err != nil {
		return Window{}, err
	}

	updated, err := s.repo.Update(ctx, w)
	if err != nil {
		return Window{}, err
	}

	s.logger.Info().
		Str("doctor", doctor).
		Str("window_id", id.String()).
		Msg("availability window updated")

	return updated, nil
}

// SoftDelete deactivates a window. Existing appointments are untouched.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("window_id", id.String()).Msg("availability window deactivated")
	return nil
}

// List returns all active windows for administrative display.
func (s *Service) List(ctx context.Context) ([]Window, error) {
	return s.repo.List(ctx)
}
