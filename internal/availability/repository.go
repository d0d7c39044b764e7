package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrWindowNotFound = errors.New("availability window not found")

// OverlapError reports the existing window a candidate collided with so
// the caller can name the conflicting times.
type OverlapError struct {
	Conflict Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps existing %s window %s-%s for %s",
		e.Conflict.Day,
		FormatClock(e.Conflict.StartMinutes),
		FormatClock(e.Conflict.EndMinutes),
		e.Conflict.DoctorName,
	)
}

// Repository contains all DB interactions needed by the availability
// service. Overlap checks run inside the same transaction as the write
// so two admins editing the same doctor cannot both succeed.
type Repository interface {
	// CreateBatch inserts all windows or none. Every window must belong
	// to the same doctor. Returns *OverlapError on conflict.
	CreateBatch(ctx context.Context, windows []Window) ([]Window, error)

	// Update overwrites day, times and duration of one window in place,
	// re-running the overlap check against the doctor's other windows.
	Update(ctx context.Context, w Window) (Window, error)

	// SoftDelete tombstones a window. Appointments already booked
	// against it are untouched; only future slot generation stops
	// considering it.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns all active windows ordered by day (Monday-first),
	// doctor, then start time.
	List(ctx context.Context) ([]Window, error)

	// ActiveForDoctorDay returns the doctor's active windows for one
	// day, ordered by start time.
	ActiveForDoctorDay(ctx context.Context, doctor string, day Day) ([]Window, error)
}
