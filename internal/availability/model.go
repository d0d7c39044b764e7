package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Day is a day of the week, Monday-first. The ordinal is what gets
// persisted, so administrative listings sort Monday before Sunday.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

func ParseDay(s string) (Day, error) {
	for i, name := range dayNames {
		if strings.EqualFold(s, name) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("invalid day of week: %q", s)
}

// DayOfDate converts time.Weekday (Sunday-first) to the Monday-first Day.
func DayOfDate(t time.Time) Day {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Day(int(wd) - 1)
}

const (
	MinSlotMinutes = 15
	MaxSlotMinutes = 240

	minutesPerDay = 24 * 60
)

// Window is a recurring weekly block of time during which a doctor is
// bookable. Start and end are wall-clock minutes since midnight; slots
// never carry a timezone or DST adjustment.
type Window struct {
	ID           uuid.UUID
	DoctorName   string
	Day          Day
	StartMinutes int
	EndMinutes   int
	SlotMinutes  int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParseClock parses "HH:MM" into minutes since midnight. The comparison
// domain is integers on purpose: "9:00" vs "17:00" must not be compared
// lexicographically.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidationError is a field-level input rejection, surfaced to the
// caller before anything touches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (w Window) validate() error {
	if strings.TrimSpace(w.DoctorName) == "" {
		return &ValidationError{Field: "doctorName", Message: "must not be empty"}
	}
	if w.Day < Monday || w.Day > Sunday {
		return &ValidationError{Field: "dayOfWeek", Message: "must be a valid day of the week"}
	}
	if w.StartMinutes < 0 || w.StartMinutes >= minutesPerDay {
		return &ValidationError{Field: "startTime", Message: "must be within the day"}
	}
	if w.EndMinutes <= 0 || w.EndMinutes > minutesPerDay {
		return &ValidationError{Field: "endTime", Message: "must be within the day"}
	}
	if w.EndMinutes <= w.StartMinutes {
		return &ValidationError{Field: "endTime", Message: "must be after startTime"}
	}
	if w.SlotMinutes < MinSlotMinutes || w.SlotMinutes > MaxSlotMinutes {
		return &ValidationError{
			Field:   "slotDurationMinutes",
			Message: fmt.Sprintf("must be between %d and %d", MinSlotMinutes, MaxSlotMinutes),
		}
	}
	return nil
}
