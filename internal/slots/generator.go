// Package slots expands availability windows into discrete bookable
// time slots. Generation is pure: the same date and window always yield
// the same slots.
package slots

import (
	"time"

	"github.com/telecare/booking-service/internal/availability"
)

// Slot is one bookable unit of time on a concrete date. It has no
// identity and is never persisted; it is recomputed on every query.
type Slot struct {
	Date    time.Time // midnight of the calendar date
	Minutes int       // wall-clock start, minutes since midnight
	Length  int       // duration in minutes, inherited from the window
}

// Clock returns the slot's start as "HH:MM".
func (s Slot) Clock() string {
	return availability.FormatClock(s.Minutes)
}

// Formatted returns the slot's start in 12-hour clock form, "9:00 AM".
func (s Slot) Formatted() string {
	t := time.Date(0, 1, 1, s.Minutes/60, s.Minutes%60, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}

// Start combines the slot's date and wall-clock time. Times are local
// wall clock with no DST adjustment.
func (s Slot) Start() time.Time {
	return s.Date.Add(time.Duration(s.Minutes) * time.Minute)
}

// Generate walks from the window's start to its end in fixed
// slot-duration steps. The trailing slot is emitted only if its full
// duration fits before the window's end; a partial remainder is
// dropped, never rounded or padded.
func Generate(date time.Time, w availability.Window) []Slot {
	if w.SlotMinutes <= 0 || w.EndMinutes <= w.StartMinutes {
		return nil
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	var out []Slot
	for cur := w.StartMinutes; cur+w.SlotMinutes <= w.EndMinutes; cur += w.SlotMinutes {
		out = append(out, Slot{Date: day, Minutes: cur, Length: w.SlotMinutes})
	}
	return out
}

// GenerateAll expands every window onto the date in order. Windows for
// the wrong weekday are the caller's bug to avoid; this function only
// concatenates.
func GenerateAll(date time.Time, windows []availability.Window) []Slot {
	var out []Slot
	for _, w := range windows {
		out = append(out, Generate(date, w)...)
	}
	return out
}
