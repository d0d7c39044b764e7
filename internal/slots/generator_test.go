package slots

import (
	"testing"
	"time"

	"github.com/telecare/booking-service/internal/availability"
)

func mustClock(t *testing.T, s string) int {
	t.Helper()
	m, err := availability.ParseClock(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func testWindow(t *testing.T, start, end string, slot int) availability.Window {
	t.Helper()
	return availability.Window{
		DoctorName:   "Dr. Adams",
		Day:          availability.Monday,
		StartMinutes: mustClock(t, start),
		EndMinutes:   mustClock(t, end),
		SlotMinutes:  slot,
		Active:       true,
	}
}

func TestGenerate(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday

	tests := []struct {
		name      string
		start     string
		end       string
		slot      int
		wantCount int
		wantFirst string
		wantLast  string
	}{
		{"full day 30min", "09:00", "17:00", 30, 16, "09:00", "16:30"},
		{"trailing partial dropped", "09:00", "09:50", 30, 1, "09:00", "09:00"},
		{"exact single slot", "09:00", "09:30", 30, 1, "09:00", "09:00"},
		{"uneven division", "09:00", "17:00", 45, 10, "09:00", "15:45"},
		{"hour slots", "08:00", "12:00", 60, 4, "08:00", "11:00"},
		{"window shorter than slot", "09:00", "09:20", 30, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(date, testWindow(t, tt.start, tt.end, tt.slot))

			if len(got) != tt.wantCount {
				t.Fatalf("expected %d slots, got %d", tt.wantCount, len(got))
			}
			if tt.wantCount == 0 {
				return
			}
			if got[0].Clock() != tt.wantFirst {
				t.Errorf("first slot = %s, want %s", got[0].Clock(), tt.wantFirst)
			}
			if got[len(got)-1].Clock() != tt.wantLast {
				t.Errorf("last slot = %s, want %s", got[len(got)-1].Clock(), tt.wantLast)
			}

			end := mustClock(t, tt.end)
			for _, s := range got {
				if s.Minutes+s.Length > end {
					t.Errorf("slot %s extends past window end %s", s.Clock(), tt.end)
				}
			}
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	w := testWindow(t, "09:00", "17:00", 30)

	first := Generate(date, w)
	second := Generate(date, w)

	if len(first) != len(second) {
		t.Fatalf("regeneration changed slot count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestSlotStart(t *testing.T) {
	date := time.Date(2026, 9, 7, 13, 45, 0, 0, time.UTC) // time-of-day must be ignored
	got := Generate(date, testWindow(t, "09:00", "10:00", 30))

	want := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	if !got[0].Start().Equal(want) {
		t.Errorf("Start() = %v, want %v", got[0].Start(), want)
	}
}

func TestSlotFormatted(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "12:00 AM"},
		{9 * 60, "9:00 AM"},
		{9*60 + 30, "9:30 AM"},
		{12 * 60, "12:00 PM"},
		{16*60 + 30, "4:30 PM"},
	}
	for _, tt := range tests {
		got := Slot{Minutes: tt.minutes}.Formatted()
		if got != tt.want {
			t.Errorf("Formatted(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestGenerateAll(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	morning := testWindow(t, "09:00", "12:00", 30)
	afternoon := testWindow(t, "14:00", "16:00", 60)

	got := GenerateAll(date, []availability.Window{morning, afternoon})
	if len(got) != 8 {
		t.Fatalf("expected 8 slots across windows, got %d", len(got))
	}
	if got[6].Clock() != "14:00" || got[6].Length != 60 {
		t.Errorf("afternoon slots should inherit their window's duration, got %s/%d",
			got[6].Clock(), got[6].Length)
	}
}
