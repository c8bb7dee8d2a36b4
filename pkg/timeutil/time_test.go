package timeutil

import (
	"testing"
	"time"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "midnight UTC",
			input:    time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "noon UTC",
			input:    time.Date(2025, 11, 20, 12, 30, 45, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "non-UTC input",
			input:    time.Date(2025, 11, 20, 1, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
			expected: "2025-11-19 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfDay(tt.input)

			if result.String() != tt.expected {
				t.Errorf("StartOfDay() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDaysSince(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected float64
	}{
		{"same instant", base, 0},
		{"half a day", base.Add(12 * time.Hour), 0.5},
		{"one day", base.Add(24 * time.Hour), 1},
		{"two days", base.Add(48 * time.Hour), 2},
		{"future", base.Add(-36 * time.Hour), -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysSince(base, tt.now); got != tt.expected {
				t.Errorf("DaysSince() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLater(t *testing.T) {
	a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)

	if !Later(a, b).Equal(b) || !Later(b, a).Equal(b) {
		t.Errorf("Later() did not pick the later time")
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), start)
	}

	clock.Advance(48 * time.Hour)
	if want := start.Add(48 * time.Hour); !clock.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", clock.Now(), want)
	}

	clock.Set(start)
	if !clock.Now().Equal(start) {
		t.Errorf("after Set, Now() = %v, want %v", clock.Now(), start)
	}
}
