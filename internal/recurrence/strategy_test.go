package recurrence

import (
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestDayStepper_At(t *testing.T) {
	first := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stepper DayStepper
		k       int
		want    time.Time
	}{
		{"weekly zero is first", DayStepper{Days: 7}, 0, first},
		{"weekly third", DayStepper{Days: 7}, 3, time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC)},
		{"biweekly crosses leap day", DayStepper{Days: 14}, 3, time.Date(2024, 2, 26, 12, 0, 0, 0, time.UTC)},
		{"biweekly fourth", DayStepper{Days: 14}, 4, time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stepper.At(first, tt.k); !got.Equal(tt.want) {
				t.Errorf("At(%d) = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

func TestMonthStepper_At(t *testing.T) {
	tests := []struct {
		name  string
		first time.Time
		k     int
		want  time.Time
	}{
		{
			name:  "mid month is stable",
			first: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			k:     2,
			want:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "31st clamps in february",
			first: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			k:     1,
			want:  time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "31st returns after clamp",
			first: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			k:     2,
			want:  time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "leap year february",
			first: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
			k:     1,
			want:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "crosses year end",
			first: time.Date(2024, 11, 30, 8, 45, 0, 0, time.UTC),
			k:     3,
			want:  time.Date(2025, 2, 28, 8, 45, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (MonthStepper{}).At(tt.first, tt.k); !got.Equal(tt.want) {
				t.Errorf("At(%d) = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

func TestStepperFor(t *testing.T) {
	for _, r := range []core.Recurrence{core.Weekly, core.Biweekly, core.Monthly} {
		if _, err := StepperFor(r); err != nil {
			t.Errorf("StepperFor(%s) unexpected error: %v", r, err)
		}
	}

	_, err := StepperFor("yearly")
	if !errors.Is(err, core.ErrUnknownRecurrence) {
		t.Errorf("StepperFor(yearly) error = %v, want ErrUnknownRecurrence", err)
	}
}
