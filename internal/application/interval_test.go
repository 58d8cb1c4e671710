package application

import (
	"testing"
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/tariff"
)

func clockPtr(hour, minute int) *civil.Clock {
	c := civil.NewClock(hour, minute)
	return &c
}

func TestNormalizeInterval(t *testing.T) {
	t.Parallel()

	start := civil.DateOf(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))

	t.Run("defaults the end date to the start date", func(t *testing.T) {
		got := normalizeInterval(tariff.Night, Interval{StartDate: start})
		if got.EndDate != start {
			t.Fatalf("expected end date %s, got %s", start, got.EndDate)
		}
	})

	t.Run("drops clock times for non-hourly tariffs", func(t *testing.T) {
		got := normalizeInterval(tariff.Month, Interval{StartDate: start, ClockStart: clockPtr(10, 0), ClockEnd: clockPtr(12, 0)})
		if got.ClockStart != nil || got.ClockEnd != nil {
			t.Fatalf("expected clock times to be dropped, got %+v", got)
		}
	})

	t.Run("keeps clock times for hourly tariffs", func(t *testing.T) {
		got := normalizeInterval(tariff.Hour, Interval{StartDate: start, ClockStart: clockPtr(10, 0), ClockEnd: clockPtr(12, 0)})
		if !got.Timed() {
			t.Fatalf("expected timed interval, got %+v", got)
		}
	})
}

func TestValidateInterval(t *testing.T) {
	t.Parallel()

	day := civil.DateOf(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name    string
		tariff  tariff.Type
		in      Interval
		wantErr string
	}{
		{name: "missing start", tariff: tariff.Night, in: Interval{}, wantErr: "start_date"},
		{name: "inverted dates", tariff: tariff.Night, in: Interval{StartDate: day, EndDate: day.AddDays(-1)}, wantErr: "end_date"},
		{name: "lone clock", tariff: tariff.Hour, in: Interval{StartDate: day, EndDate: day, ClockStart: clockPtr(9, 0)}, wantErr: "clock_end"},
		{name: "hourly across dates", tariff: tariff.Hour, in: Interval{StartDate: day, EndDate: day.AddDays(1)}, wantErr: "end_date"},
		{name: "empty hourly window", tariff: tariff.Hour, in: Interval{StartDate: day, EndDate: day, ClockStart: clockPtr(9, 0), ClockEnd: clockPtr(9, 0)}, wantErr: "clock_end"},
		{name: "valid night", tariff: tariff.Night, in: Interval{StartDate: day, EndDate: day.AddDays(2)}},
		{name: "valid hourly", tariff: tariff.Hour, in: Interval{StartDate: day, EndDate: day, ClockStart: clockPtr(9, 0), ClockEnd: clockPtr(12, 0)}},
		{name: "untimed hourly", tariff: tariff.Hour, in: Interval{StartDate: day, EndDate: day}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			vErr := validateInterval(tc.tariff, tc.in)
			if tc.wantErr == "" {
				if vErr.HasErrors() {
					t.Fatalf("expected no errors, got %v", vErr.FieldErrors)
				}
				return
			}
			if _, ok := vErr.FieldErrors[tc.wantErr]; !ok {
				t.Fatalf("expected %s error, got %v", tc.wantErr, vErr.FieldErrors)
			}
		})
	}
}

func TestPrepareIntervalChecksClockPairingBeforeNormalizing(t *testing.T) {
	t.Parallel()

	day := civil.DateOf(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))
	for _, tt := range []tariff.Type{tariff.Night, tariff.Month, tariff.Hour} {
		tt := tt
		t.Run(string(tt), func(t *testing.T) {
			_, vErr := prepareInterval(tt, Interval{StartDate: day, ClockStart: clockPtr(10, 0)})
			if _, ok := vErr.FieldErrors["clock_end"]; !ok {
				t.Fatalf("expected clock_end error, got %v", vErr.FieldErrors)
			}
		})
	}

	got, vErr := prepareInterval(tariff.Night, Interval{StartDate: day, ClockStart: clockPtr(10, 0), ClockEnd: clockPtr(11, 0)})
	if vErr.HasErrors() {
		t.Fatalf("expected paired clocks to pass, got %v", vErr.FieldErrors)
	}
	if got.ClockStart != nil || got.EndDate != day {
		t.Fatalf("expected normalized night interval, got %+v", got)
	}
}
