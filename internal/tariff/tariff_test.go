package tariff

import (
	"errors"
	"testing"

	"github.com/example/lodging-scheduler/internal/civil"
)

func rate(v int64) *int64 { return &v }

func clock(t *testing.T, value string) *civil.Clock {
	t.Helper()
	c, err := civil.ParseClock(value)
	if err != nil {
		t.Fatalf("invalid clock %q: %v", value, err)
	}
	return &c
}

func date(t *testing.T, value string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return d
}

func TestCalculateHourly(t *testing.T) {
	t.Parallel()

	rates := Rates{Hourly: rate(50)}

	t.Run("rounds short windows up to the minimum", func(t *testing.T) {
		t.Parallel()
		q, err := Calculate(rates, Request{
			Type:       Hour,
			StartDate:  date(t, "2024-06-01"),
			EndDate:    date(t, "2024-06-01"),
			ClockStart: clock(t, "10:00"),
			ClockEnd:   clock(t, "12:00"),
			MinHours:   3,
		})
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if q.Units != 3 || q.Total != 150 {
			t.Fatalf("expected 3 units totalling 150, got %+v", q)
		}
	})

	t.Run("bills each started hour", func(t *testing.T) {
		t.Parallel()
		q, err := Calculate(rates, Request{
			Type:       Hour,
			StartDate:  date(t, "2024-06-01"),
			EndDate:    date(t, "2024-06-01"),
			ClockStart: clock(t, "08:00"),
			ClockEnd:   clock(t, "12:01"),
			MinHours:   3,
		})
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if q.Units != 5 || q.Total != 250 {
			t.Fatalf("expected 5 units, got %+v", q)
		}
	})

	t.Run("uses the minimum when no clock times are given", func(t *testing.T) {
		t.Parallel()
		q, err := Calculate(rates, Request{
			Type:      Hour,
			StartDate: date(t, "2024-06-01"),
			EndDate:   date(t, "2024-06-01"),
			MinHours:  4,
		})
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if q.Units != 4 {
			t.Fatalf("expected 4 units, got %d", q.Units)
		}
	})

	t.Run("falls back to the default minimum", func(t *testing.T) {
		t.Parallel()
		q, err := Calculate(rates, Request{
			Type:      Hour,
			StartDate: date(t, "2024-06-01"),
			EndDate:   date(t, "2024-06-01"),
		})
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if q.Units != DefaultMinimumHours {
			t.Fatalf("expected default minimum, got %d", q.Units)
		}
	})

	t.Run("rejects inverted and cross-midnight windows", func(t *testing.T) {
		t.Parallel()
		cases := []Request{
			{Type: Hour, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-01"), ClockStart: clock(t, "12:00"), ClockEnd: clock(t, "12:00")},
			{Type: Hour, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-01"), ClockStart: clock(t, "22:00"), ClockEnd: clock(t, "01:00")},
			{Type: Hour, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-02"), ClockStart: clock(t, "22:00"), ClockEnd: clock(t, "23:00")},
			{Type: Hour, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-01"), ClockStart: clock(t, "22:00")},
		}
		for _, req := range cases {
			_, err := Calculate(rates, req)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError for %+v, got %v", req, err)
			}
		}
	})
}

func TestCalculateNightAndMonth(t *testing.T) {
	t.Parallel()

	rates := Rates{Nightly: rate(400), Monthly: rate(9000)}

	tests := []struct {
		name      string
		tariff    Type
		start     string
		end       string
		wantUnits int
	}{
		{"two nights", Night, "2024-06-01", "2024-06-03", 2},
		{"same day counts one night", Night, "2024-06-01", "2024-06-01", 1},
		{"exactly thirty days", Month, "2024-06-01", "2024-07-01", 1},
		{"thirty one days", Month, "2024-06-01", "2024-07-02", 2},
		{"short month stay", Month, "2024-06-01", "2024-06-05", 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			q, err := Calculate(rates, Request{Type: tc.tariff, StartDate: date(t, tc.start), EndDate: date(t, tc.end)})
			if err != nil {
				t.Fatalf("Calculate returned error: %v", err)
			}
			if q.Units != tc.wantUnits {
				t.Fatalf("expected %d units, got %d", tc.wantUnits, q.Units)
			}
			if q.Total != int64(q.Units)*q.Rate {
				t.Fatalf("total %d does not equal units x rate", q.Total)
			}
		})
	}
}

func TestCalculateRejectsMissingRatesAndTypes(t *testing.T) {
	t.Parallel()

	req := Request{Type: Night, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-02")}

	_, err := Calculate(Rates{Nightly: rate(0)}, req)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "rate" {
		t.Fatalf("expected rate FieldError, got %v", err)
	}

	_, err = Calculate(Rates{Hourly: rate(10)}, req)
	if !errors.As(err, &fe) || fe.Field != "rate" {
		t.Fatalf("expected rate FieldError for absent nightly rate, got %v", err)
	}

	req.Type = Type("week")
	_, err = Calculate(Rates{Nightly: rate(10)}, req)
	if !errors.As(err, &fe) || fe.Field != "tariff_type" {
		t.Fatalf("expected tariff_type FieldError, got %v", err)
	}

	req.Type = Night
	req.EndDate = date(t, "2024-05-31")
	_, err = Calculate(Rates{Nightly: rate(10)}, req)
	if !errors.As(err, &fe) || fe.Field != "end_date" {
		t.Fatalf("expected end_date FieldError, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Type{"hour": Hour, " Night ": Night, "MONTH": Month} {
		got, err := ParseType(input)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseType("weekly"); err == nil {
		t.Fatalf("expected error for unknown tariff type")
	}
}

func TestCheckMinimumDuration(t *testing.T) {
	t.Parallel()

	base := Request{Type: Hour, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-01"), MinHours: 3}

	exact := base
	exact.ClockStart, exact.ClockEnd = clock(t, "09:00"), clock(t, "12:00")
	if err := CheckMinimumDuration(exact); err != nil {
		t.Fatalf("exact minimum should pass, got %v", err)
	}

	short := base
	short.ClockStart, short.ClockEnd = clock(t, "09:00"), clock(t, "11:59")
	var fe *FieldError
	if err := CheckMinimumDuration(short); !errors.As(err, &fe) {
		t.Fatalf("one minute short should fail, got %v", err)
	}

	if err := CheckMinimumDuration(base); err != nil {
		t.Fatalf("clockless booking should pass, got %v", err)
	}
}
