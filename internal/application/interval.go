package application

import (
	"github.com/example/lodging-scheduler/internal/tariff"
)

// normalizeInterval fills in a missing end date and drops clock times that
// do not apply to the tariff.
func normalizeInterval(t tariff.Type, in Interval) Interval {
	out := in
	if out.EndDate.IsZero() {
		out.EndDate = out.StartDate
	}
	if t != tariff.Hour {
		out.ClockStart, out.ClockEnd = nil, nil
	}
	return out
}

// validateInterval checks the shape of an interval for a tariff. Prices and
// minimum durations are checked by the tariff package.
func validateInterval(t tariff.Type, in Interval) *ValidationError {
	vErr := &ValidationError{}

	if in.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		vErr.add("end_date", "end date must not be before start date")
	}
	if (in.ClockStart == nil) != (in.ClockEnd == nil) {
		vErr.add("clock_end", "clock_start and clock_end must be given together")
	}

	if t == tariff.Hour {
		if !in.StartDate.IsZero() && in.EndDate != in.StartDate {
			vErr.add("end_date", "hourly bookings must start and end on the same date")
		}
		if in.Timed() && *in.ClockEnd <= *in.ClockStart {
			vErr.add("clock_end", "clock end must be after clock start")
		}
	}
	return vErr
}

// prepareInterval checks clock pairing on the raw input, then normalizes and
// validates the interval for the tariff.
func prepareInterval(t tariff.Type, in Interval) (Interval, *ValidationError) {
	vErr := &ValidationError{}
	if (in.ClockStart == nil) != (in.ClockEnd == nil) {
		vErr.add("clock_end", "clock_start and clock_end must be given together")
	}
	out := normalizeInterval(t, in)
	vErr.merge(validateInterval(t, out))
	return out, vErr
}

func tariffRequest(t tariff.Type, in Interval, minHours int) tariff.Request {
	return tariff.Request{
		Type:       t,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		ClockStart: in.ClockStart,
		ClockEnd:   in.ClockEnd,
		MinHours:   minHours,
	}
}
