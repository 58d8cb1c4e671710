// Package tariff computes billable units and totals for a stay from its
// interval, tariff type and the room's rate card.
package tariff

import (
	"fmt"
	"strings"

	"github.com/example/lodging-scheduler/internal/civil"
)

// Type is the billing granularity of a stay.
type Type string

const (
	// Hour bills per started hour of a same-day booking.
	Hour Type = "hour"
	// Night bills per calendar night.
	Night Type = "night"
	// Month bills per started block of 30 days.
	Month Type = "month"
)

// DefaultMinimumHours applies when a room does not configure its own minimum.
const DefaultMinimumHours = 3

const daysPerMonth = 30

// ParseType converts a user supplied tariff name into a Type.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	if _, err := planFor(t); err != nil {
		return "", err
	}
	return t, nil
}

// Rates holds the per-unit price for each tariff type. A nil rate means the
// tariff is not offered for the room.
type Rates struct {
	Hourly  *int64
	Nightly *int64
	Monthly *int64
}

// Request describes the stay to be priced.
type Request struct {
	Type       Type
	StartDate  civil.Date
	EndDate    civil.Date
	ClockStart *civil.Clock
	ClockEnd   *civil.Clock
	MinHours   int
}

// Quote is the outcome of pricing a request.
type Quote struct {
	Type  Type
	Units int
	Rate  int64
	Total int64
}

// FieldError reports which input rule a request violated.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tariff: %s: %s", e.Field, e.Message)
}

func fieldError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// plan is implemented once per tariff type. The set is closed: planFor is the
// only constructor.
type plan interface {
	rate(Rates) *int64
	units(Request) (int, error)
	tariff() Type
}

type hourlyPlan struct{}

type nightlyPlan struct{}

type monthlyPlan struct{}

func planFor(t Type) (plan, error) {
	switch t {
	case Hour:
		return hourlyPlan{}, nil
	case Night:
		return nightlyPlan{}, nil
	case Month:
		return monthlyPlan{}, nil
	default:
		return nil, fieldError("tariff_type", "must be one of hour, night, month")
	}
}

// Calculate prices req against rates. It has no side effects.
func Calculate(rates Rates, req Request) (Quote, error) {
	p, err := planFor(req.Type)
	if err != nil {
		return Quote{}, err
	}
	if err := validateDates(req); err != nil {
		return Quote{}, err
	}

	rate := p.rate(rates)
	if rate == nil || *rate <= 0 {
		return Quote{}, fieldError("rate", fmt.Sprintf("room does not offer the %s tariff", p.tariff()))
	}

	units, err := p.units(req)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Type:  p.tariff(),
		Units: units,
		Rate:  *rate,
		Total: int64(units) * *rate,
	}, nil
}

// CheckMinimumDuration enforces the booking rule that timed hourly stays last
// at least the room's minimum number of hours. Quotes round short windows up
// to the minimum instead.
func CheckMinimumDuration(req Request) error {
	if req.Type != Hour || req.ClockStart == nil || req.ClockEnd == nil {
		return nil
	}
	minHours := minimumHours(req.MinHours)
	if int(*req.ClockEnd-*req.ClockStart) < minHours*60 {
		return fieldError("clock_end", fmt.Sprintf("hourly bookings must last at least %d hours", minHours))
	}
	return nil
}

func validateDates(req Request) error {
	if req.StartDate.IsZero() {
		return fieldError("start_date", "start date is required")
	}
	if req.EndDate.IsZero() {
		return fieldError("end_date", "end date is required")
	}
	if req.EndDate.Before(req.StartDate) {
		return fieldError("end_date", "end date must not be before start date")
	}
	return nil
}

func minimumHours(v int) int {
	if v <= 0 {
		return DefaultMinimumHours
	}
	return v
}

func (hourlyPlan) tariff() Type { return Hour }

func (hourlyPlan) rate(r Rates) *int64 { return r.Hourly }

func (hourlyPlan) units(req Request) (int, error) {
	minHours := minimumHours(req.MinHours)
	if req.ClockStart == nil && req.ClockEnd == nil {
		if req.StartDate != req.EndDate {
			return 0, fieldError("end_date", "hourly bookings must start and end on the same date")
		}
		return minHours, nil
	}
	if req.ClockStart == nil {
		return 0, fieldError("clock_start", "clock start is required when clock end is given")
	}
	if req.ClockEnd == nil {
		return 0, fieldError("clock_end", "clock end is required when clock start is given")
	}
	if req.StartDate != req.EndDate {
		return 0, fieldError("end_date", "hourly bookings must start and end on the same date")
	}
	minutes := int(*req.ClockEnd - *req.ClockStart)
	if minutes <= 0 {
		return 0, fieldError("clock_end", "clock end must be after clock start")
	}
	units := (minutes + 59) / 60
	if units < minHours {
		units = minHours
	}
	return units, nil
}

func (nightlyPlan) tariff() Type { return Night }

func (nightlyPlan) rate(r Rates) *int64 { return r.Nightly }

func (nightlyPlan) units(req Request) (int, error) {
	nights := req.StartDate.DaysUntil(req.EndDate)
	if nights < 1 {
		nights = 1
	}
	return nights, nil
}

func (monthlyPlan) tariff() Type { return Month }

func (monthlyPlan) rate(r Rates) *int64 { return r.Monthly }

func (monthlyPlan) units(req Request) (int, error) {
	days := req.StartDate.DaysUntil(req.EndDate)
	months := (days + daysPerMonth - 1) / daysPerMonth
	if months < 1 {
		months = 1
	}
	return months, nil
}
