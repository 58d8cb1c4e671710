package application

import (
	"errors"
	"fmt"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/scheduler"
	"github.com/example/lodging-scheduler/internal/tariff"
)

func roomFromRecord(r persistence.Room) Room {
	return Room{
		ID:       r.ID,
		Name:     r.Name,
		Capacity: r.Capacity,
		Rates: tariff.Rates{
			Hourly:  r.HourlyRate,
			Nightly: r.NightlyRate,
			Monthly: r.MonthlyRate,
		},
		MinHours:  r.MinHours,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func roomToRecord(r Room) persistence.Room {
	return persistence.Room{
		ID:          r.ID,
		Name:        r.Name,
		Capacity:    r.Capacity,
		HourlyRate:  r.Rates.Hourly,
		NightlyRate: r.Rates.Nightly,
		MonthlyRate: r.Rates.Monthly,
		MinHours:    r.MinHours,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// reservationFromRecord decodes a stored reservation. Stored values were
// validated on write, so a decode failure means corrupt data and is returned
// as an infrastructure error.
func reservationFromRecord(r persistence.Reservation) (Reservation, error) {
	interval, err := intervalFromRecord(r)
	if err != nil {
		return Reservation{}, err
	}
	tariffType, err := tariff.ParseType(r.TariffType)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	status, err := lifecycle.ParseStatus(r.Status)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	return Reservation{
		ID:         r.ID,
		RoomID:     r.RoomID,
		GuestID:    r.GuestID,
		CreatedBy:  r.CreatedBy,
		Tariff:     tariffType,
		Interval:   interval,
		Units:      r.Units,
		Total:      r.Total,
		Status:     status,
		PaymentRef: r.PaymentRef,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func intervalFromRecord(r persistence.Reservation) (Interval, error) {
	start, err := civil.ParseDate(r.StartDate)
	if err != nil {
		return Interval{}, fmt.Errorf("reservation %s start_date: %w", r.ID, err)
	}
	end, err := civil.ParseDate(r.EndDate)
	if err != nil {
		return Interval{}, fmt.Errorf("reservation %s end_date: %w", r.ID, err)
	}
	interval := Interval{StartDate: start, EndDate: end}
	if r.ClockStart != nil {
		c, err := civil.ParseClock(*r.ClockStart)
		if err != nil {
			return Interval{}, fmt.Errorf("reservation %s clock_start: %w", r.ID, err)
		}
		interval.ClockStart = &c
	}
	if r.ClockEnd != nil {
		c, err := civil.ParseClock(*r.ClockEnd)
		if err != nil {
			return Interval{}, fmt.Errorf("reservation %s clock_end: %w", r.ID, err)
		}
		interval.ClockEnd = &c
	}
	return interval, nil
}

func reservationToRecord(r Reservation) persistence.Reservation {
	record := persistence.Reservation{
		ID:         r.ID,
		RoomID:     r.RoomID,
		GuestID:    r.GuestID,
		CreatedBy:  r.CreatedBy,
		TariffType: string(r.Tariff),
		StartDate:  r.Interval.StartDate.String(),
		EndDate:    r.Interval.EndDate.String(),
		Units:      r.Units,
		Total:      r.Total,
		Status:     string(r.Status),
		PaymentRef: r.PaymentRef,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Interval.ClockStart != nil {
		s := r.Interval.ClockStart.String()
		record.ClockStart = &s
	}
	if r.Interval.ClockEnd != nil {
		s := r.Interval.ClockEnd.String()
		record.ClockEnd = &s
	}
	return record
}

func bookingOf(r Reservation) scheduler.Booking {
	return scheduler.Booking{
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		Tariff:        r.Tariff,
		StartDate:     r.Interval.StartDate,
		EndDate:       r.Interval.EndDate,
		ClockStart:    r.Interval.ClockStart,
		ClockEnd:      r.Interval.ClockEnd,
		Blocking:      r.Status.Blocking(),
	}
}

func stayEventFromRecord(e persistence.StayEvent) (StayEvent, error) {
	kind, err := lifecycle.ParseEventKind(e.Kind)
	if err != nil {
		return StayEvent{}, fmt.Errorf("stay event %s: %w", e.ID, err)
	}
	return StayEvent{
		ID:            e.ID,
		ReservationID: e.ReservationID,
		Kind:          kind,
		OccurredAt:    e.OccurredAt,
		RecordedBy:    e.RecordedBy,
		Seq:           e.Seq,
	}, nil
}

func lifecycleEvents(events []StayEvent) []lifecycle.Event {
	out := make([]lifecycle.Event, len(events))
	for i, e := range events {
		out[i] = lifecycle.Event{Kind: e.Kind, OccurredAt: e.OccurredAt, Seq: e.Seq}
	}
	return out
}

func accountFromRecord(a persistence.Account) Account {
	return Account{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        Role(a.Role),
		Disabled:    a.Disabled,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func sessionFromRecord(s persistence.Session) Session {
	return Session(s)
}

func sessionToRecord(s Session) persistence.Session {
	return persistence.Session(s)
}

func conflictDetails(conflicts []scheduler.Conflict) []ConflictDetail {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]ConflictDetail, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictDetail{ReservationID: c.ReservationID, Start: c.Start, FreesAt: c.EffectiveEnd}
	}
	return out
}

// fieldErrorToValidation turns a tariff rule violation into a ValidationError.
func fieldErrorToValidation(err error) error {
	var fe *tariff.FieldError
	if errors.As(err, &fe) {
		return newValidationError(fe.Field, fe.Message)
	}
	return err
}

// mapRepoError translates persistence sentinels into application errors.
// Anything else is an infrastructure error and is returned unchanged.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}
