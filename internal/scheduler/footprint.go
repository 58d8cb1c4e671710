// Package scheduler holds the interval logic for room bookings: the footprint
// a booking occupies, overlap detection between bookings of one room, and the
// free-window sweep used to suggest hourly slots.
package scheduler

import (
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/tariff"
)

// checkoutCeiling is the latest check-in instant on the end date of a night
// or month stay.
var checkoutCeiling = civil.NewClock(12, 0)

// Booking is the scheduling view of a reservation.
type Booking struct {
	ReservationID string
	RoomID        string
	Tariff        tariff.Type
	StartDate     civil.Date
	EndDate       civil.Date
	ClockStart    *civil.Clock
	ClockEnd      *civil.Clock
	// Blocking marks reservations that hold the room exclusively.
	Blocking bool
}

// Timed reports whether the booking is an hourly booking with clock times.
func (b Booking) Timed() bool {
	return b.Tariff == tariff.Hour && b.ClockStart != nil && b.ClockEnd != nil
}

// Window is a half-open span of time [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether w and other share at least one instant. Touching
// endpoints do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether t lies inside w.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Footprint returns the span of time a booking holds the room.
//
// Night and month stays cover every calendar day from the start date through
// 23:59:59 on the end date. Hourly bookings without clock times hold the
// whole day.
func Footprint(b Booking, loc *time.Location) Window {
	if b.Timed() {
		return Window{
			Start: b.StartDate.At(*b.ClockStart, loc),
			End:   b.StartDate.At(*b.ClockEnd, loc),
		}
	}
	if b.Tariff == tariff.Hour {
		return Window{
			Start: b.StartDate.In(loc),
			End:   b.StartDate.AddDays(1).In(loc),
		}
	}
	end := b.EndDate
	if end.Before(b.StartDate) {
		end = b.StartDate
	}
	return Window{
		Start: b.StartDate.In(loc),
		End:   end.AddDays(1).In(loc).Add(-time.Second),
	}
}

// StayBoundary is the last instant at which a guest may still check in.
// Hourly bookings end at their clock end (or midnight when untimed); night
// and month stays end at noon on the end date.
func StayBoundary(b Booking, loc *time.Location) time.Time {
	if b.Tariff == tariff.Hour {
		return Footprint(b, loc).End
	}
	return b.EndDate.At(checkoutCeiling, loc)
}

// DayWindow returns the full span of date d.
func DayWindow(d civil.Date, loc *time.Location) Window {
	return Window{Start: d.In(loc), End: d.AddDays(1).In(loc)}
}
