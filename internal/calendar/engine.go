package calendar

import (
	"errors"
	"sort"
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/scheduler"
)

// MaxWindowDays bounds how many days a single projection may cover.
const MaxWindowDays = 92

// ErrInvalidWindow indicates the requested window is empty or inverted.
var ErrInvalidWindow = errors.New("calendar: window end must not precede its start")

// ErrWindowTooLarge indicates the requested window exceeds MaxWindowDays.
var ErrWindowTooLarge = errors.New("calendar: window exceeds the maximum number of days")

// Segment is the part of a booking that falls on one day.
type Segment struct {
	ReservationID string
	Start         time.Time
	End           time.Time
	// WholeDay is set when the booking holds the room for the entire day.
	WholeDay bool
}

// Day lists the bookings that touch one calendar day.
type Day struct {
	Date     civil.Date
	Segments []Segment
}

// Occupied reports whether any booking touches the day.
func (d Day) Occupied() bool {
	return len(d.Segments) > 0
}

// Engine expands booking footprints into per-day cells.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates days in loc. If loc is nil,
// UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Project returns one Day for every date in [from, to], in order. Only
// blocking bookings are placed on the calendar.
//
// The engine enforces the following semantics:
//   - Days are evaluated in the engine's time zone.
//   - A segment is clipped to the day it appears on.
//   - Night, month and untimed hourly bookings are flagged WholeDay.
func (e *Engine) Project(bookings []scheduler.Booking, from, to civil.Date) ([]Day, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}
	if to.Before(from) {
		return nil, ErrInvalidWindow
	}
	if from.DaysUntil(to)+1 > MaxWindowDays {
		return nil, ErrWindowTooLarge
	}

	footprints := make([]footprint, 0, len(bookings))
	for _, b := range bookings {
		if !b.Blocking {
			continue
		}
		footprints = append(footprints, footprint{
			id:       b.ReservationID,
			window:   scheduler.Footprint(b, loc),
			wholeDay: !b.Timed(),
		})
	}
	sort.Slice(footprints, func(i, j int) bool {
		return footprints[i].window.Start.Before(footprints[j].window.Start)
	})

	days := make([]Day, 0, from.DaysUntil(to)+1)
	for current := from; !current.After(to); current = current.AddDays(1) {
		window := scheduler.DayWindow(current, loc)
		day := Day{Date: current}
		for _, fp := range footprints {
			if !fp.window.Overlaps(window) {
				continue
			}
			day.Segments = append(day.Segments, Segment{
				ReservationID: fp.id,
				Start:         latest(fp.window.Start, window.Start),
				End:           earliest(fp.window.End, window.End),
				WholeDay:      fp.wholeDay,
			})
		}
		days = append(days, day)
	}
	return days, nil
}

type footprint struct {
	id       string
	window   scheduler.Window
	wholeDay bool
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
