package scheduler

import (
	"sort"
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/tariff"
)

// SlotStep is the spacing between candidate start times.
const SlotStep = 15 * time.Minute

// SlotQuery configures a suggestion sweep for one room and day.
type SlotQuery struct {
	Date     civil.Date
	MinHours int
	Opening  civil.Clock
	Now      time.Time
	Location *time.Location
}

// Suggestion is a feasible hourly booking start.
type Suggestion struct {
	Start      time.Time
	MinimumEnd time.Time
	MaximumEnd time.Time
}

// SuggestSlots lists every start time on the query date from which a booking
// of at least MinHours fits before the next blocking booking. A day touched by
// any night, month or untimed booking has no suggestions.
func SuggestSlots(q SlotQuery, bookings []Booking) []Suggestion {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	minHours := q.MinHours
	if minHours <= 0 {
		minHours = tariff.DefaultMinimumHours
	}
	length := time.Duration(minHours) * time.Hour
	day := DayWindow(q.Date, loc)

	now := q.Now.In(loc)
	if !now.IsZero() && !now.Before(day.End) {
		return nil
	}

	occupied := make([]Window, 0, len(bookings))
	for _, b := range bookings {
		if !b.Blocking {
			continue
		}
		fp := Footprint(b, loc)
		if !fp.Overlaps(day) {
			continue
		}
		if !b.Timed() {
			return nil
		}
		occupied = append(occupied, fp)
	}
	sort.Slice(occupied, func(i, j int) bool {
		return occupied[i].Start.Before(occupied[j].Start)
	})

	start := q.Date.At(q.Opening, loc)
	if rounded := roundUp(now, day.Start); rounded.After(start) {
		start = rounded
	}

	var suggestions []Suggestion
	for s := start; !s.Add(length).After(day.End); s = s.Add(SlotStep) {
		candidate := Window{Start: s, End: s.Add(length)}
		if intersectsAny(candidate, occupied) {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Start:      s,
			MinimumEnd: candidate.End,
			MaximumEnd: nextStart(s, occupied, day.End),
		})
	}
	return suggestions
}

// roundUp moves t forward to the next SlotStep boundary measured from origin.
func roundUp(t, origin time.Time) time.Time {
	if t.IsZero() || !t.After(origin) {
		return origin
	}
	elapsed := t.Sub(origin)
	steps := (elapsed + SlotStep - 1) / SlotStep
	return origin.Add(steps * SlotStep)
}

func intersectsAny(w Window, occupied []Window) bool {
	for _, o := range occupied {
		if w.Overlaps(o) {
			return true
		}
	}
	return false
}

func nextStart(from time.Time, occupied []Window, fallback time.Time) time.Time {
	for _, o := range occupied {
		if !o.Start.Before(from) {
			return o.Start
		}
	}
	return fallback
}
