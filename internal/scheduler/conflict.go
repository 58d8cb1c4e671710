package scheduler

import (
	"sort"
	"time"
)

// Conflict describes an existing booking that overlaps a candidate.
type Conflict struct {
	ReservationID string
	Start         time.Time
	// EffectiveEnd is when the conflicting booking releases the room.
	EffectiveEnd time.Time
}

// DetectConflicts returns the blocking bookings of the candidate's room that
// overlap the candidate, ordered by start. The candidate's own reservation is
// ignored so a booking can be re-checked against its neighbours.
func DetectConflicts(existing []Booking, candidate Booking, loc *time.Location) []Conflict {
	window := Footprint(candidate, loc)

	var conflicts []Conflict
	for _, other := range existing {
		if !other.Blocking || other.RoomID != candidate.RoomID {
			continue
		}
		if candidate.ReservationID != "" && other.ReservationID == candidate.ReservationID {
			continue
		}
		fp := Footprint(other, loc)
		if !fp.Overlaps(window) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ReservationID: other.ReservationID,
			Start:         fp.Start,
			EffectiveEnd:  fp.End,
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].ReservationID < conflicts[j].ReservationID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}

// Available reports whether the candidate overlaps no blocking booking.
func Available(existing []Booking, candidate Booking, loc *time.Location) bool {
	return len(DetectConflicts(existing, candidate, loc)) == 0
}
