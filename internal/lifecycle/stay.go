package lifecycle

import (
	"errors"
	"time"
)

// EventKind identifies a stay event.
type EventKind string

const (
	CheckIn  EventKind = "check_in"
	CheckOut EventKind = "check_out"
)

// ErrUnknownEventKind is returned by ParseEventKind for unrecognised values.
var ErrUnknownEventKind = errors.New("lifecycle: unknown stay event kind")

// ParseEventKind converts a stored value into an EventKind.
func ParseEventKind(value string) (EventKind, error) {
	switch k := EventKind(value); k {
	case CheckIn, CheckOut:
		return k, nil
	default:
		return "", ErrUnknownEventKind
	}
}

// Event is one entry in a reservation's append-only stay log.
type Event struct {
	Kind       EventKind
	OccurredAt time.Time
	// Seq orders events that share a timestamp.
	Seq int64
}

// StayState is derived from the latest stay event.
type StayState int

const (
	NotArrived StayState = iota
	CheckedIn
	CheckedOut
)

func (s StayState) String() string {
	switch s {
	case CheckedIn:
		return "checked_in"
	case CheckedOut:
		return "checked_out"
	default:
		return "not_arrived"
	}
}

// Latest returns the most recent event by timestamp, then sequence.
func Latest(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	latest := events[0]
	for _, e := range events[1:] {
		if e.OccurredAt.After(latest.OccurredAt) ||
			(e.OccurredAt.Equal(latest.OccurredAt) && e.Seq > latest.Seq) {
			latest = e
		}
	}
	return latest, true
}

// NextOccurredAt returns at, raised to the latest event's time when that is
// later, so an appended event never sorts before the log it extends.
func NextOccurredAt(events []Event, at time.Time) time.Time {
	if latest, ok := Latest(events); ok && latest.OccurredAt.After(at) {
		return latest.OccurredAt
	}
	return at
}

// Derive returns the stay state implied by events.
func Derive(events []Event) StayState {
	latest, ok := Latest(events)
	if !ok {
		return NotArrived
	}
	if latest.Kind == CheckIn {
		return CheckedIn
	}
	return CheckedOut
}

// CheckedInSince returns when the open check-in started, if there is one.
func CheckedInSince(events []Event) (time.Time, bool) {
	latest, ok := Latest(events)
	if !ok || latest.Kind != CheckIn {
		return time.Time{}, false
	}
	return latest.OccurredAt, true
}
