// Package lifecycle defines reservation statuses, the transitions allowed
// between them, and the stay state derived from check-in/check-out events.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the approval state of a reservation.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Cancelled Status = "cancelled"
	Completed Status = "completed"
	Released  Status = "released"
)

// ErrIllegalTransition is returned for transitions not in the table.
var ErrIllegalTransition = errors.New("lifecycle: illegal status transition")

// ErrUnknownStatus is returned by ParseStatus for unrecognised values.
var ErrUnknownStatus = errors.New("lifecycle: unknown status")

var transitions = map[Status][]Status{
	Pending:   {Confirmed, Cancelled},
	Confirmed: {Cancelled, Released, Completed},
}

// ParseStatus converts a stored or user supplied value into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case Pending, Confirmed, Cancelled, Completed, Released:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
}

// Blocking reports whether reservations in s hold their room exclusively.
// Checked-in stays remain confirmed until check-out, so they block too.
func (s Status) Blocking() bool {
	return s == Confirmed
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: cannot move reservation from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// CanTransition reports whether from→to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from→to.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
