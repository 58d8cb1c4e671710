package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnauthorized is returned when no valid session identifies the caller.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("application: conflict")
	// ErrStateTransition is matched by every *StateError.
	ErrStateTransition = errors.New("application: illegal state transition")
	// ErrExpired is returned when an action is attempted after its time boundary.
	ErrExpired = errors.New("application: expired")

	// ErrInvalidCredentials is returned when an email and password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled account attempts to sign in.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// ConflictDetail identifies a reservation standing in the way and when it
// frees the room.
type ConflictDetail struct {
	ReservationID string
	Start         time.Time
	FreesAt       time.Time
}

// ConflictError reports an overlap, a double check-in or a lost race.
type ConflictError struct {
	Reason    string
	Conflicts []ConflictDetail
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict: %s (reservation %s frees the room at %s)",
		e.Reason, e.Conflicts[0].ReservationID, e.Conflicts[0].FreesAt.Format(time.RFC3339))
}

// Is lets errors.Is match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StateError reports a status change the lifecycle does not allow.
type StateError struct {
	ReservationID string
	From          string
	To            string
	Reason        string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	msg := fmt.Sprintf("reservation %s: cannot move from %s to %s", e.ReservationID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is match ErrStateTransition.
func (e *StateError) Is(target error) bool {
	return target == ErrStateTransition
}
