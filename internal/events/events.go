// Package events carries domain notifications to read-only consumers. The
// services publish after their transaction commits; delivery failures are
// logged and never undo a committed change.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Type names a domain event.
type Type string

const (
	ReservationCreated       Type = "reservation.created"
	ReservationStatusChanged Type = "reservation.status_changed"
	StayCheckedIn            Type = "stay.checked_in"
	StayCheckedOut           Type = "stay.checked_out"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Type           Type      `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	ReservationID  string    `json:"reservation_id"`
	RoomID         string    `json:"room_id"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Actor          string    `json:"actor,omitempty"`
}

// Encode renders the event as JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an encoded event.
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// PublishAll publishes events in order, logging failures.
func PublishAll(ctx context.Context, p Publisher, logger *slog.Logger, evs ...Event) {
	if p == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			logger.WarnContext(ctx, "failed to publish event",
				"event_type", string(e.Type),
				"reservation_id", e.ReservationID,
				"error", err,
			)
		}
	}
}
