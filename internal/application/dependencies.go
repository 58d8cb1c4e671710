package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/events"
	"github.com/example/lodging-scheduler/internal/idempotency"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/lock"
	"github.com/example/lodging-scheduler/internal/persistence"
)

// BookingDeps are shared by the reservation, stay and occupancy services.
// Services that take part in the same critical sections must share one
// Locker.
type BookingDeps struct {
	Store       persistence.Store
	Locker      lock.Locker
	Publisher   events.Publisher
	Idempotency idempotency.Store
	Now         func() time.Time
	IDGenerator func() string
	// Location is the property's time zone; dates and clocks are read in it.
	Location *time.Location
	// Opening is the earliest suggested hourly start of a day.
	Opening civil.Clock
	Logger  *slog.Logger
}

// processLocker guards rooms for every service built without a Locker, so
// separately constructed services still share critical sections.
var processLocker lock.Locker = lock.NewKeyedMutex()

func (d BookingDeps) withDefaults() BookingDeps {
	if d.Locker == nil {
		d.Locker = processLocker
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.IDGenerator == nil {
		d.IDGenerator = uuid.NewString
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	d.Logger = defaultLogger(d.Logger)
	return d
}

// today returns the current date in the property time zone.
func (d BookingDeps) today() civil.Date {
	return civil.DateOf(d.Now().In(d.Location))
}

// withRoomLock runs fn inside the room's critical section: the room lock is
// held for the whole transaction.
func (d BookingDeps) withRoomLock(ctx context.Context, roomID string, fn persistence.TxFunc) error {
	unlock, err := d.Locker.Lock(ctx, lock.RoomKey(roomID))
	if err != nil {
		return fmt.Errorf("acquire room lock: %w", err)
	}
	defer unlock()
	return d.Store.WithinTx(ctx, fn)
}

// loadReservation reads and decodes one reservation with its stay events.
func loadReservation(ctx context.Context, repos persistence.Repositories, id string) (Reservation, []StayEvent, error) {
	record, err := repos.Reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, nil, mapRepoError(err)
	}
	reservation, err := reservationFromRecord(record)
	if err != nil {
		return Reservation{}, nil, err
	}
	stays, err := loadStayEvents(ctx, repos, id)
	if err != nil {
		return Reservation{}, nil, err
	}
	reservation.StayState = lifecycle.Derive(lifecycleEvents(stays))
	return reservation, stays, nil
}

func loadStayEvents(ctx context.Context, repos persistence.Repositories, ids ...string) ([]StayEvent, error) {
	records, err := repos.StayEvents.ListStayEvents(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]StayEvent, 0, len(records))
	for _, r := range records {
		e, err := stayEventFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// blockingReservations returns the confirmed reservations of the given rooms
// whose dates touch [from, to]. Zero dates leave that side open.
func blockingReservations(ctx context.Context, repos persistence.Repositories, roomIDs []string, from, to civil.Date) ([]Reservation, error) {
	filter := persistence.ReservationFilter{
		RoomIDs:  roomIDs,
		Statuses: []string{string(lifecycle.Confirmed)},
	}
	if !from.IsZero() {
		filter.From = from.String()
	}
	if !to.IsZero() {
		filter.To = to.String()
	}
	records, err := repos.Reservations.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Reservation, 0, len(records))
	for _, r := range records {
		reservation, err := reservationFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	return out, nil
}

// appendStayEvent records a stay event after prior and returns it decoded.
// The event is never stamped earlier than the latest prior event, so a
// lagging clock cannot reorder the log.
func (d BookingDeps) appendStayEvent(ctx context.Context, repos persistence.Repositories, reservationID string, prior []StayEvent, kind lifecycle.EventKind, actor string, at time.Time) (StayEvent, error) {
	record, err := repos.StayEvents.AppendStayEvent(ctx, persistence.StayEvent{
		ID:            d.IDGenerator(),
		ReservationID: reservationID,
		Kind:          string(kind),
		OccurredAt:    lifecycle.NextOccurredAt(lifecycleEvents(prior), at),
		RecordedBy:    actor,
	})
	if err != nil {
		return StayEvent{}, mapRepoError(err)
	}
	return stayEventFromRecord(record)
}

func (d BookingDeps) publish(ctx context.Context, evs ...events.Event) {
	events.PublishAll(ctx, d.Publisher, d.Logger, evs...)
}

func statusEvent(r Reservation, previous lifecycle.Status, actor string, at time.Time) events.Event {
	return events.Event{
		Type:           events.ReservationStatusChanged,
		OccurredAt:     at,
		ReservationID:  r.ID,
		RoomID:         r.RoomID,
		Status:         string(r.Status),
		PreviousStatus: string(previous),
		Actor:          actor,
	}
}

func stayEvent(t events.Type, r Reservation, actor string, at time.Time) events.Event {
	return events.Event{
		Type:          t,
		OccurredAt:    at,
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		Status:        string(r.Status),
		Actor:         actor,
	}
}
