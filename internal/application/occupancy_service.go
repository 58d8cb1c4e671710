package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/lodging-scheduler/internal/calendar"
	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/scheduler"
)

// OccupancyService projects room occupancy from reservations and stay
// events. Nothing it reports is stored.
type OccupancyService struct {
	deps   BookingDeps
	engine *calendar.Engine
}

// NewOccupancyService constructs an occupancy service.
func NewOccupancyService(deps BookingDeps) *OccupancyService {
	deps = deps.withDefaults()
	return &OccupancyService{deps: deps, engine: calendar.NewEngine(deps.Location)}
}

func (s *OccupancyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "OccupancyService", operation, attrs...)
}

// RoomStatus reports whether a guest is currently checked in to the room.
func (s *OccupancyService) RoomStatus(ctx context.Context, roomID string) (occupancy RoomOccupancy, err error) {
	logger := s.loggerWith(ctx, "RoomStatus", "room_id", roomID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "failed to project room status", "")
		}
	}()

	repos := s.deps.Store.Repositories()
	if _, err = repos.Rooms.GetRoom(ctx, roomID); err != nil {
		err = mapRepoError(err)
		return
	}

	open, err := checkedInReservations(ctx, repos, roomID)
	if err != nil {
		return
	}

	occupancy = RoomOccupancy{RoomID: roomID}
	if len(open) > 0 {
		since := open[0].since
		occupancy.Occupied = true
		occupancy.ReservationID = open[0].reservation.ID
		occupancy.Since = &since
	}
	return
}

// Calendar lists, per day in [from, to], the blocking reservations of the
// room touching that day.
func (s *OccupancyService) Calendar(ctx context.Context, roomID string, from, to civil.Date) (days []CalendarDay, err error) {
	logger := s.loggerWith(ctx, "Calendar", "room_id", roomID, "from", from.String(), "to", to.String())
	defer func() {
		logOutcome(ctx, logger, err, "failed to project calendar", "calendar projected", "day_count", len(days))
	}()

	vErr := &ValidationError{}
	if from.IsZero() {
		vErr.add("from", "from is required")
	}
	if to.IsZero() {
		vErr.add("to", "to is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	repos := s.deps.Store.Repositories()
	if _, err = repos.Rooms.GetRoom(ctx, roomID); err != nil {
		err = mapRepoError(err)
		return
	}

	existing, err := blockingReservations(ctx, repos, []string{roomID}, from, to)
	if err != nil {
		return
	}
	bookings := make([]scheduler.Booking, len(existing))
	for i, r := range existing {
		bookings[i] = bookingOf(r)
	}

	projected, err := s.engine.Project(bookings, from, to)
	switch {
	case errors.Is(err, calendar.ErrInvalidWindow):
		err = newValidationError("to", "to must not be before from")
		return
	case errors.Is(err, calendar.ErrWindowTooLarge):
		err = newValidationError("to", "calendar window is limited to 92 days")
		return
	case err != nil:
		return
	}

	days = make([]CalendarDay, len(projected))
	for i, d := range projected {
		day := CalendarDay{Date: d.Date, Occupied: d.Occupied()}
		for _, seg := range d.Segments {
			day.Segments = append(day.Segments, CalendarSegment(seg))
		}
		days[i] = day
	}
	return
}

type openStay struct {
	reservation Reservation
	since       time.Time
}

// checkedInReservations returns the reservations of a room with an open
// check-in. Checked-in reservations stay confirmed until check-out, so only
// confirmed ones are inspected.
func checkedInReservations(ctx context.Context, repos persistence.Repositories, roomID string) ([]openStay, error) {
	candidates, err := blockingReservations(ctx, repos, []string{roomID}, civil.Date{}, civil.Date{})
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	ids := make([]string, len(candidates))
	for i, r := range candidates {
		ids[i] = r.ID
	}
	stays, err := loadStayEvents(ctx, repos, ids...)
	if err != nil {
		return nil, err
	}
	byReservation := make(map[string][]lifecycle.Event)
	for _, e := range stays {
		byReservation[e.ReservationID] = append(byReservation[e.ReservationID], lifecycle.Event{Kind: e.Kind, OccurredAt: e.OccurredAt, Seq: e.Seq})
	}

	var open []openStay
	for _, r := range candidates {
		if since, ok := lifecycle.CheckedInSince(byReservation[r.ID]); ok {
			r.StayState = lifecycle.CheckedIn
			open = append(open, openStay{reservation: r, since: since})
		}
	}
	return open, nil
}
