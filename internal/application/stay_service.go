package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lodging-scheduler/internal/events"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/scheduler"
)

// StayService records check-ins and check-outs. Both run inside the room's
// critical section so a reservation never has two open check-ins and a room
// never hosts two stays at once.
type StayService struct {
	deps BookingDeps
}

// NewStayService constructs a stay service.
func NewStayService(deps BookingDeps) *StayService {
	return &StayService{deps: deps.withDefaults()}
}

func (s *StayService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "StayService", operation, attrs...)
}

// CheckIn opens a stay for a confirmed reservation.
func (s *StayService) CheckIn(ctx context.Context, principal Principal, reservationID string) (result StayResult, err error) {
	logger := s.loggerWith(ctx, "CheckIn", "principal_id", principal.AccountID, "reservation_id", reservationID)
	defer func() {
		logOutcome(ctx, logger, err, "check-in failed", "guest checked in", "room_id", result.Reservation.RoomID)
	}()

	roomID, err := s.authorize(ctx, principal, reservationID)
	if err != nil {
		return
	}

	now := s.deps.Now()
	err = s.deps.withRoomLock(ctx, roomID, func(ctx context.Context, repos persistence.Repositories) error {
		r, stays, err := loadReservation(ctx, repos, reservationID)
		if err != nil {
			return err
		}

		if r.StayState == lifecycle.CheckedIn {
			return &ConflictError{Reason: "reservation is already checked in"}
		}
		if r.Status != lifecycle.Confirmed {
			return &StateError{ReservationID: r.ID, From: string(r.Status), To: "checked_in", Reason: "only confirmed reservations can check in"}
		}
		if r.StayState == lifecycle.CheckedOut {
			return &StateError{ReservationID: r.ID, From: "checked_out", To: "checked_in", Reason: "stay already finished"}
		}

		boundary := scheduler.StayBoundary(bookingOf(r), s.deps.Location)
		if now.After(boundary) {
			return fmt.Errorf("%w: reservation %s ended at %s", ErrExpired, r.ID, boundary.Format(time.RFC3339))
		}

		open, err := checkedInReservations(ctx, repos, r.RoomID)
		if err != nil {
			return err
		}
		for _, other := range open {
			if other.reservation.ID == r.ID {
				continue
			}
			return &ConflictError{
				Reason: "room is occupied by another stay",
				Conflicts: []ConflictDetail{{
					ReservationID: other.reservation.ID,
					Start:         other.since,
					FreesAt:       scheduler.Footprint(bookingOf(other.reservation), s.deps.Location).End,
				}},
			}
		}

		event, err := s.deps.appendStayEvent(ctx, repos, r.ID, stays, lifecycle.CheckIn, principal.AccountID, now)
		if err != nil {
			return err
		}
		r.StayState = lifecycle.CheckedIn
		result = StayResult{Reservation: r, Event: event}
		return nil
	})
	if err != nil {
		result = StayResult{}
		return
	}

	s.deps.publish(ctx, stayEvent(events.StayCheckedIn, result.Reservation, principal.AccountID, result.Event.OccurredAt))
	return
}

// CheckOut closes the open stay of a reservation and completes it.
func (s *StayService) CheckOut(ctx context.Context, principal Principal, reservationID string) (result StayResult, err error) {
	logger := s.loggerWith(ctx, "CheckOut", "principal_id", principal.AccountID, "reservation_id", reservationID)
	defer func() {
		logOutcome(ctx, logger, err, "check-out failed", "guest checked out", "room_id", result.Reservation.RoomID)
	}()

	roomID, err := s.authorize(ctx, principal, reservationID)
	if err != nil {
		return
	}

	var previous lifecycle.Status
	now := s.deps.Now()
	err = s.deps.withRoomLock(ctx, roomID, func(ctx context.Context, repos persistence.Repositories) error {
		r, stays, err := loadReservation(ctx, repos, reservationID)
		if err != nil {
			return err
		}
		if r.StayState != lifecycle.CheckedIn {
			return &StateError{ReservationID: r.ID, From: r.StayState.String(), To: "checked_out", Reason: "no open check-in"}
		}
		previous = r.Status

		event, err := s.deps.appendStayEvent(ctx, repos, r.ID, stays, lifecycle.CheckOut, principal.AccountID, now)
		if err != nil {
			return err
		}
		if err := repos.Reservations.UpdateReservationStatus(ctx, r.ID, string(lifecycle.Completed), now); err != nil {
			return mapRepoError(err)
		}

		r.Status = lifecycle.Completed
		r.StayState = lifecycle.CheckedOut
		r.UpdatedAt = now
		result = StayResult{Reservation: r, Event: event}
		return nil
	})
	if err != nil {
		result = StayResult{}
		return
	}

	s.deps.publish(ctx,
		stayEvent(events.StayCheckedOut, result.Reservation, principal.AccountID, result.Event.OccurredAt),
		statusEvent(result.Reservation, previous, principal.AccountID, now),
	)
	return
}

// authorize checks the principal may record stays and returns the room the
// reservation belongs to.
func (s *StayService) authorize(ctx context.Context, principal Principal, reservationID string) (string, error) {
	if principal.AccountID == "" {
		return "", ErrUnauthorized
	}
	if !principal.IsStaff() {
		return "", ErrForbidden
	}
	record, err := s.deps.Store.Repositories().Reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return "", mapRepoError(err)
	}
	return record.RoomID, nil
}
