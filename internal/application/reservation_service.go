package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/events"
	"github.com/example/lodging-scheduler/internal/idempotency"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/lock"
	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/scheduler"
	"github.com/example/lodging-scheduler/internal/tariff"
)

// ReservationService prices stays, creates reservations and moves them
// through their lifecycle.
type ReservationService struct {
	deps BookingDeps
}

// NewReservationService constructs a reservation service.
func NewReservationService(deps BookingDeps) *ReservationService {
	return &ReservationService{deps: deps.withDefaults()}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "ReservationService", operation, attrs...)
}

// QueryAvailability reports, per room, whether the interval is free of
// blocking reservations and which reservations are in the way.
func (s *ReservationService) QueryAvailability(ctx context.Context, principal Principal, query AvailabilityQuery) (results []AvailabilityResult, err error) {
	logger := s.loggerWith(ctx, "QueryAvailability", "principal_id", principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "availability query failed", "availability queried", "result_count", len(results))
	}()

	tariffType := query.Tariff
	if tariffType == "" {
		tariffType = tariff.Night
		if query.Interval.Timed() {
			tariffType = tariff.Hour
		}
	}
	if tariffType, err = tariff.ParseType(string(tariffType)); err != nil {
		err = fieldErrorToValidation(err)
		return
	}
	interval, vErr := prepareInterval(tariffType, query.Interval)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	repos := s.deps.Store.Repositories()
	rooms, err := repos.Rooms.ListRooms(ctx, persistence.RoomFilter{
		IDs:         query.RoomIDs,
		ActiveOnly:  true,
		MinCapacity: query.MinCapacity,
	})
	if err != nil {
		return
	}
	if len(rooms) == 0 {
		results = []AvailabilityResult{}
		return
	}

	roomIDs := make([]string, len(rooms))
	for i, r := range rooms {
		roomIDs[i] = r.ID
	}
	existing, err := blockingReservations(ctx, repos, roomIDs, interval.StartDate, interval.EndDate)
	if err != nil {
		return
	}
	bookings := make([]scheduler.Booking, len(existing))
	for i, r := range existing {
		bookings[i] = bookingOf(r)
	}

	results = make([]AvailabilityResult, 0, len(rooms))
	for _, record := range rooms {
		candidate := scheduler.Booking{
			RoomID:     record.ID,
			Tariff:     tariffType,
			StartDate:  interval.StartDate,
			EndDate:    interval.EndDate,
			ClockStart: interval.ClockStart,
			ClockEnd:   interval.ClockEnd,
		}
		conflicts := scheduler.DetectConflicts(bookings, candidate, s.deps.Location)
		results = append(results, AvailabilityResult{
			Room:      roomFromRecord(record),
			Available: len(conflicts) == 0,
			Conflicts: conflictDetails(conflicts),
		})
	}
	return
}

// Quote prices a stay without side effects.
func (s *ReservationService) Quote(ctx context.Context, params QuoteParams) (result QuoteResult, err error) {
	logger := s.loggerWith(ctx, "Quote", "room_id", params.RoomID, "tariff_type", string(params.Tariff))
	defer func() {
		logOutcome(ctx, logger, err, "quote failed", "quote computed", "units", result.Units, "total", result.Total)
	}()

	record, err := s.deps.Store.Repositories().Rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	room := roomFromRecord(record)

	quote, err := s.price(room, params.Tariff, params.Interval)
	if err != nil {
		return
	}
	result = QuoteResult{RoomID: room.ID, Tariff: quote.Type, Units: quote.Units, Rate: quote.Rate, Total: quote.Total}
	return
}

func (s *ReservationService) price(room Room, t tariff.Type, in Interval) (tariff.Quote, error) {
	t, err := tariff.ParseType(string(t))
	if err != nil {
		return tariff.Quote{}, fieldErrorToValidation(err)
	}
	interval, vErr := prepareInterval(t, in)
	if vErr.HasErrors() {
		return tariff.Quote{}, vErr
	}
	quote, err := tariff.Calculate(room.Rates, tariffRequest(t, interval, room.MinHours))
	if err != nil {
		return tariff.Quote{}, fieldErrorToValidation(err)
	}
	return quote, nil
}

// CreateReservation prices the stay, checks it against the room's blocking
// reservations and stores it, all inside the room's critical section. Staff
// reservations start confirmed; guest reservations start pending.
func (s *ReservationService) CreateReservation(ctx context.Context, principal Principal, params CreateReservationParams) (reservation Reservation, err error) {
	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", principal.AccountID,
		"room_id", params.RoomID,
		"tariff_type", string(params.Tariff),
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create reservation", "reservation created",
			"reservation_id", reservation.ID, "status", string(reservation.Status))
	}()

	if principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	guestID := strings.TrimSpace(params.GuestID)
	paymentRef := normalizeOptionalString(params.PaymentRef)
	initial := lifecycle.Confirmed
	vErr := &ValidationError{}
	if principal.IsStaff() {
		if guestID == "" {
			vErr.add("guest_id", "guest is required")
		}
	} else {
		if guestID != "" && guestID != principal.AccountID {
			err = ErrForbidden
			return
		}
		guestID = principal.AccountID
		initial = lifecycle.Pending
		if paymentRef == nil {
			vErr.add("payment_ref", "proof of payment reference is required")
		}
	}
	if strings.TrimSpace(params.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var idemKey string
	if s.deps.Idempotency != nil && params.IdempotencyKey != "" {
		idemKey = idempotency.Key(principal.AccountID, params.IdempotencyKey)
		// Requests sharing a key are serialized until the first one has
		// remembered its result.
		var unlock func()
		if unlock, err = s.deps.Locker.Lock(ctx, lock.RequestKey(idemKey)); err != nil {
			err = fmt.Errorf("acquire request lock: %w", err)
			return
		}
		defer unlock()

		var (
			existingID string
			found      bool
		)
		existingID, found, err = s.deps.Idempotency.Lookup(ctx, idemKey)
		if err != nil {
			return
		}
		if found {
			reservation, _, err = loadReservation(ctx, s.deps.Store.Repositories(), existingID)
			if err == nil {
				logger.InfoContext(ctx, "replaying idempotent reservation", "reservation_id", existingID)
			}
			return
		}
	}

	now := s.deps.Now()
	err = s.deps.withRoomLock(ctx, params.RoomID, func(ctx context.Context, repos persistence.Repositories) error {
		record, err := repos.Rooms.GetRoom(ctx, params.RoomID)
		if err != nil {
			return mapRepoError(err)
		}
		room := roomFromRecord(record)
		if !room.Active {
			return newValidationError("room_id", "room is not accepting reservations")
		}

		quote, err := s.price(room, params.Tariff, params.Interval)
		if err != nil {
			return err
		}
		interval := normalizeInterval(quote.Type, params.Interval)
		if err := tariff.CheckMinimumDuration(tariffRequest(quote.Type, interval, room.MinHours)); err != nil {
			return fieldErrorToValidation(err)
		}

		candidate := Reservation{
			ID:         s.deps.IDGenerator(),
			RoomID:     room.ID,
			GuestID:    guestID,
			CreatedBy:  principal.AccountID,
			Tariff:     quote.Type,
			Interval:   interval,
			Units:      quote.Units,
			Total:      quote.Total,
			Status:     initial,
			PaymentRef: paymentRef,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.checkOverlap(ctx, repos, candidate); err != nil {
			return err
		}

		if err := repos.Reservations.CreateReservation(ctx, reservationToRecord(candidate)); err != nil {
			return mapRepoError(err)
		}
		reservation = candidate
		return nil
	})
	if err != nil {
		reservation = Reservation{}
		return
	}

	if idemKey != "" {
		if rememberErr := s.deps.Idempotency.Remember(ctx, idemKey, reservation.ID); rememberErr != nil {
			logger.WarnContext(ctx, "failed to remember idempotency key", "error", rememberErr)
		}
	}
	s.deps.publish(ctx, events.Event{
		Type:          events.ReservationCreated,
		OccurredAt:    now,
		ReservationID: reservation.ID,
		RoomID:        reservation.RoomID,
		Status:        string(reservation.Status),
		Actor:         principal.AccountID,
	})
	return
}

// checkOverlap fails with a ConflictError when candidate overlaps a blocking
// reservation of its room. It must run inside the room's critical section.
func (s *ReservationService) checkOverlap(ctx context.Context, repos persistence.Repositories, candidate Reservation) error {
	existing, err := blockingReservations(ctx, repos, []string{candidate.RoomID}, candidate.Interval.StartDate, candidate.Interval.EndDate)
	if err != nil {
		return err
	}
	bookings := make([]scheduler.Booking, len(existing))
	for i, r := range existing {
		bookings[i] = bookingOf(r)
	}
	conflicts := scheduler.DetectConflicts(bookings, bookingOf(candidate), s.deps.Location)
	if len(conflicts) > 0 {
		return &ConflictError{Reason: "room is already booked for the requested interval", Conflicts: conflictDetails(conflicts)}
	}
	return nil
}

// ChangeState applies a manual status transition. Confirmation re-checks the
// interval against the room's blocking reservations; cancelling or releasing
// a checked-in stay closes it with a check-out event in the same transaction.
// Completion only happens through check-out.
func (s *ReservationService) ChangeState(ctx context.Context, principal Principal, reservationID string, target lifecycle.Status) (reservation Reservation, err error) {
	logger := s.loggerWith(ctx, "ChangeState",
		"principal_id", principal.AccountID,
		"reservation_id", reservationID,
		"target", string(target),
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to change reservation state", "reservation state changed")
	}()

	if principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}
	parsed, parseErr := lifecycle.ParseStatus(string(target))
	if parseErr != nil {
		err = newValidationError("status", "must be one of pending, confirmed, cancelled, completed, released")
		return
	}
	target = parsed

	current, _, err := loadReservation(ctx, s.deps.Store.Repositories(), reservationID)
	if err != nil {
		return
	}
	if !principal.IsStaff() && current.GuestID != principal.AccountID {
		err = ErrNotFound
		return
	}

	var (
		previous lifecycle.Status
		closing  *StayEvent
	)
	now := s.deps.Now()
	err = s.deps.withRoomLock(ctx, current.RoomID, func(ctx context.Context, repos persistence.Repositories) error {
		r, stays, err := loadReservation(ctx, repos, reservationID)
		if err != nil {
			return err
		}
		previous = r.Status

		if target == lifecycle.Completed {
			return &StateError{ReservationID: r.ID, From: string(r.Status), To: string(target), Reason: "reservations complete through check-out"}
		}
		if !principal.IsStaff() && !(r.Status == lifecycle.Pending && target == lifecycle.Cancelled) {
			return ErrForbidden
		}
		if err := lifecycle.Transition(r.Status, target); err != nil {
			return &StateError{ReservationID: r.ID, From: string(r.Status), To: string(target)}
		}

		if target == lifecycle.Confirmed {
			if err := s.checkOverlap(ctx, repos, r); err != nil {
				return err
			}
		}

		if target.Terminal() && r.StayState == lifecycle.CheckedIn {
			e, err := s.deps.appendStayEvent(ctx, repos, r.ID, stays, lifecycle.CheckOut, principal.AccountID, now)
			if err != nil {
				return err
			}
			closing = &e
			r.StayState = lifecycle.CheckedOut
		}

		if err := repos.Reservations.UpdateReservationStatus(ctx, r.ID, string(target), now); err != nil {
			return mapRepoError(err)
		}
		r.Status = target
		r.UpdatedAt = now
		reservation = r
		return nil
	})
	if err != nil {
		reservation = Reservation{}
		return
	}

	evs := []events.Event{statusEvent(reservation, previous, principal.AccountID, now)}
	if closing != nil {
		evs = append(evs, stayEvent(events.StayCheckedOut, reservation, principal.AccountID, closing.OccurredAt))
	}
	s.deps.publish(ctx, evs...)
	return
}

// SuggestSlots lists feasible hourly start times for a room on date. It reads
// without the room lock; booking re-validates.
func (s *ReservationService) SuggestSlots(ctx context.Context, roomID string, date civil.Date) (suggestions []Suggestion, err error) {
	logger := s.loggerWith(ctx, "SuggestSlots", "room_id", roomID, "date", date.String())
	defer func() {
		logOutcome(ctx, logger, err, "failed to suggest slots", "slots suggested", "result_count", len(suggestions))
	}()

	if date.IsZero() {
		err = newValidationError("date", "date is required")
		return
	}

	repos := s.deps.Store.Repositories()
	record, err := repos.Rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	room := roomFromRecord(record)
	if room.Rates.Hourly == nil || *room.Rates.Hourly <= 0 {
		err = newValidationError("rate", "room does not offer the hour tariff")
		return
	}

	existing, err := blockingReservations(ctx, repos, []string{room.ID}, date, date)
	if err != nil {
		return
	}
	bookings := make([]scheduler.Booking, len(existing))
	for i, r := range existing {
		bookings[i] = bookingOf(r)
	}

	found := scheduler.SuggestSlots(scheduler.SlotQuery{
		Date:     date,
		MinHours: room.MinHours,
		Opening:  s.deps.Opening,
		Now:      s.deps.Now(),
		Location: s.deps.Location,
	}, bookings)

	suggestions = make([]Suggestion, len(found))
	for i, f := range found {
		suggestions[i] = Suggestion(f)
	}
	return
}

// GetReservation returns one reservation. Guests only see their own.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	reservation, _, err := loadReservation(ctx, s.deps.Store.Repositories(), reservationID)
	if err != nil {
		return Reservation{}, err
	}
	if !principal.IsStaff() && reservation.GuestID != principal.AccountID {
		return Reservation{}, ErrNotFound
	}
	return reservation, nil
}

// ListReservations returns reservations matching params. Guests only see
// their own.
func (s *ReservationService) ListReservations(ctx context.Context, principal Principal, params ListReservationsParams) (reservations []Reservation, err error) {
	logger := s.loggerWith(ctx, "ListReservations", "principal_id", principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list reservations", "reservations listed", "result_count", len(reservations))
	}()

	if !params.From.IsZero() && !params.To.IsZero() && params.To.Before(params.From) {
		err = newValidationError("to", "to must not be before from")
		return
	}

	filter := persistence.ReservationFilter{GuestID: strings.TrimSpace(params.GuestID)}
	if !principal.IsStaff() {
		filter.GuestID = principal.AccountID
	}
	if params.RoomID != "" {
		filter.RoomIDs = []string{params.RoomID}
	}
	for _, st := range params.Statuses {
		filter.Statuses = append(filter.Statuses, string(st))
	}
	if !params.From.IsZero() {
		filter.From = params.From.String()
	}
	if !params.To.IsZero() {
		filter.To = params.To.String()
	}

	repos := s.deps.Store.Repositories()
	records, err := repos.Reservations.ListReservations(ctx, filter)
	if err != nil {
		return
	}

	ids := make([]string, len(records))
	reservations = make([]Reservation, 0, len(records))
	for i, record := range records {
		ids[i] = record.ID
		var r Reservation
		if r, err = reservationFromRecord(record); err != nil {
			return
		}
		reservations = append(reservations, r)
	}
	if len(ids) == 0 {
		return
	}

	stays, err := loadStayEvents(ctx, repos, ids...)
	if err != nil {
		return
	}
	byReservation := make(map[string][]StayEvent)
	for _, e := range stays {
		byReservation[e.ReservationID] = append(byReservation[e.ReservationID], e)
	}
	for i := range reservations {
		reservations[i].StayState = lifecycle.Derive(lifecycleEvents(byReservation[reservations[i].ID]))
	}
	return
}

// ListStayEvents returns the stay log of a reservation in order.
func (s *ReservationService) ListStayEvents(ctx context.Context, principal Principal, reservationID string) ([]StayEvent, error) {
	reservation, stays, err := loadReservation(ctx, s.deps.Store.Repositories(), reservationID)
	if err != nil {
		return nil, err
	}
	if !principal.IsStaff() && reservation.GuestID != principal.AccountID {
		return nil, ErrNotFound
	}
	return stays, nil
}

// ExpirePending cancels pending reservations whose stay has already begun.
// It returns how many were cancelled.
func (s *ReservationService) ExpirePending(ctx context.Context) (cancelled int, err error) {
	logger := s.loggerWith(ctx, "ExpirePending")
	defer func() {
		logOutcome(ctx, logger, err, "pending sweep failed", "pending sweep finished", "cancelled", cancelled)
	}()

	now := s.deps.Now()
	records, err := s.deps.Store.Repositories().Reservations.ListReservations(ctx, persistence.ReservationFilter{
		Statuses: []string{string(lifecycle.Pending)},
		To:       s.deps.today().String(),
	})
	if err != nil {
		return
	}

	for _, record := range records {
		var r Reservation
		if r, err = reservationFromRecord(record); err != nil {
			return
		}
		if now.Before(scheduler.Footprint(bookingOf(r), s.deps.Location).Start) {
			continue
		}

		_, changeErr := s.ChangeState(ctx, SystemPrincipal, r.ID, lifecycle.Cancelled)
		switch {
		case changeErr == nil:
			cancelled++
		case errors.Is(changeErr, ErrStateTransition), errors.Is(changeErr, ErrNotFound):
			// Someone else moved it first.
		default:
			err = fmt.Errorf("expire reservation %s: %w", r.ID, changeErr)
			return
		}
	}
	return
}
