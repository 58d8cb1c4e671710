package application_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/events"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/persistence/memory"
	"github.com/example/lodging-scheduler/internal/tariff"
	"github.com/example/lodging-scheduler/internal/testfixtures"
)

var (
	staff = application.Principal{AccountID: "staff-001", Role: application.RoleStaff}
	guest = application.Principal{AccountID: "guest-001", Role: application.RoleGuest}
	other = application.Principal{AccountID: "guest-002", Role: application.RoleGuest}
)

type harness struct {
	factory      *testfixtures.ServiceFactory
	store        persistence.Store
	reservations *application.ReservationService
	stays        *application.StayService
	occupancy    *application.OccupancyService
}

func newHarness(t *testing.T, store persistence.Store, rooms ...persistence.Room) *harness {
	t.Helper()
	factory := testfixtures.NewServiceFactory()
	testfixtures.SeedRooms(t, store.Repositories(), rooms...)
	return &harness{
		factory:      factory,
		store:        store,
		reservations: factory.NewReservationService(store),
		stays:        factory.NewStayService(store),
		occupancy:    factory.NewOccupancyService(store),
	}
}

func date(t *testing.T, value string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

func clock(t *testing.T, value string) *civil.Clock {
	t.Helper()
	c, err := civil.ParseClock(value)
	if err != nil {
		t.Fatalf("parse clock %q: %v", value, err)
	}
	return &c
}

func hourly(t *testing.T, day, from, to string) application.Interval {
	return application.Interval{StartDate: date(t, day), EndDate: date(t, day), ClockStart: clock(t, from), ClockEnd: clock(t, to)}
}

func nights(t *testing.T, from, to string) application.Interval {
	return application.Interval{StartDate: date(t, from), EndDate: date(t, to)}
}

func paymentRef() *string {
	ref := "transfer-4411"
	return &ref
}

func TestQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("rounds short hourly stays up to the room minimum", func(t *testing.T) {
		room := testfixtures.NewRoom(testfixtures.WithRoomRates(testfixtures.Int64(50), nil, nil), testfixtures.WithRoomMinHours(3))
		h := newHarness(t, memory.New(), room)

		quote, err := h.reservations.Quote(ctx, application.QuoteParams{
			RoomID:   room.ID,
			Tariff:   tariff.Hour,
			Interval: hourly(t, "2024-06-10", "10:00", "12:00"),
		})
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if quote.Units != 3 || quote.Total != 150 {
			t.Fatalf("expected 3 units totalling 150, got %+v", quote)
		}
	})

	t.Run("matches the total of the created reservation", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		interval := nights(t, "2024-06-01", "2024-06-04")

		quote, err := h.reservations.Quote(ctx, application.QuoteParams{RoomID: room.ID, Tariff: tariff.Night, Interval: interval})
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		created, err := h.reservations.CreateReservation(ctx, staff, application.CreateReservationParams{
			RoomID: room.ID, GuestID: guest.AccountID, Tariff: tariff.Night, Interval: interval,
		})
		if err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
		if created.Total != quote.Total || created.Units != quote.Units {
			t.Fatalf("expected reservation to match quote %+v, got units=%d total=%d", quote, created.Units, created.Total)
		}
		if created.Status != lifecycle.Confirmed {
			t.Fatalf("expected staff reservation to be confirmed, got %s", created.Status)
		}
	})

	t.Run("rejects tariffs the room does not offer", func(t *testing.T) {
		room := testfixtures.NewRoom(testfixtures.WithRoomRates(nil, testfixtures.Int64(90000), nil))
		h := newHarness(t, memory.New(), room)

		_, err := h.reservations.Quote(ctx, application.QuoteParams{RoomID: room.ID, Tariff: tariff.Month, Interval: nights(t, "2024-06-01", "2024-07-01")})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["rate"]; !ok {
			t.Fatalf("expected rate field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("reports unknown rooms as not found", func(t *testing.T) {
		h := newHarness(t, memory.New())
		_, err := h.reservations.Quote(ctx, application.QuoteParams{RoomID: "missing", Tariff: tariff.Night, Interval: nights(t, "2024-06-01", "2024-06-02")})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestQueryAvailability(t *testing.T) {
	ctx := context.Background()
	booked := testfixtures.NewRoom(testfixtures.WithRoomName("Booked"))
	free := testfixtures.NewRoom(testfixtures.WithRoomName("Free"))
	h := newHarness(t, memory.New(), booked, free)
	night := testfixtures.NewReservation(booked.ID, testfixtures.WithNightStay("2024-06-01", "2024-06-03"))
	cancelled := testfixtures.NewReservation(free.ID,
		testfixtures.WithNightStay("2024-06-01", "2024-06-03"),
		testfixtures.WithReservationStatus("cancelled"),
	)
	testfixtures.SeedReservations(t, h.store.Repositories(), night, cancelled)

	results, err := h.reservations.QueryAvailability(ctx, guest, application.AvailabilityQuery{
		Interval: application.Interval{StartDate: date(t, "2024-06-02")},
	})
	if err != nil {
		t.Fatalf("QueryAvailability failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two rooms, got %d", len(results))
	}

	byRoom := make(map[string]application.AvailabilityResult)
	for _, r := range results {
		byRoom[r.Room.ID] = r
	}

	t.Run("night reservation blocks the middle day", func(t *testing.T) {
		result := byRoom[booked.ID]
		if result.Available {
			t.Fatal("expected booked room to be unavailable")
		}
		if len(result.Conflicts) != 1 || result.Conflicts[0].ReservationID != night.ID {
			t.Fatalf("unexpected conflicts: %+v", result.Conflicts)
		}
		want := time.Date(2024, time.June, 3, 23, 59, 59, 0, time.UTC)
		if !result.Conflicts[0].FreesAt.Equal(want) {
			t.Fatalf("expected room to free at %v, got %v", want, result.Conflicts[0].FreesAt)
		}
	})

	t.Run("cancelled reservations do not block", func(t *testing.T) {
		if !byRoom[free.ID].Available {
			t.Fatalf("expected free room to be available, got %+v", byRoom[free.ID])
		}
	})

	t.Run("touching hourly windows do not conflict", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		testfixtures.SeedReservations(t, h.store.Repositories(),
			testfixtures.NewReservation(room.ID, testfixtures.WithHourlyStay("2024-06-10", "09:00", "12:00")))

		results, err := h.reservations.QueryAvailability(ctx, guest, application.AvailabilityQuery{
			Interval: hourly(t, "2024-06-10", "12:00", "15:00"),
			RoomIDs:  []string{room.ID},
		})
		if err != nil {
			t.Fatalf("QueryAvailability failed: %v", err)
		}
		if len(results) != 1 || !results[0].Available {
			t.Fatalf("expected adjacent window to be free, got %+v", results)
		}
	})

	t.Run("rejects inverted intervals", func(t *testing.T) {
		_, err := h.reservations.QueryAvailability(ctx, guest, application.AvailabilityQuery{
			Interval: nights(t, "2024-06-05", "2024-06-02"),
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects a clock start without a clock end", func(t *testing.T) {
		_, err := h.reservations.QueryAvailability(ctx, guest, application.AvailabilityQuery{
			Interval: application.Interval{StartDate: date(t, "2024-06-10"), ClockStart: clock(t, "10:00")},
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["clock_end"]; !ok {
			t.Fatalf("expected clock_end field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("quotes reject half a clock window on night tariffs", func(t *testing.T) {
		in := nights(t, "2024-06-10", "2024-06-12")
		in.ClockEnd = clock(t, "11:00")
		_, err := h.reservations.Quote(ctx, application.QuoteParams{RoomID: free.ID, Tariff: tariff.Night, Interval: in})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestConcurrentHourlyBookings(t *testing.T) {
	stores := map[string]func(t *testing.T) persistence.Store{
		"memory": func(t *testing.T) persistence.Store { return memory.New() },
		"sqlite": func(t *testing.T) persistence.Store { return testfixtures.NewSQLiteStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			room := testfixtures.NewRoom()
			h := newHarness(t, open(t), room)

			const attempts = 8
			windows := []application.Interval{
				hourly(t, "2024-06-10", "10:00", "13:00"),
				hourly(t, "2024-06-10", "11:00", "14:00"),
			}
			var (
				wg        sync.WaitGroup
				start     = make(chan struct{})
				successes int
				conflicts int
				mu        sync.Mutex
				failures  []error
			)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, err := h.reservations.CreateReservation(ctx, staff, application.CreateReservationParams{
						RoomID:   room.ID,
						GuestID:  fmt.Sprintf("guest-%d", i),
						Tariff:   tariff.Hour,
						Interval: windows[i%len(windows)],
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, application.ErrConflict):
						conflicts++
					default:
						failures = append(failures, err)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			if len(failures) > 0 {
				t.Fatalf("unexpected errors: %v", failures)
			}
			if successes != 1 || conflicts != attempts-1 {
				t.Fatalf("expected exactly one success, got %d successes and %d conflicts", successes, conflicts)
			}

			stored, err := h.reservations.ListReservations(ctx, staff, application.ListReservationsParams{RoomID: room.ID})
			if err != nil {
				t.Fatalf("ListReservations failed: %v", err)
			}
			if len(stored) != 1 {
				t.Fatalf("expected one stored reservation, got %d", len(stored))
			}
		})
	}
}

func TestStayLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("check-in then check-out frees the room and completes the stay", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-04"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.stays.CheckIn(ctx, staff, stay.ID); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		status, err := h.occupancy.RoomStatus(ctx, room.ID)
		if err != nil {
			t.Fatalf("RoomStatus failed: %v", err)
		}
		if !status.Occupied || status.ReservationID != stay.ID {
			t.Fatalf("expected room to be occupied by %s, got %+v", stay.ID, status)
		}

		h.factory.Clock.Advance(20 * time.Hour)
		result, err := h.stays.CheckOut(ctx, staff, stay.ID)
		if err != nil {
			t.Fatalf("CheckOut failed: %v", err)
		}
		if result.Reservation.Status != lifecycle.Completed || result.Reservation.StayState != lifecycle.CheckedOut {
			t.Fatalf("unexpected reservation after check-out: %+v", result.Reservation)
		}

		status, err = h.occupancy.RoomStatus(ctx, room.ID)
		if err != nil {
			t.Fatalf("RoomStatus failed: %v", err)
		}
		if status.Occupied {
			t.Fatalf("expected room to be available, got %+v", status)
		}

		var types []events.Type
		for _, e := range h.factory.Events.Events() {
			types = append(types, e.Type)
		}
		want := []events.Type{events.StayCheckedIn, events.StayCheckedOut, events.ReservationStatusChanged}
		if !reflect.DeepEqual(types, want) {
			t.Fatalf("expected events %v, got %v", want, types)
		}
	})

	t.Run("rejects check-in of pending reservations", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		pending := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"), testfixtures.WithReservationStatus("pending"))
		testfixtures.SeedReservations(t, h.store.Repositories(), pending)

		if _, err := h.stays.CheckIn(ctx, staff, pending.ID); !errors.Is(err, application.ErrStateTransition) {
			t.Fatalf("expected ErrStateTransition, got %v", err)
		}
	})

	t.Run("rejects a second check-in", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.stays.CheckIn(ctx, staff, stay.ID); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		if _, err := h.stays.CheckIn(ctx, staff, stay.ID); !errors.Is(err, application.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		stays, err := h.reservations.ListStayEvents(ctx, staff, stay.ID)
		if err != nil {
			t.Fatalf("ListStayEvents failed: %v", err)
		}
		if len(stays) != 1 {
			t.Fatalf("expected a single open check-in, got %d events", len(stays))
		}
	})

	t.Run("rejects check-in past the stay boundary", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		morning := testfixtures.NewReservation(room.ID, testfixtures.WithHourlyStay("2024-01-02", "09:00", "12:00"))
		lastNight := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-01", "2024-01-02"))
		testfixtures.SeedReservations(t, h.store.Repositories(), morning, lastNight)

		for _, id := range []string{morning.ID, lastNight.ID} {
			if _, err := h.stays.CheckIn(ctx, staff, id); !errors.Is(err, application.ErrExpired) {
				t.Fatalf("expected ErrExpired for %s, got %v", id, err)
			}
		}
	})

	t.Run("allows check-in exactly at the stay boundary", func(t *testing.T) {
		first, second := testfixtures.NewRoom(), testfixtures.NewRoom()
		h := newHarness(t, memory.New(), first, second)
		onTime := testfixtures.NewReservation(first.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-04"))
		late := testfixtures.NewReservation(second.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-04"))
		testfixtures.SeedReservations(t, h.store.Repositories(), onTime, late)

		h.factory.Clock.SetLocal(date(t, "2024-01-04"), *clock(t, "12:00"), time.UTC)
		if _, err := h.stays.CheckIn(ctx, staff, onTime.ID); err != nil {
			t.Fatalf("CheckIn at the boundary failed: %v", err)
		}

		h.factory.Clock.Advance(time.Second)
		if _, err := h.stays.CheckIn(ctx, staff, late.ID); !errors.Is(err, application.ErrExpired) {
			t.Fatalf("expected ErrExpired one second past the boundary, got %v", err)
		}
	})

	t.Run("check-out with a lagging clock still closes the stay", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-04"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		checkedIn := h.factory.Clock.SetLocal(date(t, "2024-01-02"), *clock(t, "15:00"), time.UTC)
		if _, err := h.stays.CheckIn(ctx, staff, stay.ID); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}

		h.factory.Clock.Set(checkedIn.Add(-time.Second))
		result, err := h.stays.CheckOut(ctx, staff, stay.ID)
		if err != nil {
			t.Fatalf("CheckOut failed: %v", err)
		}
		if result.Event.OccurredAt.Before(checkedIn) {
			t.Fatalf("check-out stamped %s, before check-in at %s", result.Event.OccurredAt, checkedIn)
		}

		got, err := h.reservations.GetReservation(ctx, staff, stay.ID)
		if err != nil {
			t.Fatalf("GetReservation failed: %v", err)
		}
		if got.Status != lifecycle.Completed || got.StayState != lifecycle.CheckedOut {
			t.Fatalf("expected completed and checked out, got status=%s stay=%s", got.Status, got.StayState)
		}
		status, err := h.occupancy.RoomStatus(ctx, room.ID)
		if err != nil {
			t.Fatalf("RoomStatus failed: %v", err)
		}
		if status.Occupied {
			t.Fatalf("expected room to be available, got %+v", status)
		}
	})

	t.Run("rejects check-in while another stay occupies the room", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		current := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"))
		next := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-05", "2024-01-06"))
		testfixtures.SeedReservations(t, h.store.Repositories(), current, next)

		if _, err := h.stays.CheckIn(ctx, staff, current.ID); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		_, err := h.stays.CheckIn(ctx, staff, next.ID)
		var cErr *application.ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].ReservationID != current.ID {
			t.Fatalf("expected conflict with %s, got %+v", current.ID, cErr.Conflicts)
		}
	})

	t.Run("rejects check-out without an open check-in", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.stays.CheckOut(ctx, staff, stay.ID); !errors.Is(err, application.ErrStateTransition) {
			t.Fatalf("expected ErrStateTransition, got %v", err)
		}
	})

	t.Run("guests cannot record stays", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.stays.CheckIn(ctx, guest, stay.ID); !errors.Is(err, application.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestSuggestSlots(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom(testfixtures.WithRoomMinHours(3))
	h := newHarness(t, memory.New(), room)
	testfixtures.SeedReservations(t, h.store.Repositories(),
		testfixtures.NewReservation(room.ID, testfixtures.WithHourlyStay("2024-06-10", "09:00", "12:00")))

	first, err := h.reservations.SuggestSlots(ctx, room.ID, date(t, "2024-06-10"))
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}

	t.Run("the window before the booking ends at its start", func(t *testing.T) {
		six := time.Date(2024, time.June, 10, 6, 0, 0, 0, time.UTC)
		nine := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
		noon := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

		idx := -1
		for i, s := range first {
			if s.Start.Equal(six) {
				idx = i
			}
		}
		if idx < 0 {
			t.Fatalf("expected a suggestion starting at 06:00, got %+v", first)
		}
		if !first[idx].MaximumEnd.Equal(nine) {
			t.Fatalf("expected maximum end 09:00, got %v", first[idx].MaximumEnd)
		}
		if idx+1 >= len(first) || first[idx+1].Start.Before(noon) {
			t.Fatalf("expected the next suggestion to start no earlier than noon, got %+v", first[idx+1:])
		}
	})

	t.Run("repeated calls return identical suggestions", func(t *testing.T) {
		second, err := h.reservations.SuggestSlots(ctx, room.ID, date(t, "2024-06-10"))
		if err != nil {
			t.Fatalf("SuggestSlots failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatal("expected identical suggestions")
		}
	})

	t.Run("rooms without an hourly rate cannot be suggested", func(t *testing.T) {
		nightly := testfixtures.NewRoom(testfixtures.WithRoomRates(nil, testfixtures.Int64(90000), nil))
		testfixtures.SeedRooms(t, h.store.Repositories(), nightly)

		_, err := h.reservations.SuggestSlots(ctx, nightly.ID, date(t, "2024-06-10"))
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestMinimumHourlyDuration(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom(testfixtures.WithRoomMinHours(3))
	h := newHarness(t, memory.New(), room)

	if _, err := h.reservations.CreateReservation(ctx, staff, application.CreateReservationParams{
		RoomID: room.ID, GuestID: guest.AccountID, Tariff: tariff.Hour, Interval: hourly(t, "2024-06-10", "10:00", "13:00"),
	}); err != nil {
		t.Fatalf("expected exact minimum to be accepted, got %v", err)
	}

	_, err := h.reservations.CreateReservation(ctx, staff, application.CreateReservationParams{
		RoomID: room.ID, GuestID: guest.AccountID, Tariff: tariff.Hour, Interval: hourly(t, "2024-06-11", "10:00", "12:59"),
	})
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["clock_end"]; !ok {
		t.Fatalf("expected clock_end field error, got %v", vErr.FieldErrors)
	}
}

func TestGuestReservations(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom()

	t.Run("guests create pending reservations with proof of payment", func(t *testing.T) {
		h := newHarness(t, memory.New(), room)

		created, err := h.reservations.CreateReservation(ctx, guest, application.CreateReservationParams{
			RoomID: room.ID, Tariff: tariff.Night, Interval: nights(t, "2024-06-01", "2024-06-02"), PaymentRef: paymentRef(),
		})
		if err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
		if created.Status != lifecycle.Pending || created.GuestID != guest.AccountID {
			t.Fatalf("unexpected reservation: %+v", created)
		}

		_, err = h.reservations.CreateReservation(ctx, guest, application.CreateReservationParams{
			RoomID: room.ID, Tariff: tariff.Night, Interval: nights(t, "2024-06-05", "2024-06-06"),
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError without payment reference, got %v", err)
		}

		_, err = h.reservations.CreateReservation(ctx, guest, application.CreateReservationParams{
			RoomID: room.ID, GuestID: other.AccountID, Tariff: tariff.Night, Interval: nights(t, "2024-06-05", "2024-06-06"), PaymentRef: paymentRef(),
		})
		if !errors.Is(err, application.ErrForbidden) {
			t.Fatalf("expected ErrForbidden when booking for someone else, got %v", err)
		}
	})

	t.Run("pending reservations do not block and confirmation re-checks overlap", func(t *testing.T) {
		h := newHarness(t, memory.New(), room)
		params := application.CreateReservationParams{
			RoomID: room.ID, Tariff: tariff.Night, Interval: nights(t, "2024-06-01", "2024-06-03"), PaymentRef: paymentRef(),
		}

		first, err := h.reservations.CreateReservation(ctx, guest, params)
		if err != nil {
			t.Fatalf("first CreateReservation failed: %v", err)
		}
		second, err := h.reservations.CreateReservation(ctx, other, params)
		if err != nil {
			t.Fatalf("second CreateReservation failed: %v", err)
		}

		if _, err := h.reservations.ChangeState(ctx, guest, first.ID, lifecycle.Confirmed); !errors.Is(err, application.ErrForbidden) {
			t.Fatalf("expected guests to be unable to confirm, got %v", err)
		}
		if _, err := h.reservations.ChangeState(ctx, staff, first.ID, lifecycle.Confirmed); err != nil {
			t.Fatalf("confirm first failed: %v", err)
		}
		if _, err := h.reservations.ChangeState(ctx, staff, second.ID, lifecycle.Confirmed); !errors.Is(err, application.ErrConflict) {
			t.Fatalf("expected ErrConflict confirming the overlapping reservation, got %v", err)
		}

		if _, err := h.reservations.ChangeState(ctx, other, second.ID, lifecycle.Cancelled); err != nil {
			t.Fatalf("expected guest to cancel own pending reservation, got %v", err)
		}
	})

	t.Run("guests only see their own reservations", func(t *testing.T) {
		h := newHarness(t, memory.New(), room)
		mine := testfixtures.NewReservation(room.ID, testfixtures.WithReservationGuest(guest.AccountID))
		theirs := testfixtures.NewReservation(room.ID, testfixtures.WithReservationGuest(other.AccountID), testfixtures.WithNightStay("2024-07-01", "2024-07-02"))
		testfixtures.SeedReservations(t, h.store.Repositories(), mine, theirs)

		listed, err := h.reservations.ListReservations(ctx, guest, application.ListReservationsParams{})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(listed) != 1 || listed[0].ID != mine.ID {
			t.Fatalf("expected only own reservation, got %+v", listed)
		}
		if _, err := h.reservations.GetReservation(ctx, guest, theirs.ID); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestChangeState(t *testing.T) {
	ctx := context.Background()

	t.Run("completion only happens through check-out", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID)
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.reservations.ChangeState(ctx, staff, stay.ID, lifecycle.Completed); !errors.Is(err, application.ErrStateTransition) {
			t.Fatalf("expected ErrStateTransition, got %v", err)
		}
	})

	t.Run("terminal states reject further transitions", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithReservationStatus("released"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.reservations.ChangeState(ctx, staff, stay.ID, lifecycle.Confirmed); !errors.Is(err, application.ErrStateTransition) {
			t.Fatalf("expected ErrStateTransition, got %v", err)
		}
	})

	t.Run("releasing a checked-in stay closes it", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"))
		testfixtures.SeedReservations(t, h.store.Repositories(), stay)

		if _, err := h.stays.CheckIn(ctx, staff, stay.ID); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		h.factory.Clock.Advance(-time.Minute)
		released, err := h.reservations.ChangeState(ctx, staff, stay.ID, lifecycle.Released)
		if err != nil {
			t.Fatalf("ChangeState failed: %v", err)
		}
		if released.Status != lifecycle.Released || released.StayState != lifecycle.CheckedOut {
			t.Fatalf("unexpected reservation: %+v", released)
		}
		stored, err := h.reservations.GetReservation(ctx, staff, stay.ID)
		if err != nil {
			t.Fatalf("GetReservation failed: %v", err)
		}
		if stored.StayState != lifecycle.CheckedOut {
			t.Fatalf("expected stored stay to be checked out, got %s", stored.StayState)
		}

		status, err := h.occupancy.RoomStatus(ctx, room.ID)
		if err != nil {
			t.Fatalf("RoomStatus failed: %v", err)
		}
		if status.Occupied {
			t.Fatalf("expected room to be free after release, got %+v", status)
		}
	})
}

func TestIdempotentCreate(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom()
	h := newHarness(t, memory.New(), room)
	params := application.CreateReservationParams{
		RoomID: room.ID, GuestID: guest.AccountID, Tariff: tariff.Night,
		Interval: nights(t, "2024-06-01", "2024-06-02"), IdempotencyKey: "req-1",
	}

	first, err := h.reservations.CreateReservation(ctx, staff, params)
	if err != nil {
		t.Fatalf("first CreateReservation failed: %v", err)
	}
	second, err := h.reservations.CreateReservation(ctx, staff, params)
	if err != nil {
		t.Fatalf("replayed CreateReservation failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return %s, got %s", first.ID, second.ID)
	}

	listed, err := h.reservations.ListReservations(ctx, staff, application.ListReservationsParams{RoomID: room.ID})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one reservation, got %d", len(listed))
	}

	t.Run("concurrent guest retries create one pending reservation", func(t *testing.T) {
		room := testfixtures.NewRoom()
		h := newHarness(t, memory.New(), room)
		params := application.CreateReservationParams{
			RoomID: room.ID, Tariff: tariff.Night, Interval: nights(t, "2024-06-01", "2024-06-02"),
			PaymentRef: paymentRef(), IdempotencyKey: "guest-retry",
		}

		const workers = 8
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				created, err := h.reservations.CreateReservation(ctx, guest, params)
				if err != nil {
					t.Errorf("CreateReservation failed: %v", err)
					return
				}
				ids[i] = created.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids[1:] {
			if id != ids[0] {
				t.Fatalf("expected every retry to return %s, got %v", ids[0], ids)
			}
		}
		listed, err := h.reservations.ListReservations(ctx, staff, application.ListReservationsParams{RoomID: room.ID})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(listed) != 1 || listed[0].Status != lifecycle.Pending {
			t.Fatalf("expected one pending reservation, got %+v", listed)
		}
	})
}

func TestExpirePending(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom()
	h := newHarness(t, memory.New(), room)
	started := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-02", "2024-01-03"), testfixtures.WithReservationStatus("pending"))
	upcoming := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-01-10", "2024-01-11"), testfixtures.WithReservationStatus("pending"))
	testfixtures.SeedReservations(t, h.store.Repositories(), started, upcoming)

	cancelled, err := h.reservations.ExpirePending(ctx)
	if err != nil {
		t.Fatalf("ExpirePending failed: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected one expired reservation, got %d", cancelled)
	}

	got, err := h.reservations.GetReservation(ctx, staff, started.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if got.Status != lifecycle.Cancelled {
		t.Fatalf("expected started reservation to be cancelled, got %s", got.Status)
	}
	got, err = h.reservations.GetReservation(ctx, staff, upcoming.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if got.Status != lifecycle.Pending {
		t.Fatalf("expected upcoming reservation to stay pending, got %s", got.Status)
	}
}

func TestCalendar(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom()
	h := newHarness(t, memory.New(), room)
	stay := testfixtures.NewReservation(room.ID, testfixtures.WithNightStay("2024-06-02", "2024-06-03"))
	testfixtures.SeedReservations(t, h.store.Repositories(), stay)

	days, err := h.occupancy.Calendar(ctx, room.ID, date(t, "2024-06-01"), date(t, "2024-06-04"))
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	occupied := []bool{false, true, true, false}
	if len(days) != len(occupied) {
		t.Fatalf("expected %d days, got %d", len(occupied), len(days))
	}
	for i, want := range occupied {
		if days[i].Occupied != want {
			t.Fatalf("day %s: expected occupied=%v, got %+v", days[i].Date, want, days[i])
		}
	}

	_, err = h.occupancy.Calendar(ctx, room.ID, date(t, "2024-01-01"), date(t, "2024-06-01"))
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for an oversized window, got %v", err)
	}
}

// failingStore wraps a store whose transactions always fail.
type failingStore struct {
	persistence.Store
	err error
}

func (s failingStore) WithinTx(context.Context, persistence.TxFunc) error {
	return s.err
}

func TestInfrastructureErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	room := testfixtures.NewRoom()
	base := memory.New()
	testfixtures.SeedRooms(t, base.Repositories(), room)
	boom := errors.New("disk on fire")

	svc := testfixtures.NewServiceFactory().NewReservationService(failingStore{Store: base, err: boom})
	_, err := svc.CreateReservation(ctx, staff, application.CreateReservationParams{
		RoomID: room.ID, GuestID: guest.AccountID, Tariff: tariff.Night, Interval: nights(t, "2024-06-01", "2024-06-02"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected infrastructure error to propagate, got %v", err)
	}
	if kind := application.ErrorKind(err); kind != "internal" {
		t.Fatalf("expected internal error kind, got %q", kind)
	}
}
