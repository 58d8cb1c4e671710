package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
)

var (
	accountCounter     uint64
	roomCounter        uint64
	reservationCounter uint64
	sessionCounter     uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Int64 returns a pointer to v, for optional rates.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}

// ---------------------------- Account fixtures ----------------------------

// AccountOption configures the generated account fixture.
type AccountOption func(*persistence.Account)

// NewAccount returns a deterministic guest account with optional overrides.
func NewAccount(opts ...AccountOption) persistence.Account {
	idx := atomic.AddUint64(&accountCounter, 1)
	id := fmt.Sprintf("account-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	account := persistence.Account{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Account %03d", idx),
		Role:         "guest",
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&account)
	}
	return account
}

// WithAccountID overrides the generated account ID.
func WithAccountID(id string) AccountOption {
	return func(a *persistence.Account) { a.ID = id }
}

// WithAccountEmail overrides the generated email address.
func WithAccountEmail(email string) AccountOption {
	return func(a *persistence.Account) { a.Email = email }
}

// WithAccountRole sets the role.
func WithAccountRole(role string) AccountOption {
	return func(a *persistence.Account) { a.Role = role }
}

// WithAccountPasswordHash overrides the generated password hash.
func WithAccountPasswordHash(hash string) AccountOption {
	return func(a *persistence.Account) { a.PasswordHash = hash }
}

// WithAccountDisabled marks the account disabled.
func WithAccountDisabled() AccountOption {
	return func(a *persistence.Account) { a.Disabled = true }
}

// ------------------------------ Room fixtures ------------------------------

// RoomOption configures the generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoom returns an active room offering every tariff with a three hour
// minimum.
func NewRoom(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	room := persistence.Room{
		ID:          fmt.Sprintf("room-%03d", idx),
		Name:        fmt.Sprintf("Room %03d", idx),
		Capacity:    2,
		HourlyRate:  Int64(15000),
		NightlyRate: Int64(90000),
		MonthlyRate: Int64(1800000),
		MinHours:    3,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(r *persistence.Room) { r.Name = name }
}

// WithRoomCapacity overrides the capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(r *persistence.Room) { r.Capacity = capacity }
}

// WithRoomRates replaces the rate card. Nil rates are not offered.
func WithRoomRates(hourly, nightly, monthly *int64) RoomOption {
	return func(r *persistence.Room) {
		r.HourlyRate, r.NightlyRate, r.MonthlyRate = hourly, nightly, monthly
	}
}

// WithRoomMinHours overrides the minimum hourly booking.
func WithRoomMinHours(hours int) RoomOption {
	return func(r *persistence.Room) { r.MinHours = hours }
}

// WithRoomInactive marks the room as not accepting reservations.
func WithRoomInactive() RoomOption {
	return func(r *persistence.Room) { r.Active = false }
}

// --------------------------- Reservation fixtures ---------------------------

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a confirmed one-night reservation on 2024-06-01.
func NewReservation(roomID string, opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	reservation := persistence.Reservation{
		ID:         fmt.Sprintf("reservation-%03d", idx),
		RoomID:     roomID,
		GuestID:    "guest-001",
		CreatedBy:  "staff-001",
		TariffType: "night",
		StartDate:  "2024-06-01",
		EndDate:    "2024-06-02",
		Units:      1,
		Total:      90000,
		Status:     "confirmed",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) { r.ID = id }
}

// WithReservationGuest sets the guest.
func WithReservationGuest(guestID string) ReservationOption {
	return func(r *persistence.Reservation) { r.GuestID = guestID }
}

// WithReservationStatus sets the status.
func WithReservationStatus(status string) ReservationOption {
	return func(r *persistence.Reservation) { r.Status = status }
}

// WithNightStay makes the reservation a nightly stay over [start, end].
func WithNightStay(start, end string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.TariffType = "night"
		r.StartDate, r.EndDate = start, end
		r.ClockStart, r.ClockEnd = nil, nil
	}
}

// WithHourlyStay makes the reservation an hourly booking on date.
func WithHourlyStay(date, clockStart, clockEnd string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.TariffType = "hour"
		r.StartDate, r.EndDate = date, date
		r.ClockStart, r.ClockEnd = String(clockStart), String(clockEnd)
	}
}

// WithReservationPricing overrides units and total.
func WithReservationPricing(units int, total int64) ReservationOption {
	return func(r *persistence.Reservation) { r.Units, r.Total = units, total }
}

// ----------------------------- Session fixtures -----------------------------

// SessionOption configures the generated session fixture.
type SessionOption func(*persistence.Session)

// NewSession returns a session for accountID valid for a day after
// ReferenceTime.
func NewSession(accountID string, opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	session := persistence.Session{
		ID:        fmt.Sprintf("session-%03d", idx),
		AccountID: accountID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(s *persistence.Session) { s.Token = token }
}

// WithSessionExpiresAt overrides the expiry.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(s *persistence.Session) { s.ExpiresAt = t }
}

// --------------------------------- Seeding ---------------------------------

// SeedRooms stores rooms, failing the test on error.
func SeedRooms(tb testing.TB, repos persistence.Repositories, rooms ...persistence.Room) {
	tb.Helper()
	for _, room := range rooms {
		if err := repos.Rooms.CreateRoom(context.Background(), room); err != nil {
			tb.Fatalf("seed room %s: %v", room.ID, err)
		}
	}
}

// SeedReservations stores reservations, failing the test on error.
func SeedReservations(tb testing.TB, repos persistence.Repositories, reservations ...persistence.Reservation) {
	tb.Helper()
	for _, reservation := range reservations {
		if err := repos.Reservations.CreateReservation(context.Background(), reservation); err != nil {
			tb.Fatalf("seed reservation %s: %v", reservation.ID, err)
		}
	}
}

// SeedAccounts stores accounts, failing the test on error.
func SeedAccounts(tb testing.TB, accounts persistence.AccountRepository, records ...persistence.Account) {
	tb.Helper()
	for _, account := range records {
		if err := accounts.CreateAccount(context.Background(), account); err != nil {
			tb.Fatalf("seed account %s: %v", account.ID, err)
		}
	}
}
