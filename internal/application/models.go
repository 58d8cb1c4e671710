package application

import (
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/lifecycle"
	"github.com/example/lodging-scheduler/internal/tariff"
)

// Role distinguishes staff from self-service guests.
type Role string

const (
	RoleStaff Role = "staff"
	RoleGuest Role = "guest"
	// RoleSystem is used by background jobs.
	RoleSystem Role = "system"
)

// ParseRole accepts the roles an account may hold.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleStaff, RoleGuest:
		return Role(value), true
	}
	return "", false
}

// Principal represents the authenticated account invoking a service method.
type Principal struct {
	AccountID string
	Role      Role
}

// IsStaff reports whether the principal acts with staff rights.
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff || p.Role == RoleSystem
}

// SystemPrincipal is the actor recorded for background transitions.
var SystemPrincipal = Principal{AccountID: "system", Role: RoleSystem}

// Interval is the requested span of a stay. Clock times are only meaningful
// for hourly bookings and must be given together.
type Interval struct {
	StartDate  civil.Date
	EndDate    civil.Date
	ClockStart *civil.Clock
	ClockEnd   *civil.Clock
}

// Timed reports whether both clock times are set.
func (i Interval) Timed() bool {
	return i.ClockStart != nil && i.ClockEnd != nil
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Capacity    int
	HourlyRate  *int64
	NightlyRate *int64
	MonthlyRate *int64
	// MinHours defaults to tariff.DefaultMinimumHours when zero.
	MinHours int
	// Active defaults to true when nil.
	Active *bool
}

// Room is a bookable room and its rate card.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Rates     tariff.Rates
	MinHours  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is a booking as seen by callers. StayState is derived from the
// reservation's stay events.
type Reservation struct {
	ID         string
	RoomID     string
	GuestID    string
	CreatedBy  string
	Tariff     tariff.Type
	Interval   Interval
	Units      int
	Total      int64
	Status     lifecycle.Status
	PaymentRef *string
	StayState  lifecycle.StayState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StayEvent is one entry of a reservation's append-only stay log.
type StayEvent struct {
	ID            string
	ReservationID string
	Kind          lifecycle.EventKind
	OccurredAt    time.Time
	RecordedBy    string
	Seq           int64
}

// AvailabilityQuery selects the rooms and interval to check. When Tariff is
// empty it is Hour for timed intervals and Night otherwise.
type AvailabilityQuery struct {
	Interval    Interval
	Tariff      tariff.Type
	RoomIDs     []string
	MinCapacity int
}

// AvailabilityResult reports one room's availability for the queried interval.
type AvailabilityResult struct {
	Room      Room
	Available bool
	Conflicts []ConflictDetail
}

// QuoteParams identifies the room, tariff and interval to price.
type QuoteParams struct {
	RoomID   string
	Tariff   tariff.Type
	Interval Interval
}

// QuoteResult is a computed price.
type QuoteResult struct {
	RoomID string
	Tariff tariff.Type
	Units  int
	Rate   int64
	Total  int64
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	RoomID     string
	GuestID    string
	Tariff     tariff.Type
	Interval   Interval
	PaymentRef *string
	// IdempotencyKey replays the first result for repeated submissions.
	IdempotencyKey string
}

// ListReservationsParams narrows reservation listings.
type ListReservationsParams struct {
	RoomID   string
	GuestID  string
	Statuses []lifecycle.Status
	From     civil.Date
	To       civil.Date
}

// Suggestion is a feasible hourly start time.
type Suggestion struct {
	Start      time.Time
	MinimumEnd time.Time
	MaximumEnd time.Time
}

// RoomOccupancy is the projected occupancy of one room.
type RoomOccupancy struct {
	RoomID        string
	Occupied      bool
	ReservationID string
	Since         *time.Time
}

// AccountInput captures caller provided account attributes.
type AccountInput struct {
	Email       string
	DisplayName string
	Role        string
	Password    string
	Disabled    bool
}

// Account is a staff or guest account exposed by the application services.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated session issued to an account.
type Session struct {
	ID          string
	AccountID   string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate an account.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Account Account
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// RefreshSessionResult returns the rotated session.
type RefreshSessionResult struct {
	Session Session
}

// CreateAccountParams wraps the data required to create an account.
type CreateAccountParams struct {
	Principal Principal
	Input     AccountInput
}

// StayResult is the reservation after a check-in or check-out together with
// the event that was recorded.
type StayResult struct {
	Reservation Reservation
	Event       StayEvent
}

// CalendarDay lists the blocking reservations touching one date.
type CalendarDay struct {
	Date     civil.Date
	Occupied bool
	Segments []CalendarSegment
}

// CalendarSegment is the part of a reservation's footprint within one day.
type CalendarSegment struct {
	ReservationID string
	Start         time.Time
	End           time.Time
	WholeDay      bool
}
