package persistence

import "time"

// Account represents a staff member or guest able to sign in.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable room and its rate card.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	HourlyRate  *int64
	NightlyRate *int64
	MonthlyRate *int64
	MinHours    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation represents a booking row. Dates are stored as YYYY-MM-DD and
// clock times as HH:MM so they sort lexically.
type Reservation struct {
	ID         string
	RoomID     string
	GuestID    string
	CreatedBy  string
	TariffType string
	StartDate  string
	EndDate    string
	ClockStart *string
	ClockEnd   *string
	Units      int
	Total      int64
	Status     string
	PaymentRef *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StayEvent represents an append-only check-in or check-out record.
type StayEvent struct {
	ID            string
	ReservationID string
	Kind          string
	OccurredAt    time.Time
	RecordedBy    string
	// Seq is assigned by the store on insert and orders events sharing a
	// timestamp.
	Seq int64
}

// Session represents an authentication session persisted for an account.
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
