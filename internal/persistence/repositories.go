package persistence

import (
	"context"
	"time"
)

// AccountRepository stores sign-in accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	IDs         []string
	ActiveOnly  bool
	MinCapacity int
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
}

// ReservationFilter narrows reservation listings. From and To are inclusive
// YYYY-MM-DD bounds matched against the reservation's date span.
type ReservationFilter struct {
	RoomIDs  []string
	GuestID  string
	Statuses []string
	From     string
	To       string
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
}

// StayEventRepository stores the append-only stay log.
type StayEventRepository interface {
	AppendStayEvent(ctx context.Context, event StayEvent) (StayEvent, error)
	ListStayEvents(ctx context.Context, reservationIDs ...string) ([]StayEvent, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Repositories groups the booking repositories that must change together.
type Repositories struct {
	Rooms        RoomRepository
	Reservations ReservationRepository
	StayEvents   StayEventRepository
}

// TxFunc runs inside a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store gives access to the booking repositories, either directly or inside
// a transaction.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn TxFunc) error
}
