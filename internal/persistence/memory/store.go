// Package memory provides a process-local implementation of the persistence
// interfaces. Transactions are serialised and rolled back by restoring a
// snapshot of the booking tables.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// Store keeps every table in maps guarded by a mutex.
type Store struct {
	// txMu serialises writers to the booking tables so a rollback never
	// discards a write made outside the failed transaction.
	txMu sync.Mutex

	mu           sync.RWMutex
	accounts     map[string]persistence.Account
	sessions     map[string]persistence.Session
	rooms        map[string]persistence.Room
	reservations map[string]persistence.Reservation
	events       []persistence.StayEvent
	seq          int64
}

var (
	_ persistence.Store             = (*Store)(nil)
	_ persistence.AccountRepository = (*Store)(nil)
	_ persistence.SessionRepository = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]persistence.Account),
		sessions:     make(map[string]persistence.Session),
		rooms:        make(map[string]persistence.Room),
		reservations: make(map[string]persistence.Reservation),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Repositories returns repositories that operate outside any transaction.
func (s *Store) Repositories() persistence.Repositories {
	r := &bookingRepos{store: s}
	return persistence.Repositories{Rooms: r, Reservations: r, StayEvents: r}
}

// Accounts returns the account repository.
func (s *Store) Accounts() persistence.AccountRepository {
	return s
}

// Sessions returns the session repository.
func (s *Store) Sessions() persistence.SessionRepository {
	return s
}

// WithinTx runs fn with exclusive write access. Any error or panic restores
// the booking tables to their state before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn persistence.TxFunc) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	r := &bookingRepos{store: s, inTx: true}
	return fn(ctx, persistence.Repositories{Rooms: r, Reservations: r, StayEvents: r})
}

type snapshot struct {
	rooms        map[string]persistence.Room
	reservations map[string]persistence.Reservation
	events       []persistence.StayEvent
	seq          int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		rooms:        make(map[string]persistence.Room, len(s.rooms)),
		reservations: make(map[string]persistence.Reservation, len(s.reservations)),
		events:       append([]persistence.StayEvent(nil), s.events...),
		seq:          s.seq,
	}
	for id, room := range s.rooms {
		snap.rooms[id] = room
	}
	for id, reservation := range s.reservations {
		snap.reservations[id] = reservation
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = snap.rooms
	s.reservations = snap.reservations
	s.events = snap.events
	s.seq = snap.seq
}

// bookingRepos implements the room, reservation and stay event repositories.
type bookingRepos struct {
	store *Store
	inTx  bool
}

// write runs fn under the data lock, taking the writer lock first when the
// call is not already part of a transaction.
func (r *bookingRepos) write(fn func(s *Store) error) error {
	if !r.inTx {
		r.store.txMu.Lock()
		defer r.store.txMu.Unlock()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store)
}

// --- RoomRepository implementation ---

func (r *bookingRepos) CreateRoom(ctx context.Context, room persistence.Room) error {
	return r.write(func(s *Store) error {
		if _, ok := s.rooms[room.ID]; ok {
			return fmt.Errorf("memory: room %s already exists: %w", room.ID, persistence.ErrConstraintViolation)
		}
		s.rooms[room.ID] = cloneRoom(room)
		return nil
	})
}

func (r *bookingRepos) UpdateRoom(ctx context.Context, room persistence.Room) error {
	return r.write(func(s *Store) error {
		if _, ok := s.rooms[room.ID]; !ok {
			return persistence.ErrNotFound
		}
		s.rooms[room.ID] = cloneRoom(room)
		return nil
	})
}

func (r *bookingRepos) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	room, ok := r.store.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

func (r *bookingRepos) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(r.store.rooms))
	for _, room := range r.store.rooms {
		if filter.ActiveOnly && !room.Active {
			continue
		}
		if filter.MinCapacity > 0 && room.Capacity < filter.MinCapacity {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, room.ID) {
			continue
		}
		rooms = append(rooms, cloneRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// --- ReservationRepository implementation ---

func (r *bookingRepos) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	return r.write(func(s *Store) error {
		if _, ok := s.reservations[reservation.ID]; ok {
			return fmt.Errorf("memory: reservation %s already exists: %w", reservation.ID, persistence.ErrConstraintViolation)
		}
		if _, ok := s.rooms[reservation.RoomID]; !ok {
			return fmt.Errorf("memory: room %s does not exist: %w", reservation.RoomID, persistence.ErrConstraintViolation)
		}
		s.reservations[reservation.ID] = cloneReservation(reservation)
		return nil
	})
}

func (r *bookingRepos) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return r.write(func(s *Store) error {
		reservation, ok := s.reservations[id]
		if !ok {
			return persistence.ErrNotFound
		}
		reservation.Status = status
		reservation.UpdatedAt = updatedAt
		s.reservations[id] = reservation
		return nil
	})
}

func (r *bookingRepos) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	reservation, ok := r.store.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return cloneReservation(reservation), nil
}

func (r *bookingRepos) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]persistence.Reservation, 0)
	for _, reservation := range r.store.reservations {
		if matchesReservationFilter(reservation, filter) {
			out = append(out, cloneReservation(reservation))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		if clockOrEmpty(out[i].ClockStart) != clockOrEmpty(out[j].ClockStart) {
			return clockOrEmpty(out[i].ClockStart) < clockOrEmpty(out[j].ClockStart)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- StayEventRepository implementation ---

func (r *bookingRepos) AppendStayEvent(ctx context.Context, event persistence.StayEvent) (persistence.StayEvent, error) {
	err := r.write(func(s *Store) error {
		if _, ok := s.reservations[event.ReservationID]; !ok {
			return fmt.Errorf("memory: reservation %s does not exist: %w", event.ReservationID, persistence.ErrConstraintViolation)
		}
		s.seq++
		event.Seq = s.seq
		s.events = append(s.events, event)
		return nil
	})
	if err != nil {
		return persistence.StayEvent{}, err
	}
	return event, nil
}

func (r *bookingRepos) ListStayEvents(ctx context.Context, reservationIDs ...string) ([]persistence.StayEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]persistence.StayEvent, 0)
	for _, event := range r.store.events {
		if len(reservationIDs) > 0 && !contains(reservationIDs, event.ReservationID) {
			continue
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// --- AccountRepository implementation ---

// CreateAccount stores a new account. Emails are unique case-insensitively.
func (s *Store) CreateAccount(ctx context.Context, account persistence.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("memory: account %s already exists: %w", account.ID, persistence.ErrConstraintViolation)
	}
	if err := s.ensureUniqueEmailLocked(account.ID, account.Email); err != nil {
		return err
	}
	s.accounts[account.ID] = account
	return nil
}

// UpdateAccount replaces an existing account.
func (s *Store) UpdateAccount(ctx context.Context, account persistence.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(account.ID, account.Email); err != nil {
		return err
	}
	s.accounts[account.ID] = account
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by email address.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(email)
	for _, account := range s.accounts {
		if strings.ToLower(account.Email) == lower {
			return account, nil
		}
	}
	return persistence.Account{}, persistence.ErrNotFound
}

// ListAccounts returns all accounts ordered by CreatedAt ascending.
func (s *Store) ListAccounts(ctx context.Context) ([]persistence.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]persistence.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) ensureUniqueEmailLocked(id, email string) error {
	lower := strings.ToLower(email)
	for existingID, account := range s.accounts {
		if existingID != id && strings.ToLower(account.Email) == lower {
			return fmt.Errorf("memory: email %s already in use: %w", email, persistence.ErrConstraintViolation)
		}
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, fmt.Errorf("memory: session token already issued: %w", persistence.ErrConstraintViolation)
	}
	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces the session with the same ID, re-keying it when its
// token was rotated.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, existing := range s.sessions {
		if existing.ID == session.ID {
			delete(s.sessions, token)
			s.sessions[session.Token] = cloneSession(session)
			return cloneSession(session), nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks a session revoked.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	at := revokedAt
	session.RevokedAt = &at
	session.UpdatedAt = revokedAt
	s.sessions[token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions drops sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func matchesReservationFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if len(filter.RoomIDs) > 0 && !contains(filter.RoomIDs, reservation.RoomID) {
		return false
	}
	if filter.GuestID != "" && reservation.GuestID != filter.GuestID {
		return false
	}
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, reservation.Status) {
		return false
	}
	if filter.From != "" && reservation.EndDate < filter.From {
		return false
	}
	if filter.To != "" && reservation.StartDate > filter.To {
		return false
	}
	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func clockOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

func cloneRoom(room persistence.Room) persistence.Room {
	room.HourlyRate = cloneInt64(room.HourlyRate)
	room.NightlyRate = cloneInt64(room.NightlyRate)
	room.MonthlyRate = cloneInt64(room.MonthlyRate)
	return room
}

func cloneReservation(reservation persistence.Reservation) persistence.Reservation {
	reservation.ClockStart = cloneString(reservation.ClockStart)
	reservation.ClockEnd = cloneString(reservation.ClockEnd)
	reservation.PaymentRef = cloneString(reservation.PaymentRef)
	return reservation
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		session.RevokedAt = &at
	}
	return session
}
