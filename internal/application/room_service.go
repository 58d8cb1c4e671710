package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/tariff"
)

// maxMinimumHours caps a room's minimum hourly booking at one day.
const maxMinimumHours = 24

// RoomService orchestrates validation, authorization, and persistence for rooms.
type RoomService struct {
	rooms       persistence.RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for staff.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.AccountID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create room", "room created", "room_id", room.ID)
	}()

	if !params.Principal.IsStaff() {
		err = ErrForbidden
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	candidate := applyRoomInput(Room{ID: s.idGenerator(), CreatedAt: now}, params.Input)
	candidate.UpdatedAt = now

	if err = s.rooms.CreateRoom(ctx, roomToRecord(candidate)); err != nil {
		err = mapRepoError(err)
		return
	}

	room = candidate
	return
}

// UpdateRoom validates input and replaces an existing room's attributes.
// Stored reservations keep the totals they were priced with.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.AccountID,
		"room_id", params.RoomID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update room", "room updated")
	}()

	if !params.Principal.IsStaff() {
		err = ErrForbidden
		return
	}

	existing, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := applyRoomInput(roomFromRecord(existing), params.Input)
	updated.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, roomToRecord(updated)); err != nil {
		err = mapRepoError(err)
		return
	}

	room = updated
	return
}

// GetRoom returns one room.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	record, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRepoError(err)
	}
	return roomFromRecord(record), nil
}

// ListRooms returns the catalog of rooms ordered by name. Guests only see
// active rooms.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal, activeOnly bool) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListRooms",
		"principal_id", principal.AccountID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list rooms", "rooms listed", "result_count", len(rooms))
	}()

	records, err := s.rooms.ListRooms(ctx, persistence.RoomFilter{ActiveOnly: activeOnly || !principal.IsStaff()})
	if err != nil {
		return
	}

	rooms = make([]Room, len(records))
	for i, r := range records {
		rooms[i] = roomFromRecord(r)
	}

	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})

	return
}

func applyRoomInput(room Room, input RoomInput) Room {
	room.Name = strings.TrimSpace(input.Name)
	room.Capacity = input.Capacity
	room.Rates = tariff.Rates{
		Hourly:  input.HourlyRate,
		Nightly: input.NightlyRate,
		Monthly: input.MonthlyRate,
	}
	room.MinHours = input.MinHours
	if room.MinHours == 0 {
		room.MinHours = tariff.DefaultMinimumHours
	}
	room.Active = input.Active == nil || *input.Active
	return room
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.MinHours < 0 || input.MinHours > maxMinimumHours {
		vErr.add("min_hours", fmt.Sprintf("minimum hours must be between 1 and %d", maxMinimumHours))
	}

	rates := map[string]*int64{
		"hourly_rate":  input.HourlyRate,
		"nightly_rate": input.NightlyRate,
		"monthly_rate": input.MonthlyRate,
	}
	given := 0
	for field, rate := range rates {
		if rate == nil {
			continue
		}
		given++
		if *rate <= 0 {
			vErr.add(field, "rate must be positive")
		}
	}
	if given == 0 {
		vErr.add("rates", "at least one tariff rate is required")
	}

	return vErr
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
