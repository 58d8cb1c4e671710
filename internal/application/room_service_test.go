package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
)

type roomRepoStub struct {
	createErr error
	created   persistence.Room

	getRoom persistence.Room
	getErr  error

	updateErr error
	updated   persistence.Room

	list       []persistence.Room
	listErr    error
	listFilter persistence.RoomFilter
}

func (r *roomRepoStub) CreateRoom(ctx context.Context, room persistence.Room) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = room
	return nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if r.getErr != nil {
		return persistence.Room{}, r.getErr
	}
	if r.getRoom.ID == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return r.getRoom, nil
}

func (r *roomRepoStub) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = room
	return nil
}

func (r *roomRepoStub) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	r.listFilter = filter
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]persistence.Room, len(r.list))
	copy(out, r.list)
	return out, nil
}

func rate(v int64) *int64 { return &v }

var staff = Principal{AccountID: "staff-1", Role: RoleStaff}

func TestRoomService_CreateRoom(t *testing.T) {
	t.Run("requires staff privileges", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{}, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{AccountID: "guest-1", Role: RoleGuest},
			Input:     RoomInput{Name: "Garden Suite", Capacity: 2, NightlyRate: rate(90000)},
		})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{}, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: staff,
			Input:     RoomInput{Name: "   ", Capacity: 0, MinHours: 25},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "capacity", "min_hours", "rates"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects non-positive rates", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{}, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: staff,
			Input:     RoomInput{Name: "Loft", Capacity: 2, HourlyRate: rate(0), NightlyRate: rate(80000)},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["hourly_rate"]; !ok {
			t.Fatalf("expected hourly_rate validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("persists rooms for staff", func(t *testing.T) {
		repo := &roomRepoStub{}
		now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		svc := NewRoomService(repo, func() string { return "room-1" }, func() time.Time { return now })

		created, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: staff,
			Input: RoomInput{
				Name:       "  Garden Suite  ",
				Capacity:   2,
				HourlyRate: rate(15000),
			},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.created.ID != "room-1" {
			t.Fatalf("expected repository to receive generated ID, got %q", repo.created.ID)
		}
		if repo.created.Name != "Garden Suite" {
			t.Fatalf("expected name to be trimmed, got %q", repo.created.Name)
		}
		if repo.created.MinHours != 3 {
			t.Fatalf("expected default minimum hours, got %d", repo.created.MinHours)
		}
		if !repo.created.Active {
			t.Fatal("expected new rooms to be active by default")
		}
		if !repo.created.CreatedAt.Equal(now) || !repo.created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock, got created=%v updated=%v", repo.created.CreatedAt, repo.created.UpdatedAt)
		}
		if created.ID != "room-1" || created.Rates.Hourly == nil || *created.Rates.Hourly != 15000 {
			t.Fatalf("unexpected returned room: %+v", created)
		}
	})

	t.Run("maps constraint violations to ErrAlreadyExists", func(t *testing.T) {
		repo := &roomRepoStub{createErr: persistence.ErrConstraintViolation}
		svc := NewRoomService(repo, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: staff,
			Input:     RoomInput{Name: "Loft", Capacity: 2, NightlyRate: rate(80000)},
		})

		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRoomService_UpdateRoom(t *testing.T) {
	t.Run("requires staff privileges", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{}, nil, nil)

		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: Principal{AccountID: "guest-1", Role: RoleGuest},
			RoomID:    "room-1",
			Input:     RoomInput{Name: "Loft", Capacity: 2, NightlyRate: rate(80000)},
		})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("propagates ErrNotFound when the room is missing", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{getErr: persistence.ErrNotFound}, nil, nil)

		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: staff,
			RoomID:    "missing",
			Input:     RoomInput{Name: "Loft", Capacity: 2, NightlyRate: rate(80000)},
		})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("persists updated attributes and can deactivate", func(t *testing.T) {
		created := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
		repo := &roomRepoStub{getRoom: persistence.Room{
			ID: "room-1", Name: "Loft", Capacity: 2, NightlyRate: rate(80000), MinHours: 3, Active: true,
			CreatedAt: created, UpdatedAt: created,
		}}
		now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
		svc := NewRoomService(repo, nil, func() time.Time { return now })
		inactive := false

		updated, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: staff,
			RoomID:    "room-1",
			Input: RoomInput{
				Name:        " Loft East ",
				Capacity:    3,
				NightlyRate: rate(95000),
				MinHours:    4,
				Active:      &inactive,
			},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.updated.Name != "Loft East" || repo.updated.Capacity != 3 || repo.updated.MinHours != 4 {
			t.Fatalf("unexpected update: %+v", repo.updated)
		}
		if repo.updated.Active {
			t.Fatal("expected room to be deactivated")
		}
		if !repo.updated.UpdatedAt.Equal(now) || !repo.updated.CreatedAt.Equal(created) {
			t.Fatalf("unexpected timestamps: created=%v updated=%v", repo.updated.CreatedAt, repo.updated.UpdatedAt)
		}
		if updated.ID != "room-1" {
			t.Fatalf("expected returned room to include ID, got %q", updated.ID)
		}
	})
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Run("restricts guests to active rooms", func(t *testing.T) {
		repo := &roomRepoStub{list: []persistence.Room{{ID: "room-1", Name: "A", Capacity: 2, Active: true}}}
		svc := NewRoomService(repo, nil, nil)

		got, err := svc.ListRooms(context.Background(), Principal{AccountID: "guest-1", Role: RoleGuest}, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !repo.listFilter.ActiveOnly {
			t.Fatal("expected guest listing to be limited to active rooms")
		}
		if len(got) != 1 || got[0].ID != "room-1" {
			t.Fatalf("expected rooms to be returned, got %v", got)
		}
	})

	t.Run("returns rooms in deterministic order", func(t *testing.T) {
		repo := &roomRepoStub{list: []persistence.Room{
			{ID: "room-2", Name: "Beta", Capacity: 10},
			{ID: "room-3", Name: "alpha", Capacity: 8},
			{ID: "room-1", Name: "Alpha", Capacity: 6},
		}}
		svc := NewRoomService(repo, nil, nil)

		got, err := svc.ListRooms(context.Background(), staff, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo.listFilter.ActiveOnly {
			t.Fatal("expected staff listing to include inactive rooms")
		}
		if len(got) != 3 {
			t.Fatalf("expected three rooms, got %d", len(got))
		}
		if got[0].ID != "room-1" || got[1].ID != "room-3" || got[2].ID != "room-2" {
			t.Fatalf("expected case-insensitive ordering, got %+v", got)
		}
	})
}

func TestMapRepoError(t *testing.T) {
	unexpected := errors.New("boom")

	tests := map[string]struct {
		err      error
		expected error
	}{
		"nil":                   {err: nil, expected: nil},
		"persistence not found": {err: persistence.ErrNotFound, expected: ErrNotFound},
		"constraint":            {err: persistence.ErrConstraintViolation, expected: ErrAlreadyExists},
		"unexpected":            {err: unexpected, expected: unexpected},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			result := mapRepoError(tc.err)
			if tc.expected == nil {
				if result != nil {
					t.Fatalf("expected nil, got %v", result)
				}
				return
			}
			if !errors.Is(result, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, result)
			}
		})
	}
}
