package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	q Queryable
}

// NewRoomRepository creates a room repository on q.
func NewRoomRepository(q Queryable) *RoomRepository {
	return &RoomRepository{q: q}
}

const roomColumns = `id, name, capacity, hourly_rate, nightly_rate, monthly_rate, min_hours, active, created_at, updated_at`

// CreateRoom inserts a new room into the database
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO rooms (` + roomColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.Capacity,
		nullInt64(room.HourlyRate),
		nullInt64(room.NightlyRate),
		nullInt64(room.MonthlyRate),
		room.MinHours,
		boolToInt(room.Active),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRoom updates an existing room in the database
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE rooms
		SET name = ?, capacity = ?, hourly_rate = ?, nightly_rate = ?, monthly_rate = ?,
			min_hours = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.q.ExecContext(ctx, query,
		room.Name,
		room.Capacity,
		nullInt64(room.HourlyRate),
		nullInt64(room.NightlyRate),
		nullInt64(room.MonthlyRate),
		room.MinHours,
		boolToInt(room.Active),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms returns rooms matching filter ordered by name then ID.
func (r *RoomRepository) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	var (
		conditions []string
		args       []any
	)
	if len(filter.IDs) > 0 {
		conditions = append(conditions, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = 1")
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rooms: %w", err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                       persistence.Room
		hourly, nightly, monthly   sql.NullInt64
		active                     int
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&hourly,
		&nightly,
		&monthly,
		&room.MinHours,
		&active,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Room{}, err
	}

	room.HourlyRate = int64Ptr(hourly)
	room.NightlyRate = int64Ptr(nightly)
	room.MonthlyRate = int64Ptr(monthly)
	room.Active = active != 0

	var err error
	if room.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return room, nil
}
