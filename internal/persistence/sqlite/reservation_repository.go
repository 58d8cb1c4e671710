package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	q Queryable
}

// NewReservationRepository creates a reservation repository on q.
func NewReservationRepository(q Queryable) *ReservationRepository {
	return &ReservationRepository{q: q}
}

const reservationColumns = `id, room_id, guest_id, created_by, tariff_type, start_date, end_date,
	clock_start, clock_end, units, total, status, payment_ref, created_at, updated_at`

// CreateReservation inserts a reservation row.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.RoomID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		reservation.ID,
		reservation.RoomID,
		reservation.GuestID,
		reservation.CreatedBy,
		reservation.TariffType,
		reservation.StartDate,
		reservation.EndDate,
		nullString(reservation.ClockStart),
		nullString(reservation.ClockEnd),
		reservation.Units,
		reservation.Total,
		reservation.Status,
		nullString(reservation.PaymentRef),
		formatTime(reservation.CreatedAt),
		formatTime(reservation.UpdatedAt),
	)
	return mapError(err)
}

// UpdateReservationStatus sets the status column. No other column of a
// reservation changes after creation.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(updatedAt), id,
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

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching filter ordered by start
// date, start clock and ID.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := buildReservationQuery(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reservations: %w", err)
	}
	return reservations, nil
}

// buildReservationQuery renders the filter. Date bounds compare YYYY-MM-DD
// strings, which order the same as the dates they encode.
func buildReservationQuery(filter persistence.ReservationFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if len(filter.RoomIDs) > 0 {
		conditions = append(conditions, "room_id IN ("+placeholders(len(filter.RoomIDs))+")")
		for _, id := range filter.RoomIDs {
			args = append(args, id)
		}
	}
	if filter.GuestID != "" {
		conditions = append(conditions, "guest_id = ?")
		args = append(args, filter.GuestID)
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.From != "" {
		conditions = append(conditions, "end_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, "start_date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date, COALESCE(clock_start, ''), id"
	return query, args
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation                      persistence.Reservation
		clockStart, clockEnd, paymentRef sql.NullString
		createdAtStr, updatedAtStr       string
	)
	if err := row.Scan(
		&reservation.ID,
		&reservation.RoomID,
		&reservation.GuestID,
		&reservation.CreatedBy,
		&reservation.TariffType,
		&reservation.StartDate,
		&reservation.EndDate,
		&clockStart,
		&clockEnd,
		&reservation.Units,
		&reservation.Total,
		&reservation.Status,
		&paymentRef,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Reservation{}, err
	}

	reservation.ClockStart = stringPtr(clockStart)
	reservation.ClockEnd = stringPtr(clockEnd)
	reservation.PaymentRef = stringPtr(paymentRef)

	var err error
	if reservation.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return reservation, nil
}
