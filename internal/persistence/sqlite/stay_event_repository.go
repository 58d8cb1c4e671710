package sqlite

import (
	"context"
	"fmt"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// StayEventRepository implements persistence.StayEventRepository using SQLite.
// The table has no UPDATE or DELETE path.
type StayEventRepository struct {
	q Queryable
}

// NewStayEventRepository creates a stay event repository on q.
func NewStayEventRepository(q Queryable) *StayEventRepository {
	return &StayEventRepository{q: q}
}

// AppendStayEvent inserts event and returns it with the assigned Seq.
func (r *StayEventRepository) AppendStayEvent(ctx context.Context, event persistence.StayEvent) (persistence.StayEvent, error) {
	if event.ID == "" || event.ReservationID == "" {
		return persistence.StayEvent{}, persistence.ErrConstraintViolation
	}

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO stay_events (id, reservation_id, kind, occurred_at, recorded_by) VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		event.ReservationID,
		event.Kind,
		formatTime(event.OccurredAt),
		event.RecordedBy,
	)
	if err != nil {
		return persistence.StayEvent{}, mapError(err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return persistence.StayEvent{}, fmt.Errorf("failed to read stay event sequence: %w", err)
	}
	event.Seq = seq
	return event, nil
}

// ListStayEvents returns the events of the given reservations, or of every
// reservation when none are named, ordered by occurrence then insertion.
func (r *StayEventRepository) ListStayEvents(ctx context.Context, reservationIDs ...string) ([]persistence.StayEvent, error) {
	query := `SELECT seq, id, reservation_id, kind, occurred_at, recorded_by FROM stay_events`
	args := make([]any, 0, len(reservationIDs))
	if len(reservationIDs) > 0 {
		query += " WHERE reservation_id IN (" + placeholders(len(reservationIDs)) + ")"
		for _, id := range reservationIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY occurred_at, seq"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]persistence.StayEvent, 0)
	for rows.Next() {
		var (
			event       persistence.StayEvent
			occurredStr string
		)
		if err := rows.Scan(&event.Seq, &event.ID, &event.ReservationID, &event.Kind, &occurredStr, &event.RecordedBy); err != nil {
			return nil, err
		}
		if event.OccurredAt, err = parseTime(occurredStr); err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over stay events: %w", err)
	}
	return events, nil
}
