package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

// Journal implements domain.EventJournal as an append-only PostgreSQL table.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal creates a Journal backed by the given client.
func NewJournal(c *Client) *Journal {
	return &Journal{pool: c.Pool()}
}

// Publish appends an event row. The data map is stored as JSONB.
func (j *Journal) Publish(ctx context.Context, ev domain.Event) error {
	dataJSON, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %s data: %w", ev.ID, err)
	}

	const query = `INSERT INTO engine_events (id, kind, occurred_at, data) VALUES ($1, $2, $3, $4)`
	if _, err := j.pool.Exec(ctx, query, ev.ID, string(ev.Kind), ev.At, dataJSON); err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.ID, err)
	}
	return nil
}

// List returns events that occurred at or after since, oldest first, capped
// at limit rows.
func (j *Journal) List(ctx context.Context, since time.Time, limit int) ([]domain.Event, error) {
	const query = `
		SELECT id, kind, occurred_at, data
		FROM engine_events
		WHERE occurred_at >= $1
		ORDER BY occurred_at ASC
		LIMIT $2`

	if limit <= 0 {
		limit = 1000
	}
	rows, err := j.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var kind string
		var dataJSON []byte
		if err := rows.Scan(&ev.ID, &kind, &ev.At, &dataJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		if dataJSON != nil {
			if err := json.Unmarshal(dataJSON, &ev.Data); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal event %s data: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}

var _ domain.EventJournal = (*Journal)(nil)
