// Package events handles activity feed sequencing, persistence, and
// fan-out to WebSocket subscribers.
package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Persister stores feed events in the activity_events table.
type Persister struct {
	pool *pgxpool.Pool
}

// NewPersister creates a Persister backed by pool.
func NewPersister(pool *pgxpool.Pool) *Persister {
	return &Persister{pool: pool}
}

// Append inserts an event and returns the assigned sequence number. The
// BIGSERIAL column provides monotonic ordering.
func (p *Persister) Append(ctx context.Context, e *Event) (int64, error) {
	var actor any
	if e.ActorID != "" {
		actor = e.ActorID
	}
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var seq int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO activity_events (event_type, subject_id, actor_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq`,
		e.Type, e.SubjectID, actor, payload, e.Time,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("persist: insert event: %w", err)
	}
	return seq, nil
}

// Replay reads events with seq > since in order and calls fn for each.
// Used for cursor-based replay on WebSocket connect.
func (p *Persister) Replay(ctx context.Context, since int64, fn func(Event) error) error {
	rows, err := p.pool.Query(ctx,
		`SELECT seq, event_type, subject_id::text, COALESCE(actor_id::text, ''), payload, created_at
		 FROM activity_events
		 WHERE seq > $1 ORDER BY seq ASC`, since)
	if err != nil {
		return fmt.Errorf("replay: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       Event
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.SubjectID, &e.ActorID, &payload, &e.Time); err != nil {
			return fmt.Errorf("replay: scan: %w", err)
		}
		e.Payload = payload
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
