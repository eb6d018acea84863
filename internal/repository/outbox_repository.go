package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OutboxEvent is one row of the transactional outbox. The payload is written
// in the same transaction as the order it describes, so a published event
// always corresponds to a committed order.
type OutboxEvent struct {
	ID          int64
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// InsertEvent appends an event within the caller's transaction.
func (r *OutboxRepository) InsertEvent(ctx context.Context, tx *sql.Tx, eventType, aggregateID string, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_outbox (event_type, aggregate_id, payload) VALUES ($1, $2, $3)`,
		eventType, aggregateID, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetUnprocessedEvents returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, aggregate_id, payload, created_at
		 FROM order_outbox
		 WHERE processed_at IS NULL
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE order_outbox SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("outbox event %d already processed or missing", id)
	}
	return nil
}
