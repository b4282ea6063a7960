package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpass/eventpass/internal/model"
)

type outboxRepository struct {
	db *pgxpool.Pool
}

// NewOutboxRepository constructs the pgx-backed OutboxRepository.
func NewOutboxRepository(db *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{db: db}
}

// GetUnpublished returns pending outbox events in insertion order.
func (r *outboxRepository) GetUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at, published_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get unpublished events: %w", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkPublished records that an event reached the stream.
func (r *outboxRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET published_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}
