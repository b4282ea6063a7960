package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpass/eventpass/internal/model"
)

type eventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs the pgx-backed EventRepository.
func NewEventRepository(db *pgxpool.Pool) EventRepository {
	return &eventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *eventRepository) Create(ctx context.Context, params CreateEventParams) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       params.Title,
		Capacity:    params.Capacity,
		BookedCount: 0,
		OrganizerID: params.OrganizerID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, capacity, booked_count, organizer_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Title, event.Capacity, event.BookedCount, event.OrganizerID, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// GetByID returns a single event or model.ErrNotFound.
func (r *eventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, capacity, booked_count, organizer_id, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Capacity, &e.BookedCount, &e.OrganizerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns all events ordered by creation time descending.
func (r *eventRepository) List(ctx context.Context) ([]model.Event, error) {
	return r.scanEvents(ctx,
		`SELECT id, title, capacity, booked_count, organizer_id, created_at
		 FROM events
		 ORDER BY created_at DESC`,
	)
}

// ListByOrganizer returns the events owned by one organizer.
func (r *eventRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	return r.scanEvents(ctx,
		`SELECT id, title, capacity, booked_count, organizer_id, created_at
		 FROM events
		 WHERE organizer_id = $1
		 ORDER BY created_at DESC`,
		organizerID,
	)
}

func (r *eventRepository) scanEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Capacity, &e.BookedCount, &e.OrganizerID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
