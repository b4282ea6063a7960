package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpass/eventpass/internal/model"
)

type registrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs the pgx-backed RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Admit performs a concurrency-safe registration.
//
// A naive read-then-write split (read booked_count, compare to capacity,
// then insert) lets two concurrent callers both observe a free slot and
// both write, overshooting capacity. The admission decision here is a
// single conditional increment evaluated atomically by the store:
//
//	UPDATE events SET booked_count = booked_count + 1
//	WHERE id = $1 AND booked_count < capacity
//
// One affected row means this caller owns one of at most `capacity` slots.
// Zero affected rows means the event is missing or full; a re-read inside
// the same transaction classifies which. The increment and the
// registration/ticket/outbox inserts commit together, so a failed insert
// rolls the counter back and no partial state survives a rejection.
func (r *registrationRepository) Admit(ctx context.Context, params AdmitParams) (*model.Registration, *model.Ticket, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, execErr := tx.Exec(ctx,
		`UPDATE events
		 SET booked_count = booked_count + 1
		 WHERE id = $1 AND booked_count < capacity`,
		params.EventID,
	)
	if execErr != nil {
		err = fmt.Errorf("admission increment: %w", execErr)
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if scanErr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
			params.EventID,
		).Scan(&exists); scanErr != nil {
			err = fmt.Errorf("classify rejection: %w", scanErr)
			return nil, nil, err
		}
		if exists {
			err = model.ErrEventFull
		} else {
			err = model.ErrNotFound
		}
		return nil, nil, err
	}

	now := time.Now().UTC()

	ticket := &model.Ticket{
		ID:       uuid.New().String(),
		EventID:  params.EventID,
		UserID:   params.UserID,
		Status:   model.TicketValid,
		IssuedAt: now,
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO tickets (id, event_id, user_id, status, issued_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ticket.ID, ticket.EventID, ticket.UserID, ticket.Status, ticket.IssuedAt,
	); err != nil {
		err = fmt.Errorf("insert ticket: %w", err)
		return nil, nil, err
	}

	reg := &model.Registration{
		ID:        uuid.New().String(),
		EventID:   params.EventID,
		UserID:    params.UserID,
		Email:     params.Email,
		TicketID:  ticket.ID,
		CreatedAt: now,
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, user_id, email, ticket_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reg.ID, reg.EventID, reg.UserID, reg.Email, reg.TicketID, reg.CreatedAt,
	); err != nil {
		err = fmt.Errorf("insert registration: %w", err)
		return nil, nil, err
	}

	payload, marshalErr := json.Marshal(map[string]string{
		"registrationId": reg.ID,
		"eventId":        reg.EventID,
		"ticketId":       reg.TicketID,
		"userId":         reg.UserID,
	})
	if marshalErr != nil {
		err = fmt.Errorf("marshal outbox payload: %w", marshalErr)
		return nil, nil, err
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3)`,
		reg.ID, model.EventTypeRegistrationCreated, payload,
	); err != nil {
		err = fmt.Errorf("insert outbox event: %w", err)
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("commit transaction: %w", err)
		return nil, nil, err
	}

	return reg, ticket, nil
}

// GetByTicket returns the registration owning a ticket, or model.ErrNotFound.
func (r *registrationRepository) GetByTicket(ctx context.Context, ticketID string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, user_id, email, ticket_id, created_at
		 FROM registrations WHERE ticket_id = $1`,
		ticketID,
	).Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Email, &reg.TicketID, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get registration by ticket: %w", err)
	}
	return &reg, nil
}

// ListByEvent returns all registrations for a given event.
func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, email, ticket_id, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Email, &reg.TicketID, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
