package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpass/eventpass/internal/model"
)

type ticketRepository struct {
	db *pgxpool.Pool
}

// NewTicketRepository constructs the pgx-backed TicketRepository.
func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &ticketRepository{db: db}
}

// GetByID returns a ticket or model.ErrNotFound.
func (r *ticketRepository) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, user_id, status, issued_at, used_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.EventID, &t.UserID, &t.Status, &t.IssuedAt, &t.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

// Redeem attempts the VALID -> USED transition. The update is conditioned
// on the stored status still being VALID, so of any number of concurrent
// calls exactly one affects a row; used_at is written once and never
// mutated afterwards. A false result means the condition failed and the
// caller should re-read to classify the final state.
func (r *ticketRepository) Redeem(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, execErr := tx.Exec(ctx,
		`UPDATE tickets
		 SET status = $2, used_at = $3
		 WHERE id = $1 AND status = $4`,
		id, model.TicketUsed, at, model.TicketValid,
	)
	if execErr != nil {
		err = fmt.Errorf("redeem ticket: %w", execErr)
		return false, err
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return false, nil
	}

	payload, marshalErr := json.Marshal(map[string]string{
		"ticketId": id,
		"usedAt":   at.Format(time.RFC3339Nano),
	})
	if marshalErr != nil {
		err = fmt.Errorf("marshal outbox payload: %w", marshalErr)
		return false, err
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3)`,
		id, model.EventTypeTicketRedeemed, payload,
	); err != nil {
		err = fmt.Errorf("insert outbox event: %w", err)
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("commit transaction: %w", err)
		return false, err
	}
	return true, nil
}

// FindOrphans returns tickets that have no owning registration. With the
// transactional admission path this should never match; rows here mean
// out-of-band writes and are reported as invariant violations.
func (r *ticketRepository) FindOrphans(ctx context.Context, issuedBefore time.Time) ([]model.Ticket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.event_id, t.user_id, t.status, t.issued_at, t.used_at
		 FROM tickets t
		 LEFT JOIN registrations r ON r.ticket_id = t.id
		 WHERE r.id IS NULL AND t.issued_at < $1`,
		issuedBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("find orphaned tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.Status, &t.IssuedAt, &t.UsedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// DeleteOrphan removes a ticket only while it still has no registration.
func (r *ticketRepository) DeleteOrphan(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM tickets
		 WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM registrations WHERE ticket_id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete orphaned ticket: %w", err)
	}
	return nil
}
