// Package repository provides data access interfaces and their pgx
// implementations. It uses pgx directly (no ORM) for transparency and
// performance.
//
// The store contract the core relies on: point reads and writes are
// strongly consistent, and a conditional write (an UPDATE gated on current
// row state) is evaluated and applied atomically. All cross-request
// coordination goes through these primitives; nothing here takes an
// in-process lock.
package repository

import (
	"context"
	"time"

	"github.com/eventpass/eventpass/internal/model"
)

// CreateEventParams are the inputs for creating a new event.
type CreateEventParams struct {
	Title       string
	Capacity    int
	OrganizerID string
}

// AdmitParams are the inputs for a registration admission attempt.
type AdmitParams struct {
	EventID string
	UserID  string
	Email   string
}

// EventRepository defines methods for event data access.
type EventRepository interface {
	Create(ctx context.Context, params CreateEventParams) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error)
}

// RegistrationRepository owns the capacity-admission write path.
type RegistrationRepository interface {
	// Admit decides admission with a single atomic conditional increment
	// and, on success, persists the Registration and its Ticket together.
	// Rejections are model.ErrNotFound or model.ErrEventFull; a rejection
	// leaves no partial state behind.
	Admit(ctx context.Context, params AdmitParams) (*model.Registration, *model.Ticket, error)
	GetByTicket(ctx context.Context, ticketID string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// TicketRepository owns the ticket state machine's persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	// Redeem attempts the VALID -> USED transition conditioned on the
	// stored status still being VALID. It reports false, nil when another
	// caller won the race; the caller re-reads to classify.
	Redeem(ctx context.Context, id string, at time.Time) (bool, error)
	// FindOrphans returns tickets with no matching registration, the
	// detectable form of a broken two-record creation.
	FindOrphans(ctx context.Context, issuedBefore time.Time) ([]model.Ticket, error)
	DeleteOrphan(ctx context.Context, id string) error
}

// OutboxRepository defines methods for pending domain-event access.
type OutboxRepository interface {
	GetUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}
