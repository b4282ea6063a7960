// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository, blob, and payment layers.
package service

import (
	"context"
	"time"

	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/model"
)

// Ticketing is the registration and check-in orchestrator.
type Ticketing interface {
	CreateEvent(ctx context.Context, ident identity.Identity, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context, ident identity.Identity) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	EventStats(ctx context.Context, id string) (*model.EventStats, error)
	Register(ctx context.Context, ident identity.Identity, eventID string, req model.RegisterRequest) (*model.RegisterResponse, error)
	ListRegistrations(ctx context.Context, ident identity.Identity, eventID string) ([]model.Registration, error)
	CheckIn(ctx context.Context, ident identity.Identity, ticketID string) (*model.CheckInResult, error)
	TicketArtifact(ctx context.Context, ident identity.Identity, ticketID string) (string, error)
	CreateCheckout(ctx context.Context, ident identity.Identity, eventID string, ts int64) (string, error)
}

// BlobStore is the durable object store holding generated credentials.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CheckoutProvider creates hosted payment sessions. Optional; a nil
// provider disables the payment endpoint.
type CheckoutProvider interface {
	CheckoutSession(ctx context.Context, ident identity.Identity, ev *model.Event, ts int64) (string, error)
}
