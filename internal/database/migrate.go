package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. The booked_count CHECK is a backstop: the
// admission path never increments past capacity, but a constraint makes an
// overshoot impossible even for out-of-band writes.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           UUID PRIMARY KEY,
    title        TEXT NOT NULL,
    capacity     INT  NOT NULL CHECK (capacity > 0),
    booked_count INT  NOT NULL DEFAULT 0 CHECK (booked_count >= 0 AND booked_count <= capacity),
    organizer_id TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_organizer ON events (organizer_id);

CREATE TABLE IF NOT EXISTS tickets (
    id        UUID PRIMARY KEY,
    event_id  UUID NOT NULL REFERENCES events (id),
    user_id   TEXT NOT NULL,
    status    TEXT NOT NULL CHECK (status IN ('VALID', 'USED')),
    issued_at TIMESTAMPTZ NOT NULL,
    used_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS registrations (
    id         UUID PRIMARY KEY,
    event_id   UUID NOT NULL REFERENCES events (id),
    user_id    TEXT NOT NULL,
    email      TEXT NOT NULL,
    ticket_id  UUID NOT NULL UNIQUE REFERENCES tickets (id),
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_registrations_event ON registrations (event_id);

CREATE TABLE IF NOT EXISTS outbox_events (
    id           BIGSERIAL PRIMARY KEY,
    aggregate_id TEXT  NOT NULL,
    event_type   TEXT  NOT NULL,
    payload      JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox_events (id) WHERE published_at IS NULL;
`

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
