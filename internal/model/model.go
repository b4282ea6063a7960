// Package model defines the core domain types for the event ticketing system.
package model

import "time"

// Event represents a capacity-limited event created by an organizer.
// Events are immutable after creation; BookedCount is the admission counter
// maintained by the registration path.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	OrganizerID string    `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Remaining returns the number of available slots.
func (e *Event) Remaining() int {
	return e.Capacity - e.BookedCount
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return e.BookedCount >= e.Capacity
}

// TicketStatus is the two-state ticket lifecycle. The only allowed
// transition is TicketValid -> TicketUsed, and it happens at most once.
type TicketStatus string

const (
	TicketValid TicketStatus = "VALID"
	TicketUsed  TicketStatus = "USED"
)

// Ticket is the entry credential issued alongside a registration.
// A ticket has no creation path of its own.
type Ticket struct {
	ID       string       `json:"id"`
	EventID  string       `json:"event_id"`
	UserID   string       `json:"user_id"`
	Status   TicketStatus `json:"status"`
	IssuedAt time.Time    `json:"issued_at"`
	UsedAt   *time.Time   `json:"used_at,omitempty"`
}

// Registration represents an admitted attendee for an event. It is created
// together with its Ticket as a single unit.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	TicketID  string    `json:"ticket_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckInStatus classifies the outcome of a scan.
type CheckInStatus string

const (
	// CheckInValid means this call is the one that redeemed the ticket.
	CheckInValid CheckInStatus = "VALID"
	// CheckInAlreadyUsed means the ticket was redeemed earlier (or by a
	// concurrent scanner that won the race).
	CheckInAlreadyUsed CheckInStatus = "ALREADY_USED"
	// CheckInInvalid means no such ticket was ever issued.
	CheckInInvalid CheckInStatus = "INVALID"
)

// CheckInResult is the outcome of a check-in attempt. UsedAt is set on
// ALREADY_USED so scanners can show when the ticket was first redeemed.
type CheckInResult struct {
	Status CheckInStatus `json:"status"`
	UsedAt *time.Time    `json:"used_at,omitempty"`
}

// EventAvailability is the OPEN/FULL state reported by the stats query.
type EventAvailability string

const (
	EventOpen EventAvailability = "OPEN"
	EventFull EventAvailability = "FULL"
)

// EventStats is a point-in-time capacity snapshot for an event.
type EventStats struct {
	Capacity   int               `json:"capacity"`
	Registered int               `json:"registered"`
	Remaining  int               `json:"remaining"`
	Status     EventAvailability `json:"status"`
}

// OutboxEvent is a pending domain event awaiting publication to the
// event stream.
type OutboxEvent struct {
	ID          int64      `json:"id"`
	AggregateID string     `json:"aggregate_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Outbox event types.
const (
	EventTypeRegistrationCreated = "registration.created"
	EventTypeTicketRedeemed      = "ticket.redeemed"
)

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Email string `json:"email"`
}

// RegisterResponse is returned on a successful registration. TicketURL is a
// time-limited link to the printable credential.
type RegisterResponse struct {
	RegistrationID string `json:"registrationId"`
	TicketID       string `json:"ticketId"`
	TicketURL      string `json:"ticketUrl"`
}

// ScanRequest is the payload for checking in a ticket.
type ScanRequest struct {
	TicketID string `json:"ticketId"`
}

// CheckoutResponse carries the payment-provider checkout link.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// ErrorResponse is a standard JSON error envelope. RegistrationID and
// TicketID are populated only for the registered-but-artifact-missing case
// so clients can retry artifact retrieval.
type ErrorResponse struct {
	Error          string `json:"error"`
	RegistrationID string `json:"registrationId,omitempty"`
	TicketID       string `json:"ticketId,omitempty"`
}
