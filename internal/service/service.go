package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/model"
	"github.com/eventpass/eventpass/internal/repository"
	"github.com/eventpass/eventpass/internal/ticket"
)

const maxCapacity = 100_000

type ticketingService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	tickets       repository.TicketRepository
	blobs         BlobStore
	payments      CheckoutProvider
	urlTTL        time.Duration
	log           *logrus.Logger
}

// NewTicketing constructs the orchestrator with its dependencies. payments
// may be nil when no provider is configured.
func NewTicketing(
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	tickets repository.TicketRepository,
	blobs BlobStore,
	payments CheckoutProvider,
	urlTTL time.Duration,
	log *logrus.Logger,
) Ticketing {
	return &ticketingService{
		events:        events,
		registrations: registrations,
		tickets:       tickets,
		blobs:         blobs,
		payments:      payments,
		urlTTL:        urlTTL,
		log:           log,
	}
}

// CreateEvent validates the request and delegates to the repository.
// Organizer role required.
func (s *ticketingService) CreateEvent(ctx context.Context, ident identity.Identity, req model.CreateEventRequest) (*model.Event, error) {
	if !ident.HasRole(identity.RoleOrganizer) {
		return nil, model.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", model.ErrValidation)
	}
	if req.Capacity > maxCapacity {
		return nil, fmt.Errorf("%w: capacity cannot exceed %d", model.ErrValidation, maxCapacity)
	}

	ev, err := s.events.Create(ctx, repository.CreateEventParams{
		Title:       req.Title,
		Capacity:    req.Capacity,
		OrganizerID: ident.UserID,
	})
	if err != nil {
		s.log.WithError(err).Error("create event failed")
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

// ListEvents returns the organizer's own events, or all events for
// everyone else.
func (s *ticketingService) ListEvents(ctx context.Context, ident identity.Identity) ([]model.Event, error) {
	if ident.HasRole(identity.RoleOrganizer) {
		return s.events.ListByOrganizer(ctx, ident.UserID)
	}
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *ticketingService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: event id is malformed", model.ErrValidation)
	}
	return s.events.GetByID(ctx, id)
}

// EventStats reports the capacity snapshot for an event. A single point
// read of the event row; the admission counter is the source of truth, so
// the numbers cannot diverge from what admission enforces.
func (s *ticketingService) EventStats(ctx context.Context, id string) (*model.EventStats, error) {
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &model.EventStats{
		Capacity:   ev.Capacity,
		Registered: ev.BookedCount,
		Remaining:  ev.Remaining(),
		Status:     model.EventOpen,
	}
	if ev.IsFull() {
		stats.Status = model.EventFull
	}
	return stats, nil
}

// Register admits an attendee for an event and issues the ticket artifact.
//
// Pipeline: admission (atomic conditional increment, persisting the
// Registration and Ticket together) -> QR -> PDF -> blob store ->
// presigned URL. A pipeline failure after the admission commit does not
// roll the registration back: the attendee holds a slot, and the error
// carries both identifiers so the client retries via TicketArtifact
// without re-running admission.
func (s *ticketingService) Register(ctx context.Context, ident identity.Identity, eventID string, req model.RegisterRequest) (*model.RegisterResponse, error) {
	if !ident.HasRole(identity.RoleAttendee) {
		return nil, model.ErrForbidden
	}
	if err := uuid.Validate(eventID); err != nil {
		return nil, fmt.Errorf("%w: event id is malformed", model.ErrValidation)
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: email is not a valid address", model.ErrValidation)
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reg, tkt, err := s.registrations.Admit(ctx, repository.AdmitParams{
		EventID: eventID,
		UserID:  ident.UserID,
		Email:   email,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrEventFull) {
			return nil, err
		}
		s.log.WithError(err).WithField("event_id", eventID).Error("admission failed")
		return nil, fmt.Errorf("register for event: %w", err)
	}

	url, err := s.issueArtifact(ctx, ev, email, tkt.ID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"registration_id": reg.ID,
			"ticket_id":       tkt.ID,
		}).Error("artifact pipeline failed after admission")
		return nil, &model.ArtifactPendingError{
			RegistrationID: reg.ID,
			TicketID:       tkt.ID,
			Err:            err,
		}
	}

	return &model.RegisterResponse{
		RegistrationID: reg.ID,
		TicketID:       tkt.ID,
		TicketURL:      url,
	}, nil
}

// ListRegistrations returns the registrations of an event. Only the owning
// organizer may read them.
func (s *ticketingService) ListRegistrations(ctx context.Context, ident identity.Identity, eventID string) ([]model.Registration, error) {
	if !ident.HasRole(identity.RoleOrganizer) {
		return nil, model.ErrForbidden
	}
	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != ident.UserID {
		return nil, model.ErrForbidden
	}
	return s.registrations.ListByEvent(ctx, eventID)
}

// CheckIn redeems a ticket. Organizer role required.
//
// Exactly one concurrent call on a given ticket observes VALID; every
// other call observes ALREADY_USED with the stored redemption time. An
// unknown identifier is INVALID, a normal negative outcome rather than an
// error. When the conditional transition loses a race, the state is
// re-read once to report the true final outcome instead of a conflict.
func (s *ticketingService) CheckIn(ctx context.Context, ident identity.Identity, ticketID string) (*model.CheckInResult, error) {
	if !ident.HasRole(identity.RoleOrganizer) {
		return nil, model.ErrForbidden
	}
	if err := uuid.Validate(ticketID); err != nil {
		// A malformed identifier can never match an issued ticket.
		return &model.CheckInResult{Status: model.CheckInInvalid}, nil
	}

	t, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.CheckInResult{Status: model.CheckInInvalid}, nil
	}
	if err != nil {
		s.log.WithError(err).WithField("ticket_id", ticketID).Error("ticket lookup failed")
		return nil, fmt.Errorf("check in: %w", err)
	}
	if t.Status == model.TicketUsed {
		return &model.CheckInResult{Status: model.CheckInAlreadyUsed, UsedAt: t.UsedAt}, nil
	}

	redeemed, err := s.tickets.Redeem(ctx, ticketID, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).WithField("ticket_id", ticketID).Error("redeem failed")
		return nil, fmt.Errorf("check in: %w", err)
	}
	if redeemed {
		return &model.CheckInResult{Status: model.CheckInValid}, nil
	}

	// Lost the race: another scanner redeemed between the read and the
	// conditional write. Re-read once and report the final state.
	t, err = s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.CheckInResult{Status: model.CheckInInvalid}, nil
	}
	if err != nil {
		s.log.WithError(err).WithField("ticket_id", ticketID).Error("ticket re-read failed")
		return nil, fmt.Errorf("check in: %w", err)
	}
	return &model.CheckInResult{Status: model.CheckInAlreadyUsed, UsedAt: t.UsedAt}, nil
}

// TicketArtifact regenerates and re-stores the credential for an existing
// ticket and returns a fresh retrieval URL. This is the retry path for a
// registration whose artifact pipeline failed; it never re-runs admission.
// Allowed for the ticket holder and for organizers.
func (s *ticketingService) TicketArtifact(ctx context.Context, ident identity.Identity, ticketID string) (string, error) {
	if err := uuid.Validate(ticketID); err != nil {
		return "", fmt.Errorf("%w: ticket id is malformed", model.ErrValidation)
	}

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if t.UserID != ident.UserID && !ident.HasRole(identity.RoleOrganizer) {
		return "", model.ErrForbidden
	}

	reg, err := s.registrations.GetByTicket(ctx, t.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// A ticket without a registration breaks the two-record
			// creation invariant.
			s.log.WithField("ticket_id", t.ID).Error("invariant violation: orphaned ticket without registration")
		}
		return "", fmt.Errorf("ticket artifact: %w", err)
	}

	ev, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		return "", fmt.Errorf("ticket artifact: %w", err)
	}

	url, err := s.issueArtifact(ctx, ev, reg.Email, t.ID)
	if err != nil {
		s.log.WithError(err).WithField("ticket_id", t.ID).Error("artifact regeneration failed")
		return "", fmt.Errorf("ticket artifact: %w", err)
	}
	return url, nil
}

// CreateCheckout creates a payment session for one ticket to an event.
// Attendee role required.
func (s *ticketingService) CreateCheckout(ctx context.Context, ident identity.Identity, eventID string, ts int64) (string, error) {
	if s.payments == nil {
		return "", model.ErrPaymentsDisabled
	}
	if !ident.HasRole(identity.RoleAttendee) {
		return "", model.ErrForbidden
	}

	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return "", err
	}

	url, err := s.payments.CheckoutSession(ctx, ident, ev, ts)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Error("checkout session failed")
		return "", fmt.Errorf("create checkout: %w", err)
	}
	return url, nil
}

// issueArtifact runs the QR -> PDF -> blob -> presign pipeline for one
// ticket. The blob key is stable per ticket, so regeneration overwrites
// rather than accumulating objects.
func (s *ticketingService) issueArtifact(ctx context.Context, ev *model.Event, email, ticketID string) (string, error) {
	qr, err := ticket.QRCode(ticketID)
	if err != nil {
		return "", err
	}
	pdf, err := ticket.Credential(ev.Title, email, ticketID, qr)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s.pdf", ev.ID, ticketID)
	if err := s.blobs.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, key, s.urlTTL)
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
