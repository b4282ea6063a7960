// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/model"
	"github.com/eventpass/eventpass/internal/service"
)

// TicketingHandler holds all HTTP handlers for the ticketing API.
type TicketingHandler struct {
	svc service.Ticketing
}

// NewTicketingHandler constructs a TicketingHandler.
func NewTicketingHandler(svc service.Ticketing) *TicketingHandler {
	return &TicketingHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondError maps domain errors to HTTP statuses. Business rejections
// carry their message; dependency failures stay generic so no internal
// detail leaks.
func respondError(w http.ResponseWriter, err error) {
	var pending *model.ArtifactPendingError
	switch {
	case errors.As(err, &pending):
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error:          "registration recorded, ticket artifact pending; retry artifact retrieval",
			RegistrationID: pending.RegistrationID,
			TicketID:       pending.TicketID,
		})
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, model.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, model.ErrPaymentsDisabled):
		writeError(w, http.StatusServiceUnavailable, "payments are not enabled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return ident, ok
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *TicketingHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), ident, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *TicketingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	events, err := h.svc.ListEvents(r.Context(), ident)
	if err != nil {
		respondError(w, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *TicketingHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// EventStats handles GET /events/{id}/stats
func (h *TicketingHandler) EventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.EventStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Register handles POST /events/{id}/register
func (h *TicketingHandler) Register(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Register(r.Context(), ident, chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *TicketingHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	regs, err := h.svc.ListRegistrations(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Scan handles POST /scan
// All three outcomes (VALID, ALREADY_USED, INVALID) are 200 responses;
// INVALID is a normal negative result, not an error.
func (h *TicketingHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req model.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TicketID == "" {
		writeError(w, http.StatusBadRequest, "ticketId required")
		return
	}

	result, err := h.svc.CheckIn(r.Context(), ident, req.TicketID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TicketArtifact handles GET /tickets/{id}/artifact
// Regenerates the credential and returns a fresh time-limited URL.
func (h *TicketingHandler) TicketArtifact(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	url, err := h.svc.TicketArtifact(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticketUrl": url})
}

// Pay handles POST /events/{id}/pay
func (h *TicketingHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	url, err := h.svc.CreateCheckout(r.Context(), ident, chi.URLParam(r, "id"), req.Timestamp)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.CheckoutResponse{CheckoutURL: url})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
