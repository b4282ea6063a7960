package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/eventpass/internal/handler"
	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/model"
)

// stubService returns canned results so the tests exercise routing, auth
// plumbing, and status mapping only.
type stubService struct {
	registerResp  *model.RegisterResponse
	registerErr   error
	checkInResult *model.CheckInResult
	checkInErr    error
	stats         *model.EventStats
	statsErr      error
	checkoutURL   string
	checkoutErr   error
}

func (s *stubService) CreateEvent(context.Context, identity.Identity, model.CreateEventRequest) (*model.Event, error) {
	return &model.Event{ID: "ev-1"}, nil
}

func (s *stubService) ListEvents(context.Context, identity.Identity) ([]model.Event, error) {
	return nil, nil
}

func (s *stubService) GetEvent(context.Context, string) (*model.Event, error) {
	return nil, model.ErrNotFound
}

func (s *stubService) EventStats(context.Context, string) (*model.EventStats, error) {
	return s.stats, s.statsErr
}

func (s *stubService) Register(context.Context, identity.Identity, string, model.RegisterRequest) (*model.RegisterResponse, error) {
	return s.registerResp, s.registerErr
}

func (s *stubService) ListRegistrations(context.Context, identity.Identity, string) ([]model.Registration, error) {
	return nil, nil
}

func (s *stubService) CheckIn(context.Context, identity.Identity, string) (*model.CheckInResult, error) {
	return s.checkInResult, s.checkInErr
}

func (s *stubService) TicketArtifact(context.Context, identity.Identity, string) (string, error) {
	return "", model.ErrNotFound
}

func (s *stubService) CreateCheckout(context.Context, identity.Identity, string, int64) (string, error) {
	return s.checkoutURL, s.checkoutErr
}

func newRouter(svc *stubService) http.Handler {
	h := handler.NewTicketingHandler(svc)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware)
		r.Route("/events", func(r chi.Router) {
			r.Post("/{id}/register", h.Register)
			r.Get("/{id}/stats", h.EventStats)
			r.Post("/{id}/pay", h.Pay)
		})
		r.Post("/scan", h.Scan)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set(identity.HeaderUserID, "user-1")
		req.Header.Set(identity.HeaderRoles, "attendee,organizer")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRequiresIdentity(t *testing.T) {
	router := newRouter(&stubService{})
	rec := doRequest(t, router, http.MethodPost, "/events/ev-1/register", `{"email":"a@b.com"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterCreated(t *testing.T) {
	router := newRouter(&stubService{
		registerResp: &model.RegisterResponse{
			RegistrationID: "reg-1",
			TicketID:       "tkt-1",
			TicketURL:      "https://blobs.test/ev-1/tkt-1.pdf",
		},
	})
	rec := doRequest(t, router, http.MethodPost, "/events/ev-1/register", `{"email":"a@b.com"}`, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp model.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reg-1", resp.RegistrationID)
	assert.Equal(t, "tkt-1", resp.TicketID)
	assert.NotEmpty(t, resp.TicketURL)
}

func TestRegisterEventFullConflict(t *testing.T) {
	router := newRouter(&stubService{registerErr: model.ErrEventFull})
	rec := doRequest(t, router, http.MethodPost, "/events/ev-1/register", `{"email":"a@b.com"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterArtifactPendingExposesIdentifiers(t *testing.T) {
	router := newRouter(&stubService{registerErr: &model.ArtifactPendingError{
		RegistrationID: "reg-1",
		TicketID:       "tkt-1",
		Err:            model.ErrArtifactPending,
	}})
	rec := doRequest(t, router, http.MethodPost, "/events/ev-1/register", `{"email":"a@b.com"}`, true)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reg-1", resp.RegistrationID)
	assert.Equal(t, "tkt-1", resp.TicketID)
}

func TestScanOutcomes(t *testing.T) {
	router := newRouter(&stubService{checkInResult: &model.CheckInResult{Status: model.CheckInValid}})
	rec := doRequest(t, router, http.MethodPost, "/scan", `{"ticketId":"tkt-1"}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.CheckInValid, result.Status)
}

func TestScanMissingTicketID(t *testing.T) {
	router := newRouter(&stubService{})
	rec := doRequest(t, router, http.MethodPost, "/scan", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventStatsResponse(t *testing.T) {
	router := newRouter(&stubService{stats: &model.EventStats{
		Capacity:   10,
		Registered: 10,
		Remaining:  0,
		Status:     model.EventFull,
	}})
	rec := doRequest(t, router, http.MethodGet, "/events/ev-1/stats", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.EventStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, model.EventFull, stats.Status)
	assert.Equal(t, 0, stats.Remaining)
}

func TestPayUnavailableWithoutProvider(t *testing.T) {
	router := newRouter(&stubService{checkoutErr: model.ErrPaymentsDisabled})
	rec := doRequest(t, router, http.MethodPost, "/events/ev-1/pay", `{}`, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
