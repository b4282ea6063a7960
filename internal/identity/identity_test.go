package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareExtractsIdentity(t *testing.T) {
	var got Identity
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set(HeaderUserID, "user-42")
	req.Header.Set(HeaderEmail, "user42@example.com")
	req.Header.Set(HeaderRoles, "attendee, organizer")

	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, "user-42", got.UserID)
	assert.Equal(t, "user42@example.com", got.Email)
	assert.True(t, got.HasRole(RoleAttendee))
	assert.True(t, got.HasRole(RoleOrganizer))
	assert.False(t, got.HasRole("admin"))
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := FromContext(req.Context())
	assert.False(t, ok)
}

func TestParseRoles(t *testing.T) {
	assert.Nil(t, parseRoles(""))
	assert.Equal(t, []string{"attendee"}, parseRoles("attendee"))
	assert.Equal(t, []string{"attendee", "organizer"}, parseRoles(" attendee ,organizer, "))
}
