// Package identity models the verified caller identity handed to the core.
//
// Credential verification happens upstream (an authenticating gateway
// validates the token and forwards the subject and role claims as headers).
// The core never reads ambient request state: handlers lift the identity out
// of the context once and pass it to the service layer as a value.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// Role claims recognized by the service.
const (
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// Headers set by the authenticating gateway after token verification.
const (
	HeaderUserID = "X-User-Id"
	HeaderEmail  = "X-User-Email"
	HeaderRoles  = "X-User-Roles"
)

// Identity is a verified caller: a stable user identifier plus role claims.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the identity carries the given role claim.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// Middleware extracts the verified identity from gateway headers and stores
// it in the request context. Requests without a user identifier are rejected
// before reaching any handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}

		ident := Identity{
			UserID: userID,
			Email:  r.Header.Get(HeaderEmail),
			Roles:  parseRoles(r.Header.Get(HeaderRoles)),
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}

func parseRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
