package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/handlers"
	"github.com/kindred-wellness/kindred/internal/services"
)

// Identity resolves the caller asserted by the platform gateway. Session and
// credential handling live in the gateway; by the time a request reaches
// this service the gateway has authenticated it and stamped X-User-ID.
type Identity struct {
	users services.UserLookup
}

func NewIdentity(users services.UserLookup) *Identity {
	return &Identity{users: users}
}

// Require rejects requests without a resolvable user and stores the user in
// the request context for handlers.
func (m *Identity) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-ID")
		if header == "" {
			unauthorized(w)
			return
		}

		userID, err := uuid.Parse(header)
		if err != nil {
			unauthorized(w)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if errors.Is(err, services.ErrUserNotFound) {
			unauthorized(w)
			return
		}
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Temporarily unavailable, please retry","reason":"transient"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Authentication required","reason":"unauthorized"}`))
}
