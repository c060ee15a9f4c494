package session

import (
	"net/http"

	"bookstore-storefront/helper"
)

// Middleware initializes the session for every request. It must run after
// the auth and client id middleware.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := m.Init(ctx, helper.GetUserIDFromContext(ctx), helper.GetClientIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(NewContext(ctx, st)))
	})
}
