package middleware

import (
	"context"
	"net/http"
	"strings"

	"bookstore-storefront/helper"
)

const maxClientIDLen = 64

// ClientIDMiddleware requires the X-Client-ID header that scopes the caller's
// cart, checkout step and pending payment.
func ClientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := strings.TrimSpace(r.Header.Get(helper.ClientIDHeader))
		if clientID == "" {
			helper.WriteErrorJSON(w, http.StatusBadRequest, "missing "+helper.ClientIDHeader+" header")
			return
		}
		if len(clientID) > maxClientIDLen || strings.ContainsAny(clientID, ": ") {
			helper.WriteErrorJSON(w, http.StatusBadRequest, "invalid "+helper.ClientIDHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), helper.ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
