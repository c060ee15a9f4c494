package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bookstore-storefront/helper"
)

var (
	errMissingHeader  = errors.New("missing Authorization header")
	errInvalidFormat  = errors.New("invalid Authorization format (use Bearer token)")
	errInvalidToken   = errors.New("invalid or expired token")
	errInvalidPayload = errors.New("invalid token payload")
)

// userIDFromRequest returns 0 and errMissingHeader when no token was sent.
func userIDFromRequest(r *http.Request) (int, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0, errMissingHeader
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader {
		return 0, errInvalidFormat
	}

	claims, err := helper.ValidateJWT(tokenStr)
	if err != nil {
		return 0, errInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errInvalidPayload
	}
	return int(userID), nil
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			helper.WriteErrorJSON(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), helper.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware lets anonymous shoppers through. A token that is
// present but invalid is still rejected.
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if errors.Is(err, errMissingHeader) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			helper.WriteErrorJSON(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), helper.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
