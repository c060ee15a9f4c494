package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore-storefront/helper"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClientIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusBadRequest},
		{name: "contains separator", header: "a:b", wantStatus: http.StatusBadRequest},
		{name: "valid", header: "tab-42", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/cart", nil)
			if tt.header != "" {
				req.Header.Set(helper.ClientIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler := ClientIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := helper.GetClientIDFromContext(r.Context()); got != tt.header {
					t.Fatalf("expected client id %q, got %q", tt.header, got)
				}
				w.WriteHeader(200)
			}))

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/books", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusTeapot) {
		t.Fatalf("expected logged status 418, got %v", got)
	}
}
