package helper

import (
	"encoding/json"
	"net/http"

	"bookstore-storefront/model"
)

// WriteJSON sends data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorJSON sends {"error": message}.
func WriteErrorJSON(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteStockErrorJSON lists the books that blocked a submission.
func WriteStockErrorJSON(w http.ResponseWriter, e *model.InsufficientStockError) {
	WriteJSON(w, http.StatusConflict, map[string]any{
		"error": "insufficient stock",
		"items": e.Items,
	})
}
