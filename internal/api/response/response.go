// Package response holds the JSON and SSE writing helpers shared by all
// handlers.
package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes data as an application/json response with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error writes the flat error shape the dashboard expects:
// {"error": "...", "details": "..."} with details omitted when empty.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

// ErrorWithDetails is Error with a supplementary details string, typically
// the underlying failure for operator debugging.
func ErrorWithDetails(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, errorBody{Error: message, Details: details})
}
