package web

// errors.go centralizes error responses: the technical error is logged
// with the request id for correlation, the client gets a JSON body.

import (
	"encoding/json"
	"net/http"

	"github.com/arhivare/fondio/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError logs the error server-side and returns it as JSON.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", message,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
