package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/shared"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Server-side failures are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Message: err.Error(), RequestID: RequestID(r.Context())}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "request_id", body.RequestID, "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = http.StatusText(status)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
