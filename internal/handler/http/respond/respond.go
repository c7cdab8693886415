// Package respond writes JSON responses and maps errors to status codes
// without leaking internal details to the client.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/observability/logging"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// ヘッダー送信済みのためログのみ
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes err.Error() as the message. Use only for client-safe errors.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, ErrorBody{Error: err.Error()})
}

// SafeError writes err for 4xx codes and a generic message for 5xx,
// logging the sanitized cause.
func SafeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if err == nil {
		return
	}
	if code < http.StatusInternalServerError {
		Error(w, code, err)
		return
	}

	logger := slog.Default()
	if r != nil {
		logger = logging.FromContext(r.Context())
	}
	logger.Error("internal server error",
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, ErrorBody{Error: "internal server error"})
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidRequest),
		errors.Is(err, entity.ErrValidationFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with the status chosen by StatusFor.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	SafeError(w, r, StatusFor(err), err)
}
