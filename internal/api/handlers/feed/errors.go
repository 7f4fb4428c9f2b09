package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"Collage/internal/core/collages"
	"Collage/internal/core/feed"
)

// XRPCError represents an XRPC error response
type XRPCError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := XRPCError{
		Error:   errorType,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeJSON writes a 200 response
func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent
		slog.ErrorContext(r.Context(), "failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// handleServiceError maps service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case feed.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, feed.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "InvalidCursor", "The provided cursor is invalid")
	case errors.Is(err, feed.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "User must be authenticated")
	case errors.Is(err, feed.ErrViewerNotFound):
		writeError(w, http.StatusNotFound, "ViewerNotFound", "The authenticated user does not exist")
	case collages.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NotFound", "Collage not found")
	case feed.IsTransient(err):
		slog.WarnContext(r.Context(), "feed store unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "TemporarilyUnavailable", "The feed is temporarily unavailable, please retry")
	default:
		slog.ErrorContext(r.Context(), "feed service error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
	}
}
