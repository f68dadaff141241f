package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/recall/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrInvalidInput)
	}
	return nil
}

// writeError maps an error kind to its HTTP status. Unclassified errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch apperr.Kind(err) {
	case apperr.ErrUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="recall"`)
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	case apperr.ErrPermissionDenied:
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	case apperr.ErrNotFound:
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case apperr.ErrInvalidInput:
		msg := strings.TrimPrefix(err.Error(), apperr.ErrInvalidInput.Error()+": ")
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
	case apperr.ErrRateLimited:
		writeJSON(w, http.StatusTooManyRequests, errorBody("rate limit exceeded"))
	case apperr.ErrEmbeddingUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, errorBody("embedding service unavailable"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
