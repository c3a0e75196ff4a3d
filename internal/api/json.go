package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/images"
)

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

// writeAppError maps domain errors onto HTTP statuses. Error text is
// built from vault-relative paths only, so it is safe to expose; unknown
// failures are logged and masked.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrNotFoundInCommit):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidPath),
		errors.Is(err, apperr.ErrNotAFile),
		errors.Is(err, apperr.ErrNotADirectory),
		errors.Is(err, apperr.ErrNotEmpty),
		errors.Is(err, apperr.ErrCircular),
		errors.Is(err, apperr.ErrWrongExtension),
		errors.Is(err, apperr.ErrBinary),
		errors.Is(err, images.ErrUnsupportedType),
		errors.Is(err, images.ErrTooLarge):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrToolUnavailable),
		errors.Is(err, apperr.ErrTimeout):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
