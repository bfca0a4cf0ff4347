package helpers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"venuebooking/internal/domain"
)

// WriteServiceError maps a service error onto the JSON error envelope. Store outages and
// unexpected errors are logged; caller errors are not.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErr *domain.ValidationError
	var conflictErr *domain.ConflictError
	switch {
	case errors.As(err, &validationErr):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(validationErr.Problems, "; "))
	case errors.Is(err, domain.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.As(err, &conflictErr):
		WriteJSONErrorData(w, http.StatusConflict, ErrCodeConflict, conflictErr.Error(), conflictErr.Conflicts)
	case errors.Is(err, domain.ErrInvalidStage):
		WriteJSONError(w, http.StatusConflict, ErrCodeInvalidStage, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrRateLimited):
		WriteJSONError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "too many requests, try again later")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable, try again later")
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
