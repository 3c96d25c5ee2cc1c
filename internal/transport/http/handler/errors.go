package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-api-otp/internal/domain"
)

// writeServiceError maps a service error onto its HTTP status. Unknown errors
// are logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var pending *domain.PendingVerificationError
	var expired *domain.PendingExpiredError
	switch {
	case errors.As(err, &pending):
		writeJSON(w, http.StatusTooManyRequests, PendingEnvelope{
			Error:           "email already pending verification",
			ErrorCode:       http.StatusTooManyRequests,
			ResendAvailable: pending.ResendAvailable,
			SentAt:          pending.SentAt,
			ExpiresAt:       pending.ExpiresAt,
			RemainingMs:     pending.RemainingMs,
		})
	case errors.As(err, &expired):
		writeJSON(w, http.StatusGone, PendingEnvelope{
			Error:           "verification passcode expired",
			ErrorCode:       http.StatusGone,
			ResendAvailable: expired.ResendAvailable,
			SentAt:          expired.SentAt,
			ExpiredAt:       expired.ExpiredAt,
		})
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
