package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-otp/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// IssueEnvelope wraps responses of endpoints that send a passcode.
type IssueEnvelope struct {
	Message      string `json:"message"`
	Email        string `json:"email"`
	OTPExpiredAt int64  `json:"otp_expired_at"`
}

// VerifyEnvelope wraps a successful email verification.
type VerifyEnvelope struct {
	Message string          `json:"message"`
	Account *domain.Account `json:"account"`
	Token   string          `json:"token,omitempty"`
}

// PendingEnvelope reports why no passcode was sent and when one can be requested.
// Timestamps are unix seconds.
type PendingEnvelope struct {
	Error           string `json:"error"`
	ErrorCode       int    `json:"error_code"`
	ResendAvailable bool   `json:"resend_available"`
	SentAt          int64  `json:"sent_at"`
	ExpiresAt       int64  `json:"expires_at,omitempty"`
	ExpiredAt       int64  `json:"expired_at,omitempty"`
	RemainingMs     int64  `json:"remaining_ms"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}
