package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-otp/internal/application/register"
	"github.com/go-api-otp/internal/pkg/validate"
)

type verifyEmailRequest struct {
	Email string `json:"email"`
}

type confirmEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,alphanum"`
}

// RegisterHandler handles the registration email verification endpoints.
type RegisterHandler struct {
	svc register.Service
}

func NewRegisterHandler(svc register.Service) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

func (h *RegisterHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Register(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, IssueEnvelope{
		Message:      "verification passcode sent",
		Email:        res.Email,
		OTPExpiredAt: res.ExpiresAt,
	})
}

func (h *RegisterHandler) Resend(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Resend(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, IssueEnvelope{
		Message:      "verification passcode resent",
		Email:        res.Email,
		OTPExpiredAt: res.ExpiresAt,
	})
}

func (h *RegisterHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = validate.NormalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{
		Message: "email verified",
		Account: res.Account,
		Token:   res.Token,
	})
}

func decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	email, err := validate.Email(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return email, true
}
