package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-otp/internal/application/register"
	"github.com/go-api-otp/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockRegisterSvc struct{ mock.Mock }

func (m *mockRegisterSvc) Register(ctx context.Context, email string) (*register.IssueResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*register.IssueResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegisterSvc) Resend(ctx context.Context, email string) (*register.IssueResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*register.IssueResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegisterSvc) VerifyEmail(ctx context.Context, email, code string) (*register.VerifyResult, error) {
	args := m.Called(ctx, email, code)
	if r, _ := args.Get(0).(*register.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newTestRouter(svc register.Service) http.Handler {
	h := NewRegisterHandler(svc)
	r := chi.NewRouter()
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/verify-email/resend", h.Resend)
	r.Post("/verify-email/confirm", h.Confirm)
	r.Get("/health-check/{action}", NewHealthHandler().Ping)
	return r
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// --- VerifyEmail ---

func TestVerifyEmail_Accepted(t *testing.T) {
	svc := &mockRegisterSvc{}
	svc.On("Register", mock.Anything, "a@x.com").
		Return(&register.IssueResult{Email: "a@x.com", SentAt: 1700000000, ExpiresAt: 1700000600}, nil)

	rec := post(t, newTestRouter(svc), "/verify-email", map[string]string{"email": " A@x.com"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, float64(1700000600), body["otp_expired_at"])
	svc.AssertExpectations(t)
}

func TestVerifyEmail_InvalidBody(t *testing.T) {
	svc := &mockRegisterSvc{}
	req := httptest.NewRequest(http.MethodPost, "/verify-email", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestVerifyEmail_InvalidEmail(t *testing.T) {
	svc := &mockRegisterSvc{}
	rec := post(t, newTestRouter(svc), "/verify-email", map[string]string{"email": "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestVerifyEmail_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"email exists", domain.ErrEmailExist, http.StatusConflict},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"bad request", domain.ErrBadRequest, http.StatusBadRequest},
		{"unknown", errors.New("redis: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRegisterSvc{}
			svc.On("Register", mock.Anything, "a@x.com").Return(nil, tc.err)

			rec := post(t, newTestRouter(svc), "/verify-email", map[string]string{"email": "a@x.com"})
			assert.Equal(t, tc.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestVerifyEmail_Pending(t *testing.T) {
	svc := &mockRegisterSvc{}
	svc.On("Register", mock.Anything, "a@x.com").Return(nil, &domain.PendingVerificationError{
		SentAt:      1700000000,
		ExpiresAt:   1700000600,
		RemainingMs: 570000,
	})

	rec := post(t, newTestRouter(svc), "/verify-email", map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["resend_available"])
	assert.Equal(t, float64(570000), body["remaining_ms"])
	assert.Equal(t, float64(1700000000), body["sent_at"])
	assert.Equal(t, float64(1700000600), body["expires_at"])
}

func TestVerifyEmail_Expired(t *testing.T) {
	svc := &mockRegisterSvc{}
	svc.On("Register", mock.Anything, "a@x.com").Return(nil, &domain.PendingExpiredError{
		ResendAvailable: true,
		ExpiredAt:       1700000600,
		SentAt:          1700000000,
	})

	rec := post(t, newTestRouter(svc), "/verify-email", map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusGone, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["resend_available"])
	assert.Equal(t, float64(1700000600), body["expired_at"])
}

// --- Resend ---

func TestResend_Accepted(t *testing.T) {
	svc := &mockRegisterSvc{}
	svc.On("Resend", mock.Anything, "a@x.com").
		Return(&register.IssueResult{Email: "a@x.com", ExpiresAt: 1700000660}, nil)

	rec := post(t, newTestRouter(svc), "/verify-email/resend", map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, float64(1700000660), decode(t, rec)["otp_expired_at"])
}

// --- Confirm ---

func TestConfirm_OK(t *testing.T) {
	svc := &mockRegisterSvc{}
	acc := &domain.Account{AccountID: "acc1", Email: "a@x.com", EmailConfirmed: true, PasswordHash: "secret"}
	svc.On("VerifyEmail", mock.Anything, "a@x.com", "123456").
		Return(&register.VerifyResult{Account: acc, Token: "signed.jwt"}, nil)

	rec := post(t, newTestRouter(svc), "/verify-email/confirm", map[string]string{"email": "A@X.com", "otp": "123456"})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "signed.jwt", body["token"])
	account := body["account"].(map[string]interface{})
	assert.Equal(t, "acc1", account["id"])
	assert.Equal(t, true, account["email_confirmed"])
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestConfirm_MissingOTP(t *testing.T) {
	svc := &mockRegisterSvc{}
	rec := post(t, newTestRouter(svc), "/verify-email/confirm", map[string]string{"email": "a@x.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "OTP")
}

func TestConfirm_InvalidPasscode(t *testing.T) {
	svc := &mockRegisterSvc{}
	svc.On("VerifyEmail", mock.Anything, "a@x.com", "000000").Return(nil, domain.ErrInvalidPasscode)

	rec := post(t, newTestRouter(svc), "/verify-email/confirm", map[string]string{"email": "a@x.com", "otp": "000000"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- Health ---

func TestHealth_Ping(t *testing.T) {
	r := newTestRouter(&mockRegisterSvc{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
