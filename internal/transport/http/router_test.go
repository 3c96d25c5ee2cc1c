package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-api-otp/internal/application/passcode"
	"github.com/go-api-otp/internal/config"
	"github.com/go-api-otp/internal/domain"
	"github.com/go-api-otp/internal/infrastructure/memory"
	"github.com/go-api-otp/internal/pkg/otp"
	appmiddleware "github.com/go-api-otp/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type accountMap struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
}

func (m *accountMap) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
}

func (m *accountMap) Put(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.AccountID] = a
	return nil
}

func (m *accountMap) Update(_ context.Context, accountID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if v, ok := updates["email_confirmed"].(bool); ok {
		a.EmailConfirmed = v
	}
	return nil
}

type outbox struct {
	mu   sync.Mutex
	jobs []domain.DeliveryJob
}

func (o *outbox) Enqueue(_ context.Context, job domain.DeliveryJob) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobs = append(o.jobs, job)
	return nil
}

func (o *outbox) last() domain.DeliveryJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobs[len(o.jobs)-1]
}

func newTestServer(t *testing.T) (http.Handler, *accountMap, *outbox) {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		OTP: config.OTP{
			VerifyEmailLength: 6,
			ExpireMinutes:     10,
			ResendMinutes:     1,
			EmailSubject:      "Verify your email",
		},
	}
	rl := appmiddleware.NewRateLimiter(rate.Limit(100), 100, nil)
	t.Cleanup(rl.Stop)

	accounts := &accountMap{byID: map[string]*domain.Account{}}
	box := &outbox{}
	lifetime := time.Duration(cfg.OTP.ExpireMinutes) * time.Minute
	deps := &Deps{
		AccountRepo: accounts,
		Passcodes:   passcode.NewStore(memory.NewKV(nil), domain.PurposeVerifyEmail, lifetime, nil),
		Generator:   otp.NewGenerator(domain.Policy{Length: cfg.OTP.VerifyEmailLength, Mode: domain.ModeNumeric}),
		Delivery:    box,
		RateLimiter: rl,
	}
	return NewRouter(cfg, deps), accounts, box
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_VerifyEmailFlow(t *testing.T) {
	h, accounts, box := newTestServer(t)

	rec := postJSON(t, h, "/v1/register/verify-email", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := box.last()
	assert.Equal(t, "a@x.com", job.To)
	assert.Equal(t, "Verify your email", job.Subject)
	assert.Len(t, job.OTP, 6)

	rec = postJSON(t, h, "/v1/register/verify-email", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = postJSON(t, h, "/v1/register/verify-email/resend", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = postJSON(t, h, "/v1/register/verify-email/confirm", map[string]string{"email": "a@x.com", "otp": job.OTP})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	acc, err := accounts.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, acc.EmailConfirmed)

	rec = postJSON(t, h, "/v1/register/verify-email/confirm", map[string]string{"email": "a@x.com", "otp": job.OTP})
	assert.Equal(t, http.StatusNotFound, rec.Code, "a passcode is single use")
}

func TestRouter_HealthCheck(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
