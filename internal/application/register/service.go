package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-otp/internal/application/passcode"
	"github.com/go-api-otp/internal/domain"
	"github.com/go-api-otp/internal/pkg/id"
	"github.com/go-api-otp/internal/pkg/otp"
	"github.com/go-api-otp/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldEmailConfirmed = "email_confirmed"
	fieldUpdatedAt      = "updated_at"
)

// IssueResult describes a passcode that was just issued. Timestamps are unix seconds.
type IssueResult struct {
	Email     string
	SentAt    int64
	ExpiresAt int64
}

// VerifyResult is returned once an email has been proven. Token is empty when
// no signer is configured.
type VerifyResult struct {
	Account *domain.Account
	Token   string
}

type Service interface {
	Register(ctx context.Context, email string) (*IssueResult, error)
	Resend(ctx context.Context, email string) (*IssueResult, error)
	VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error)
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type passcodeStore interface {
	Read(ctx context.Context, recipient string) (*domain.PasscodeRecord, error)
	Issue(ctx context.Context, recipient, code string, prev *domain.PasscodeRecord) (*domain.PasscodeRecord, error)
	Consume(ctx context.Context, recipient string, rec *domain.PasscodeRecord) error
}

type codeGenerator interface {
	Generate() (string, error)
	Policy() domain.Policy
}

type deliveryQueue interface {
	Enqueue(ctx context.Context, job domain.DeliveryJob) error
}

type jwtSigner interface {
	SignEmailVerified(accountID, email string) (string, error)
}

type service struct {
	accountRepo accountStore
	passcodes   passcodeStore
	generator   codeGenerator
	timing      otp.Timing
	delivery    deliveryQueue
	jwtProvider jwtSigner
	subject     string
	now         func() time.Time
}

type ServiceDeps struct {
	AccountRepo accountStore
	Passcodes   passcodeStore
	Generator   codeGenerator
	Timing      otp.Timing
	Delivery    deliveryQueue
	JWTProvider jwtSigner // optional
	Subject     string
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		accountRepo: deps.AccountRepo,
		passcodes:   deps.Passcodes,
		generator:   deps.Generator,
		timing:      deps.Timing,
		delivery:    deps.Delivery,
		jwtProvider: deps.JWTProvider,
		subject:     deps.Subject,
		now:         now,
	}
}

// Register starts email verification for email. A passcode is issued only when
// none is pending; a pending one is reported as *domain.PendingVerificationError
// or *domain.PendingExpiredError.
func (s *service) Register(ctx context.Context, email string) (*IssueResult, error) {
	email = validate.NormalizeEmail(email)
	if _, err := s.lookupAccount(ctx, email); err != nil {
		return nil, err
	}
	rec, err := s.readPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if d := s.timing.Decide(s.now(), rec); d.HasPending {
		return nil, pendingError(d)
	}
	return s.issue(ctx, email, nil)
}

// Resend replaces the pending passcode once it has expired or its cooldown has
// elapsed. With nothing pending it behaves like Register.
func (s *service) Resend(ctx context.Context, email string) (*IssueResult, error) {
	email = validate.NormalizeEmail(email)
	if _, err := s.lookupAccount(ctx, email); err != nil {
		return nil, err
	}
	rec, err := s.readPending(ctx, email)
	if err != nil {
		return nil, err
	}
	d := s.timing.Decide(s.now(), rec)
	if d.HasPending && !d.IsExpired && !d.ResendAvailable {
		return nil, pendingError(d)
	}
	return s.issue(ctx, email, rec)
}

// VerifyEmail checks code against the pending passcode of email and, on a
// match, consumes it and marks the account's email as confirmed. Only one
// caller can consume a given passcode; the others get domain.ErrInvalidPasscode.
func (s *service) VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = validate.NormalizeEmail(email)
	acc, err := s.lookupAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	rec, err := s.passcodes.Read(ctx, email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if d := s.timing.Decide(now, rec); d.IsExpired {
		return nil, pendingError(d)
	}
	ok, err := otp.Verify(code, otp.Hash(rec.Code), s.generator.Policy())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidPasscode
	}
	if err := s.passcodes.Consume(ctx, email, rec); err != nil {
		if errors.Is(err, passcode.ErrRaced) {
			return nil, domain.ErrInvalidPasscode
		}
		return nil, err
	}

	acc, err = s.confirmAccount(ctx, acc, email, now)
	if err != nil {
		return nil, err
	}
	slog.Info("email verified", "account_id", acc.AccountID)

	res := &VerifyResult{Account: acc}
	if s.jwtProvider != nil {
		res.Token, err = s.jwtProvider.SignEmailVerified(acc.AccountID, acc.Email)
		if err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
	}
	return res, nil
}

// lookupAccount returns the account registered under email, or nil when there
// is none. An account that already has a password rejects the flow.
func (s *service) lookupAccount(ctx context.Context, email string) (*domain.Account, error) {
	acc, err := s.accountRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if acc.HasPassword() {
		return nil, domain.ErrEmailExist
	}
	return acc, nil
}

// readPending returns the stored record of email, or nil when nothing is pending.
func (s *service) readPending(ctx context.Context, email string) (*domain.PasscodeRecord, error) {
	rec, err := s.passcodes.Read(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// issue generates and stores a new passcode over prev and hands it to delivery.
// Losing the write to a concurrent request reports the winner's record instead.
func (s *service) issue(ctx context.Context, email string, prev *domain.PasscodeRecord) (*IssueResult, error) {
	code, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}
	rec, err := s.passcodes.Issue(ctx, email, code, prev)
	if errors.Is(err, passcode.ErrRaced) {
		return nil, s.raced(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	job := domain.DeliveryJob{
		To:           email,
		Subject:      s.subject,
		OTP:          code,
		OTPExpiredAt: rec.ExpiresAt,
	}
	if err := s.delivery.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue delivery: %w", err)
	}
	slog.Info("passcode issued", "email", email, "expires_at", rec.ExpiresAt)
	return &IssueResult{Email: email, SentAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *service) raced(ctx context.Context, email string) error {
	winner, err := s.readPending(ctx, email)
	if err != nil {
		return err
	}
	d := s.timing.Decide(s.now(), winner)
	if !d.HasPending {
		return passcode.ErrRaced
	}
	return pendingError(d)
}

func (s *service) confirmAccount(ctx context.Context, acc *domain.Account, email string, now time.Time) (*domain.Account, error) {
	if acc == nil {
		// an earlier passcode may have been redeemed since the first lookup
		existing, err := s.lookupAccount(ctx, email)
		if err != nil {
			return nil, err
		}
		acc = existing
	}
	if acc == nil {
		acc = &domain.Account{
			AccountID:      id.NewAt(now),
			Email:          email,
			EmailConfirmed: true,
			CreatedAt:      now.UTC(),
			UpdatedAt:      now.UTC(),
		}
		if err := s.accountRepo.Put(ctx, acc); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		return acc, nil
	}
	updates := map[string]interface{}{
		fieldEmailConfirmed: true,
		fieldUpdatedAt:      now.UTC(),
	}
	if err := s.accountRepo.Update(ctx, acc.AccountID, updates); err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}
	acc.EmailConfirmed = true
	acc.UpdatedAt = now.UTC()
	return acc, nil
}

func pendingError(d otp.Decision) error {
	if d.IsExpired {
		return &domain.PendingExpiredError{
			ResendAvailable: true,
			ExpiredAt:       d.ExpiresAt,
			SentAt:          d.SentAt,
		}
	}
	return &domain.PendingVerificationError{
		ResendAvailable: d.ResendAvailable,
		SentAt:          d.SentAt,
		ExpiresAt:       d.ExpiresAt,
		RemainingMs:     d.RemainingCooldownMs,
	}
}
