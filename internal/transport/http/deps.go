package http

import (
	"context"

	"github.com/go-api-otp/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

// DeliveryQueue hands passcode emails to whichever transport delivers them.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, job domain.DeliveryJob) error
}
