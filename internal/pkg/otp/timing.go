package otp

import (
	"time"

	"github.com/go-api-otp/internal/domain"
)

// Timing holds the two durations that govern a pending passcode.
type Timing struct {
	Lifetime time.Duration
	Cooldown time.Duration
}

// Decision is the timing classification of a pending passcode at a given instant.
// SentAt and ExpiresAt are unix seconds.
type Decision struct {
	HasPending          bool
	IsExpired           bool
	ResendAvailable     bool
	RemainingCooldownMs int64
	SentAt              int64
	ExpiresAt           int64
}

// Decide classifies rec at now. A nil record means nothing is pending.
func (t Timing) Decide(now time.Time, rec *domain.PasscodeRecord) Decision {
	if rec == nil {
		return Decision{ResendAvailable: true}
	}
	sentAt := rec.CreatedAt
	if sentAt == 0 {
		// records written before createdAt was stored
		sentAt = rec.ExpiresAt - int64(t.Lifetime/time.Second)
	}

	d := Decision{
		HasPending: true,
		IsExpired:  now.Unix() > rec.ExpiresAt,
		SentAt:     sentAt,
		ExpiresAt:  rec.ExpiresAt,
	}
	elapsedMs := now.UnixMilli() - sentAt*1000
	cooldownMs := t.Cooldown.Milliseconds()
	if elapsedMs >= cooldownMs {
		d.ResendAvailable = true
	} else {
		d.RemainingCooldownMs = cooldownMs - elapsedMs
	}
	return d
}
