// Package passcode keeps the pending passcode of each recipient in a shared
// TTL cache, one entry per purpose and recipient.
package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-otp/internal/domain"
)

// GracePeriod is how long an entry outlives its passcode so that expiry can be
// reported precisely instead of surfacing as a cache miss.
const GracePeriod = 15 * time.Minute

// ErrRaced is returned by Issue and Consume when another writer changed the
// entry between the caller's read and its write.
var ErrRaced = fmt.Errorf("passcode changed concurrently: %w", domain.ErrConflict)

// KV is the TTL-capable cache the store is backed by.
// Get returns an error wrapping domain.ErrNotFound for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndSwap(ctx context.Context, key, old, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, old string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Store reads and writes passcode records for a single purpose.
type Store struct {
	kv       KV
	purpose  domain.Purpose
	lifetime time.Duration
	now      func() time.Time
}

// NewStore builds a store whose records live for lifetime. now defaults to time.Now.
func NewStore(kv KV, purpose domain.Purpose, lifetime time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, purpose: purpose, lifetime: lifetime, now: now}
}

// Key returns the cache key of recipient, "<purpose>:<recipient>".
func (s *Store) Key(recipient string) string {
	return string(s.purpose) + ":" + recipient
}

// TTL is the cache retention of an entry: lifetime plus the grace period.
func (s *Store) TTL() time.Duration {
	return s.lifetime + GracePeriod
}

// Save stores a new record for recipient, overwriting any previous one.
func (s *Store) Save(ctx context.Context, recipient, code string) (*domain.PasscodeRecord, error) {
	rec := s.newRecord(code)
	if err := s.kv.Set(ctx, s.Key(recipient), encode(rec), s.TTL()); err != nil {
		return nil, fmt.Errorf("save passcode: %w", err)
	}
	return &rec, nil
}

// Issue stores a new record only if the entry still holds prev, or is absent
// when prev is nil. It returns ErrRaced when that condition no longer holds.
func (s *Store) Issue(ctx context.Context, recipient, code string, prev *domain.PasscodeRecord) (*domain.PasscodeRecord, error) {
	rec := s.newRecord(code)
	key := s.Key(recipient)

	var ok bool
	var err error
	if prev == nil {
		ok, err = s.kv.SetIfAbsent(ctx, key, encode(rec), s.TTL())
	} else {
		ok, err = s.kv.CompareAndSwap(ctx, key, encode(*prev), encode(rec), s.TTL())
	}
	if err != nil {
		return nil, fmt.Errorf("issue passcode: %w", err)
	}
	if !ok {
		return nil, ErrRaced
	}
	return &rec, nil
}

// Read returns the record of recipient, expired or not. A missing entry is
// reported as domain.ErrNotFound.
func (s *Store) Read(ctx context.Context, recipient string) (*domain.PasscodeRecord, error) {
	value, err := s.kv.Get(ctx, s.Key(recipient))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no pending passcode: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read passcode: %w", err)
	}
	return decode(value)
}

// Consume deletes the entry of recipient only while it still holds rec, so a
// passcode can be redeemed once. It returns ErrRaced when the entry was
// replaced or already consumed.
func (s *Store) Consume(ctx context.Context, recipient string, rec *domain.PasscodeRecord) error {
	ok, err := s.kv.CompareAndDelete(ctx, s.Key(recipient), encode(*rec))
	if err != nil {
		return fmt.Errorf("consume passcode: %w", err)
	}
	if !ok {
		return ErrRaced
	}
	return nil
}

// Remove deletes the entry of recipient. Removing a missing entry is not an error.
func (s *Store) Remove(ctx context.Context, recipient string) error {
	if err := s.kv.Delete(ctx, s.Key(recipient)); err != nil {
		return fmt.Errorf("remove passcode: %w", err)
	}
	return nil
}

func (s *Store) newRecord(code string) domain.PasscodeRecord {
	createdAt := s.now().Unix()
	return domain.PasscodeRecord{
		Code:      code,
		CreatedAt: createdAt,
		ExpiresAt: createdAt + int64(s.lifetime/time.Second),
	}
}
