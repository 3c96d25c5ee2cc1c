// Package memory is a process-local TTL cache for development and tests.
// It is not shared between instances, so it must not back a multi-replica deployment.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-api-otp/internal/domain"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// KV is a mutex-guarded map with per-key expiry.
type KV struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewKV creates an empty cache. now defaults to time.Now.
func NewKV(now func() time.Time) *KV {
	if now == nil {
		now = time.Now
	}
	return &KV{entries: make(map[string]entry), now: now}
}

func (k *KV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.live(key)
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	return e.value, nil
}

func (k *KV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = entry{value: value, expiresAt: k.now().Add(ttl)}
	return nil
}

func (k *KV) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.live(key); ok {
		return false, nil
	}
	k.entries[key] = entry{value: value, expiresAt: k.now().Add(ttl)}
	return true, nil
}

func (k *KV) CompareAndSwap(_ context.Context, key, old, value string, ttl time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.live(key)
	if !ok || e.value != old {
		return false, nil
	}
	k.entries[key] = entry{value: value, expiresAt: k.now().Add(ttl)}
	return true, nil
}

func (k *KV) CompareAndDelete(_ context.Context, key, old string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.live(key)
	if !ok || e.value != old {
		return false, nil
	}
	delete(k.entries, key)
	return true, nil
}

func (k *KV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
	return nil
}

// live returns the entry under key, dropping it if expired. Callers hold mu.
func (k *KV) live(key string) (entry, bool) {
	e, ok := k.entries[key]
	if !ok {
		return entry{}, false
	}
	if !k.now().Before(e.expiresAt) {
		delete(k.entries, key)
		return entry{}, false
	}
	return e, true
}
