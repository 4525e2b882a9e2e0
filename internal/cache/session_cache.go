package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
)

// SessionCache holds provider session projections keyed by session id. A miss
// is reported as (nil, false, nil).
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*payment.SessionStatus, bool, error)
	Set(ctx context.Context, s *payment.SessionStatus) error
}

type entry struct {
	value   payment.SessionStatus
	expires time.Time
}

type MemorySessionCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]entry
}

func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	return &MemorySessionCache{
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]entry),
	}
}

func (c *MemorySessionCache) Get(_ context.Context, sessionID string) (*payment.SessionStatus, bool, error) {
	c.mu.RLock()
	e, ok := c.store[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.store, sessionID)
		c.mu.Unlock()
		return nil, false, nil
	}
	v := e.value
	return &v, true, nil
}

func (c *MemorySessionCache) Set(_ context.Context, s *payment.SessionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[s.ID] = entry{value: *s, expires: c.now().Add(c.ttl)}
	return nil
}
