package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"pubquiz-hub/internal/app"
)

// ProfileCache caches usernames with TTL to avoid repeated store hits.
// Score reads pass straight through to the wrapped store.
type ProfileCache struct {
	app.ScoreStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedName
}

type cachedName struct {
	name      string
	expiresAt time.Time
}

func NewProfileCache(store app.ScoreStore, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ScoreStore: store,
		ttl:        ttl,
		clock:      time.Now,
		cache:      make(map[string]cachedName),
	}
}

func (c *ProfileCache) GetUsername(ctx context.Context, uid string) (string, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[uid]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.name, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(uid, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[uid]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.name, nil
		}
		c.mu.RUnlock()

		name, err := c.ScoreStore.GetUsername(ctx, uid)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.cache[uid] = cachedName{
			name:      name,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
