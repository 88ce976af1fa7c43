package redis

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"pubquiz-hub/internal/app"
)

// ProfileCache caches usernames in Redis and falls back to the wrapped store on miss.
// Names are stored as: SET profile:{uid}:username {name} EX ttl
type ProfileCache struct {
	app.ScoreStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
}

func NewProfileCache(client *redis.Client, store app.ScoreStore, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ScoreStore: store,
		client:     client,
		ttl:        ttl,
	}
}

func (c *ProfileCache) GetUsername(ctx context.Context, uid string) (string, error) {
	key := c.key(uid)

	if name, err := c.client.Get(ctx, key).Result(); err == nil {
		return name, nil
	}

	result, err, _ := c.sf.Do(uid, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		name, err := c.client.Get(ctx, key).Result()
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, redis.Nil) {
			// cache unavailable; the store is still authoritative
			return c.ScoreStore.GetUsername(ctx, uid)
		}

		name, err = c.ScoreStore.GetUsername(ctx, uid)
		if err != nil {
			return "", err
		}
		_ = c.client.Set(ctx, key, name, c.ttlWithJitter()).Err()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ProfileCache) key(uid string) string {
	return "profile:" + uid + ":username"
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
