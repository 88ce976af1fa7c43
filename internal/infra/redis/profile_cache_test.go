package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"pubquiz-hub/internal/infra/memory"
)

func TestProfileCacheStoresInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	scores := memory.NewScoreStore()
	scores.PutProfile("u1", "Alice")
	counting := &countingStore{ScoreStore: scores}
	cache := NewProfileCache(newClient(mr), counting, time.Minute)

	name, err := cache.GetUsername(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get username: %v", err)
	}
	if name != "Alice" || counting.calls != 1 {
		t.Fatalf("expected Alice from store once, got %q calls=%d", name, counting.calls)
	}
	if got, _ := mr.Get("profile:u1:username"); got != "Alice" {
		t.Fatalf("expected cached name, got %q", got)
	}

	// Second call should hit cache, store not incremented.
	_, _ = cache.GetUsername(context.Background(), "u1")
	if counting.calls != 1 {
		t.Fatalf("expected cache hit, store calls=%d", counting.calls)
	}
}

type countingStore struct {
	*memory.ScoreStore
	calls int
}

func (s *countingStore) GetUsername(ctx context.Context, uid string) (string, error) {
	s.calls++
	return s.ScoreStore.GetUsername(ctx, uid)
}
