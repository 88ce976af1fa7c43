package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"pubquiz-hub/internal/domain"
)

// AssignmentStore keeps each MarkingTaskSet as a JSON string and fans changes out
// over pub/sub:
//
//	SET     marking:{key}          {set json}
//	PUBLISH marking:{key}:changes  {set json}
//
// Writes are optimistic: WATCH the key, compare versions, then SET and PUBLISH in
// one MULTI so subscribers only ever see whole documents.
type AssignmentStore struct {
	client *redis.Client
	ttl    time.Duration
	buffer int
}

func NewAssignmentStore(client *redis.Client, ttl time.Duration, buffer int) *AssignmentStore {
	if buffer <= 0 {
		buffer = 8
	}
	return &AssignmentStore{client: client, ttl: ttl, buffer: buffer}
}

func (s *AssignmentStore) Get(ctx context.Context, key string) (domain.MarkingTaskSet, error) {
	set, found, err := s.read(ctx, s.client, key)
	if err != nil {
		return domain.MarkingTaskSet{}, err
	}
	if !found {
		return domain.MarkingTaskSet{}, fmt.Errorf("task set %s: %w", key, domain.ErrNotFound)
	}
	return set, nil
}

func (s *AssignmentStore) Replace(ctx context.Context, set domain.MarkingTaskSet, expectedVersion int64) (domain.MarkingTaskSet, error) {
	key := set.Key()
	docKey := s.docKey(key)

	var stored domain.MarkingTaskSet
	txf := func(tx *redis.Tx) error {
		current, found, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		var version int64
		if found {
			version = current.Version
		}
		if version != expectedVersion {
			return domain.ErrVersionConflict
		}

		stored = set
		stored.Version = expectedVersion + 1
		body, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode task set: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, body, s.ttl)
			pipe.Publish(ctx, s.channel(key), body)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, docKey)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.MarkingTaskSet{}, domain.ErrVersionConflict
	}
	if err != nil {
		return domain.MarkingTaskSet{}, err
	}
	return stored, nil
}

// Watch subscribes before reading the current document so no replacement can
// fall between the two; deliveries older than the last one sent are skipped.
func (s *AssignmentStore) Watch(ctx context.Context, key string) (<-chan domain.DocumentChange, func(), error) {
	sub := s.client.Subscribe(ctx, s.channel(key))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	set, found, err := s.read(ctx, s.client, key)
	if err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.DocumentChange, s.buffer)
	out <- domain.DocumentChange{Set: set, Found: found}
	last := set.Version

	messages := sub.Channel()
	go func() {
		defer close(out)
		for msg := range messages {
			var next domain.MarkingTaskSet
			if err := json.Unmarshal([]byte(msg.Payload), &next); err != nil {
				log.Printf("discarding malformed task set on %s: %v", msg.Channel, err)
				continue
			}
			if next.Version <= last {
				continue
			}
			last = next.Version
			change := domain.DocumentChange{Set: next, Found: true}
			select {
			case out <- change:
			default:
				select {
				case <-out:
				default:
				}
				out <- change
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

func (s *AssignmentStore) read(ctx context.Context, c getter, key string) (domain.MarkingTaskSet, bool, error) {
	raw, err := c.Get(ctx, s.docKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarkingTaskSet{}, false, nil
	}
	if err != nil {
		return domain.MarkingTaskSet{}, false, fmt.Errorf("read task set %s: %w", key, err)
	}
	var set domain.MarkingTaskSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.MarkingTaskSet{}, false, fmt.Errorf("decode task set %s: %w", key, err)
	}
	return set, true, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *AssignmentStore) docKey(key string) string {
	return "marking:" + key
}

func (s *AssignmentStore) channel(key string) string {
	return "marking:" + key + ":changes"
}
