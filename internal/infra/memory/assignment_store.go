package memory

import (
	"context"
	"fmt"
	"sync"

	"pubquiz-hub/internal/domain"
)

// AssignmentStore is an in-memory implementation of app.AssignmentStore.
// Documents are copied on the way in and out so callers never share maps.
type AssignmentStore struct {
	mu          sync.RWMutex
	docs        map[string]domain.MarkingTaskSet
	subscribers map[string]map[chan domain.DocumentChange]struct{}
	buffer      int
}

func NewAssignmentStore(buffer int) *AssignmentStore {
	if buffer <= 0 {
		buffer = 8
	}
	return &AssignmentStore{
		docs:        make(map[string]domain.MarkingTaskSet),
		subscribers: make(map[string]map[chan domain.DocumentChange]struct{}),
		buffer:      buffer,
	}
}

func (s *AssignmentStore) Get(_ context.Context, key string) (domain.MarkingTaskSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.docs[key]
	if !ok {
		return domain.MarkingTaskSet{}, fmt.Errorf("task set %s: %w", key, domain.ErrNotFound)
	}
	return cloneSet(set), nil
}

func (s *AssignmentStore) Replace(_ context.Context, set domain.MarkingTaskSet, expectedVersion int64) (domain.MarkingTaskSet, error) {
	key := set.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.docs[key]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return domain.MarkingTaskSet{}, domain.ErrVersionConflict
	}
	stored := cloneSet(set)
	stored.Version = expectedVersion + 1
	s.docs[key] = stored
	s.broadcastLocked(key, domain.DocumentChange{Set: stored, Found: true})
	return cloneSet(stored), nil
}

func (s *AssignmentStore) Watch(_ context.Context, key string) (<-chan domain.DocumentChange, func(), error) {
	ch := make(chan domain.DocumentChange, s.buffer)

	s.mu.Lock()
	subs, ok := s.subscribers[key]
	if !ok {
		subs = make(map[chan domain.DocumentChange]struct{})
		s.subscribers[key] = subs
	}
	subs[ch] = struct{}{}
	set, found := s.docs[key]
	initial := domain.DocumentChange{Found: found}
	if found {
		initial.Set = cloneSet(set)
	}
	// Sent under the lock so no replacement can overtake the initial state.
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[key]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.subscribers, key)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *AssignmentStore) broadcastLocked(key string, change domain.DocumentChange) {
	for ch := range s.subscribers[key] {
		change := cloneChange(change)
		select {
		case ch <- change:
		default:
			// Slow subscriber: drop its oldest pending change, keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}

func cloneChange(c domain.DocumentChange) domain.DocumentChange {
	c.Set = cloneSet(c.Set)
	return c
}

func cloneSet(set domain.MarkingTaskSet) domain.MarkingTaskSet {
	out := set
	out.Pubs = make(map[string]domain.PubTasks, len(set.Pubs))
	for pubID, tasks := range set.Pubs {
		copied := domain.PubTasks{Assignments: make(map[string]domain.TaskEntry, len(tasks.Assignments))}
		for marker, entry := range tasks.Assignments {
			copied.Assignments[marker] = entry
		}
		if len(tasks.Unmarked) > 0 {
			copied.Unmarked = append([]string(nil), tasks.Unmarked...)
		}
		out.Pubs[pubID] = copied
	}
	return out
}
