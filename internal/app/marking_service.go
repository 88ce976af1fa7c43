package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"pubquiz-hub/internal/domain"
)

// AssignmentStore holds one MarkingTaskSet document per (quiz, part) key.
type AssignmentStore interface {
	// Get fails with domain.ErrNotFound if the document does not exist.
	Get(ctx context.Context, key string) (domain.MarkingTaskSet, error)
	// Replace writes the whole document if the stored version still equals
	// expectedVersion (0 meaning absent) and returns it with its new version.
	// A lost race fails with domain.ErrVersionConflict.
	Replace(ctx context.Context, set domain.MarkingTaskSet, expectedVersion int64) (domain.MarkingTaskSet, error)
	// Watch emits the current document immediately and then every replacement.
	// The caller must invoke the returned cancel function to avoid leaks.
	Watch(ctx context.Context, key string) (<-chan domain.DocumentChange, func(), error)
}

// RosterRepository records who is in which pub and which sheets were submitted.
type RosterRepository interface {
	Join(ctx context.Context, quizID string, part int, pubID string, p domain.Participant) error
	Leave(ctx context.Context, quizID string, part int, uid string) error
	// SubmitSheet is idempotent per participant; the first call fixes the sheet number.
	SubmitSheet(ctx context.Context, quizID string, part int, uid, answerDocID string) (domain.AnswerSheet, error)
	// Rosters returns pubs ordered by id, participants in join order.
	Rosters(ctx context.Context, quizID string, part int) ([]domain.PubRoster, error)
}

// MarkingService computes, publishes and streams peer-marking assignments.
type MarkingService struct {
	store      AssignmentStore
	rosters    RosterRepository
	maxRetries int
	buffer     int
	now        func() time.Time
	newDocID   func() string
}

func NewMarkingService(store AssignmentStore, rosters RosterRepository, maxRetries, buffer int) *MarkingService {
	return NewMarkingServiceWithClock(store, rosters, maxRetries, buffer, time.Now)
}

// NewMarkingServiceWithClock allows deterministic timestamps in tests.
func NewMarkingServiceWithClock(store AssignmentStore, rosters RosterRepository, maxRetries, buffer int, now func() time.Time) *MarkingService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if buffer <= 0 {
		buffer = 8
	}
	return &MarkingService{
		store:      store,
		rosters:    rosters,
		maxRetries: maxRetries,
		buffer:     buffer,
		now:        now,
		newDocID:   uuid.NewString,
	}
}

// StartPart publishes the first task set for a part from the current rosters.
func (s *MarkingService) StartPart(ctx context.Context, quizID string, part int) (domain.MarkingTaskSet, error) {
	return s.Reassign(ctx, quizID, part)
}

// Join adds or updates a participant and republishes the part's assignments.
func (s *MarkingService) Join(ctx context.Context, quizID string, part int, pubID string, p domain.Participant) (domain.MarkingTaskSet, error) {
	if part < 1 {
		return domain.MarkingTaskSet{}, domain.ErrInvalidPart
	}
	if err := s.rosters.Join(ctx, quizID, part, pubID, p); err != nil {
		return domain.MarkingTaskSet{}, fmt.Errorf("join %s: %w", pubID, err)
	}
	return s.Reassign(ctx, quizID, part)
}

// Leave removes a participant and republishes the part's assignments.
func (s *MarkingService) Leave(ctx context.Context, quizID string, part int, uid string) (domain.MarkingTaskSet, error) {
	if part < 1 {
		return domain.MarkingTaskSet{}, domain.ErrInvalidPart
	}
	if err := s.rosters.Leave(ctx, quizID, part, uid); err != nil {
		return domain.MarkingTaskSet{}, err
	}
	return s.Reassign(ctx, quizID, part)
}

// SubmitSheet makes a participant's answer sheet available for marking.
// An empty answerDocID is replaced with a generated one.
func (s *MarkingService) SubmitSheet(ctx context.Context, quizID string, part int, uid, answerDocID string) (domain.AnswerSheet, domain.MarkingTaskSet, error) {
	if part < 1 {
		return domain.AnswerSheet{}, domain.MarkingTaskSet{}, domain.ErrInvalidPart
	}
	if answerDocID == "" {
		answerDocID = s.newDocID()
	}
	sheet, err := s.rosters.SubmitSheet(ctx, quizID, part, uid, answerDocID)
	if err != nil {
		return domain.AnswerSheet{}, domain.MarkingTaskSet{}, err
	}
	set, err := s.Reassign(ctx, quizID, part)
	return sheet, set, err
}

// Current returns the published set for a part.
func (s *MarkingService) Current(ctx context.Context, quizID string, part int) (domain.MarkingTaskSet, error) {
	return s.store.Get(ctx, domain.TaskSetKey(quizID, part))
}

// Reassign recomputes the part's task set and replaces the stored document.
// Concurrent writers are resolved by the store's version check; the loser
// recomputes from fresh state. A failed computation leaves the stored set as is.
func (s *MarkingService) Reassign(ctx context.Context, quizID string, part int) (domain.MarkingTaskSet, error) {
	key := domain.TaskSetKey(quizID, part)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		current, err := s.store.Get(ctx, key)
		found := err == nil
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.MarkingTaskSet{}, fmt.Errorf("read %s: %w", key, err)
		}

		rosters, err := s.rosters.Rosters(ctx, quizID, part)
		if err != nil {
			return domain.MarkingTaskSet{}, fmt.Errorf("rosters %s: %w", key, err)
		}
		next, err := BuildTaskSet(quizID, part, rosters)
		if err != nil {
			return domain.MarkingTaskSet{}, err
		}
		if found && reflect.DeepEqual(current.Pubs, next.Pubs) {
			return current, nil
		}

		next.UpdatedAt = s.now()
		stored, err := s.store.Replace(ctx, next, current.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			log.Printf("marking set %s changed concurrently, retrying (attempt %d)", key, attempt+1)
			continue
		}
		if err != nil {
			return domain.MarkingTaskSet{}, fmt.Errorf("publish %s: %w", key, err)
		}
		return stored, nil
	}
	return domain.MarkingTaskSet{}, fmt.Errorf("publish %s after %d attempts: %w", key, s.maxRetries+1, domain.ErrVersionConflict)
}

// Subscribe streams the marker's current task, starting with the present state
// and then on every replacement of the part's document. Each subscriber has its
// own buffer; when it falls behind, stale notifications are dropped in favour of
// the newest. The caller must invoke the returned cancel function to avoid leaks;
// once it returns the channel is closed and holds nothing further.
func (s *MarkingService) Subscribe(ctx context.Context, quizID string, part int, pubID, markerUID string) (<-chan domain.TaskNotification, func(), error) {
	if part < 1 {
		return nil, nil, domain.ErrInvalidPart
	}
	changes, stop, err := s.store.Watch(ctx, domain.TaskSetKey(quizID, part))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.TaskNotification, s.buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			stop()
			// out is closed by the forwarder on exit; discard what it buffered.
			for range out {
			}
		})
	}

	go func() {
		defer close(out)
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				n := notificationFor(change, quizID, part, pubID, markerUID)
				select {
				case <-done:
					return
				default:
				}
				select {
				case out <- n:
				default:
					select {
					case <-out:
					default:
					}
					out <- n
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

func notificationFor(change domain.DocumentChange, quizID string, part int, pubID, markerUID string) domain.TaskNotification {
	n := domain.TaskNotification{
		QuizID:    quizID,
		Part:      part,
		PubID:     pubID,
		MarkerUID: markerUID,
	}
	if !change.Found {
		return n
	}
	n.Version = change.Set.Version
	if task, ok := change.Set.Assignment(pubID, markerUID); ok {
		n.Assigned = true
		n.Task = &task
	}
	return n
}
