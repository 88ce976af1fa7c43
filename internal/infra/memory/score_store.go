package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pubquiz-hub/internal/domain"
)

// ScoreStore is a simple score store backed by in-memory maps (useful for tests/demos).
type ScoreStore struct {
	mu        sync.RWMutex
	usernames map[string]string
	scores    map[string][]domain.ScoreRecord
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		usernames: make(map[string]string),
		scores:    make(map[string][]domain.ScoreRecord),
	}
}

// PutProfile creates or renames a user profile.
func (s *ScoreStore) PutProfile(uid, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[uid] = username
}

// AddScore stores a record, replacing any earlier record for the same quiz date.
func (s *ScoreStore) AddScore(rec domain.ScoreRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.scores[rec.UserID]
	for i := range records {
		if records[i].QuizDate.Equal(rec.QuizDate) {
			records[i] = rec
			return
		}
	}
	s.scores[rec.UserID] = append(records, rec)
}

func (s *ScoreStore) GetScoresForUser(_ context.Context, uid string) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.usernames[uid]; !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
	}
	return append([]domain.ScoreRecord{}, s.scores[uid]...), nil
}

func (s *ScoreStore) GetUsername(_ context.Context, uid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.usernames[uid]
	if !ok {
		return "", fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
	}
	return name, nil
}

func (s *ScoreStore) ScoresInWindow(_ context.Context, w domain.Window) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uids := make([]string, 0, len(s.scores))
	for uid := range s.scores {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	var out []domain.ScoreRecord
	for _, uid := range uids {
		for _, rec := range s.scores[uid] {
			if w.Contains(rec.QuizDate) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}
