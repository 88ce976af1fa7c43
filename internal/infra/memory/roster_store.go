package memory

import (
	"context"
	"sort"
	"sync"

	"pubquiz-hub/internal/domain"
)

// RosterStore is an in-memory implementation of app.RosterRepository.
type RosterStore struct {
	mu    sync.RWMutex
	parts map[string]*partRoster
}

type partRoster struct {
	seq     int
	members map[string]*member
}

type member struct {
	pubID       string
	seq         int
	participant domain.Participant
}

func NewRosterStore() *RosterStore {
	return &RosterStore{
		parts: make(map[string]*partRoster),
	}
}

func (s *RosterStore) Join(_ context.Context, quizID string, part int, pubID string, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.TaskSetKey(quizID, part)
	pr, ok := s.parts[key]
	if !ok {
		pr = &partRoster{members: make(map[string]*member)}
		s.parts[key] = pr
	}
	if existing, ok := pr.members[p.UID]; ok {
		// Sheet numbers are per pub, so a move starts without a sheet.
		if existing.pubID != pubID {
			existing.participant.Sheet = nil
		}
		existing.pubID = pubID
		existing.participant.Username = p.Username
		existing.participant.CanMark = p.CanMark
		return nil
	}
	pr.seq++
	p.Sheet = nil
	pr.members[p.UID] = &member{pubID: pubID, seq: pr.seq, participant: p}
	return nil
}

func (s *RosterStore) Leave(_ context.Context, quizID string, part int, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.TaskSetKey(quizID, part)
	pr, ok := s.parts[key]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if _, ok := pr.members[uid]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(pr.members, uid)
	if len(pr.members) == 0 {
		delete(s.parts, key)
	}
	return nil
}

func (s *RosterStore) SubmitSheet(_ context.Context, quizID string, part int, uid, answerDocID string) (domain.AnswerSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pr, ok := s.parts[domain.TaskSetKey(quizID, part)]
	if !ok {
		return domain.AnswerSheet{}, domain.ErrParticipantNotFound
	}
	m, ok := pr.members[uid]
	if !ok {
		return domain.AnswerSheet{}, domain.ErrParticipantNotFound
	}
	if m.participant.Sheet != nil {
		return *m.participant.Sheet, nil
	}

	next := 1
	for _, other := range pr.members {
		if other.pubID == m.pubID && other.participant.Sheet != nil && other.participant.Sheet.SheetNumber >= next {
			next = other.participant.Sheet.SheetNumber + 1
		}
	}
	sheet := domain.AnswerSheet{AnswerDocID: answerDocID, SheetNumber: next}
	m.participant.Sheet = &sheet
	return sheet, nil
}

func (s *RosterStore) Rosters(_ context.Context, quizID string, part int) ([]domain.PubRoster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pr, ok := s.parts[domain.TaskSetKey(quizID, part)]
	if !ok {
		return nil, nil
	}
	members := make([]*member, 0, len(pr.members))
	for _, m := range pr.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].pubID != members[j].pubID {
			return members[i].pubID < members[j].pubID
		}
		return members[i].seq < members[j].seq
	})

	var rosters []domain.PubRoster
	for _, m := range members {
		if len(rosters) == 0 || rosters[len(rosters)-1].PubID != m.pubID {
			rosters = append(rosters, domain.PubRoster{PubID: m.pubID})
		}
		p := m.participant
		if p.Sheet != nil {
			sheet := *p.Sheet
			p.Sheet = &sheet
		}
		last := &rosters[len(rosters)-1]
		last.Participants = append(last.Participants, p)
	}
	return rosters, nil
}
