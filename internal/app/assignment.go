package app

import (
	"fmt"

	"pubquiz-hub/internal/domain"
)

// AssignPub pairs the pub's markers with its submitted sheets.
//
// Each target prefers the marker closest before it in cyclic pub order, so a pub
// where everyone submitted and can mark gets p[i] marking p[i+1]. Pairs are chosen
// by augmenting paths, which covers every sheet whenever there are at least as many
// markers as sheets. Sheets that cannot be covered are listed in Unmarked. The
// result depends only on the roster order.
func AssignPub(roster domain.PubRoster) (domain.PubTasks, error) {
	people := roster.Participants
	n := len(people)
	tasks := domain.PubTasks{Assignments: make(map[string]domain.TaskEntry)}
	if n == 0 {
		return tasks, nil
	}

	markers := 0
	for _, p := range people {
		if p.CanMark {
			markers++
		}
	}
	if markers < 2 {
		return domain.PubTasks{}, &domain.InsufficientParticipantsError{PubID: roster.PubID, Eligible: markers}
	}

	// markedBy[m] is the index of the target marker m was given, or -1.
	markedBy := make([]int, n)
	for i := range markedBy {
		markedBy[i] = -1
	}

	var augment func(target int, visited []bool) bool
	augment = func(target int, visited []bool) bool {
		for k := 1; k < n; k++ {
			m := (target - k + n) % n
			if !people[m].CanMark || visited[m] {
				continue
			}
			visited[m] = true
			if markedBy[m] == -1 || augment(markedBy[m], visited) {
				markedBy[m] = target
				return true
			}
		}
		return false
	}

	covered := make([]bool, n)
	for t, p := range people {
		if p.Sheet == nil {
			continue
		}
		if augment(t, make([]bool, n)) {
			covered[t] = true
		}
	}

	for m, t := range markedBy {
		if t == -1 {
			continue
		}
		target := people[t]
		tasks.Assignments[people[m].UID] = domain.TaskEntry{
			AnswerDocID:    target.Sheet.AnswerDocID,
			TargetUID:      target.UID,
			TargetUsername: target.Username,
			SheetNumber:    target.Sheet.SheetNumber,
		}
	}
	for t, p := range people {
		if p.Sheet != nil && !covered[t] {
			tasks.Unmarked = append(tasks.Unmarked, p.UID)
		}
	}
	return tasks, nil
}

// BuildTaskSet computes the full set for (quizID, part). A pub that holds no
// sheets and fewer than two markers is still filling and gets no entry. Any other
// failing pub fails the whole set so callers never publish a partial mapping.
func BuildTaskSet(quizID string, part int, rosters []domain.PubRoster) (domain.MarkingTaskSet, error) {
	if part < 1 {
		return domain.MarkingTaskSet{}, fmt.Errorf("part %d: %w", part, domain.ErrInvalidPart)
	}
	set := domain.MarkingTaskSet{
		QuizID: quizID,
		Part:   part,
		Pubs:   make(map[string]domain.PubTasks, len(rosters)),
	}
	for _, roster := range rosters {
		if filling(roster) {
			continue
		}
		tasks, err := AssignPub(roster)
		if err != nil {
			return domain.MarkingTaskSet{}, fmt.Errorf("assign %s: %w", set.Key(), err)
		}
		set.Pubs[roster.PubID] = tasks
	}
	return set, nil
}

func filling(roster domain.PubRoster) bool {
	markers := 0
	for _, p := range roster.Participants {
		if p.Sheet != nil {
			return false
		}
		if p.CanMark {
			markers++
		}
	}
	return markers < 2
}
