package domain

import (
	"strconv"
	"time"
)

// ScoreRecord is one user's result for one quiz date. Written once by the
// quiz-completion workflow and read-only afterwards.
type ScoreRecord struct {
	UserID     string    `json:"userId"`
	QuizDate   time.Time `json:"quizDate"`
	Score      float64   `json:"score"`
	Tiebreaker float64   `json:"tiebreaker"`
}

// AggregatedStanding is a user's averaged summary across the records folded in.
type AggregatedStanding struct {
	UserID            string  `json:"userId"`
	Username          string  `json:"username"`
	AverageScore      float64 `json:"averageScore"`
	AverageTiebreaker float64 `json:"averageTiebreaker"`
	QuizzesPlayed     int     `json:"quizzesPlayed"`
}

// Window restricts a leaderboard population to quiz dates in [From, To].
// A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// AnswerSheet identifies the sheet a participant submitted for a part.
type AnswerSheet struct {
	AnswerDocID string `json:"answerDocId"`
	SheetNumber int    `json:"sheetNumber"`
}

// Participant is a member of a pub for one quiz part.
type Participant struct {
	UID      string       `json:"uid"`
	Username string       `json:"username"`
	CanMark  bool         `json:"canMark"`
	Sheet    *AnswerSheet `json:"sheet,omitempty"`
}

// PubRoster lists a pub's participants in join order.
type PubRoster struct {
	PubID        string        `json:"pubId"`
	Participants []Participant `json:"participants"`
}

// TaskEntry is the stored body of a single marker's assignment.
type TaskEntry struct {
	AnswerDocID    string `json:"answerDocId"`
	TargetUID      string `json:"targetUid"`
	TargetUsername string `json:"targetUsername"`
	SheetNumber    int    `json:"sheetNumber"`
}

// PubTasks maps marker uid to task. Unmarked lists targets no marker could take.
type PubTasks struct {
	Assignments map[string]TaskEntry `json:"assignments"`
	Unmarked    []string             `json:"unmarked,omitempty"`
}

// MarkingTaskSet is the whole assignment document for one (quiz, part).
type MarkingTaskSet struct {
	QuizID    string              `json:"quizId"`
	Part      int                 `json:"part"`
	Version   int64               `json:"version"`
	Pubs      map[string]PubTasks `json:"pubs"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Key returns the document key of the set.
func (s MarkingTaskSet) Key() string {
	return TaskSetKey(s.QuizID, s.Part)
}

// Assignment expands the stored entry for (pubID, markerUID).
func (s MarkingTaskSet) Assignment(pubID, markerUID string) (MarkingTaskAssignment, bool) {
	pub, ok := s.Pubs[pubID]
	if !ok {
		return MarkingTaskAssignment{}, false
	}
	entry, ok := pub.Assignments[markerUID]
	if !ok {
		return MarkingTaskAssignment{}, false
	}
	return MarkingTaskAssignment{
		QuizID:         s.QuizID,
		Part:           s.Part,
		PubID:          pubID,
		MarkerUID:      markerUID,
		AnswerDocID:    entry.AnswerDocID,
		TargetUID:      entry.TargetUID,
		TargetUsername: entry.TargetUsername,
		SheetNumber:    entry.SheetNumber,
	}, true
}

// TaskSetKey builds the "{quizId}_part{part}" document key.
func TaskSetKey(quizID string, part int) string {
	return quizID + "_part" + strconv.Itoa(part)
}

// MarkingTaskAssignment tells MarkerUID which sheet to mark.
type MarkingTaskAssignment struct {
	QuizID         string `json:"quizId"`
	Part           int    `json:"part"`
	PubID          string `json:"pubId"`
	MarkerUID      string `json:"markerUid"`
	AnswerDocID    string `json:"answerDocId"`
	TargetUID      string `json:"targetUid"`
	TargetUsername string `json:"targetUsername"`
	SheetNumber    int    `json:"sheetNumber"`
}

// DocumentChange is emitted by assignment stores on subscribe and on every replacement.
type DocumentChange struct {
	Set   MarkingTaskSet
	Found bool
}

// TaskNotification is delivered to one marker. Assigned=false means "no task".
type TaskNotification struct {
	QuizID    string                 `json:"quizId"`
	Part      int                    `json:"part"`
	PubID     string                 `json:"pubId"`
	MarkerUID string                 `json:"markerUid"`
	Assigned  bool                   `json:"assigned"`
	Task      *MarkingTaskAssignment `json:"task,omitempty"`
	Version   int64                  `json:"version"`
}
