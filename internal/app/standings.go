package app

import (
	"fmt"
	"sort"

	"pubquiz-hub/internal/domain"
)

// Aggregate folds score records into one standing per distinct user, in order of
// each user's first record. Usernames are left empty for the caller to fill.
func Aggregate(records []domain.ScoreRecord) []domain.AggregatedStanding {
	type totals struct {
		score      float64
		tiebreaker float64
		played     int
	}

	order := make([]string, 0)
	byUser := make(map[string]*totals)
	for _, rec := range records {
		t, ok := byUser[rec.UserID]
		if !ok {
			t = &totals{}
			byUser[rec.UserID] = t
			order = append(order, rec.UserID)
		}
		t.score += rec.Score
		t.tiebreaker += rec.Tiebreaker
		t.played++
	}

	standings := make([]domain.AggregatedStanding, 0, len(order))
	for _, userID := range order {
		t := byUser[userID]
		standings = append(standings, domain.AggregatedStanding{
			UserID:            userID,
			AverageScore:      t.score / float64(t.played),
			AverageTiebreaker: t.tiebreaker / float64(t.played),
			QuizzesPlayed:     t.played,
		})
	}
	return standings
}

// RanksAbove reports whether a is ordered before b: higher average score first,
// then lower average tiebreaker.
func RanksAbove(a, b domain.AggregatedStanding) bool {
	if a.AverageScore != b.AverageScore {
		return a.AverageScore > b.AverageScore
	}
	return a.AverageTiebreaker < b.AverageTiebreaker
}

// SortStandings orders standings in place. Entries equal on both keys keep their
// relative input order.
func SortStandings(standings []domain.AggregatedStanding) {
	sort.SliceStable(standings, func(i, j int) bool {
		return RanksAbove(standings[i], standings[j])
	})
}

// FindRank returns the 1-based position of userID in an already sorted leaderboard.
func FindRank(ordered []domain.AggregatedStanding, userID string) (int, error) {
	for i := range ordered {
		if ordered[i].UserID == userID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("rank for %q: %w", userID, domain.ErrNotFound)
}
