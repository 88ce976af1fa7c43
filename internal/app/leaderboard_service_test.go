package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pubquiz-hub/internal/app"
	"pubquiz-hub/internal/domain"
	"pubquiz-hub/internal/infra/memory"
)

func TestStandingsRankAndFilter(t *testing.T) {
	ctx := context.Background()
	service := app.NewLeaderboardService(newScoreStore(), 2)

	standings, err := service.Standings(ctx, domain.Window{}, 1)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("expected 3 standings, got %+v", standings)
	}
	if standings[0].UserID != "b" || standings[0].Username != "Bob" || standings[1].UserID != "a" {
		t.Fatalf("expected Bob then Alice, got %+v", standings)
	}
	if standings[2].Username != "c" {
		t.Fatalf("expected profile-less user to fall back to uid, got %+v", standings[2])
	}

	filtered, err := service.Standings(ctx, domain.Window{}, 2)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(filtered) != 1 || filtered[0].UserID != "a" {
		t.Fatalf("expected only a to meet the threshold, got %+v", filtered)
	}

	rank, err := service.Rank(ctx, domain.Window{}, 1, "a")
	if err != nil || rank != 2 {
		t.Fatalf("expected rank 2, got %d (%v)", rank, err)
	}
	if _, err := service.Rank(ctx, domain.Window{}, 2, "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found below threshold, got %v", err)
	}
}

func TestStandingsWindow(t *testing.T) {
	service := app.NewLeaderboardService(newScoreStore(), 0)

	standings, err := service.Standings(context.Background(), domain.Window{From: day(2)}, 1)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 1 || standings[0].UserID != "a" || standings[0].AverageScore != 90 {
		t.Fatalf("expected only a's second quiz, got %+v", standings)
	}
}

func TestUserStanding(t *testing.T) {
	ctx := context.Background()
	scores := newScoreStore()
	scores.PutProfile("d", "Dee")
	service := app.NewLeaderboardService(scores, 0)

	st, err := service.UserStanding(ctx, "a")
	if err != nil {
		t.Fatalf("user standing: %v", err)
	}
	if st.Username != "Alice" || st.AverageScore != 85 || st.AverageTiebreaker != 4 || st.QuizzesPlayed != 2 {
		t.Fatalf("unexpected standing %+v", st)
	}

	if _, err := service.UserStanding(ctx, "d"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for user without scores, got %v", err)
	}
	if _, err := service.UserStanding(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing profile, got %v", err)
	}
}

func newScoreStore() *memory.ScoreStore {
	store := memory.NewScoreStore()
	store.PutProfile("a", "Alice")
	store.PutProfile("b", "Bob")
	store.AddScore(domain.ScoreRecord{UserID: "a", QuizDate: day(1), Score: 80, Tiebreaker: 5})
	store.AddScore(domain.ScoreRecord{UserID: "a", QuizDate: day(2), Score: 90, Tiebreaker: 3})
	store.AddScore(domain.ScoreRecord{UserID: "b", QuizDate: day(1), Score: 85, Tiebreaker: 1})
	store.AddScore(domain.ScoreRecord{UserID: "c", QuizDate: day(1), Score: 10, Tiebreaker: 1})
	return store
}

func day(n int) time.Time {
	return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC)
}
