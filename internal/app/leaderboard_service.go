package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"pubquiz-hub/internal/domain"
)

// ScoreStore reads historical scores and profile names from the document store.
type ScoreStore interface {
	// GetScoresForUser fails with domain.ErrNotFound when the user has no profile.
	GetScoresForUser(ctx context.Context, uid string) ([]domain.ScoreRecord, error)
	// GetUsername fails with domain.ErrNotFound when the user has no profile.
	GetUsername(ctx context.Context, uid string) (string, error)
	// ScoresInWindow returns every user's records whose quiz date falls in w.
	ScoresInWindow(ctx context.Context, w domain.Window) ([]domain.ScoreRecord, error)
}

// LeaderboardService builds ranked standings on demand. Nothing is cached between
// calls since new scores can land at any time.
type LeaderboardService struct {
	scores      ScoreStore
	concurrency int
}

func NewLeaderboardService(scores ScoreStore, concurrency int) *LeaderboardService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &LeaderboardService{scores: scores, concurrency: concurrency}
}

// Standings returns the ordered leaderboard for all users with at least
// minQuizzes records inside the window.
func (s *LeaderboardService) Standings(ctx context.Context, w domain.Window, minQuizzes int) ([]domain.AggregatedStanding, error) {
	records, err := s.scores.ScoresInWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	aggregated := Aggregate(records)
	standings := aggregated[:0]
	for _, st := range aggregated {
		if st.QuizzesPlayed >= minQuizzes {
			standings = append(standings, st)
		}
	}

	if err := s.attachUsernames(ctx, standings); err != nil {
		return nil, err
	}
	SortStandings(standings)
	return standings, nil
}

// UserStanding aggregates one user's full history.
func (s *LeaderboardService) UserStanding(ctx context.Context, uid string) (domain.AggregatedStanding, error) {
	records, err := s.scores.GetScoresForUser(ctx, uid)
	if err != nil {
		return domain.AggregatedStanding{}, fmt.Errorf("scores for %q: %w", uid, err)
	}
	standings := Aggregate(records)
	if len(standings) == 0 {
		return domain.AggregatedStanding{}, fmt.Errorf("standing for %q: %w", uid, domain.ErrNotFound)
	}
	if err := s.attachUsernames(ctx, standings); err != nil {
		return domain.AggregatedStanding{}, err
	}
	return standings[0], nil
}

// Rank returns the user's 1-based position on the windowed leaderboard.
func (s *LeaderboardService) Rank(ctx context.Context, w domain.Window, minQuizzes int, uid string) (int, error) {
	standings, err := s.Standings(ctx, w, minQuizzes)
	if err != nil {
		return 0, err
	}
	return FindRank(standings, uid)
}

func (s *LeaderboardService) attachUsernames(ctx context.Context, standings []domain.AggregatedStanding) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range standings {
		i := i
		g.Go(func() error {
			name, err := s.scores.GetUsername(gctx, standings[i].UserID)
			if errors.Is(err, domain.ErrNotFound) {
				// Scores without a profile still rank; the name falls back to the uid.
				log.Printf("no profile for scored user %s", standings[i].UserID)
				standings[i].Username = standings[i].UserID
				return nil
			}
			if err != nil {
				return fmt.Errorf("username for %q: %w", standings[i].UserID, err)
			}
			standings[i].Username = name
			return nil
		})
	}
	return g.Wait()
}
