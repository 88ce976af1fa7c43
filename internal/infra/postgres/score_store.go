package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"pubquiz-hub/internal/domain"
)

// ScoreStore reads profiles and quiz scores from Postgres.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) GetScoresForUser(ctx context.Context, uid string) ([]domain.ScoreRecord, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE uid=$1)`, uid).Scan(&exists); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx, `SELECT uid, quiz_date, score, tiebreaker FROM scores WHERE uid=$1 ORDER BY quiz_date`, uid)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	return scanScores(rows)
}

func (s *ScoreStore) GetUsername(ctx context.Context, uid string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT username FROM profiles WHERE uid=$1`, uid).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("profile %s: %w", uid, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load username: %w", err)
	}
	return name, nil
}

func (s *ScoreStore) ScoresInWindow(ctx context.Context, w domain.Window) ([]domain.ScoreRecord, error) {
	var from, to *time.Time
	if !w.From.IsZero() {
		from = &w.From
	}
	if !w.To.IsZero() {
		to = &w.To
	}
	rows, err := s.pool.Query(ctx, `
		SELECT uid, quiz_date, score, tiebreaker FROM scores
		WHERE ($1::timestamptz IS NULL OR quiz_date >= $1::timestamptz)
		  AND ($2::timestamptz IS NULL OR quiz_date <= $2::timestamptz)
		ORDER BY uid, quiz_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	return scanScores(rows)
}

func scanScores(rows pgx.Rows) ([]domain.ScoreRecord, error) {
	defer rows.Close()
	records := []domain.ScoreRecord{}
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.UserID, &rec.QuizDate, &rec.Score, &rec.Tiebreaker); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return records, nil
}
