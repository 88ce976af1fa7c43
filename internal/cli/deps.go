package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"pubquiz-hub/internal/app"
	"pubquiz-hub/internal/config"
	"pubquiz-hub/internal/domain"
	"pubquiz-hub/internal/infra/memory"
	"pubquiz-hub/internal/infra/postgres"
	infraredis "pubquiz-hub/internal/infra/redis"
)

// services bundles the use cases built from config plus their teardown.
type services struct {
	leaderboard *app.LeaderboardService
	marking     *app.MarkingService
	close       func()
}

// buildServices picks Postgres/Redis adapters when configured and falls back
// to in-memory ones otherwise.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	var closers []func()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)
	}

	var scores app.ScoreStore
	var rosters app.RosterRepository
	if pool != nil {
		scores = postgres.NewScoreStore(pool)
		rosters = postgres.NewRosterStore(pool)
	} else {
		log.Printf("postgres not configured, using in-memory scores and rosters")
		scores = sampleScores()
		rosters = memory.NewRosterStore()
	}

	profileTTL := config.TTLDuration(cfg.Profiles.TTL, 10*time.Minute)
	var assignments app.AssignmentStore
	if redisClient != nil {
		scores = infraredis.NewProfileCache(redisClient, scores, profileTTL)
		assignments = infraredis.NewAssignmentStore(redisClient, cfg.MarkingTTL(), cfg.Marking.SubscriberBuffer)
	} else {
		log.Printf("redis not configured, marking task sets are process-local")
		scores = memory.NewProfileCache(scores, profileTTL)
		assignments = memory.NewAssignmentStore(cfg.Marking.SubscriberBuffer)
	}

	return &services{
		leaderboard: app.NewLeaderboardService(scores, cfg.Leaderboard.FetchConcurrency),
		marking:     app.NewMarkingService(assignments, rosters, cfg.Marking.MaxRetries, cfg.Marking.SubscriberBuffer),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// sampleScores provides a small demo population; Postgres replaces it in production.
func sampleScores() *memory.ScoreStore {
	store := memory.NewScoreStore()
	store.PutProfile("u1", "Alice")
	store.PutProfile("u2", "Bob")
	store.PutProfile("u3", "Cara")
	base := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	for week, results := range [][3]float64{{42, 38, 45}, {40, 44, 41}} {
		date := base.AddDate(0, 0, 7*week)
		for i, uid := range []string{"u1", "u2", "u3"} {
			store.AddScore(domain.ScoreRecord{UserID: uid, QuizDate: date, Score: results[i], Tiebreaker: float64(i + week)})
		}
	}
	return store
}
