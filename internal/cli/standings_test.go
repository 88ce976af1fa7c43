package cli

import (
	"context"
	"testing"
	"time"

	"pubquiz-hub/internal/config"
	"pubquiz-hub/internal/domain"
)

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("2024-01-01", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !w.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !w.To.IsZero() {
		t.Fatalf("unexpected window %+v", w)
	}
	if _, err := parseWindow("", "01/02/2024"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestBuildServicesInMemory(t *testing.T) {
	ctx := context.Background()
	var cfg config.Config
	cfg.Marking.MaxRetries = 3
	cfg.Leaderboard.FetchConcurrency = 2

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer svc.close()

	standings, err := svc.leaderboard.Standings(ctx, domain.Window{}, 2)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 3 || standings[0].Username != "Cara" || standings[1].Username != "Alice" {
		t.Fatalf("expected sample population led by Cara then Alice, got %+v", standings)
	}
}
