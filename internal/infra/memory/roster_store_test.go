package memory

import (
	"context"
	"testing"

	"pubquiz-hub/internal/domain"
)

func TestRosterStoreOrdersByPubThenJoin(t *testing.T) {
	ctx := context.Background()
	store := NewRosterStore()

	join := func(pub, uid string) {
		t.Helper()
		if err := store.Join(ctx, "quiz-1", 1, pub, domain.Participant{UID: uid, Username: uid, CanMark: true}); err != nil {
			t.Fatalf("join %s: %v", uid, err)
		}
	}
	join("pub-b", "u3")
	join("pub-a", "u2")
	join("pub-a", "u1")

	rosters, err := store.Rosters(ctx, "quiz-1", 1)
	if err != nil {
		t.Fatalf("rosters: %v", err)
	}
	if len(rosters) != 2 || rosters[0].PubID != "pub-a" || rosters[1].PubID != "pub-b" {
		t.Fatalf("unexpected pubs: %+v", rosters)
	}
	if got := rosters[0].Participants; got[0].UID != "u2" || got[1].UID != "u1" {
		t.Fatalf("expected join order u2,u1, got %+v", got)
	}
}

func TestRosterStoreSheetNumbersPerPub(t *testing.T) {
	ctx := context.Background()
	store := NewRosterStore()
	for _, uid := range []string{"u1", "u2"} {
		_ = store.Join(ctx, "quiz-1", 1, "pub-a", domain.Participant{UID: uid, CanMark: true})
	}
	_ = store.Join(ctx, "quiz-1", 1, "pub-b", domain.Participant{UID: "u3", CanMark: true})

	first, err := store.SubmitSheet(ctx, "quiz-1", 1, "u2", "doc-2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, _ := store.SubmitSheet(ctx, "quiz-1", 1, "u1", "doc-1")
	other, _ := store.SubmitSheet(ctx, "quiz-1", 1, "u3", "doc-3")
	if first.SheetNumber != 1 || second.SheetNumber != 2 || other.SheetNumber != 1 {
		t.Fatalf("unexpected sheet numbers %d %d %d", first.SheetNumber, second.SheetNumber, other.SheetNumber)
	}

	again, _ := store.SubmitSheet(ctx, "quiz-1", 1, "u2", "doc-ignored")
	if again != first {
		t.Fatalf("expected resubmission to keep %+v, got %+v", first, again)
	}
}

func TestRosterStoreMoveDropsSheet(t *testing.T) {
	ctx := context.Background()
	store := NewRosterStore()
	_ = store.Join(ctx, "quiz-1", 1, "pub-a", domain.Participant{UID: "u1", CanMark: true})
	_ = store.Join(ctx, "quiz-1", 1, "pub-b", domain.Participant{UID: "u2", CanMark: true})
	_, _ = store.SubmitSheet(ctx, "quiz-1", 1, "u1", "doc-1")
	_, _ = store.SubmitSheet(ctx, "quiz-1", 1, "u2", "doc-2")

	// Same pub keeps the sheet.
	_ = store.Join(ctx, "quiz-1", 1, "pub-a", domain.Participant{UID: "u1", Username: "Alice", CanMark: true})
	rosters, _ := store.Rosters(ctx, "quiz-1", 1)
	if got := rosters[0].Participants[0]; got.Sheet == nil || got.Sheet.SheetNumber != 1 {
		t.Fatalf("expected sheet kept on re-join, got %+v", got)
	}

	if err := store.Join(ctx, "quiz-1", 1, "pub-b", domain.Participant{UID: "u1", CanMark: true}); err != nil {
		t.Fatalf("move: %v", err)
	}
	rosters, _ = store.Rosters(ctx, "quiz-1", 1)
	if len(rosters) != 1 || rosters[0].PubID != "pub-b" {
		t.Fatalf("expected only pub-b, got %+v", rosters)
	}
	for _, p := range rosters[0].Participants {
		if p.UID == "u1" && p.Sheet != nil {
			t.Fatalf("expected moved participant without sheet, got %+v", p.Sheet)
		}
	}

	moved, err := store.SubmitSheet(ctx, "quiz-1", 1, "u1", "doc-1b")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if moved.SheetNumber != 2 || moved.AnswerDocID != "doc-1b" {
		t.Fatalf("expected a fresh pub-b sheet 2, got %+v", moved)
	}
}

func TestRosterStoreUnknownParticipant(t *testing.T) {
	ctx := context.Background()
	store := NewRosterStore()

	if _, err := store.SubmitSheet(ctx, "quiz-1", 1, "ghost", "doc"); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant error, got %v", err)
	}
	if err := store.Leave(ctx, "quiz-1", 1, "ghost"); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant error, got %v", err)
	}
}
