package app_test

import (
	"errors"
	"reflect"
	"testing"

	"pubquiz-hub/internal/app"
	"pubquiz-hub/internal/domain"
)

func TestAssignPubCyclicShift(t *testing.T) {
	roster := pub("pub-a", full("p1", 1), full("p2", 2), full("p3", 3))

	tasks, err := app.AssignPub(roster)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	want := map[string]string{"p1": "p2", "p2": "p3", "p3": "p1"}
	for marker, target := range want {
		if got := tasks.Assignments[marker].TargetUID; got != target {
			t.Fatalf("expected %s to mark %s, got %q", marker, target, got)
		}
	}
	if tasks.Assignments["p1"].SheetNumber != 2 || tasks.Assignments["p1"].AnswerDocID != "doc-p2" {
		t.Fatalf("expected sheet details of p2, got %+v", tasks.Assignments["p1"])
	}
	if len(tasks.Unmarked) != 0 {
		t.Fatalf("expected full coverage, unmarked %v", tasks.Unmarked)
	}
}

func TestAssignPubSingleParticipant(t *testing.T) {
	_, err := app.AssignPub(pub("pub-a", full("p1", 1)))
	if !errors.Is(err, domain.ErrInsufficientParticipants) {
		t.Fatalf("expected insufficient participants, got %v", err)
	}
	var detail *domain.InsufficientParticipantsError
	if !errors.As(err, &detail) || detail.PubID != "pub-a" || detail.Eligible != 1 {
		t.Fatalf("expected pub detail, got %#v", err)
	}
}

func TestAssignPubInvariants(t *testing.T) {
	tests := []struct {
		name         string
		roster       domain.PubRoster
		wantUnmarked int
	}{
		{"pair", pub("p", full("a", 1), full("b", 2)), 0},
		{"even", pub("p", full("a", 1), full("b", 2), full("c", 3), full("d", 4)), 0},
		{"marker without sheet", pub("p", full("a", 1), markerOnly("b"), full("c", 2)), 0},
		{"late sheet missing", pub("p", full("a", 1), full("b", 2), markerOnly("c")), 0},
		{"sheet without marker", pub("p", full("a", 1), full("b", 2), markerOnly("c"), sheetOnly("d", 3)), 0},
		{"more sheets than markers", pub("p", full("a", 1), full("b", 2), sheetOnly("c", 3), sheetOnly("d", 4)), 2},
		{"two markers marking each other only", pub("p", markerOnly("a"), markerOnly("b"), sheetOnly("c", 1), sheetOnly("d", 2), sheetOnly("e", 3)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := app.AssignPub(tt.roster)
			if err != nil {
				t.Fatalf("assign: %v", err)
			}

			sheets := map[string]bool{}
			markers := map[string]bool{}
			for _, p := range tt.roster.Participants {
				if p.Sheet != nil {
					sheets[p.UID] = true
				}
				if p.CanMark {
					markers[p.UID] = true
				}
			}

			targeted := map[string]int{}
			for marker, entry := range tasks.Assignments {
				if marker == entry.TargetUID {
					t.Fatalf("self-marking for %s", marker)
				}
				if !markers[marker] {
					t.Fatalf("%s cannot mark but was assigned", marker)
				}
				if !sheets[entry.TargetUID] {
					t.Fatalf("%s has no sheet but was targeted", entry.TargetUID)
				}
				targeted[entry.TargetUID]++
			}
			for uid, n := range targeted {
				if n != 1 {
					t.Fatalf("sheet of %s assigned %d times", uid, n)
				}
			}
			for _, uid := range tasks.Unmarked {
				if targeted[uid] != 0 {
					t.Fatalf("%s listed unmarked but assigned", uid)
				}
				targeted[uid]++
			}
			if len(targeted) != len(sheets) {
				t.Fatalf("expected every sheet assigned or listed unmarked, got %d of %d", len(targeted), len(sheets))
			}
			if len(tasks.Unmarked) != tt.wantUnmarked {
				t.Fatalf("expected %d unmarked, got %v", tt.wantUnmarked, tasks.Unmarked)
			}
		})
	}
}

func TestAssignPubDeterministic(t *testing.T) {
	roster := pub("p", full("a", 1), markerOnly("b"), sheetOnly("c", 2), full("d", 3), full("e", 4))
	first, err := app.AssignPub(roster)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := app.AssignPub(roster)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestBuildTaskSetFailsWholeSet(t *testing.T) {
	rosters := []domain.PubRoster{
		pub("pub-a", full("a", 1), full("b", 2)),
		pub("pub-b", full("c", 1)),
	}
	if _, err := app.BuildTaskSet("quiz-1", 1, rosters); !errors.Is(err, domain.ErrInsufficientParticipants) {
		t.Fatalf("expected insufficient participants, got %v", err)
	}
	if _, err := app.BuildTaskSet("quiz-1", 0, nil); !errors.Is(err, domain.ErrInvalidPart) {
		t.Fatalf("expected invalid part, got %v", err)
	}

	set, err := app.BuildTaskSet("quiz-1", 2, rosters[:1])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.Key() != "quiz-1_part2" || len(set.Pubs["pub-a"].Assignments) != 2 {
		t.Fatalf("unexpected set %+v", set)
	}
}

func TestBuildTaskSetSkipsFillingPubs(t *testing.T) {
	rosters := []domain.PubRoster{
		pub("pub-a", full("a", 1), full("b", 2)),
		pub("pub-b", markerOnly("c")),
		pub("pub-c"),
	}
	set, err := app.BuildTaskSet("quiz-1", 1, rosters)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := set.Pubs["pub-b"]; ok {
		t.Fatalf("expected lone pub without sheets to be left out, got %+v", set.Pubs["pub-b"])
	}
	if task, ok := set.Assignment("pub-a", "b"); !ok || task.TargetUID != "a" {
		t.Fatalf("expected b to mark a, got %+v", task)
	}

	rosters[1] = pub("pub-b", full("c", 1))
	if _, err := app.BuildTaskSet("quiz-1", 1, rosters); !errors.Is(err, domain.ErrInsufficientParticipants) {
		t.Fatalf("expected lone pub holding a sheet to fail, got %v", err)
	}
}

func pub(id string, participants ...domain.Participant) domain.PubRoster {
	return domain.PubRoster{PubID: id, Participants: participants}
}

func full(uid string, sheet int) domain.Participant {
	p := sheetOnly(uid, sheet)
	p.CanMark = true
	return p
}

func markerOnly(uid string) domain.Participant {
	return domain.Participant{UID: uid, Username: uid, CanMark: true}
}

func sheetOnly(uid string, sheet int) domain.Participant {
	return domain.Participant{
		UID:      uid,
		Username: uid,
		Sheet:    &domain.AnswerSheet{AnswerDocID: "doc-" + uid, SheetNumber: sheet},
	}
}
