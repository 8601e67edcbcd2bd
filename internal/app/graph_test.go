package app_test

import (
	"testing"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
)

func testGraph() *app.LevelGraph {
	return app.NewLevelGraph(
		[]string{"1.1", "1.2", "1.3", "1.4", "2.1", "2.2", "3.1", "3.2"},
		map[string]string{"1.4": "/chapters/1/complete", "3.2": "/chapters/3/complete"},
	)
}

func TestSuccessorAndTerminal(t *testing.T) {
	g := testGraph()

	if got := g.Successor("1.4"); got != "2.1" {
		t.Fatalf("expected 2.1 after 1.4, got %q", got)
	}
	if got := g.Successor("3.2"); got != app.TerminalMarker {
		t.Fatalf("expected terminal marker after last level, got %q", got)
	}
	if got := g.Successor("9.9"); got != "" {
		t.Fatalf("expected empty successor for unknown level, got %q", got)
	}
}

func TestAccessibility(t *testing.T) {
	g := testGraph()
	p := domain.Participant{CurrentLevel: "1.3", CompletedLevels: []string{"1.1", "1.2"}}

	ok, err := g.IsAccessible(p, "1.3")
	if err != nil || !ok {
		t.Fatalf("current level should be accessible, got ok=%v err=%v", ok, err)
	}
	ok, err = g.IsAccessible(p, "1.1")
	if err != nil || !ok {
		t.Fatalf("completed level should stay accessible, got ok=%v err=%v", ok, err)
	}
	ok, err = g.IsAccessible(p, "2.1")
	if err != nil || ok {
		t.Fatalf("future level must not be accessible, got ok=%v err=%v", ok, err)
	}
	if _, err := g.IsAccessible(p, "bogus"); err != domain.ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestAdvanceIsIdempotent(t *testing.T) {
	g := testGraph()
	p := domain.Participant{CurrentLevel: "1.1"}

	if err := g.Advance(&p, "1.1"); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if p.CurrentLevel != "1.2" || len(p.CompletedLevels) != 1 {
		t.Fatalf("expected pointer on 1.2 with one completion, got %+v", p)
	}

	if err := g.Advance(&p, "1.1"); err != nil {
		t.Fatalf("re-advance failed: %v", err)
	}
	if p.CurrentLevel != "1.2" || len(p.CompletedLevels) != 1 {
		t.Fatalf("re-advancing a completed level must not change state, got %+v", p)
	}

	if err := g.Advance(&p, "bogus"); err != domain.ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestAdvanceThroughAllLevels(t *testing.T) {
	g := testGraph()
	p := domain.Participant{CurrentLevel: g.First()}

	for _, level := range g.Levels() {
		if err := g.Advance(&p, level); err != nil {
			t.Fatalf("advance %s failed: %v", level, err)
		}
	}
	if len(p.CompletedLevels) != g.Size() {
		t.Fatalf("expected %d completions, got %d", g.Size(), len(p.CompletedLevels))
	}
	// Pointer stays on the last node once everything is complete.
	if p.CurrentLevel != "3.2" {
		t.Fatalf("expected pointer to stay on 3.2, got %q", p.CurrentLevel)
	}
	if page := g.CompletionPage("3.2"); page != "/chapters/3/complete" {
		t.Fatalf("expected completion page, got %q", page)
	}
}
