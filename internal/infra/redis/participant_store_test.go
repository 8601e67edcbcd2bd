package redis

import (
	"testing"
	"time"

	"gauntlet-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestParticipantStoreMarksLiveness(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewParticipantStore(newClient(mr), time.Hour, "1.1")

	account := store.GetOrCreate(domain.Identity{ID: "u1", DisplayName: "Alice"})
	if account.ID() != "u1" {
		t.Fatalf("unexpected account %q", account.ID())
	}
	if p := account.Snapshot(); p.CurrentLevel != "1.1" {
		t.Fatalf("expected first level, got %+v", p)
	}

	if !mr.Exists("gauntlet:participant:u1") {
		t.Fatalf("expected liveness key in redis")
	}

	again := store.GetOrCreate(domain.Identity{ID: "u1", DisplayName: "Alice"})
	if again != account {
		t.Fatalf("expected the same account on re-access")
	}

	if _, ok := store.Get("ghost"); ok {
		t.Fatalf("get must not create accounts")
	}
	if len(store.List()) != 1 {
		t.Fatalf("expected one account, got %d", len(store.List()))
	}
}
