package memory

import (
	"context"
	"testing"
	"time"

	"gauntlet-service/internal/domain"
)

func TestChallengeRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ChallengeLoader: NewStaticChallengeLoader(map[string]domain.Challenge{
			"1.1": sampleChallenge(),
		}),
	}
	repo := NewChallengeRepository(loader, time.Minute)

	if _, err := repo.GetChallenge(context.Background(), "1.1"); err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetChallenge(context.Background(), "1.1"); err != nil {
		t.Fatalf("get challenge 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestChallengeRepositoryUnknownLevel(t *testing.T) {
	repo := NewChallengeRepository(NewStaticChallengeLoader(nil), time.Minute)

	if _, err := repo.GetChallenge(context.Background(), "9.9"); err != domain.ErrChallengeNotFound {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

type countingLoader struct {
	ChallengeLoader
	calls int
}

func (l *countingLoader) LoadChallenge(ctx context.Context, level string) (domain.Challenge, error) {
	l.calls++
	return l.ChallengeLoader.LoadChallenge(ctx, level)
}

func sampleChallenge() domain.Challenge {
	return domain.Challenge{
		Level:      "1.1",
		Answer:     "flag{legacy_systems_tell_secrets}",
		Category:   "Information Disclosure",
		Difficulty: "beginner",
		Points:     100,
		Active:     true,
	}
}
