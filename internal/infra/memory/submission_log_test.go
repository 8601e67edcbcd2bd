package memory

import (
	"context"
	"fmt"
	"testing"

	"gauntlet-service/internal/domain"
)

func TestRecentFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	log := NewSubmissionLog()

	for i := 0; i < 5; i++ {
		level := "1.1"
		if i%2 == 1 {
			level = "1.2"
		}
		err := log.Append(ctx, domain.Submission{
			ID:            fmt.Sprintf("s%d", i),
			ParticipantID: "u1",
			Level:         level,
			AttemptNumber: i + 1,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := log.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 5 || all[0].ID != "s4" {
		t.Fatalf("expected all records newest first, got %+v", all)
	}

	filtered, err := log.Recent(ctx, "1.2", 10)
	if err != nil {
		t.Fatalf("recent filtered: %v", err)
	}
	if len(filtered) != 2 || filtered[0].ID != "s3" {
		t.Fatalf("expected level filter, got %+v", filtered)
	}

	limited, _ := log.Recent(ctx, "", 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit respected, got %d", len(limited))
	}
}

func TestLevelStatsAggregation(t *testing.T) {
	ctx := context.Background()
	log := NewSubmissionLog()

	log.Append(ctx, domain.Submission{ID: "a", ParticipantID: "u1", Level: "1.1", Correct: false})
	log.Append(ctx, domain.Submission{ID: "b", ParticipantID: "u1", Level: "1.1", Correct: true})
	log.Append(ctx, domain.Submission{ID: "c", ParticipantID: "u2", Level: "1.1", Correct: true})
	log.Append(ctx, domain.Submission{ID: "d", ParticipantID: "u2", Level: "1.2", Correct: false})

	stats, err := log.LevelStats(ctx)
	if err != nil {
		t.Fatalf("level stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected two levels, got %+v", stats)
	}
	first := stats[0]
	if first.Level != "1.1" || first.TotalAttempts != 3 || first.SuccessfulAttempts != 2 || first.UniqueParticipants != 2 {
		t.Fatalf("unexpected 1.1 stats %+v", first)
	}
	if first.SuccessRate < 66 || first.SuccessRate > 67 {
		t.Fatalf("unexpected success rate %v", first.SuccessRate)
	}
	if stats[1].Level != "1.2" || stats[1].SuccessRate != 0 {
		t.Fatalf("unexpected 1.2 stats %+v", stats[1])
	}
}
