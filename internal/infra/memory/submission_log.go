package memory

import (
	"context"
	"sort"
	"sync"

	"gauntlet-service/internal/domain"
)

// SubmissionLog is an in-memory append-only implementation of
// app.SubmissionLog. Records are never mutated or deleted once appended.
type SubmissionLog struct {
	mu      sync.RWMutex
	records []domain.Submission
}

func NewSubmissionLog() *SubmissionLog {
	return &SubmissionLog{}
}

func (l *SubmissionLog) Append(_ context.Context, sub domain.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, sub)
	return nil
}

// Recent returns the newest records first, optionally filtered by level.
func (l *SubmissionLog) Recent(_ context.Context, level string, limit int) ([]domain.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Submission, 0, limit)
	for i := len(l.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if level != "" && l.records[i].Level != level {
			continue
		}
		out = append(out, l.records[i])
	}
	return out, nil
}

// LevelStats aggregates attempt counts, success counts and unique
// participants per level, ordered by level.
func (l *SubmissionLog) LevelStats(_ context.Context) ([]domain.LevelStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	type agg struct {
		total   int
		success int
		unique  map[string]struct{}
	}
	byLevel := make(map[string]*agg)
	for i := range l.records {
		rec := &l.records[i]
		a, ok := byLevel[rec.Level]
		if !ok {
			a = &agg{unique: make(map[string]struct{})}
			byLevel[rec.Level] = a
		}
		a.total++
		if rec.Correct {
			a.success++
		}
		a.unique[rec.ParticipantID] = struct{}{}
	}

	stats := make([]domain.LevelStats, 0, len(byLevel))
	for level, a := range byLevel {
		stats = append(stats, domain.LevelStats{
			Level:              level,
			TotalAttempts:      a.total,
			SuccessfulAttempts: a.success,
			UniqueParticipants: len(a.unique),
			SuccessRate:        float64(a.success) / float64(a.total) * 100,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Level < stats[j].Level })
	return stats, nil
}
