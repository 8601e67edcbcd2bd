package app

import (
	"context"
	"sync"
	"time"

	"gauntlet-service/internal/domain"
)

// ParticipantRepository abstracts how per-participant accounts are stored
// (in-memory, Redis-backed, etc). GetOrCreate must be atomic: concurrent
// first access for one participant yields exactly one Account.
type ParticipantRepository interface {
	GetOrCreate(id domain.Identity) *Account
	Get(participantID string) (*Account, bool)
	List() []*Account
}

// ChallengeRepository loads reference answers (from cache/backing store).
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, level string) (domain.Challenge, error)
}

// SubmissionLog is the append-only audit trail plus its analytics read side.
// Records are never read back to drive progression.
type SubmissionLog interface {
	Append(ctx context.Context, sub domain.Submission) error
	Recent(ctx context.Context, level string, limit int) ([]domain.Submission, error)
	LevelStats(ctx context.Context) ([]domain.LevelStats, error)
}

// PhaseRules are the throttling and anti-abuse parameters of the phase engine.
type PhaseRules struct {
	// ExerciseLevel is the level identifier the multi-phase exercise belongs
	// to; phase attempts are logged against it.
	ExerciseLevel    string
	Window           time.Duration
	MaxPerWindow     int
	LockoutThreshold int
	LockoutDuration  time.Duration
	SuspiciousGap    time.Duration
	HintAfter        int
}

// DefaultPhaseRules returns the production tuning.
func DefaultPhaseRules() PhaseRules {
	return PhaseRules{
		ExerciseLevel:    "3.1",
		Window:           time.Minute,
		MaxPerWindow:     5,
		LockoutThreshold: 20,
		LockoutDuration:  5 * time.Minute,
		SuspiciousGap:    time.Second,
		HintAfter:        3,
	}
}

// AnalyticsThresholds tune the stuck/suspicious detectors.
type AnalyticsThresholds struct {
	StuckAttempts int
	AbuseFailures int
	MinCompletion time.Duration
}

// DefaultAnalyticsThresholds returns the production tuning.
func DefaultAnalyticsThresholds() AnalyticsThresholds {
	return AnalyticsThresholds{
		StuckAttempts: 10,
		AbuseFailures: 50,
		MinCompletion: 30 * time.Second,
	}
}

// Service contains the progression and anti-abuse use cases.
type Service struct {
	participants ParticipantRepository
	challenges   ChallengeRepository
	submissions  SubmissionLog
	graph        *LevelGraph
	phases       domain.PhaseSet
	rules        PhaseRules
	thresholds   AnalyticsThresholds
	clock        func() time.Time

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewService wires the core use cases over the given stores.
func NewService(
	participants ParticipantRepository,
	challenges ChallengeRepository,
	submissions SubmissionLog,
	graph *LevelGraph,
	phases domain.PhaseSet,
	rules PhaseRules,
	thresholds AnalyticsThresholds,
) *Service {
	return NewServiceWithClock(participants, challenges, submissions, graph, phases, rules, thresholds, time.Now)
}

// NewServiceWithClock allows deterministic timestamps in tests.
func NewServiceWithClock(
	participants ParticipantRepository,
	challenges ChallengeRepository,
	submissions SubmissionLog,
	graph *LevelGraph,
	phases domain.PhaseSet,
	rules PhaseRules,
	thresholds AnalyticsThresholds,
	now func() time.Time,
) *Service {
	return &Service{
		participants: participants,
		challenges:   challenges,
		submissions:  submissions,
		graph:        graph,
		phases:       phases,
		rules:        rules,
		thresholds:   thresholds,
		clock:        now,
		subscribers:  make(map[chan domain.Leaderboard]struct{}),
	}
}

// Graph exposes the level graph for transports that need successor lookups.
func (s *Service) Graph() *LevelGraph { return s.graph }
