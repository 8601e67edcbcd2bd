package app

import (
	"context"
	"sort"
	"time"

	"gauntlet-service/internal/domain"
)

const recentCompletionCap = 10

// PhaseBreakdown summarizes one phase across all participants.
type PhaseBreakdown struct {
	Phase           int     `json:"phase"`
	Stuck           int     `json:"stuck"`
	AverageAttempts float64 `json:"averageAttempts"`
}

// SuspiciousEntry flags a participant whose phase activity looks abusive:
// implausibly fast completion, excessive failures, or an active lockout.
type SuspiciousEntry struct {
	ParticipantID   string     `json:"participantId"`
	DisplayName     string     `json:"displayName"`
	TimeTakenMs     int64      `json:"timeTaken"`
	TotalAttempts   int        `json:"totalAttempts"`
	FailedAttempts  int        `json:"failedAttempts"`
	IsLocked        bool       `json:"isLocked"`
	LockoutUntil    *time.Time `json:"lockoutUntil,omitempty"`
	CompletedPhases int        `json:"completedPhases"`
}

// StuckEntry flags a participant grinding on their current phase.
type StuckEntry struct {
	ParticipantID string     `json:"participantId"`
	DisplayName   string     `json:"displayName"`
	Phase         int        `json:"stuckOnPhase"`
	Attempts      int        `json:"attemptCount"`
	LastAttempt   *time.Time `json:"lastAttempt,omitempty"`
}

// CompletionEntry is one recent full completion of the multi-phase exercise.
type CompletionEntry struct {
	ParticipantID  string    `json:"participantId"`
	DisplayName    string    `json:"displayName"`
	CompletionTime time.Time `json:"completionTime"`
	TimeTakenMs    int64     `json:"timeTaken"`
	TotalAttempts  int       `json:"totalAttempts"`
}

// GauntletStats is the admin view over the phase engine's state.
type GauntletStats struct {
	TotalParticipants int               `json:"totalParticipants"`
	Completed         int               `json:"completed"`
	InProgress        int               `json:"inProgress"`
	CompletionRate    float64           `json:"completionRate"`
	Phases            []PhaseBreakdown  `json:"phases"`
	AvgCompletionMs   int64             `json:"averageCompletionMs"`
	FastestMs         int64             `json:"fastestMs"`
	SlowestMs         int64             `json:"slowestMs"`
	Suspicious        []SuspiciousEntry `json:"suspicious"`
	Stuck             []StuckEntry      `json:"stuck"`
	RecentCompletions []CompletionEntry `json:"recentCompletions"`
}

// Leaderboard ranks non-admin participants with at least one completed level
// by completed count (desc) then elapsed time (asc, running timers included).
func (s *Service) Leaderboard() domain.Leaderboard {
	now := s.clock()
	total := s.graph.Size()

	var entries []domain.LeaderboardEntry
	displayTimes := make(map[string]int64)
	for _, account := range s.participants.List() {
		p := account.Snapshot()
		if p.Admin || len(p.CompletedLevels) == 0 {
			continue
		}
		displayTime := p.TotalTimeMs
		if p.StartTime != nil && p.EndTime == nil {
			displayTime += now.Sub(*p.StartTime).Milliseconds()
		}
		displayTimes[p.ID] = displayTime
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID:     p.ID,
			DisplayName:       p.DisplayName,
			CompletedLevels:   p.CompletedLevels,
			CompletedCount:    len(p.CompletedLevels),
			CompletionPercent: float64(len(p.CompletedLevels)) / float64(total) * 100,
			TotalTimeMs:       displayTime,
			Complete:          len(p.CompletedLevels) == total,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CompletedCount != entries[j].CompletedCount {
			return entries[i].CompletedCount > entries[j].CompletedCount
		}
		if entries[i].TotalTimeMs != entries[j].TotalTimeMs {
			return entries[i].TotalTimeMs < entries[j].TotalTimeMs
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{Entries: entries, Total: len(entries), UpdatedAt: now}
}

// LevelStats aggregates the submission log per level.
func (s *Service) LevelStats(ctx context.Context) ([]domain.LevelStats, error) {
	return s.submissions.LevelStats(ctx)
}

// RecentSubmissions lists the newest audit records, optionally scoped to a level.
func (s *Service) RecentSubmissions(ctx context.Context, level string, limit int) ([]domain.Submission, error) {
	return s.submissions.Recent(ctx, level, limit)
}

// PhaseStats builds the admin dashboard projection of the phase engine.
func (s *Service) PhaseStats() GauntletStats {
	now := s.clock()
	phaseCount := s.phases.Count()
	stats := GauntletStats{}

	attemptsPerPhase := make([]int, phaseCount+1)
	recordsPerPhase := make([]int, phaseCount+1)
	stuckPerPhase := make([]int, phaseCount+1)
	var completionTimes []int64
	dayAgo := now.Add(-24 * time.Hour)

	for _, account := range s.participants.List() {
		pp, ok := account.phaseSnapshot()
		if !ok {
			continue
		}
		p := account.Snapshot()
		stats.TotalParticipants++
		complete := len(pp.CompletedPhases) == phaseCount
		if complete {
			stats.Completed++
		}

		byPhase := make(map[int]int)
		failedByPhase := make(map[int]int)
		failedTotal := 0
		var lastAttempt *time.Time
		for i := range pp.Attempts {
			at := pp.Attempts[i]
			byPhase[at.Phase]++
			if !at.Success {
				failedByPhase[at.Phase]++
				failedTotal++
			}
			t := at.Timestamp
			lastAttempt = &t
		}
		for phase := 1; phase <= phaseCount; phase++ {
			attemptsPerPhase[phase] += byPhase[phase]
			recordsPerPhase[phase]++
			if pp.CurrentPhase == phase && !containsInt(pp.CompletedPhases, phase) {
				stuckPerPhase[phase]++
			}
		}

		if pp.CompletionTime != nil {
			completionTimes = append(completionTimes, pp.TimeTakenMs)
			if pp.CompletionTime.After(dayAgo) {
				stats.RecentCompletions = append(stats.RecentCompletions, CompletionEntry{
					ParticipantID:  p.ID,
					DisplayName:    p.DisplayName,
					CompletionTime: *pp.CompletionTime,
					TimeTakenMs:    pp.TimeTakenMs,
					TotalAttempts:  len(pp.Attempts),
				})
			}
		}

		locked := pp.IsLocked || (pp.Rate.LockoutUntil != nil && now.Before(*pp.Rate.LockoutUntil))
		tooFast := pp.CompletionTime != nil && pp.TimeTakenMs < s.thresholds.MinCompletion.Milliseconds()
		tooManyFailures := failedTotal > s.thresholds.AbuseFailures
		if locked || tooFast || tooManyFailures {
			stats.Suspicious = append(stats.Suspicious, SuspiciousEntry{
				ParticipantID:   p.ID,
				DisplayName:     p.DisplayName,
				TimeTakenMs:     pp.TimeTakenMs,
				TotalAttempts:   len(pp.Attempts),
				FailedAttempts:  failedTotal,
				IsLocked:        locked,
				LockoutUntil:    pp.Rate.LockoutUntil,
				CompletedPhases: len(pp.CompletedPhases),
			})
		}

		if !complete && byPhase[pp.CurrentPhase] > s.thresholds.StuckAttempts && !containsInt(pp.CompletedPhases, pp.CurrentPhase) {
			stats.Stuck = append(stats.Stuck, StuckEntry{
				ParticipantID: p.ID,
				DisplayName:   p.DisplayName,
				Phase:         pp.CurrentPhase,
				Attempts:      byPhase[pp.CurrentPhase],
				LastAttempt:   lastAttempt,
			})
		}
	}

	stats.InProgress = stats.TotalParticipants - stats.Completed
	if stats.TotalParticipants > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalParticipants) * 100
	}
	for phase := 1; phase <= phaseCount; phase++ {
		avg := 0.0
		if recordsPerPhase[phase] > 0 {
			avg = float64(attemptsPerPhase[phase]) / float64(recordsPerPhase[phase])
		}
		stats.Phases = append(stats.Phases, PhaseBreakdown{
			Phase:           phase,
			Stuck:           stuckPerPhase[phase],
			AverageAttempts: avg,
		})
	}
	if len(completionTimes) > 0 {
		var sum, fastest, slowest int64
		fastest = completionTimes[0]
		slowest = completionTimes[0]
		for _, t := range completionTimes {
			sum += t
			if t < fastest {
				fastest = t
			}
			if t > slowest {
				slowest = t
			}
		}
		stats.AvgCompletionMs = sum / int64(len(completionTimes))
		stats.FastestMs = fastest
		stats.SlowestMs = slowest
	}

	sort.Slice(stats.RecentCompletions, func(i, j int) bool {
		return stats.RecentCompletions[i].CompletionTime.After(stats.RecentCompletions[j].CompletionTime)
	})
	if len(stats.RecentCompletions) > recentCompletionCap {
		stats.RecentCompletions = stats.RecentCompletions[:recentCompletionCap]
	}
	return stats
}

// SubscribeLeaderboard returns a channel that receives leaderboard snapshots
// whenever progression changes. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *Service) SubscribeLeaderboard() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- s.Leaderboard()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLeaderboard pushes a fresh snapshot to all subscribers. Slow
// consumers have their stale snapshot dropped rather than blocking the send.
func (s *Service) broadcastLeaderboard() {
	lb := s.Leaderboard()
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
