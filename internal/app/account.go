package app

import (
	"sync"
	"time"

	"gauntlet-service/internal/domain"
)

// Account holds all mutable state for one participant: level-graph position,
// timer accumulator, per-level progress records and the phase engine record.
// Every mutation runs under the account's own mutex so concurrent requests
// for the same participant (duplicate tabs, retries) serialize here.
type Account struct {
	mu     sync.Mutex
	p      domain.Participant
	levels map[string]*domain.LevelProgress
	phase  *domain.PhaseProgress
}

// NewAccount is exported for store implementations that create accounts on
// first access.
func NewAccount(id domain.Identity, firstLevel string) *Account {
	return &Account{
		p: domain.Participant{
			ID:           id.ID,
			DisplayName:  id.DisplayName,
			Admin:        id.Admin,
			CurrentLevel: firstLevel,
		},
		levels: make(map[string]*domain.LevelProgress),
	}
}

// ID returns the participant identifier.
func (a *Account) ID() string {
	return a.p.ID
}

// RefreshIdentity updates the display name and admin flag on re-auth.
func (a *Account) RefreshIdentity(id domain.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id.DisplayName != "" {
		a.p.DisplayName = id.DisplayName
	}
	a.p.Admin = id.Admin
}

// Snapshot returns a copy of the participant record safe to read without the lock.
func (a *Account) Snapshot() domain.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Account) snapshotLocked() domain.Participant {
	p := a.p
	p.CompletedLevels = append([]string(nil), a.p.CompletedLevels...)
	if a.p.StartTime != nil {
		t := *a.p.StartTime
		p.StartTime = &t
	}
	if a.p.EndTime != nil {
		t := *a.p.EndTime
		p.EndTime = &t
	}
	return p
}

// submissionOutcome reports the ledger-side effects of one answer attempt.
type submissionOutcome struct {
	attempts    int
	timeTakenMs int64
	advanced    bool // level completed for the first time
}

// recordSubmission applies one answer attempt to the per-level record and,
// on first completion, advances the level graph pointer. The attempt counter
// always increments; completed levels never regress.
func (a *Account) recordSubmission(g *LevelGraph, level string, correct bool, now time.Time) submissionOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.levels[level]
	if !ok {
		rec = &domain.LevelProgress{
			Level:     level,
			Status:    domain.LevelInProgress,
			StartTime: now,
		}
		a.levels[level] = rec
	}

	timeTaken := now.Sub(rec.StartTime).Milliseconds()
	rec.Attempts++
	rec.LastAttempt = now

	out := submissionOutcome{attempts: rec.Attempts, timeTakenMs: timeTaken}
	if correct && rec.Status != domain.LevelCompleted {
		rec.Status = domain.LevelCompleted
		t := now
		rec.CompletionTime = &t
		rec.TimeTakenMs = timeTaken
		_ = g.Advance(&a.p, level) // level validity was checked upstream
		out.advanced = true
	}
	return out
}

// levelSnapshot returns a copy of one level record, if it exists.
func (a *Account) levelSnapshot(level string) (domain.LevelProgress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.levels[level]
	if !ok {
		return domain.LevelProgress{}, false
	}
	return *rec, true
}

// phaseSnapshot returns a copy of the phase engine record, if initialized.
func (a *Account) phaseSnapshot() (domain.PhaseProgress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == nil {
		return domain.PhaseProgress{}, false
	}
	pp := *a.phase
	pp.CompletedPhases = append([]int(nil), a.phase.CompletedPhases...)
	pp.Attempts = append([]domain.PhaseAttempt(nil), a.phase.Attempts...)
	pp.Fragments = append([]string(nil), a.phase.Fragments...)
	if a.phase.Rate.LockoutUntil != nil {
		t := *a.phase.Rate.LockoutUntil
		pp.Rate.LockoutUntil = &t
	}
	if a.phase.CompletionTime != nil {
		t := *a.phase.CompletionTime
		pp.CompletionTime = &t
	}
	return pp, true
}

// startTimer opens a timing interval; a running timer is left untouched.
func (a *Account) startTimer(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.p.StartTime != nil && a.p.EndTime == nil {
		return
	}
	t := now
	a.p.StartTime = &t
	a.p.EndTime = nil
}

// stopTimer folds the open interval into the accumulator; a stopped timer is
// left untouched.
func (a *Account) stopTimer(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.p.StartTime == nil || a.p.EndTime != nil {
		return
	}
	a.p.TotalTimeMs += now.Sub(*a.p.StartTime).Milliseconds()
	t := now
	a.p.EndTime = &t
}

// resetTimer zeroes the accumulator and clears both interval endpoints.
func (a *Account) resetTimer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.StartTime = nil
	a.p.EndTime = nil
	a.p.TotalTimeMs = 0
}

// timerSnapshot reads the timer; running timers include the live elapsed time.
func (a *Account) timerSnapshot(now time.Time) domain.TimerSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := domain.TimerSnapshot{TotalTimeMs: a.p.TotalTimeMs}
	if a.p.StartTime != nil {
		t := *a.p.StartTime
		snap.StartTime = &t
	}
	if a.p.EndTime != nil {
		t := *a.p.EndTime
		snap.EndTime = &t
	}
	if a.p.StartTime != nil && a.p.EndTime == nil {
		snap.IsRunning = true
		snap.TotalTimeMs += now.Sub(*a.p.StartTime).Milliseconds()
	}
	return snap
}
