package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/metrics"
)

// attemptInputLimit bounds the input snippet stored in the forensic trail.
const attemptInputLimit = 100

// PhaseResult is the outcome of one phase attempt.
type PhaseResult struct {
	Success        bool
	PhaseComplete  bool
	AllComplete    bool
	Message        string
	Phase          int
	Attempts       int // attempts on this phase, including this one
	Hint           string
	Fragment       string
	NextPhase      int
	Credential     string // fragments concatenated in phase order
	CredentialHash string // hex SHA-1 of the credential
	RewardAnswer   string // the answer accepted by the exercise's level
	TimeTakenMs    int64
}

// PhaseStatus is the sanitized read projection of a phase record. It never
// carries canonical answers or fragments.
type PhaseStatus struct {
	Exists          bool       `json:"exists"`
	CurrentPhase    int        `json:"currentPhase"`
	CompletedPhases []int      `json:"completedPhases"`
	TotalAttempts   int        `json:"totalAttempts"`
	IsLocked        bool       `json:"isLocked"`
	LockoutUntil    *time.Time `json:"lockoutUntil,omitempty"`
	AllComplete     bool       `json:"allComplete"`
}

// phaseDecision carries the locked decision out of the account so side
// effects (audit log, metrics, telemetry) run without holding the mutex.
type phaseDecision struct {
	result         PhaseResult
	err            error
	recorded       bool // the attempt entered the forensic trail
	success        bool
	suspicious     bool
	lockoutTripped bool
	rateLimited    bool
	totalAttempts  int
	timeTakenMs    int64
}

// AttemptPhase runs one attempt through the phase engine: lockout gate,
// sliding-window limiter, sequential enforcement, canonical matching,
// forensic logging, anti-cheat signals and fragment/credential assembly.
func (s *Service) AttemptPhase(ctx context.Context, id domain.Identity, phase int, input string, meta domain.ClientMeta) (PhaseResult, error) {
	if id.ID == "" {
		return PhaseResult{}, domain.ErrUnauthenticated
	}
	if phase < 1 || phase > s.phases.Count() || strings.TrimSpace(input) == "" {
		return PhaseResult{}, domain.ErrInvalidInput
	}

	account := s.participants.GetOrCreate(id)
	now := s.clock()
	dec := account.attemptPhase(s.phases, s.rules, phase, input, meta, now)

	if dec.rateLimited {
		metrics.RateLimited()
	}
	if dec.recorded {
		metrics.PhaseAttemptRecorded(phase, dec.success)
		sub := domain.Submission{
			ID:            uuid.NewString(),
			ParticipantID: id.ID,
			DisplayName:   id.DisplayName,
			Level:         s.rules.ExerciseLevel,
			Answer:        truncate(input, attemptInputLimit),
			Correct:       dec.success,
			AttemptNumber: dec.totalAttempts,
			TimeTakenMs:   dec.timeTakenMs,
			Meta:          meta,
			CreatedAt:     now,
		}
		if err := s.submissions.Append(ctx, sub); err != nil {
			log.Printf("phase attempt audit append failed: %v", err)
		}
	}
	if dec.suspicious {
		metrics.SuspiciousSpeed()
		log.Printf("suspicious speed on phase %d for participant %s", phase, id.ID)
	}
	if dec.lockoutTripped {
		metrics.LockoutTripped()
		log.Printf("lockout tripped on phase %d for participant %s", phase, id.ID)
	}
	if dec.err != nil {
		return PhaseResult{}, dec.err
	}
	return dec.result, nil
}

// PhaseProgress returns the sanitized projection of the participant's phase
// record. Reads never create records.
func (s *Service) PhaseProgress(id domain.Identity) (PhaseStatus, error) {
	if id.ID == "" {
		return PhaseStatus{}, domain.ErrUnauthenticated
	}
	account, ok := s.participants.Get(id.ID)
	if !ok {
		return PhaseStatus{}, nil
	}
	pp, ok := account.phaseSnapshot()
	if !ok {
		return PhaseStatus{}, nil
	}
	return PhaseStatus{
		Exists:          true,
		CurrentPhase:    pp.CurrentPhase,
		CompletedPhases: pp.CompletedPhases,
		TotalAttempts:   len(pp.Attempts),
		IsLocked:        pp.IsLocked,
		LockoutUntil:    pp.Rate.LockoutUntil,
		AllComplete:     len(pp.CompletedPhases) == s.phases.Count(),
	}, nil
}

// attemptPhase holds the account lock for the whole decision so concurrent
// requests cannot both pass the limiter or both advance the phase pointer.
func (a *Account) attemptPhase(phases domain.PhaseSet, rules PhaseRules, phase int, input string, meta domain.ClientMeta, now time.Time) phaseDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == nil {
		a.phase = &domain.PhaseProgress{
			CurrentPhase: 1,
			Rate:         domain.RateWindow{WindowStart: now},
			StartTime:    now,
		}
	}
	pp := a.phase

	// Lockout gate: hard block until expiry, then a clean window.
	if pp.IsLocked || pp.Rate.LockoutUntil != nil {
		if until := pp.Rate.LockoutUntil; until != nil && now.Before(*until) {
			return phaseDecision{err: &domain.LockoutError{Remaining: until.Sub(now)}}
		}
		pp.IsLocked = false
		pp.Rate.LockoutUntil = nil
		pp.Rate.AttemptCount = 0
		pp.Rate.WindowStart = now
		pp.LockoutBaseline = len(pp.Attempts)
	}

	// Sliding-window limiter.
	elapsed := now.Sub(pp.Rate.WindowStart)
	if elapsed > rules.Window {
		pp.Rate.AttemptCount = 0
		pp.Rate.WindowStart = now
		elapsed = 0
	}
	if pp.Rate.AttemptCount >= rules.MaxPerWindow {
		return phaseDecision{
			rateLimited: true,
			err:         &domain.RateLimitError{RetryAfter: rules.Window - elapsed},
		}
	}

	// Sequential enforcement: no skipping, no replaying completed phases.
	if phase != pp.CurrentPhase {
		return phaseDecision{err: domain.ErrOutOfSequence}
	}

	def, ok := phases.Get(phase)
	if !ok {
		return phaseDecision{err: domain.ErrInvalidInput}
	}
	correct := domain.PhaseMatches(def, input)

	// The counter and forensic trail record every evaluated attempt,
	// successful or not.
	pp.Rate.AttemptCount++
	pp.Attempts = append(pp.Attempts, domain.PhaseAttempt{
		Phase:     phase,
		Input:     truncate(input, attemptInputLimit),
		Success:   correct,
		Timestamp: now,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})

	onPhase, failedOnPhase := 0, 0
	for i := range pp.Attempts {
		if pp.Attempts[i].Phase != phase {
			continue
		}
		onPhase++
		if !pp.Attempts[i].Success && i >= pp.LockoutBaseline {
			failedOnPhase++
		}
	}

	// Advisory anti-cheat signal: a correct answer landing implausibly fast
	// after the previous attempt on the same phase is flagged, never blocked.
	suspicious := false
	if correct && onPhase > 1 {
		for i := len(pp.Attempts) - 2; i >= 0; i-- {
			if pp.Attempts[i].Phase == phase {
				suspicious = now.Sub(pp.Attempts[i].Timestamp) < rules.SuspiciousGap
				break
			}
		}
	}

	dec := phaseDecision{
		recorded:      true,
		success:       correct,
		suspicious:    suspicious,
		totalAttempts: len(pp.Attempts),
		timeTakenMs:   now.Sub(pp.StartTime).Milliseconds(),
	}

	// Cumulative-failure lockout, independent of and stricter than the
	// sliding window: it also catches slow, distributed brute force.
	if failedOnPhase >= rules.LockoutThreshold {
		pp.IsLocked = true
		until := now.Add(rules.LockoutDuration)
		pp.Rate.LockoutUntil = &until
		dec.lockoutTripped = true
		dec.err = &domain.LockoutError{Remaining: rules.LockoutDuration}
		return dec
	}

	if !correct {
		dec.result = PhaseResult{
			Phase:    phase,
			Attempts: onPhase,
			Message:  "Incorrect input. Try again.",
		}
		if failedOnPhase >= rules.HintAfter {
			dec.result.Hint = def.Hint
		}
		return dec
	}

	// Guarded idempotence; replays are already rejected by the sequence check.
	if !containsInt(pp.CompletedPhases, phase) {
		pp.CompletedPhases = append(pp.CompletedPhases, phase)
		pp.Fragments = append(pp.Fragments, def.Fragment)
	}

	if len(pp.CompletedPhases) == phases.Count() {
		credential := strings.Join(pp.Fragments, "")
		digest := sha1.Sum([]byte(credential))
		if pp.CompletionTime == nil {
			t := now
			pp.CompletionTime = &t
			pp.TimeTakenMs = now.Sub(pp.StartTime).Milliseconds()
		}
		dec.result = PhaseResult{
			Success:        true,
			PhaseComplete:  true,
			AllComplete:    true,
			Message:        "All phases completed.",
			Phase:          phase,
			Attempts:       onPhase,
			Fragment:       def.Fragment,
			Credential:     credential,
			CredentialHash: hex.EncodeToString(digest[:]),
			RewardAnswer:   "FLAG{" + credential + "}",
			TimeTakenMs:    pp.TimeTakenMs,
		}
		return dec
	}

	pp.CurrentPhase = phase + 1
	dec.result = PhaseResult{
		Success:       true,
		PhaseComplete: true,
		Message:       fmt.Sprintf("Phase %d completed. Fragment acquired.", phase),
		Phase:         phase,
		Attempts:      onPhase,
		Fragment:      def.Fragment,
		NextPhase:     pp.CurrentPhase,
	}
	return dec
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IsRateLimited reports whether err is a sliding-window rejection.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsLockedOut reports whether err is a lockout rejection.
func IsLockedOut(err error) (time.Duration, bool) {
	var lo *domain.LockoutError
	if errors.As(err, &lo) {
		return lo.Remaining, true
	}
	return 0, false
}
