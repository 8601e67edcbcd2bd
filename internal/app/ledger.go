package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/metrics"
)

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	Correct        bool
	Message        string
	Attempts       int
	NextLevel      string
	CompletionPage string
}

// Submit evaluates an answer for a level, appends the immutable submission
// record and, on first correct answer, completes the level and advances the
// participant's pointer. Correctness is always recomputed here; nothing the
// client declares is trusted. Re-submitting a completed level still logs but
// no longer moves progression state.
func (s *Service) Submit(ctx context.Context, id domain.Identity, level, answer string, meta domain.ClientMeta) (SubmitResult, error) {
	if id.ID == "" {
		return SubmitResult{}, domain.ErrUnauthenticated
	}
	if level == "" || strings.TrimSpace(answer) == "" {
		return SubmitResult{}, domain.ErrInvalidInput
	}

	challenge, err := s.challenges.GetChallenge(ctx, level)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			return SubmitResult{}, domain.ErrInvalidLevel
		}
		return SubmitResult{}, err
	}
	if !challenge.Active {
		return SubmitResult{}, domain.ErrInvalidLevel
	}

	correct := domain.AnswerMatches(answer, challenge.Answer)

	account := s.participants.GetOrCreate(id)
	now := s.clock()
	out := account.recordSubmission(s.graph, level, correct, now)

	sub := domain.Submission{
		ID:            uuid.NewString(),
		ParticipantID: id.ID,
		DisplayName:   id.DisplayName,
		Level:         level,
		Answer:        answer,
		Correct:       correct,
		AttemptNumber: out.attempts,
		TimeTakenMs:   out.timeTakenMs,
		Meta:          meta,
		CreatedAt:     now,
	}
	if err := s.submissions.Append(ctx, sub); err != nil {
		return SubmitResult{}, err
	}
	metrics.SubmissionRecorded(level, correct)

	if out.advanced {
		s.broadcastLeaderboard()
	}

	result := SubmitResult{Correct: correct, Attempts: out.attempts}
	if correct {
		result.Message = "Correct answer. Level completed."
		result.NextLevel = s.graph.Successor(level)
		result.CompletionPage = s.graph.CompletionPage(level)
	} else {
		result.Message = "Incorrect answer. Try again."
	}
	return result, nil
}

// Accessible reports whether the participant may open level. Participants
// without a record yet are treated as standing on the first level.
func (s *Service) Accessible(id domain.Identity, level string) (bool, error) {
	if id.ID == "" {
		return false, domain.ErrUnauthenticated
	}
	account, ok := s.participants.Get(id.ID)
	if !ok {
		fresh := domain.Participant{CurrentLevel: s.graph.First()}
		return s.graph.IsAccessible(fresh, level)
	}
	return s.graph.IsAccessible(account.Snapshot(), level)
}

// LevelProgressFor returns the per-level record for a participant, if any.
func (s *Service) LevelProgressFor(id domain.Identity, level string) (domain.LevelProgress, error) {
	if id.ID == "" {
		return domain.LevelProgress{}, domain.ErrUnauthenticated
	}
	account, ok := s.participants.Get(id.ID)
	if !ok {
		return domain.LevelProgress{}, domain.ErrParticipantNotFound
	}
	rec, ok := account.levelSnapshot(level)
	if !ok {
		return domain.LevelProgress{Level: level, Status: domain.LevelNotStarted}, nil
	}
	return rec, nil
}
