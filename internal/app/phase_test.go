package app_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
)

func TestPhaseWalkthrough(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newTestService()
	id := ident("u1")

	res, err := svc.AttemptPhase(ctx, id, 1, "access_sequence", noMeta)
	if err != nil {
		t.Fatalf("phase 1 failed: %v", err)
	}
	if !res.PhaseComplete || res.Fragment != "INTERFACE_" || res.NextPhase != 2 {
		t.Fatalf("expected phase 1 completion with fragment, got %+v", res)
	}

	// Completed and future phases are both out of sequence now.
	if _, err := svc.AttemptPhase(ctx, id, 1, "access_sequence", noMeta); err != domain.ErrOutOfSequence {
		t.Fatalf("expected out-of-sequence replay, got %v", err)
	}
	if _, err := svc.AttemptPhase(ctx, id, 3, "error-filter", noMeta); err != domain.ErrOutOfSequence {
		t.Fatalf("expected out-of-sequence skip, got %v", err)
	}

	// Three failures on phase 2 surface the hint on the third.
	for i := 1; i <= 3; i++ {
		clock.Advance(2 * time.Second)
		res, err = svc.AttemptPhase(ctx, id, 2, "wrong-guess", noMeta)
		if err != nil {
			t.Fatalf("wrong attempt %d errored: %v", i, err)
		}
		if res.Success {
			t.Fatalf("wrong input must not succeed")
		}
		if i < 3 && res.Hint != "" {
			t.Fatalf("hint must stay hidden before three failures, got %q", res.Hint)
		}
	}
	if res.Hint != "arrow keys" {
		t.Fatalf("expected hint after three failures, got %q", res.Hint)
	}

	clock.Advance(61 * time.Second) // fresh rate window
	res, err = svc.AttemptPhase(ctx, id, 2, "KONAMI_VARIANT", noMeta)
	if err != nil {
		t.Fatalf("phase 2 failed: %v", err)
	}
	if res.Fragment != "NOT_BROKEN_" || res.NextPhase != 3 {
		t.Fatalf("expected phase 2 completion, got %+v", res)
	}

	clock.Advance(2 * time.Second)
	res, err = svc.AttemptPhase(ctx, id, 3, "error-filter", noMeta)
	if err != nil {
		t.Fatalf("phase 3 failed: %v", err)
	}
	if !res.AllComplete {
		t.Fatalf("expected full completion, got %+v", res)
	}
	if res.Credential != "INTERFACE_NOT_BROKEN_YOU_ARE" {
		t.Fatalf("unexpected credential %q", res.Credential)
	}
	digest := sha1.Sum([]byte(res.Credential))
	if res.CredentialHash != hex.EncodeToString(digest[:]) {
		t.Fatalf("credential hash mismatch: %q", res.CredentialHash)
	}
	if res.RewardAnswer != "FLAG{INTERFACE_NOT_BROKEN_YOU_ARE}" {
		t.Fatalf("unexpected reward answer %q", res.RewardAnswer)
	}

	// The assembled credential is the accepted answer for the exercise level.
	sub, err := svc.Submit(ctx, id, "3.1", res.RewardAnswer, noMeta)
	if err != nil {
		t.Fatalf("submit of reward answer failed: %v", err)
	}
	if !sub.Correct {
		t.Fatalf("reward answer must solve the exercise level, got %+v", sub)
	}

	status, err := svc.PhaseProgress(id)
	if err != nil {
		t.Fatalf("phase progress failed: %v", err)
	}
	if !status.Exists || !status.AllComplete || len(status.CompletedPhases) != 3 {
		t.Fatalf("unexpected phase status %+v", status)
	}
}

func TestPhaseRateLimit(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newTestService()
	id := ident("u1")

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		if _, err := svc.AttemptPhase(ctx, id, 1, "wrong", noMeta); err != nil {
			t.Fatalf("attempt %d errored: %v", i+1, err)
		}
	}

	_, err := svc.AttemptPhase(ctx, id, 1, "wrong", noMeta)
	retry, ok := app.IsRateLimited(err)
	if !ok {
		t.Fatalf("expected rate limit on sixth attempt, got %v", err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry-after %v", retry)
	}

	// A rejected attempt never enters the forensic trail.
	status, err := svc.PhaseProgress(id)
	if err != nil {
		t.Fatalf("phase progress failed: %v", err)
	}
	if status.TotalAttempts != 5 {
		t.Fatalf("expected 5 recorded attempts, got %d", status.TotalAttempts)
	}

	// The window expires and attempts flow again.
	clock.Advance(61 * time.Second)
	res, err := svc.AttemptPhase(ctx, id, 1, "accesssequence", noMeta)
	if err != nil {
		t.Fatalf("attempt after window reset failed: %v", err)
	}
	if !res.PhaseComplete {
		t.Fatalf("expected completion after reset, got %+v", res)
	}
}

func TestPhaseLockout(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newTestService()
	id := ident("u1")

	var lastErr error
	for i := 1; i <= 20; i++ {
		_, lastErr = svc.AttemptPhase(ctx, id, 1, "wrong", noMeta)
		if i < 20 && lastErr != nil {
			t.Fatalf("attempt %d errored early: %v", i, lastErr)
		}
		if i%5 == 0 {
			clock.Advance(61 * time.Second)
		}
	}
	if _, ok := app.IsLockedOut(lastErr); !ok {
		t.Fatalf("expected lockout on twentieth failure, got %v", lastErr)
	}

	// Still locked while the window is active, even with the right answer.
	_, err := svc.AttemptPhase(ctx, id, 1, "ACCESS-SEQUENCE", noMeta)
	remaining, ok := app.IsLockedOut(err)
	if !ok {
		t.Fatalf("expected active lockout, got %v", err)
	}
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Fatalf("unexpected lockout remaining %v", remaining)
	}

	status, err := svc.PhaseProgress(id)
	if err != nil {
		t.Fatalf("phase progress failed: %v", err)
	}
	if !status.IsLocked || status.LockoutUntil == nil {
		t.Fatalf("expected locked status, got %+v", status)
	}

	// Lockout expiry grants a clean window.
	clock.Advance(5*time.Minute + time.Second)
	res, err := svc.AttemptPhase(ctx, id, 1, "ACCESS-SEQUENCE", noMeta)
	if err != nil {
		t.Fatalf("attempt after lockout expiry failed: %v", err)
	}
	if !res.PhaseComplete {
		t.Fatalf("expected completion after lockout expiry, got %+v", res)
	}
}

func TestPhaseAttemptsAreAudited(t *testing.T) {
	ctx := context.Background()
	svc, _, log := newTestService()
	id := ident("u1")

	longInput := make([]byte, 300)
	for i := range longInput {
		longInput[i] = 'a'
	}
	if _, err := svc.AttemptPhase(ctx, id, 1, string(longInput), noMeta); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	subs, err := log.Recent(ctx, "3.1", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected one audit record, got %d", len(subs))
	}
	if len(subs[0].Answer) != 100 {
		t.Fatalf("stored input must be truncated to 100 bytes, got %d", len(subs[0].Answer))
	}
	if subs[0].Correct {
		t.Fatalf("audit record must carry the recomputed verdict")
	}
}

func TestPhaseValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	if _, err := svc.AttemptPhase(ctx, domain.Identity{}, 1, "x", noMeta); err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.AttemptPhase(ctx, ident("u1"), 0, "x", noMeta); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for phase 0, got %v", err)
	}
	if _, err := svc.AttemptPhase(ctx, ident("u1"), 4, "x", noMeta); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for unknown phase, got %v", err)
	}
	if _, err := svc.AttemptPhase(ctx, ident("u1"), 1, "  ", noMeta); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for blank input, got %v", err)
	}

	// Reads never create phase records.
	status, err := svc.PhaseProgress(ident("reader"))
	if err != nil {
		t.Fatalf("phase progress failed: %v", err)
	}
	if status.Exists {
		t.Fatalf("read must not create a record, got %+v", status)
	}
}
