package app

import (
	"gauntlet-service/internal/domain"
)

// Timer actions accepted by TimerAction.
const (
	TimerStart = "start"
	TimerStop  = "stop"
	TimerReset = "reset"
)

// Timer reads the participant's session timer. Participants without a record
// get a zero snapshot; reads never create accounts.
func (s *Service) Timer(id domain.Identity) (domain.TimerSnapshot, error) {
	if id.ID == "" {
		return domain.TimerSnapshot{}, domain.ErrUnauthenticated
	}
	account, ok := s.participants.Get(id.ID)
	if !ok {
		return domain.TimerSnapshot{}, nil
	}
	return account.timerSnapshot(s.clock()), nil
}

// TimerAction applies start, stop or reset to the session timer. Start on a
// running timer and stop on a stopped one are no-ops; reset always zeroes the
// accumulator.
func (s *Service) TimerAction(id domain.Identity, action string) (domain.TimerSnapshot, error) {
	if id.ID == "" {
		return domain.TimerSnapshot{}, domain.ErrUnauthenticated
	}
	account := s.participants.GetOrCreate(id)
	now := s.clock()
	switch action {
	case TimerStart:
		account.startTimer(now)
	case TimerStop:
		account.stopTimer(now)
	case TimerReset:
		account.resetTimer()
	default:
		return domain.TimerSnapshot{}, domain.ErrInvalidInput
	}
	return account.timerSnapshot(now), nil
}
