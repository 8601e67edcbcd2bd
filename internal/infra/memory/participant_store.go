package memory

import (
	"sync"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
)

// ParticipantStore is an in-memory implementation of app.ParticipantRepository.
// GetOrCreate is atomic under the store lock, so concurrent first access for
// one participant never yields two accounts.
type ParticipantStore struct {
	firstLevel string
	mu         sync.RWMutex
	accounts   map[string]*app.Account
}

func NewParticipantStore(firstLevel string) *ParticipantStore {
	return &ParticipantStore{
		firstLevel: firstLevel,
		accounts:   make(map[string]*app.Account),
	}
}

func (s *ParticipantStore) GetOrCreate(id domain.Identity) *app.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id.ID]; ok {
		account.RefreshIdentity(id)
		return account
	}
	account := app.NewAccount(id, s.firstLevel)
	s.accounts[id.ID] = account
	return account
}

func (s *ParticipantStore) Get(participantID string) (*app.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[participantID]
	return account, ok
}

func (s *ParticipantStore) List() []*app.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]*app.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}
