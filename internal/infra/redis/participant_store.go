package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
)

// ParticipantStore is a Redis-aware implementation of app.ParticipantRepository.
// Notes:
//   - It keeps a local in-memory map of accounts so the per-account mutex and
//     in-process leaderboard broadcast keep working unchanged.
//   - Redis marks participant liveness (and could be extended to share
//     snapshots or route cross-instance updates).
//   - For true distribution you'd pair this with a shared record store so all
//     instances consult the same rate/lockout state.
type ParticipantStore struct {
	client     *redis.Client
	ttl        time.Duration
	firstLevel string
	mu         sync.RWMutex
	accounts   map[string]*app.Account
}

func NewParticipantStore(client *redis.Client, ttl time.Duration, firstLevel string) *ParticipantStore {
	return &ParticipantStore{
		client:     client,
		ttl:        ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id.ID), "1", s.ttl).Err()
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

func (s *ParticipantStore) key(participantID string) string {
	return "gauntlet:participant:" + participantID
}
