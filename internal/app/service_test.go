package app_test

import (
	"sync"
	"time"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/infra/memory"
)

// fakeClock lets tests drive time deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testChallenges() map[string]domain.Challenge {
	return map[string]domain.Challenge{
		"1.1": {Level: "1.1", Answer: "flag{legacy_systems_tell_secrets}", Points: 100, Active: true},
		"1.2": {Level: "1.2", Answer: "flag{trust_the_server_not_the_client}", Points: 150, Active: true},
		"3.1": {Level: "3.1", Answer: "FLAG{INTERFACE_NOT_BROKEN_YOU_ARE}", Points: 350, Active: true},
		"9.9": {Level: "9.9", Answer: "flag{retired}", Active: false},
	}
}

func testPhases() []domain.PhaseDefinition {
	return []domain.PhaseDefinition{
		{Phase: 1, CanonicalKey: "ACCESS-SEQUENCE", Aliases: []string{"accesssequence"}, Fragment: "INTERFACE_", Hint: "click faster"},
		{Phase: 2, CanonicalKey: "KONAMI-VARIANT", Aliases: []string{"konamivariant"}, Fragment: "NOT_BROKEN_", Hint: "arrow keys"},
		{Phase: 3, CanonicalKey: "ERROR-FILTER", Aliases: []string{"errorfilter"}, Fragment: "YOU_ARE", Hint: "red lines only"},
	}
}

func newTestService() (*app.Service, *fakeClock, *memory.SubmissionLog) {
	clock := newFakeClock()
	store := memory.NewParticipantStore("1.1")
	challenges := memory.NewChallengeRepository(memory.NewStaticChallengeLoader(testChallenges()), 5*time.Minute)
	log := memory.NewSubmissionLog()
	graph := app.NewLevelGraph(
		[]string{"1.1", "1.2", "1.3", "1.4", "2.1", "2.2", "3.1", "3.2"},
		map[string]string{"1.4": "/chapters/1/complete"},
	)
	svc := app.NewServiceWithClock(
		store,
		challenges,
		log,
		graph,
		domain.NewPhaseSet(testPhases()),
		app.DefaultPhaseRules(),
		app.DefaultAnalyticsThresholds(),
		clock.Now,
	)
	return svc, clock, log
}

func ident(id string) domain.Identity {
	return domain.Identity{ID: id, DisplayName: id}
}

var noMeta = domain.ClientMeta{IP: "127.0.0.1", UserAgent: "test"}
