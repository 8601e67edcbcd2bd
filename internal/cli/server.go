package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/config"
	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/infra/memory"
	pgstore "gauntlet-service/internal/infra/postgres"
	redisstore "gauntlet-service/internal/infra/redis"
	"gauntlet-service/internal/metrics"
	transport "gauntlet-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the gauntlet server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ChallengeLoader = memory.NewStaticChallengeLoader(sampleChallenges())
	if pool != nil {
		loader = pgstore.NewChallengeLoader(pool)
	}

	challengeTTL := config.TTLDuration(cfg.Challenge.TTL, 10*time.Minute)
	var challengeRepo app.ChallengeRepository
	if redisClient != nil {
		challengeRepo = redisstore.NewChallengeRepository(redisClient, loader, challengeTTL)
	} else {
		challengeRepo = memory.NewChallengeRepository(loader, challengeTTL)
	}

	graph := app.NewLevelGraph(levelOrder(), completionPages())

	var participants app.ParticipantRepository
	if redisClient != nil {
		participants = redisstore.NewParticipantStore(redisClient, redisTTL, graph.First())
	} else {
		participants = memory.NewParticipantStore(graph.First())
	}

	var submissions app.SubmissionLog = memory.NewSubmissionLog()
	if pool != nil {
		submissions = pgstore.NewSubmissionLog(pool)
	}

	service := app.NewService(
		participants,
		challengeRepo,
		submissions,
		graph,
		domain.NewPhaseSet(defaultPhases()),
		phaseRules(cfg),
		analyticsThresholds(cfg),
	)
	handler := transport.NewHandler(service, transport.HeaderAuthenticator{})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting gauntlet service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func phaseRules(cfg config.Config) app.PhaseRules {
	defaults := app.DefaultPhaseRules()
	return app.PhaseRules{
		ExerciseLevel:    config.StringOr(cfg.Gauntlet.ExerciseLevel, defaults.ExerciseLevel),
		Window:           config.TTLDuration(cfg.Gauntlet.RateWindow, defaults.Window),
		MaxPerWindow:     config.IntOr(cfg.Gauntlet.MaxPerWindow, defaults.MaxPerWindow),
		LockoutThreshold: config.IntOr(cfg.Gauntlet.LockoutThreshold, defaults.LockoutThreshold),
		LockoutDuration:  config.TTLDuration(cfg.Gauntlet.LockoutDuration, defaults.LockoutDuration),
		SuspiciousGap:    config.TTLDuration(cfg.Gauntlet.SuspiciousGap, defaults.SuspiciousGap),
		HintAfter:        config.IntOr(cfg.Gauntlet.HintAfter, defaults.HintAfter),
	}
}

func analyticsThresholds(cfg config.Config) app.AnalyticsThresholds {
	defaults := app.DefaultAnalyticsThresholds()
	return app.AnalyticsThresholds{
		StuckAttempts: config.IntOr(cfg.Analytics.StuckAttempts, defaults.StuckAttempts),
		AbuseFailures: config.IntOr(cfg.Analytics.AbuseFailures, defaults.AbuseFailures),
		MinCompletion: config.TTLDuration(cfg.Analytics.MinCompletion, defaults.MinCompletion),
	}
}

// levelOrder defines the progression sequence; completing a chapter's last
// level unlocks the first level of the next.
func levelOrder() []string {
	return []string{"1.1", "1.2", "1.3", "1.4", "2.1", "2.2", "3.1", "3.2"}
}

// completionPages maps chapter-final levels to their celebration route.
func completionPages() map[string]string {
	return map[string]string{
		"1.4": "/completion/level-1-completed",
		"2.2": "/completion/level-2-completed",
		"3.2": "/completion/final-completed",
	}
}

// sampleChallenges provides the built-in challenge set; swap the loader with a
// Postgres-backed one in production.
func sampleChallenges() map[string]domain.Challenge {
	return map[string]domain.Challenge{
		"1.1": {
			Level:       "1.1",
			Answer:      "flag{legacy_systems_tell_secrets}",
			Description: "View source / HTML comments to find hidden DNS records",
			Category:    "Information Disclosure",
			Difficulty:  "beginner",
			Points:      100,
			Active:      true,
		},
		"1.2": {
			Level:       "1.2",
			Answer:      "flag{trust_the_server_not_the_client}",
			Description: "Bypass client-side validation by sending direct API requests",
			Category:    "Client-Side Security",
			Difficulty:  "beginner",
			Points:      150,
			Active:      true,
		},
		"1.3": {
			Level:       "1.3",
			Answer:      "flag{javascript_security_is_an_illusion}",
			Description: "Bypass JavaScript security checks using browser tools",
			Category:    "Client-Side Security",
			Difficulty:  "beginner",
			Points:      150,
			Active:      true,
		},
		"1.4": {
			Level:       "1.4",
			Answer:      "flag{hidden_endpoints_reveal_truth}",
			Description: "Discover hidden API endpoints through reconnaissance",
			Category:    "API Security",
			Difficulty:  "intermediate",
			Points:      200,
			Active:      true,
		},
		"2.1": {
			Level:       "2.1",
			Answer:      "GHOST-ACCESS-GRANTED",
			Description: "Exploit IDOR vulnerability to access unauthorized profiles",
			Category:    "IDOR",
			Difficulty:  "intermediate",
			Points:      250,
			Active:      true,
		},
		"2.2": {
			Level:       "2.2",
			Answer:      "ADMIN-IDENTITY-FORGED",
			Description: "Forge JWT tokens to gain admin privileges",
			Category:    "Authentication",
			Difficulty:  "intermediate",
			Points:      250,
			Active:      true,
		},
		"3.1": {
			Level:       "3.1",
			Answer:      "FLAG{INTERFACE_NOT_BROKEN_YOU_ARE}",
			Description: "Complete multi-phase interactive puzzle with server validation",
			Category:    "Interactive Puzzle",
			Difficulty:  "advanced",
			Points:      350,
			Active:      true,
		},
		"3.2": {
			Level:       "3.2",
			Answer:      "FLAG{NO_SQL_YES_INJECTION}",
			Description: "Exploit NoSQL injection to extract sensitive employee data",
			Category:    "Injection",
			Difficulty:  "advanced",
			Points:      400,
			Active:      true,
		},
	}
}

// defaultPhases is the server-side puzzle configuration. Keys and fragments
// stay out of every client-facing payload until the phase is solved.
func defaultPhases() []domain.PhaseDefinition {
	return []domain.PhaseDefinition{
		{
			Phase:        1,
			CanonicalKey: "ACCESS-SEQUENCE",
			Aliases:      []string{"access-sequence", "ACCESS_SEQUENCE", "accesssequence"},
			Fragment:     "INTERFACE_",
			Hint:         `Click "Access" 5 times within 3 seconds`,
		},
		{
			Phase:        2,
			CanonicalKey: "KONAMI-VARIANT",
			Aliases:      []string{"konami-variant", "KONAMI_VARIANT", "konamivariant"},
			Fragment:     "NOT_BROKEN_",
			Hint:         "Arrow key sequence: up up down down left right left right",
		},
		{
			Phase:        3,
			CanonicalKey: "ERROR-FILTER",
			Aliases:      []string{"error-filter", "ERROR_FILTER", "errorfilter"},
			Fragment:     "YOU_ARE",
			Hint:         "Select only the red error lines in order",
		},
	}
}
