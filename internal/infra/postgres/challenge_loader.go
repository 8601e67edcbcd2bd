package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gauntlet-service/internal/domain"
)

// ChallengeLoader loads challenge JSONB from Postgres.
type ChallengeLoader struct {
	pool *pgxpool.Pool
}

func NewChallengeLoader(pool *pgxpool.Pool) *ChallengeLoader {
	return &ChallengeLoader{pool: pool}
}

func (l *ChallengeLoader) LoadChallenge(ctx context.Context, level string) (domain.Challenge, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM challenges WHERE level=$1`, level).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Challenge{}, domain.ErrChallengeNotFound
		}
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}
	var challenge domain.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return domain.Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	challenge.Level = level
	return challenge, nil
}
