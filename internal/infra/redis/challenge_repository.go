package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"gauntlet-service/internal/domain"
)

// ChallengeLoader fetches challenge content from a backing store.
type ChallengeLoader interface {
	LoadChallenge(ctx context.Context, level string) (domain.Challenge, error)
}

// ChallengeRepository caches challenges in Redis (hash per level) and falls
// back to a loader on cache miss. Fields are stored as:
//
//	HSET gauntlet:challenge:{level} answer {answer} points {points} active {0|1} ...
type ChallengeRepository struct {
	client *redis.Client
	loader ChallengeLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewChallengeRepository(client *redis.Client, loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, level string) (domain.Challenge, error) {
	key := r.key(level)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildChallengeFromCache(level, fields), nil
	}

	result, err, _ := r.sf.Do(level, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildChallengeFromCache(level, fields), nil
		}

		challenge, err := r.loader.LoadChallenge(ctx, level)
		if err != nil {
			return domain.Challenge{}, err
		}

		active := "0"
		if challenge.Active {
			active = "1"
		}
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key,
			"answer", challenge.Answer,
			"description", challenge.Description,
			"category", challenge.Category,
			"difficulty", challenge.Difficulty,
			"points", challenge.Points,
			"active", active,
		)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return challenge, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

func (r *ChallengeRepository) key(level string) string {
	return "gauntlet:challenge:" + level
}

func buildChallengeFromCache(level string, fields map[string]string) domain.Challenge {
	points := 0
	if p, err := strconv.Atoi(fields["points"]); err == nil {
		points = p
	}
	return domain.Challenge{
		Level:       level,
		Answer:      fields["answer"],
		Description: fields["description"],
		Category:    fields["category"],
		Difficulty:  fields["difficulty"],
		Points:      points,
		Active:      fields["active"] == "1",
	}
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
