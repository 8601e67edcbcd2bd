package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"gauntlet-service/internal/domain"
)

// SubmissionLog is the Postgres-backed append-only audit trail. Rows are
// inserted once and never updated.
type SubmissionLog struct {
	pool *pgxpool.Pool
}

func NewSubmissionLog(pool *pgxpool.Pool) *SubmissionLog {
	return &SubmissionLog{pool: pool}
}

func (l *SubmissionLog) Append(ctx context.Context, sub domain.Submission) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO submissions
			(id, participant_id, display_name, level, answer, is_correct,
			 attempt_number, time_taken_ms, ip, user_agent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sub.ID, sub.ParticipantID, sub.DisplayName, sub.Level, sub.Answer, sub.Correct,
		sub.AttemptNumber, sub.TimeTakenMs, sub.Meta.IP, sub.Meta.UserAgent, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (l *SubmissionLog) Recent(ctx context.Context, level string, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, participant_id, display_name, level, answer, is_correct,
		       attempt_number, time_taken_ms, ip, user_agent, created_at
		FROM submissions`
	args := []interface{}{}
	if level != "" {
		query += ` WHERE level=$1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, level, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(
			&sub.ID, &sub.ParticipantID, &sub.DisplayName, &sub.Level, &sub.Answer,
			&sub.Correct, &sub.AttemptNumber, &sub.TimeTakenMs,
			&sub.Meta.IP, &sub.Meta.UserAgent, &sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (l *SubmissionLog) LevelStats(ctx context.Context) ([]domain.LevelStats, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT level,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_correct) AS successful,
		       COUNT(DISTINCT participant_id) AS unique_participants
		FROM submissions
		GROUP BY level
		ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("query level stats: %w", err)
	}
	defer rows.Close()

	var out []domain.LevelStats
	for rows.Next() {
		var s domain.LevelStats
		if err := rows.Scan(&s.Level, &s.TotalAttempts, &s.SuccessfulAttempts, &s.UniqueParticipants); err != nil {
			return nil, fmt.Errorf("scan level stats: %w", err)
		}
		if s.TotalAttempts > 0 {
			s.SuccessRate = float64(s.SuccessfulAttempts) / float64(s.TotalAttempts) * 100
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
