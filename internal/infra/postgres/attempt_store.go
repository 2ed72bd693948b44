package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore persists attempts in Postgres. The full record lives in a
// JSONB column; user/quiz/status/started_at are lifted into columns for the
// active-attempt and retake queries.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_attempts WHERE id=$1`, attemptID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return unmarshalAttempt(raw)
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, quiz_id, user_id, status, started_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, data=EXCLUDED.data`,
		attempt.ID, attempt.QuizID, attempt.UserID, string(attempt.Status), attempt.StartedAt, raw)
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) FindActive(ctx context.Context, userID, quizID string) (*domain.QuizAttempt, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM quiz_attempts
		WHERE user_id=$1 AND quiz_id=$2 AND status IN ($3, $4)
		ORDER BY started_at DESC LIMIT 1`,
		userID, quizID, string(domain.StatusInProgress), string(domain.StatusPaused)).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	return unmarshalAttempt(raw)
}

func (s *AttemptStore) CountFinished(ctx context.Context, userID, quizID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM quiz_attempts
		WHERE user_id=$1 AND quiz_id=$2 AND status IN ($3, $4)`,
		userID, quizID, string(domain.StatusCompleted), string(domain.StatusTimeout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count finished attempts: %w", err)
	}
	return count, nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, userID, quizID string) ([]*domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM quiz_attempts
		WHERE user_id=$1 AND quiz_id=$2
		ORDER BY started_at`, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.QuizAttempt
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempt, err := unmarshalAttempt(raw)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func unmarshalAttempt(raw []byte) (*domain.QuizAttempt, error) {
	var attempt domain.QuizAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &attempt, nil
}
