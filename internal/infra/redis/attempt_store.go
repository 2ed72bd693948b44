package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore persists attempts in Redis.
// Layout:
//
//	SET  attempt:{id}                      full attempt JSON
//	SET  attempt:active:{user}:{quiz}      id of the non-terminal attempt
//	SADD attempt:finished:{user}:{quiz}    ids of terminal attempts
//	ZADD attempt:index:{user}:{quiz}       all ids scored by start time
//
// The active pointer enforces the one-active-attempt rule; the finished set
// backs retake counting and stays idempotent across repeated saves.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAttemptStore creates the store. ttl <= 0 keeps attempts forever;
// otherwise terminal attempts expire after ttl (active ones never do).
func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	raw, err := s.client.Get(ctx, s.attemptKey(attemptID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.QuizAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &attempt, nil
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	activeKey := s.activeKey(attempt.UserID, attempt.QuizID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.attemptKey(attempt.ID), raw, 0)
	pipe.ZAdd(ctx, s.indexKey(attempt.UserID, attempt.QuizID), redis.Z{
		Score:  float64(attempt.StartedAt.UnixNano()),
		Member: attempt.ID,
	})
	if attempt.Status.Terminal() {
		pipe.SAdd(ctx, s.finishedKey(attempt.UserID, attempt.QuizID), attempt.ID)
		pipe.Del(ctx, activeKey)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.attemptKey(attempt.ID), s.ttl)
		}
	} else {
		pipe.Set(ctx, activeKey, attempt.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) FindActive(ctx context.Context, userID, quizID string) (*domain.QuizAttempt, error) {
	id, err := s.client.Get(ctx, s.activeKey(userID, quizID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	attempt, err := s.GetAttempt(ctx, id)
	if err == domain.ErrAttemptNotFound {
		// Stale pointer; clear it best-effort.
		_ = s.client.Del(ctx, s.activeKey(userID, quizID)).Err()
		return nil, nil
	}
	return attempt, err
}

func (s *AttemptStore) CountFinished(ctx context.Context, userID, quizID string) (int, error) {
	n, err := s.client.SCard(ctx, s.finishedKey(userID, quizID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count finished attempts: %w", err)
	}
	return int(n), nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, userID, quizID string) ([]*domain.QuizAttempt, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(userID, quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]*domain.QuizAttempt, 0, len(ids))
	for _, id := range ids {
		attempt, err := s.GetAttempt(ctx, id)
		if err == domain.ErrAttemptNotFound {
			continue // expired
		}
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (s *AttemptStore) attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) activeKey(userID, quizID string) string {
	return "attempt:active:" + userID + ":" + quizID
}

func (s *AttemptStore) finishedKey(userID, quizID string) string {
	return "attempt:finished:" + userID + ":" + quizID
}

func (s *AttemptStore) indexKey(userID, quizID string) string {
	return "attempt:index:" + userID + ":" + quizID
}
