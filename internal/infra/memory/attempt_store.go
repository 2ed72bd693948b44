package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. Records
// are deep-copied on the way in and out so callers never share mutable
// state with the store.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]*domain.QuizAttempt)}
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) SaveAttempt(_ context.Context, attempt *domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s *AttemptStore) FindActive(_ context.Context, userID, quizID string) (*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID && !attempt.Status.Terminal() {
			return cloneAttempt(attempt), nil
		}
	}
	return nil, nil
}

func (s *AttemptStore) CountFinished(_ context.Context, userID, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID && attempt.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, userID, quizID string) ([]*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*domain.QuizAttempt
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID {
			result = append(result, cloneAttempt(attempt))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func cloneAttempt(a *domain.QuizAttempt) *domain.QuizAttempt {
	clone := *a
	clone.QuestionOrder = append([]string(nil), a.QuestionOrder...)
	if a.OptionOrders != nil {
		clone.OptionOrders = make(map[string][]string, len(a.OptionOrders))
		for id, order := range a.OptionOrders {
			clone.OptionOrders[id] = append([]string(nil), order...)
		}
	}
	if a.Answers != nil {
		clone.Answers = make(map[string]domain.AnswerRecord, len(a.Answers))
		for id, record := range a.Answers {
			clone.Answers[id] = record
		}
	}
	if a.CompletedAt != nil {
		completed := *a.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}
