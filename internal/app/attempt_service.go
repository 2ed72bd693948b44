package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/engine"
)

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// AttemptStore abstracts how attempts are persisted (in-memory, Redis,
// Postgres). SaveAttempt writes the full record atomically; together with
// the service's per-attempt locking it is the serialization point for all
// attempt mutations.
type AttemptStore interface {
	GetAttempt(ctx context.Context, attemptID string) (*domain.QuizAttempt, error)
	SaveAttempt(ctx context.Context, attempt *domain.QuizAttempt) error
	FindActive(ctx context.Context, userID, quizID string) (*domain.QuizAttempt, error)
	CountFinished(ctx context.Context, userID, quizID string) (int, error)
	ListAttempts(ctx context.Context, userID, quizID string) ([]*domain.QuizAttempt, error)
}

// AttemptService owns the attempt lifecycle: start, answer capture,
// pause/resume, submission, timeout and manual grading. All operations on
// one attempt run inside a per-attempt critical section; a timer tick
// racing a submit never finalizes twice.
type AttemptService struct {
	attempts AttemptStore
	quizzes  QuizRepository
	timers   *timerController
	locks    *lockTable
	now      func() time.Time
	newID    func() string
	newSeed  func() int64
}

func NewAttemptService(attempts AttemptStore, quizzes QuizRepository) *AttemptService {
	return NewAttemptServiceWithClock(attempts, quizzes, time.Now, time.Second)
}

// NewAttemptServiceWithClock overrides the wall clock and the countdown
// tick interval. Tests inject a fake clock; the server passes the
// configured tick.
func NewAttemptServiceWithClock(attempts AttemptStore, quizzes QuizRepository, now func() time.Time, tick time.Duration) *AttemptService {
	s := &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		locks:    newLockTable(),
		now:      now,
		newID:    uuid.NewString,
		newSeed:  func() int64 { return rand.Int63() },
	}
	s.timers = newTimerController(s.HandleExpiry, tick)
	return s
}

// Start creates a new attempt for the user, enforcing the retake policy and
// the single-active-attempt rule, and fixes the presentation order.
func (s *AttemptService) Start(ctx context.Context, userID, quizID string) (*domain.QuizAttempt, error) {
	def, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(def.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	release := s.locks.acquire("start:" + userID + ":" + quizID)
	defer release()

	active, err := s.attempts.FindActive(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		// An overdue active attempt is finalized here rather than blocking
		// the user forever on a crashed expiry.
		if active.Status == domain.StatusInProgress && active.Timed() && active.Remaining(s.now()) == 0 {
			if err := s.HandleExpiry(ctx, active.ID); err != nil {
				return nil, err
			}
		} else {
			return nil, domain.ErrAttemptInProgress
		}
	}

	finished, err := s.attempts.CountFinished(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if !def.Settings.AllowRetakes && finished >= 1 {
		return nil, domain.ErrRetakeLimitExceeded
	}
	if def.Settings.AllowRetakes && def.Settings.MaxRetakes > 0 && finished >= def.Settings.MaxRetakes {
		return nil, domain.ErrRetakeLimitExceeded
	}

	seed := s.newSeed()
	order, err := engine.BuildOrder(def, seed)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt := &domain.QuizAttempt{
		ID:                   s.newID(),
		QuizID:               quizID,
		UserID:               userID,
		Status:               domain.StatusInProgress,
		Seed:                 seed,
		QuestionOrder:        order.Questions,
		OptionOrders:         order.Options,
		Answers:              make(map[string]domain.AnswerRecord),
		StartedAt:            now,
		ResumedAt:            now,
		TimeLimitSeconds:     def.Settings.TimeLimitSeconds,
		TimeRemainingSeconds: def.Settings.TimeLimitSeconds,
	}
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if attempt.Timed() {
		s.timers.start(attempt.ID, attempt.TimeRemainingSeconds)
	}
	return attempt, nil
}

// SubmitAnswer evaluates and records one answer. Re-submitting a question
// replaces the previous record; points are never summed across submissions.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, questionID string, answer domain.Answer, timeSpentSeconds int) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.expireIfDue(ctx, def, attempt); err != nil {
		return nil, err
	} else if expired {
		return nil, domain.ErrAttemptFinalized
	}
	if attempt.Status.Terminal() {
		return nil, domain.ErrAttemptFinalized
	}
	if attempt.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidState
	}
	if !attempt.HasQuestion(questionID) {
		return nil, domain.ErrUnknownQuestion
	}

	question, ok := def.QuestionByID(questionID)
	if !ok {
		return nil, domain.ErrUnknownQuestion
	}
	result := engine.Evaluate(question, answer)
	attempt.Answers[questionID] = domain.AnswerRecord{
		Answer:                answer,
		TimeSpentSeconds:      timeSpentSeconds,
		PointsEarned:          result.PointsEarned,
		Correct:               result.Correct,
		RequiresManualGrading: result.RequiresManualGrading,
	}
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Pause freezes the clock: the remaining seconds are captured into the
// attempt and wall time spent paused is never deducted.
func (s *AttemptService) Pause(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.expireIfDue(ctx, def, attempt); err != nil {
		return nil, err
	} else if expired {
		return nil, domain.ErrAttemptFinalized
	}
	if attempt.Status.Terminal() {
		return nil, domain.ErrAttemptFinalized
	}
	if !def.Settings.AllowPause || attempt.Status != domain.StatusInProgress {
		return nil, domain.ErrPauseNotAllowed
	}

	remaining := attempt.Remaining(s.now())
	s.timers.stop(attempt.ID)
	if attempt.Timed() {
		attempt.TimeRemainingSeconds = remaining
	}
	attempt.Status = domain.StatusPaused
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Resume restarts the clock from the captured remaining seconds.
func (s *AttemptService) Resume(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, _, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.Terminal() {
		return nil, domain.ErrAttemptFinalized
	}
	if attempt.Status != domain.StatusPaused {
		return nil, domain.ErrInvalidState
	}

	attempt.Status = domain.StatusInProgress
	attempt.ResumedAt = s.now()
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if attempt.Timed() {
		s.timers.start(attempt.ID, attempt.TimeRemainingSeconds)
	}
	return attempt, nil
}

// Submit finalizes the attempt as completed. Submitting an already-terminal
// attempt returns the stored result without recomputation; submitting after
// the limit elapsed finalizes as timeout instead.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.Terminal() {
		return attempt, nil
	}
	if expired, err := s.expireIfDue(ctx, def, attempt); err != nil {
		return nil, err
	} else if expired {
		return attempt, nil
	}
	if attempt.Status != domain.StatusInProgress && attempt.Status != domain.StatusPaused {
		return nil, domain.ErrInvalidState
	}
	if err := s.finalize(ctx, def, attempt, domain.StatusCompleted); err != nil {
		return nil, err
	}
	return attempt, nil
}

// HandleExpiry finalizes an in-progress attempt whose limit has elapsed.
// It is driven by the timer controller and is safe to call repeatedly: once
// the attempt is terminal it is a no-op.
func (s *AttemptService) HandleExpiry(ctx context.Context, attemptID string) error {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status.Terminal() || attempt.Status != domain.StatusInProgress {
		return nil
	}
	if !attempt.Timed() || attempt.Remaining(s.now()) > 0 {
		return nil
	}
	return s.finalize(ctx, def, attempt, domain.StatusTimeout)
}

// GradeEssay lets a grader supply points for an answer that pends manual
// grading on a terminal attempt. The aggregate is revised from the stored
// records only; the definition is never re-evaluated against history.
func (s *AttemptService) GradeEssay(ctx context.Context, attemptID, questionID string, points int) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.Terminal() {
		return nil, domain.ErrInvalidState
	}
	if !attempt.HasQuestion(questionID) {
		return nil, domain.ErrUnknownQuestion
	}
	record, ok := attempt.Answers[questionID]
	if !ok || !record.RequiresManualGrading {
		return nil, domain.ErrNotManuallyGradable
	}

	max := 1
	if question, found := def.QuestionByID(questionID); found {
		max = question.MaxPoints()
	}
	if points < 0 {
		points = 0
	}
	if points > max {
		points = max
	}
	record.PointsEarned = points
	record.Correct = points == max
	record.RequiresManualGrading = false
	attempt.Answers[questionID] = record

	final := engine.Rescore(attempt, def.Settings.PassPercentage)
	attempt.Score = final.Score
	attempt.Percentage = final.Percentage
	attempt.Passed = final.Passed
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Attempt returns the attempt, re-finalizing it as timeout first when the
// limit elapsed without the timer managing to fire (crash recovery).
func (s *AttemptService) Attempt(ctx context.Context, attemptID string) (*domain.QuizAttempt, error) {
	release := s.locks.acquire(attemptID)
	defer release()

	attempt, def, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.expireIfDue(ctx, def, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Review builds the post-finalization review honoring the quiz's display
// settings.
func (s *AttemptService) Review(ctx context.Context, attemptID string) (domain.Review, error) {
	attempt, err := s.Attempt(ctx, attemptID)
	if err != nil {
		return domain.Review{}, err
	}
	def, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Review{}, err
	}
	return domain.BuildReview(def, attempt)
}

// ListAttempts returns the user's attempt history for a quiz.
func (s *AttemptService) ListAttempts(ctx context.Context, userID, quizID string) ([]*domain.QuizAttempt, error) {
	return s.attempts.ListAttempts(ctx, userID, quizID)
}

// SubscribeTicks exposes the per-second remaining time of a running attempt
// timer for display. The caller must invoke cancel to avoid leaks.
func (s *AttemptService) SubscribeTicks(attemptID string) (<-chan int, func(), error) {
	return s.timers.subscribe(attemptID)
}

func (s *AttemptService) load(ctx context.Context, attemptID string) (*domain.QuizAttempt, domain.QuizDefinition, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, domain.QuizDefinition{}, err
	}
	def, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, domain.QuizDefinition{}, err
	}
	return attempt, def, nil
}

// expireIfDue finalizes an overdue in-progress attempt as timeout. Callers
// already hold the attempt lock.
func (s *AttemptService) expireIfDue(ctx context.Context, def domain.QuizDefinition, attempt *domain.QuizAttempt) (bool, error) {
	if attempt.Status != domain.StatusInProgress || !attempt.Timed() {
		return false, nil
	}
	if attempt.Remaining(s.now()) > 0 {
		return false, nil
	}
	if err := s.finalize(ctx, def, attempt, domain.StatusTimeout); err != nil {
		return false, err
	}
	return true, nil
}

// finalize computes and stores the final score exactly once. Callers hold
// the attempt lock and have verified the attempt is not yet terminal.
func (s *AttemptService) finalize(ctx context.Context, def domain.QuizDefinition, attempt *domain.QuizAttempt, status domain.AttemptStatus) error {
	now := s.now()
	if attempt.Timed() {
		attempt.TimeRemainingSeconds = attempt.Remaining(now)
	}
	s.timers.stop(attempt.ID)

	final, records := engine.Finalize(def, attempt)
	attempt.Answers = records
	attempt.Score = final.Score
	attempt.MaxScore = final.MaxScore
	attempt.Percentage = final.Percentage
	attempt.Passed = final.Passed
	attempt.Status = status
	attempt.CompletedAt = &now
	return s.attempts.SaveAttempt(ctx, attempt)
}
