package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates the referenced attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrEmptyQuiz is returned when start is refused because the quiz has no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrRetakeLimitExceeded is returned when the retake policy forbids another attempt.
	ErrRetakeLimitExceeded = errors.New("retake limit exceeded")
	// ErrAttemptInProgress is returned when the user already has an active attempt for the quiz.
	ErrAttemptInProgress = errors.New("attempt already in progress")
	// ErrInvalidState is returned when an operation is not valid for the attempt's current status.
	ErrInvalidState = errors.New("operation not valid in current attempt state")
	// ErrAttemptFinalized is returned when a mutation targets a terminal attempt.
	ErrAttemptFinalized = errors.New("attempt already finalized")
	// ErrUnknownQuestion is returned when an answer references a question outside the attempt's order.
	ErrUnknownQuestion = errors.New("question not part of attempt")
	// ErrPauseNotAllowed is returned when pausing is disabled or the state disallows it.
	ErrPauseNotAllowed = errors.New("pause not allowed")
	// ErrTimerNotRunning is returned when subscribing to ticks of an attempt with no running timer.
	ErrTimerNotRunning = errors.New("no running timer for attempt")
	// ErrNotManuallyGradable is returned when a grade targets an answer that is not pending review.
	ErrNotManuallyGradable = errors.New("answer does not require manual grading")
)
