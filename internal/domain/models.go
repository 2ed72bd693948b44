package domain

import "time"

// QuestionType discriminates how an answer is captured and evaluated.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	MultipleSelect QuestionType = "multiple-select"
	FillBlank      QuestionType = "fill-blank"
	DragDrop       QuestionType = "drag-drop"
	Matching       QuestionType = "matching"
	Essay          QuestionType = "essay"
)

// HasOptions reports whether the type presents a list of options to the taker.
func (t QuestionType) HasOptions() bool {
	switch t {
	case MultipleChoice, TrueFalse, MultipleSelect, Matching, DragDrop:
		return true
	}
	return false
}

// Option represents a possible answer for an option-bearing question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// MatchPair links a left-column item to its right-column counterpart.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is one entry of a quiz definition. The correct-answer fields are
// type-dependent: Options carry the flags for choice/selection types,
// CorrectText serves fill-blank, CorrectOrder serves drag-drop and
// CorrectPairs serves matching.
type Question struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []Option     `json:"options,omitempty"`
	CorrectText  string       `json:"correctText,omitempty"`
	CorrectOrder []string     `json:"correctOrder,omitempty"`
	CorrectPairs []MatchPair  `json:"correctPairs,omitempty"`
	Points       int          `json:"points"` // defaults to 1 if zero
	Required     bool         `json:"required"`
	Explanation  string       `json:"explanation,omitempty"`
}

// MaxPoints returns the question's point value, defaulting to 1.
func (q Question) MaxPoints() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// QuizSettings controls attempt behavior. TimeLimitSeconds == 0 means
// unlimited; MaxRetakes == 0 means unlimited retakes (when AllowRetakes).
type QuizSettings struct {
	TimeLimitSeconds   int  `json:"timeLimitSeconds"`
	AllowRetakes       bool `json:"allowRetakes"`
	MaxRetakes         int  `json:"maxRetakes"`
	ShuffleQuestions   bool `json:"shuffleQuestions"`
	ShuffleOptions     bool `json:"shuffleOptions"`
	PassPercentage     int  `json:"passPercentage"`
	AllowPause         bool `json:"allowPause"`
	ShowResults        bool `json:"showResults"`
	ShowCorrectAnswers bool `json:"showCorrectAnswers"`
	ShowExplanation    bool `json:"showExplanation"`
}

// QuizDefinition is the immutable content an attempt runs against. The
// engine only reads it; authoring owns it.
type QuizDefinition struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	Questions []Question   `json:"questions"`
	Settings  QuizSettings `json:"settings"`
}

// QuestionByID returns the question with the given id, if present.
func (d QuizDefinition) QuestionByID(id string) (Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return d.Questions[i], true
		}
	}
	return Question{}, false
}

// AttemptStatus is the lifecycle state of a QuizAttempt.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not-started"
	StatusInProgress AttemptStatus = "in-progress"
	StatusPaused     AttemptStatus = "paused"
	StatusCompleted  AttemptStatus = "completed"
	StatusTimeout    AttemptStatus = "timeout"
)

// Terminal reports whether the status admits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTimeout
}

// Answer is the taker's submission for a single question. Exactly one field
// group is populated depending on the question type; the zero value is the
// "unanswered" answer used at finalization.
type Answer struct {
	OptionID  string      `json:"optionId,omitempty"`  // multiple-choice, true-false
	OptionIDs []string    `json:"optionIds,omitempty"` // multiple-select
	Text      string      `json:"text,omitempty"`      // fill-blank, essay
	Ordering  []string    `json:"ordering,omitempty"`  // drag-drop
	Pairs     []MatchPair `json:"pairs,omitempty"`     // matching
}

// EvalResult is the outcome of evaluating one answer.
type EvalResult struct {
	Correct               bool `json:"correct"`
	PointsEarned          int  `json:"pointsEarned"`
	RequiresManualGrading bool `json:"requiresManualGrading"`
}

// AnswerRecord is the stored per-question submission, latest write wins.
type AnswerRecord struct {
	Answer                Answer `json:"answer"`
	TimeSpentSeconds      int    `json:"timeSpentSeconds"`
	PointsEarned          int    `json:"pointsEarned"`
	Correct               bool   `json:"correct"`
	RequiresManualGrading bool   `json:"requiresManualGrading"`
}

// QuizAttempt is one timed instance of a user taking a quiz.
//
// QuestionOrder and OptionOrders are fixed at start and never mutated.
// While in progress with a time limit, the authoritative remaining time is
// TimeRemainingSeconds minus the wall time elapsed since ResumedAt; Pause
// folds the elapsed part back into TimeRemainingSeconds.
type QuizAttempt struct {
	ID     string        `json:"id"`
	QuizID string        `json:"quizId"`
	UserID string        `json:"userId"`
	Status AttemptStatus `json:"status"`

	Seed          int64                   `json:"seed"`
	QuestionOrder []string                `json:"questionOrder"`
	OptionOrders  map[string][]string     `json:"optionOrders,omitempty"`
	Answers       map[string]AnswerRecord `json:"answers"`

	StartedAt            time.Time  `json:"startedAt"`
	ResumedAt            time.Time  `json:"resumedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	TimeLimitSeconds     int        `json:"timeLimitSeconds"`
	TimeRemainingSeconds int        `json:"timeRemainingSeconds"`

	Score      int  `json:"score"`
	MaxScore   int  `json:"maxScore"`
	Percentage int  `json:"percentage"`
	Passed     bool `json:"passed"`
}

// Timed reports whether the attempt runs under a time limit.
func (a *QuizAttempt) Timed() bool {
	return a.TimeLimitSeconds > 0
}

// Remaining returns the seconds left at the given instant, clamped at zero.
// Only meaningful for timed attempts; while paused or terminal the stored
// value is returned unchanged.
func (a *QuizAttempt) Remaining(now time.Time) int {
	if !a.Timed() {
		return 0
	}
	if a.Status != StatusInProgress {
		return a.TimeRemainingSeconds
	}
	elapsed := int(now.Sub(a.ResumedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := a.TimeRemainingSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// HasQuestion reports whether the question id belongs to this attempt's order.
func (a *QuizAttempt) HasQuestion(questionID string) bool {
	for _, id := range a.QuestionOrder {
		if id == questionID {
			return true
		}
	}
	return false
}

// ReviewQuestion is one entry of a post-finalization review, filtered by the
// quiz's display settings.
type ReviewQuestion struct {
	QuestionID            string      `json:"questionId"`
	Prompt                string      `json:"prompt"`
	Answer                *Answer     `json:"answer,omitempty"`
	Correct               *bool       `json:"correct,omitempty"`
	PointsEarned          int         `json:"pointsEarned"`
	Points                int         `json:"points"`
	RequiresManualGrading bool        `json:"requiresManualGrading"`
	CorrectOptionIDs      []string    `json:"correctOptionIds,omitempty"`
	CorrectText           string      `json:"correctText,omitempty"`
	CorrectOrder          []string    `json:"correctOrder,omitempty"`
	CorrectPairs          []MatchPair `json:"correctPairs,omitempty"`
	Explanation           string      `json:"explanation,omitempty"`
}

// Review is the reviewable outcome of a terminal attempt.
type Review struct {
	AttemptID  string           `json:"attemptId"`
	QuizID     string           `json:"quizId"`
	Score      int              `json:"score"`
	MaxScore   int              `json:"maxScore"`
	Percentage int              `json:"percentage"`
	Passed     bool             `json:"passed"`
	Questions  []ReviewQuestion `json:"questions,omitempty"`
}
