package engine

import (
	"math"

	"quiz-attempt-service/internal/domain"
)

// FinalScore is the one-time aggregation stored on a terminal attempt.
type FinalScore struct {
	Score      int
	MaxScore   int
	Percentage int
	Passed     bool
}

// Finalize aggregates the attempt's answer records into the final score.
//
// Every question in the order counts toward MaxScore, answered or not.
// Questions without a record are evaluated with the empty answer so they
// contribute 0 points through the same rule as everything else, and essays
// left unanswered are still recorded as pending manual grading. The returned
// records map is complete over the question order and is what gets stored;
// the score is never recomputed from the definition afterwards.
func Finalize(def domain.QuizDefinition, attempt *domain.QuizAttempt) (FinalScore, map[string]domain.AnswerRecord) {
	records := make(map[string]domain.AnswerRecord, len(attempt.QuestionOrder))

	maxScore := 0
	score := 0
	for _, questionID := range attempt.QuestionOrder {
		question, ok := def.QuestionByID(questionID)
		if !ok {
			continue
		}
		maxScore += question.MaxPoints()

		record, answered := attempt.Answers[questionID]
		if !answered {
			result := Evaluate(question, domain.Answer{})
			record = domain.AnswerRecord{
				Correct:               result.Correct,
				PointsEarned:          result.PointsEarned,
				RequiresManualGrading: result.RequiresManualGrading,
			}
		}
		records[questionID] = record
		score += record.PointsEarned
	}

	percentage := 0
	if maxScore > 0 {
		percentage = int(math.Round(float64(score) / float64(maxScore) * 100))
	}
	return FinalScore{
		Score:      score,
		MaxScore:   maxScore,
		Percentage: percentage,
		Passed:     percentage >= def.Settings.PassPercentage,
	}, records
}

// Rescore recomputes the aggregate from already-stored answer records, used
// when manual grading revises a terminal attempt. The definition is only
// consulted for the stored MaxScore via the attempt itself, so later edits
// to quiz content never disturb historical attempts.
func Rescore(attempt *domain.QuizAttempt, passPercentage int) FinalScore {
	score := 0
	for _, record := range attempt.Answers {
		score += record.PointsEarned
	}
	percentage := 0
	if attempt.MaxScore > 0 {
		percentage = int(math.Round(float64(score) / float64(attempt.MaxScore) * 100))
	}
	return FinalScore{
		Score:      score,
		MaxScore:   attempt.MaxScore,
		Percentage: percentage,
		Passed:     percentage >= passPercentage,
	}
}
