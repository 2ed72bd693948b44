package domain

// BuildReview assembles the reviewable outcome of a terminal attempt,
// filtered by the quiz's display settings. Returns ErrInvalidState while
// the attempt is not terminal so correct answers never leak mid-attempt.
func BuildReview(def QuizDefinition, attempt *QuizAttempt) (Review, error) {
	if !attempt.Status.Terminal() {
		return Review{}, ErrInvalidState
	}

	review := Review{
		AttemptID:  attempt.ID,
		QuizID:     attempt.QuizID,
		Score:      attempt.Score,
		MaxScore:   attempt.MaxScore,
		Percentage: attempt.Percentage,
		Passed:     attempt.Passed,
	}
	if !def.Settings.ShowResults {
		return review, nil
	}

	for _, questionID := range attempt.QuestionOrder {
		question, ok := def.QuestionByID(questionID)
		if !ok {
			continue
		}
		entry := ReviewQuestion{
			QuestionID: questionID,
			Prompt:     question.Prompt,
			Points:     question.MaxPoints(),
		}
		if record, answered := attempt.Answers[questionID]; answered {
			answer := record.Answer
			entry.Answer = &answer
			entry.PointsEarned = record.PointsEarned
			entry.RequiresManualGrading = record.RequiresManualGrading
			if !record.RequiresManualGrading {
				correct := record.Correct
				entry.Correct = &correct
			}
		}
		if def.Settings.ShowCorrectAnswers {
			entry.CorrectOptionIDs = correctOptionIDs(question)
			entry.CorrectText = question.CorrectText
			entry.CorrectOrder = question.CorrectOrder
			entry.CorrectPairs = question.CorrectPairs
		}
		if def.Settings.ShowExplanation {
			entry.Explanation = question.Explanation
		}
		review.Questions = append(review.Questions, entry)
	}
	return review, nil
}

func correctOptionIDs(q Question) []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}
