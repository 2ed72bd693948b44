package engine

import (
	"strings"

	"quiz-attempt-service/internal/domain"
)

// Evaluate applies the question type's correctness rule to a submitted
// answer. It is a pure function: same inputs, same result, no side effects.
// The zero-value answer represents "unanswered" and evaluates by the same
// rule (always incorrect, except essays which stay pending review).
func Evaluate(question domain.Question, answer domain.Answer) domain.EvalResult {
	if question.Type == domain.Essay {
		// Essays are never auto-graded; a grader supplies the points later.
		return domain.EvalResult{RequiresManualGrading: true}
	}

	correct := false
	switch question.Type {
	case domain.MultipleChoice, domain.TrueFalse:
		correct = answer.OptionID != "" && answer.OptionID == singleCorrectOption(question)
	case domain.MultipleSelect:
		correct = sameIDSet(answer.OptionIDs, allCorrectOptions(question))
	case domain.FillBlank:
		correct = normalizeText(answer.Text) != "" &&
			normalizeText(answer.Text) == normalizeText(question.CorrectText)
	case domain.DragDrop:
		correct = sameSequence(answer.Ordering, question.CorrectOrder)
	case domain.Matching:
		correct = samePairSet(answer.Pairs, question.CorrectPairs)
	}

	result := domain.EvalResult{Correct: correct}
	if correct {
		result.PointsEarned = question.MaxPoints()
	}
	return result
}

func singleCorrectOption(q domain.Question) string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

func allCorrectOptions(q domain.Question) []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// normalizeText trims surrounding whitespace and case-folds for comparison.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sameIDSet compares two id slices as sets: no extras, no missing.
func sameIDSet(submitted, correct []string) bool {
	if len(correct) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(submitted))
	for _, id := range submitted {
		if _, ok := want[id]; !ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(want)
}

// sameSequence compares position by position; order matters.
func sameSequence(submitted, correct []string) bool {
	if len(correct) == 0 || len(submitted) != len(correct) {
		return false
	}
	for i := range correct {
		if submitted[i] != correct[i] {
			return false
		}
	}
	return true
}

// samePairSet compares left/right pairs without regard to order.
func samePairSet(submitted, correct []domain.MatchPair) bool {
	if len(correct) == 0 || len(submitted) != len(correct) {
		return false
	}
	want := make(map[domain.MatchPair]int, len(correct))
	for _, p := range correct {
		want[p]++
	}
	for _, p := range submitted {
		if want[p] == 0 {
			return false
		}
		want[p]--
	}
	return true
}
