package engine

import (
	"testing"

	"quiz-attempt-service/internal/domain"
)

func TestEvaluateMultipleChoice(t *testing.T) {
	question := domain.Question{
		ID:   "q1",
		Type: domain.MultipleChoice,
		Options: []domain.Option{
			{ID: "o1", Text: "3"},
			{ID: "o2", Text: "4", Correct: true},
			{ID: "o3", Text: "5"},
		},
		Points: 2,
	}

	result := Evaluate(question, domain.Answer{OptionID: "o2"})
	if !result.Correct || result.PointsEarned != 2 {
		t.Fatalf("expected correct with 2 points, got %+v", result)
	}

	result = Evaluate(question, domain.Answer{OptionID: "o1"})
	if result.Correct || result.PointsEarned != 0 {
		t.Fatalf("expected incorrect, got %+v", result)
	}

	if result := Evaluate(question, domain.Answer{}); result.Correct {
		t.Fatalf("empty answer must be incorrect, got %+v", result)
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	question := domain.Question{
		ID:   "q1",
		Type: domain.TrueFalse,
		Options: []domain.Option{
			{ID: "true", Text: "True", Correct: true},
			{ID: "false", Text: "False"},
		},
	}

	if result := Evaluate(question, domain.Answer{OptionID: "true"}); !result.Correct || result.PointsEarned != 1 {
		t.Fatalf("expected correct with default 1 point, got %+v", result)
	}
	if result := Evaluate(question, domain.Answer{OptionID: "false"}); result.Correct {
		t.Fatalf("expected incorrect, got %+v", result)
	}
}

func TestEvaluateMultipleSelectExactSet(t *testing.T) {
	question := domain.Question{
		ID:   "q1",
		Type: domain.MultipleSelect,
		Options: []domain.Option{
			{ID: "a", Correct: true},
			{ID: "b"},
			{ID: "c", Correct: true},
		},
		Points: 3,
	}

	cases := []struct {
		name      string
		submitted []string
		correct   bool
	}{
		{"exact set", []string{"a", "c"}, true},
		{"order irrelevant", []string{"c", "a"}, true},
		{"missing one", []string{"a"}, false},
		{"extra option", []string{"a", "b", "c"}, false},
		{"duplicates collapse", []string{"a", "a", "c"}, true},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		result := Evaluate(question, domain.Answer{OptionIDs: tc.submitted})
		if result.Correct != tc.correct {
			t.Fatalf("%s: expected correct=%v, got %+v", tc.name, tc.correct, result)
		}
		if tc.correct && result.PointsEarned != 3 {
			t.Fatalf("%s: expected 3 points, got %+v", tc.name, result)
		}
	}
}

func TestEvaluateFillBlankNormalizes(t *testing.T) {
	question := domain.Question{
		ID:          "q1",
		Type:        domain.FillBlank,
		CorrectText: "Paris",
		Points:      1,
	}

	if result := Evaluate(question, domain.Answer{Text: " paris "}); !result.Correct {
		t.Fatalf("expected trimmed case-folded match, got %+v", result)
	}
	if result := Evaluate(question, domain.Answer{Text: "London"}); result.Correct {
		t.Fatalf("expected incorrect, got %+v", result)
	}
	if result := Evaluate(question, domain.Answer{Text: "   "}); result.Correct {
		t.Fatalf("whitespace-only answer must be incorrect, got %+v", result)
	}
}

func TestEvaluateDragDropOrderMatters(t *testing.T) {
	question := domain.Question{
		ID:           "q1",
		Type:         domain.DragDrop,
		CorrectOrder: []string{"1", "2", "3"},
		Points:       2,
	}

	if result := Evaluate(question, domain.Answer{Ordering: []string{"1", "2", "3"}}); !result.Correct {
		t.Fatalf("expected correct sequence, got %+v", result)
	}
	if result := Evaluate(question, domain.Answer{Ordering: []string{"2", "1", "3"}}); result.Correct {
		t.Fatalf("swapped sequence must be incorrect, got %+v", result)
	}
	if result := Evaluate(question, domain.Answer{Ordering: []string{"1", "2"}}); result.Correct {
		t.Fatalf("short sequence must be incorrect, got %+v", result)
	}
}

func TestEvaluateMatchingUnordered(t *testing.T) {
	question := domain.Question{
		ID:   "q1",
		Type: domain.Matching,
		CorrectPairs: []domain.MatchPair{
			{Left: "l1", Right: "r1"},
			{Left: "l2", Right: "r2"},
		},
	}

	submitted := []domain.MatchPair{
		{Left: "l2", Right: "r2"},
		{Left: "l1", Right: "r1"},
	}
	if result := Evaluate(question, domain.Answer{Pairs: submitted}); !result.Correct {
		t.Fatalf("pair order must not matter, got %+v", result)
	}

	crossed := []domain.MatchPair{
		{Left: "l1", Right: "r2"},
		{Left: "l2", Right: "r1"},
	}
	if result := Evaluate(question, domain.Answer{Pairs: crossed}); result.Correct {
		t.Fatalf("crossed pairs must be incorrect, got %+v", result)
	}
}

func TestEvaluateEssayPendsManualGrading(t *testing.T) {
	question := domain.Question{ID: "q1", Type: domain.Essay, Points: 5}

	result := Evaluate(question, domain.Answer{Text: "A thoughtful response."})
	if result.Correct || result.PointsEarned != 0 || !result.RequiresManualGrading {
		t.Fatalf("essay must pend manual grading with 0 points, got %+v", result)
	}

	// Unanswered essays pend too; finalization treats them the same way.
	result = Evaluate(question, domain.Answer{})
	if !result.RequiresManualGrading {
		t.Fatalf("empty essay must still pend manual grading, got %+v", result)
	}
}
