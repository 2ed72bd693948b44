package engine

import (
	"math/rand"

	"quiz-attempt-service/internal/domain"
)

// Order fixes the presentation order for one attempt: the question sequence
// and, per option-bearing question, the option sequence.
type Order struct {
	Questions []string
	Options   map[string][]string
}

// BuildOrder derives the attempt's ordering from the definition and a seed.
// The same seed always reproduces the same order, so re-fetching an attempt
// mid-session shows a stable layout; a fresh attempt gets a fresh seed.
// Shuffling only touches presentation order, never which option is correct.
func BuildOrder(def domain.QuizDefinition, seed int64) (Order, error) {
	if len(def.Questions) == 0 {
		return Order{}, domain.ErrEmptyQuiz
	}

	rnd := rand.New(rand.NewSource(seed))

	order := Order{
		Questions: make([]string, 0, len(def.Questions)),
		Options:   make(map[string][]string),
	}
	for _, q := range def.Questions {
		order.Questions = append(order.Questions, q.ID)
	}
	if def.Settings.ShuffleQuestions {
		rnd.Shuffle(len(order.Questions), func(i, j int) {
			order.Questions[i], order.Questions[j] = order.Questions[j], order.Questions[i]
		})
	}

	for _, q := range def.Questions {
		if !q.Type.HasOptions() || len(q.Options) == 0 {
			continue
		}
		ids := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			ids = append(ids, opt.ID)
		}
		if def.Settings.ShuffleOptions {
			rnd.Shuffle(len(ids), func(i, j int) {
				ids[i], ids[j] = ids[j], ids[i]
			})
		}
		order.Options[q.ID] = ids
	}
	return order, nil
}
