package generator

import (
	"errors"
	"log"
	"strings"

	"ai-quiz-service/internal/domain"
)

// ErrNoValidQuestions is returned when nothing usable survives sanitizing.
var ErrNoValidQuestions = errors.New("failed to generate valid questions")

// Sanitize truncates generated questions to the requested count and drops the
// ones that violate the question data model.
func Sanitize(questions domain.QuestionSet, count int, logger *log.Logger) (domain.QuestionSet, error) {
	if count > 0 && len(questions) > count {
		questions = questions[:count]
	}
	out := make(domain.QuestionSet, 0, len(questions))
	for i, q := range questions {
		q = trimQuestion(q)
		if err := q.Validate(); err != nil {
			if logger != nil {
				logger.Printf("dropping generated question %d: %v", i, err)
			}
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoValidQuestions
	}
	return out, nil
}

func trimQuestion(q domain.Question) domain.Question {
	q.Text = strings.TrimSpace(q.Text)
	q.Explanation = strings.TrimSpace(q.Explanation)
	return q
}
