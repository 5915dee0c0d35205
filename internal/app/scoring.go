package app

import (
	"math"

	"ai-quiz-service/internal/domain"
)

// QuestionScore is the graded outcome of one question.
type QuestionScore struct {
	Index             int     `json:"index"`
	CorrectSelected   int     `json:"correctSelected"`
	IncorrectSelected int     `json:"incorrectSelected"`
	Score             float64 `json:"score"`
}

// Score is the graded outcome of a question set.
type Score struct {
	Total       float64         `json:"total"`
	Percentage  float64         `json:"percentage"`
	PerQuestion []QuestionScore `json:"perQuestion"`
}

// Rounded is the whole-number score reported as correct answers.
func (s Score) Rounded() int {
	return int(math.Round(s.Total))
}

// ScoreQuestion grades one question: correct selections earn a share of the
// correct answers, incorrect selections cost a share of the option pool, and
// the result is clamped to [0,1].
func ScoreQuestion(q domain.Question, selected []string) (float64, int, int) {
	correct, incorrect := 0, 0
	seen := make(map[string]struct{}, len(selected))
	for _, option := range selected {
		if _, dup := seen[option]; dup {
			continue
		}
		seen[option] = struct{}{}
		if q.IsCorrect(option) {
			correct++
		} else {
			incorrect++
		}
	}
	if len(q.CorrectAnswers) == 0 || len(q.Options) == 0 {
		return 0, correct, incorrect
	}
	gain := float64(correct) / float64(len(q.CorrectAnswers))
	penalty := float64(incorrect) / float64(len(q.Options))
	return math.Min(1, math.Max(0, gain-penalty)), correct, incorrect
}

// ScoreQuiz grades every question against the answers. It has no side effects.
func ScoreQuiz(questions domain.QuestionSet, answers domain.Answers) Score {
	score := Score{PerQuestion: make([]QuestionScore, 0, len(questions))}
	for i, q := range questions {
		value, correct, incorrect := ScoreQuestion(q, answers[i])
		score.Total += value
		score.PerQuestion = append(score.PerQuestion, QuestionScore{
			Index:             i,
			CorrectSelected:   correct,
			IncorrectSelected: incorrect,
			Score:             value,
		})
	}
	if len(questions) > 0 {
		score.Percentage = 100 * score.Total / float64(len(questions))
	}
	return score
}
