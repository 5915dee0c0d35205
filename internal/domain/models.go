package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxQuestions bounds a single generation request.
	MaxQuestions = 50
	// MaxTopicLength bounds the topic text accepted for generation.
	MaxTopicLength = 200
	// DefaultCategory is reported for results until topics carry their own category.
	DefaultCategory = "General"
)

// Difficulty is the requested difficulty of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes raw input into a Difficulty.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidRequest)
}

// Question models a multiple-choice question with one or more correct options.
type Question struct {
	Text           string   `json:"question" yaml:"question"`
	Options        []string `json:"options" yaml:"options"`
	CorrectAnswers []string `json:"answers" yaml:"answers"`
	Explanation    string   `json:"explanation" yaml:"explanation"`
}

// MultiSelect reports whether more than one option is correct.
func (q Question) MultiSelect() bool {
	return len(q.CorrectAnswers) > 1
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// IsCorrect reports whether option is among the correct answers.
func (q Question) IsCorrect(option string) bool {
	for _, a := range q.CorrectAnswers {
		if a == option {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options required", ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: empty option", ErrInvalidQuestion)
		}
		if _, dup := seen[o]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, o)
		}
		seen[o] = struct{}{}
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("%w: no correct answers", ErrInvalidQuestion)
	}
	for _, a := range q.CorrectAnswers {
		if _, ok := seen[a]; !ok {
			return fmt.Errorf("%w: answer %q is not an option", ErrInvalidQuestion, a)
		}
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return fmt.Errorf("%w: explanation is empty", ErrInvalidQuestion)
	}
	return nil
}

// QuestionSet is the fixed list of questions for one quiz session.
type QuestionSet []Question

// Clone returns a deep copy so callers cannot mutate a session's questions.
func (qs QuestionSet) Clone() QuestionSet {
	if qs == nil {
		return nil
	}
	out := make(QuestionSet, len(qs))
	for i, q := range qs {
		out[i] = Question{
			Text:           q.Text,
			Options:        append([]string(nil), q.Options...),
			CorrectAnswers: append([]string(nil), q.CorrectAnswers...),
			Explanation:    q.Explanation,
		}
	}
	return out
}

// Validate checks that the set is non-empty and every question is well formed.
func (qs QuestionSet) Validate() error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestion)
	}
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// GenerationRequest asks the generation collaborator for a question set.
type GenerationRequest struct {
	Topic           string     `json:"topic"`
	NumberQuestions int        `json:"number_questions"`
	Difficulty      Difficulty `json:"difficulty"`
}

// Normalize trims the topic and validates the request bounds.
func (r GenerationRequest) Normalize() (GenerationRequest, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return r, fmt.Errorf("%w: topic cannot be empty", ErrInvalidRequest)
	}
	if len(r.Topic) > MaxTopicLength {
		return r, fmt.Errorf("%w: topic longer than %d characters", ErrInvalidRequest, MaxTopicLength)
	}
	if r.NumberQuestions < 1 || r.NumberQuestions > MaxQuestions {
		return r, fmt.Errorf("%w: number of questions must be between 1 and %d", ErrInvalidRequest, MaxQuestions)
	}
	d, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return r, err
	}
	r.Difficulty = d
	return r, nil
}

// Answers is the serializable form of an answer ledger: question index to selected options.
type Answers map[int][]string

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for idx, options := range a {
		out[idx] = append([]string(nil), options...)
	}
	return out
}

// Snapshot is the persisted, resumable form of an active session.
type Snapshot struct {
	SessionID            string      `json:"quiz_id,omitempty"`
	Topic                string      `json:"topic"`
	Difficulty           Difficulty  `json:"difficulty"`
	TotalQuestions       int         `json:"total_questions"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	Questions            QuestionSet `json:"questions_data"`
	Answers              Answers     `json:"user_answers"`
	ElapsedSeconds       int         `json:"time_taken"`
}

// Validate reports whether a loaded snapshot can be resumed.
func (s Snapshot) Validate() error {
	if err := s.Questions.Validate(); err != nil {
		return err
	}
	if s.ElapsedSeconds < 0 {
		return fmt.Errorf("%w: negative elapsed time", ErrInvalidSnapshot)
	}
	for idx, selected := range s.Answers {
		if idx < 0 || idx >= len(s.Questions) {
			return fmt.Errorf("%w: answer for question %d out of range", ErrInvalidSnapshot, idx)
		}
		if len(selected) > 1 && !s.Questions[idx].MultiSelect() {
			return fmt.Errorf("%w: %d selections on single-select question %d", ErrInvalidSnapshot, len(selected), idx)
		}
		seen := make(map[string]struct{}, len(selected))
		for _, option := range selected {
			if !s.Questions[idx].HasOption(option) {
				return fmt.Errorf("%w: answer %q is not an option of question %d", ErrInvalidSnapshot, option, idx)
			}
			if _, dup := seen[option]; dup {
				return fmt.Errorf("%w: answer %q selected twice on question %d", ErrInvalidSnapshot, option, idx)
			}
			seen[option] = struct{}{}
		}
	}
	return nil
}

// Result is the graded outcome of a submitted session.
type Result struct {
	SessionID      string     `json:"quiz_id,omitempty"`
	Topic          string     `json:"subcategory_name"`
	Category       string     `json:"category_name"`
	Difficulty     Difficulty `json:"difficulty"`
	TotalQuestions int        `json:"total_questions"`
	Score          float64    `json:"score"`
	CorrectAnswers int        `json:"correct_answers"`
	Percentage     float64    `json:"percentage"`
	ElapsedSeconds int        `json:"time_taken"`
	Forced         bool       `json:"forced"`
}

// Message returns the encouragement shown next to a result.
func (r Result) Message() string {
	switch {
	case r.TotalQuestions > 0 && r.Score >= float64(r.TotalQuestions):
		return "Perfect!"
	case r.Percentage >= 80:
		return "Great job!"
	case r.Percentage >= 60:
		return "Good effort!"
	default:
		return "Keep studying!"
	}
}

// Phase is the lifecycle state of a quiz session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseSubmitted:
		return "submitted"
	}
	return "unknown"
}

// MarshalText renders the phase by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "active":
		*p = PhaseActive
	case "submitted":
		*p = PhaseSubmitted
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// AttemptStatus is the server-side lifecycle of a persisted attempt.
type AttemptStatus string

const (
	AttemptOngoing   AttemptStatus = "ongoing"
	AttemptCompleted AttemptStatus = "completed"
)

// Attempt is the persisted record behind both snapshots and final results.
type Attempt struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"-"`
	Topic                string        `json:"subcategory"`
	Category             string        `json:"category"`
	Difficulty           Difficulty    `json:"difficulty"`
	Status               AttemptStatus `json:"status"`
	TotalQuestions       int           `json:"total_questions"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	Questions            QuestionSet   `json:"questions,omitempty"`
	Answers              Answers       `json:"user_answers,omitempty"`
	Score                float64       `json:"score"`
	Percentage           float64       `json:"percentage"`
	CorrectAnswers       int           `json:"correct_answers"`
	IncorrectAnswers     int           `json:"incorrect_answers"`
	TimeTaken            int           `json:"time_taken"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
}

// Clone returns a deep copy that shares no slices or maps with a.
func (a Attempt) Clone() Attempt {
	a.Questions = a.Questions.Clone()
	a.Answers = a.Answers.Clone()
	if a.CompletedAt != nil {
		completed := *a.CompletedAt
		a.CompletedAt = &completed
	}
	return a
}

// Snapshot converts an ongoing attempt back into its resumable form.
func (a Attempt) Snapshot() Snapshot {
	return Snapshot{
		SessionID:            a.ID,
		Topic:                a.Topic,
		Difficulty:           a.Difficulty,
		TotalQuestions:       a.TotalQuestions,
		CurrentQuestionIndex: a.CurrentQuestionIndex,
		Questions:            a.Questions,
		Answers:              a.Answers,
		ElapsedSeconds:       a.TimeTaken,
	}
}

// DashboardStats aggregates a user's completed attempts.
type DashboardStats struct {
	TotalQuizzes   int     `json:"total_quizzes"`
	OngoingQuizzes int     `json:"ongoing_quizzes"`
	AverageScore   float64 `json:"average_score"`
	BestScore      float64 `json:"best_score"`
	LowestScore    float64 `json:"lowest_score"`
	TotalTimeSpent int     `json:"total_time_spent"`
	TotalCorrect   int     `json:"total_correct"`
	TotalQuestions int     `json:"total_questions"`
	Accuracy       float64 `json:"accuracy"`
}

// CategoryPerformance summarizes completed attempts for one topic.
type CategoryPerformance struct {
	Category     string  `json:"category"`
	TotalQuizzes int     `json:"total_quizzes"`
	AverageScore float64 `json:"average_score"`
	Accuracy     float64 `json:"accuracy"`
}

// OngoingSummary is the list view of a resumable attempt.
type OngoingSummary struct {
	ID                 string     `json:"id"`
	Topic              string     `json:"subcategory"`
	Category           string     `json:"category"`
	Difficulty         Difficulty `json:"difficulty"`
	TotalQuestions     int        `json:"total_questions"`
	CurrentQuestion    int        `json:"current_question"`
	ProgressPercentage float64    `json:"progress_percentage"`
	StartedAt          time.Time  `json:"started_at"`
}
