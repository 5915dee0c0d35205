package domain

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	valid := Question{
		Text:           "Which are primes?",
		Options:        []string{"2", "3", "4", "6"},
		CorrectAnswers: []string{"2", "3"},
		Explanation:    "2 and 3 have no divisors besides 1 and themselves.",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	if !valid.MultiSelect() {
		t.Fatalf("expected multi-select question")
	}

	cases := map[string]func(q *Question){
		"empty text":       func(q *Question) { q.Text = " " },
		"one option":       func(q *Question) { q.Options = []string{"2"}; q.CorrectAnswers = []string{"2"} },
		"duplicate option": func(q *Question) { q.Options = []string{"2", "2", "3"} },
		"no answers":       func(q *Question) { q.CorrectAnswers = nil },
		"unknown answer":   func(q *Question) { q.CorrectAnswers = []string{"5"} },
		"no explanation":   func(q *Question) { q.Explanation = "" },
	}
	for name, mutate := range cases {
		q := valid
		q.Options = append([]string(nil), valid.Options...)
		q.CorrectAnswers = append([]string(nil), valid.CorrectAnswers...)
		mutate(&q)
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("%s: expected ErrInvalidQuestion, got %v", name, err)
		}
	}
}

func TestGenerationRequestNormalize(t *testing.T) {
	req, err := GenerationRequest{Topic: "  Go channels ", NumberQuestions: 5, Difficulty: "HARD"}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Topic != "Go channels" || req.Difficulty != DifficultyHard {
		t.Fatalf("unexpected normalized request %+v", req)
	}

	bad := []GenerationRequest{
		{Topic: "", NumberQuestions: 5, Difficulty: DifficultyEasy},
		{Topic: "x", NumberQuestions: 0, Difficulty: DifficultyEasy},
		{Topic: "x", NumberQuestions: MaxQuestions + 1, Difficulty: DifficultyEasy},
		{Topic: "x", NumberQuestions: 3, Difficulty: "extreme"},
	}
	for _, r := range bad {
		if _, err := r.Normalize(); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", r, err)
		}
	}
}

func TestSnapshotValidateRejectsForeignAnswers(t *testing.T) {
	snap := Snapshot{
		Questions: QuestionSet{{
			Text:           "2+2?",
			Options:        []string{"3", "4"},
			CorrectAnswers: []string{"4"},
			Explanation:    "arithmetic",
		}},
		Answers: Answers{0: {"5"}},
	}
	if err := snap.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	snap.Answers = Answers{3: {"4"}}
	if err := snap.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected out of range answer to be rejected, got %v", err)
	}
	snap.Answers = Answers{0: {"4"}}
	if err := snap.Validate(); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}
}

func TestSnapshotValidateRejectsSelectionShape(t *testing.T) {
	snap := Snapshot{
		Questions: QuestionSet{
			{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Explanation: "arithmetic"},
			{Text: "primes?", Options: []string{"2", "3", "4"}, CorrectAnswers: []string{"2", "3"}, Explanation: "primes"},
		},
	}
	cases := map[string]Answers{
		"two picks on single-select": {0: {"3", "4"}},
		"repeated single pick":       {0: {"4", "4"}},
		"repeated multi pick":        {1: {"2", "2"}},
	}
	for name, answers := range cases {
		snap.Answers = answers
		if err := snap.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: expected ErrInvalidSnapshot, got %v", name, err)
		}
	}
	snap.Answers = Answers{0: {"4"}, 1: {"2", "4"}}
	if err := snap.Validate(); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}
}

func TestResultMessage(t *testing.T) {
	cases := []struct {
		result Result
		want   string
	}{
		{Result{TotalQuestions: 4, Score: 4, Percentage: 100}, "Perfect!"},
		{Result{TotalQuestions: 5, Score: 4, Percentage: 80}, "Great job!"},
		{Result{TotalQuestions: 5, Score: 3, Percentage: 60}, "Good effort!"},
		{Result{TotalQuestions: 5, Score: 1, Percentage: 20}, "Keep studying!"},
	}
	for _, tc := range cases {
		if got := tc.result.Message(); got != tc.want {
			t.Fatalf("Message() for %+v = %q, want %q", tc.result, got, tc.want)
		}
	}
}

func TestPhaseTextRoundTrip(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseActive, PhaseSubmitted} {
		text, _ := p.MarshalText()
		var back Phase
		if err := back.UnmarshalText(text); err != nil || back != p {
			t.Fatalf("phase %v decoded as %v (%v)", p, back, err)
		}
	}
	var p Phase
	if err := p.UnmarshalText([]byte("paused")); err == nil {
		t.Fatalf("expected unknown phase to fail")
	}
}
