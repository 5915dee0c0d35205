package http

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/auth"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/infra/memory"
)

type staticGenerator struct {
	questions domain.QuestionSet
	err       error
}

func (g staticGenerator) Generate(context.Context, domain.GenerationRequest) (domain.QuestionSet, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.questions.Clone(), nil
}

func sampleQuestions() domain.QuestionSet {
	return domain.QuestionSet{
		{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswers: []string{"4"}, Explanation: "Basic addition."},
		{Text: "Which are primes?", Options: []string{"2", "3", "4", "6"}, CorrectAnswers: []string{"2", "3"}, Explanation: "2 and 3 have no other divisors."},
	}
}

type testEnv struct {
	attempts *app.AttemptService
	issuer   *auth.Issuer
	deps     RouterDeps
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	attempts := app.NewAttemptService(memory.NewAttemptStore())
	return testEnv{
		attempts: attempts,
		issuer:   issuer,
		deps: RouterDeps{
			Attempts:  attempts,
			Generator: staticGenerator{questions: sampleQuestions()},
			Verifier:  issuer,
			Session: app.SessionOptions{
				CheckpointInterval: time.Hour,
				PollInterval:       time.Hour,
				Logger:             log.New(io.Discard, "", 0),
			},
		},
	}
}

func (e testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}
