package app_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/infra/memory"
)

type fixedGenerator struct{ questions domain.QuestionSet }

func (g fixedGenerator) Generate(context.Context, domain.GenerationRequest) (domain.QuestionSet, error) {
	return g.questions, nil
}

func TestSessionPersistsThroughLocalGateway(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	attempts, _ := newTestAttemptService()
	gateway := app.NewLocalGateway(attempts, "u1", logger)

	opts := app.SessionOptions{CheckpointInterval: time.Hour, PollInterval: time.Hour, Logger: logger}
	session := app.NewSession(fixedGenerator{questions: snapshotFixture().Questions}, gateway, opts)
	defer session.Close()

	view, err := session.Start(ctx, domain.GenerationRequest{Topic: "Go basics", NumberQuestions: 4, Difficulty: "easy"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.SessionID == "" {
		t.Fatalf("expected attempt id from first checkpoint")
	}
	ongoing, _ := attempts.Ongoing(ctx, "u1")
	if len(ongoing) != 1 || ongoing[0].ID != view.SessionID {
		t.Fatalf("expected one ongoing attempt, got %+v", ongoing)
	}

	session.SelectAnswer(0, "a")
	session.SelectAnswer(1, "b")
	session.SelectAnswer(2, "b")
	session.SelectAnswer(3, "a")
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	session.Close()

	detail, err := attempts.Detail(ctx, "u1", view.SessionID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	// q2 has two correct answers; one of them selected earns half credit.
	if detail.Status != domain.AttemptCompleted || detail.Score != 3.5 || detail.CorrectAnswers != 4 {
		t.Fatalf("unexpected completed attempt %+v", detail)
	}
	if _, err := gateway.LoadSnapshot(ctx, view.SessionID); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("completed attempt must not resume, got %v", err)
	}
}

func TestLocalGatewayFlushAndDrain(t *testing.T) {
	ctx := context.Background()
	attempts := app.NewAttemptService(memory.NewAttemptStore())
	gateway := app.NewLocalGateway(attempts, "u1", log.New(io.Discard, "", 0))

	gateway.FlushSnapshot(snapshotFixture())
	if err := gateway.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	ongoing, err := attempts.Ongoing(ctx, "u1")
	if err != nil || len(ongoing) != 1 {
		t.Fatalf("expected flushed snapshot stored, got %+v (%v)", ongoing, err)
	}
}
