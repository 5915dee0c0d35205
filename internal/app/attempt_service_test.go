package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/infra/memory"
)

func newTestAttemptService() (*app.AttemptService, *time.Time) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	service := app.NewAttemptServiceWithClock(memory.NewAttemptStore(), func() time.Time { return now })
	return service, &now
}

func snapshotFixture() domain.Snapshot {
	return domain.Snapshot{
		Topic:      "Go basics",
		Difficulty: domain.DifficultyEasy,
		Questions: domain.QuestionSet{
			{Text: "Q1", Options: []string{"a", "b"}, CorrectAnswers: []string{"a"}, Explanation: "a"},
			{Text: "Q2", Options: []string{"a", "b", "c"}, CorrectAnswers: []string{"b", "c"}, Explanation: "b and c"},
			{Text: "Q3", Options: []string{"a", "b"}, CorrectAnswers: []string{"b"}, Explanation: "b"},
			{Text: "Q4", Options: []string{"a", "b"}, CorrectAnswers: []string{"a"}, Explanation: "a"},
		},
		Answers:        domain.Answers{0: {"a"}},
		ElapsedSeconds: 12,
	}
}

func TestSaveStateUpsertsByID(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAttemptService()

	id, err := service.SaveState(ctx, "u1", snapshotFixture())
	if err != nil {
		t.Fatalf("save state: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}

	snap := snapshotFixture()
	snap.SessionID = id
	snap.CurrentQuestionIndex = 2
	snap.ElapsedSeconds = 40
	again, err := service.SaveState(ctx, "u1", snap)
	if err != nil || again != id {
		t.Fatalf("expected update of %s, got %s (%v)", id, again, err)
	}

	ongoing, err := service.Ongoing(ctx, "u1")
	if err != nil {
		t.Fatalf("ongoing: %v", err)
	}
	if len(ongoing) != 1 || ongoing[0].CurrentQuestion != 3 || ongoing[0].ProgressPercentage != 75 {
		t.Fatalf("unexpected ongoing summary %+v", ongoing)
	}

	resumed, err := service.Resume(ctx, "u1", id)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ElapsedSeconds != 40 || resumed.CurrentQuestionIndex != 2 || resumed.SessionID != id {
		t.Fatalf("unexpected resumed snapshot %+v", resumed)
	}

	snap.SessionID = "unknown"
	if _, err := service.SaveState(ctx, "u1", snap); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected unknown id to fail, got %v", err)
	}
}

func TestSaveStateRejectsMalformedSnapshot(t *testing.T) {
	service, _ := newTestAttemptService()
	snap := snapshotFixture()
	snap.Answers = domain.Answers{9: {"a"}}
	if _, err := service.SaveState(context.Background(), "u1", snap); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestSaveResultCompletesOngoingAttempt(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAttemptService()
	id, _ := service.SaveState(ctx, "u1", snapshotFixture())

	_, err := service.SaveResult(ctx, "u1", domain.Result{
		SessionID:      id,
		Topic:          "Go basics",
		TotalQuestions: 4,
		Score:          2.75,
		CorrectAnswers: 3,
		Percentage:     68.75,
		ElapsedSeconds: 90,
	})
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if _, err := service.Resume(ctx, "u1", id); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("completed attempt must not be resumable, got %v", err)
	}

	detail, err := service.Detail(ctx, "u1", id)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Status != domain.AttemptCompleted || detail.IncorrectAnswers != 1 || detail.CompletedAt == nil || len(detail.Questions) != 4 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := service.SaveState(ctx, "u1", domain.Snapshot{SessionID: id, Questions: snapshotFixture().Questions}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected saving state of completed attempt to fail, got %v", err)
	}
}

func TestSaveResultWithoutIDCreatesCompletedAttempt(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAttemptService()

	id, err := service.SaveResult(ctx, "u1", domain.Result{Topic: "History", Difficulty: "HARD", TotalQuestions: 5, CorrectAnswers: 5, Percentage: 100})
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	detail, err := service.Detail(ctx, "u1", id)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Difficulty != domain.DifficultyHard || detail.Category != domain.DefaultCategory || detail.Status != domain.AttemptCompleted {
		t.Fatalf("unexpected attempt %+v", detail)
	}
}

func TestStatsAndPerformance(t *testing.T) {
	ctx := context.Background()
	service, now := newTestAttemptService()

	results := []domain.Result{
		{Topic: "Go", TotalQuestions: 4, CorrectAnswers: 3, Percentage: 75, ElapsedSeconds: 100},
		{Topic: "Go", TotalQuestions: 4, CorrectAnswers: 4, Percentage: 100, ElapsedSeconds: 50},
		{Topic: "SQL", TotalQuestions: 3, CorrectAnswers: 1, Percentage: 33.333, ElapsedSeconds: 30},
	}
	for _, r := range results {
		*now = now.Add(time.Minute)
		if _, err := service.SaveResult(ctx, "u1", r); err != nil {
			t.Fatalf("save result: %v", err)
		}
	}
	service.SaveState(ctx, "u1", snapshotFixture())
	service.SaveResult(ctx, "u2", domain.Result{Topic: "Go", TotalQuestions: 1, Percentage: 0})

	stats, err := service.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.DashboardStats{
		TotalQuizzes:   3,
		OngoingQuizzes: 1,
		AverageScore:   69.44,
		BestScore:      100,
		LowestScore:    33.33,
		TotalTimeSpent: 180,
		TotalCorrect:   8,
		TotalQuestions: 11,
		Accuracy:       72.73,
	}
	if stats != want {
		t.Fatalf("stats mismatch\n got %+v\nwant %+v", stats, want)
	}

	perf, err := service.PerformanceByCategory(ctx, "u1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(perf) != 2 || perf[0].Category != "Go" || perf[0].AverageScore != 87.5 || perf[1].Accuracy != 33.33 {
		t.Fatalf("unexpected performance %+v", perf)
	}

	history, err := service.History(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Topic != "SQL" || history[0].Percentage != 33.33 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestStatsWithoutAttempts(t *testing.T) {
	service, _ := newTestAttemptService()
	stats, err := service.Stats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (domain.DashboardStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestDeleteAttempt(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAttemptService()
	id, _ := service.SaveState(ctx, "u1", snapshotFixture())

	if err := service.Delete(ctx, "u2", id); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected other user delete to fail, got %v", err)
	}
	if err := service.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.Resume(ctx, "u1", id); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected deleted attempt gone, got %v", err)
	}
}
