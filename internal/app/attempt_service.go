package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ai-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptRepository abstracts how attempts are stored (memory, sqlite, Postgres).
// Every lookup is scoped to the owning user.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, userID, id string) (domain.Attempt, error)
	Update(ctx context.Context, attempt domain.Attempt) error
	Delete(ctx context.Context, userID, id string) error
	// List returns the user's attempts with the given status, newest first.
	// A limit of zero means no limit.
	List(ctx context.Context, userID string, status domain.AttemptStatus, limit, offset int) ([]domain.Attempt, error)
}

// AttemptService contains the dashboard use cases behind the persistence gateway.
type AttemptService struct {
	attempts AttemptRepository
	now      func() time.Time
}

func NewAttemptService(attempts AttemptRepository) *AttemptService {
	return NewAttemptServiceWithClock(attempts, time.Now)
}

// NewAttemptServiceWithClock is used by tests for deterministic timestamps.
func NewAttemptServiceWithClock(attempts AttemptRepository, now func() time.Time) *AttemptService {
	return &AttemptService{attempts: attempts, now: now}
}

// SaveState upserts an ongoing attempt from a snapshot and returns its id.
// A snapshot without an id creates a new attempt.
func (s *AttemptService) SaveState(ctx context.Context, userID string, snap domain.Snapshot) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if snap.SessionID == "" {
		attempt := domain.Attempt{
			ID:                   uuid.NewString(),
			UserID:               userID,
			Topic:                topicOrDefault(snap.Topic),
			Category:             domain.DefaultCategory,
			Difficulty:           difficultyOrDefault(snap.Difficulty),
			Status:               domain.AttemptOngoing,
			TotalQuestions:       len(snap.Questions),
			CurrentQuestionIndex: snap.CurrentQuestionIndex,
			Questions:            snap.Questions,
			Answers:              snap.Answers,
			TimeTaken:            snap.ElapsedSeconds,
			StartedAt:            s.now().UTC(),
		}
		if err := s.attempts.Create(ctx, attempt); err != nil {
			return "", fmt.Errorf("create attempt: %w", err)
		}
		return attempt.ID, nil
	}

	attempt, err := s.attempts.Get(ctx, userID, snap.SessionID)
	if err != nil {
		return "", err
	}
	if attempt.Status != domain.AttemptOngoing {
		return "", fmt.Errorf("%w: attempt %s already completed", domain.ErrAttemptNotFound, attempt.ID)
	}
	attempt.CurrentQuestionIndex = snap.CurrentQuestionIndex
	attempt.Questions = snap.Questions
	attempt.TotalQuestions = len(snap.Questions)
	attempt.Answers = snap.Answers
	attempt.TimeTaken = snap.ElapsedSeconds
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return "", fmt.Errorf("update attempt: %w", err)
	}
	return attempt.ID, nil
}

// Resume returns the snapshot of an ongoing attempt. Completed or unknown
// attempts report domain.ErrSnapshotNotFound.
func (s *AttemptService) Resume(ctx context.Context, userID, id string) (domain.Snapshot, error) {
	attempt, err := s.attempts.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, err
	}
	if attempt.Status != domain.AttemptOngoing {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return attempt.Snapshot(), nil
}

// SaveResult completes the attempt named by result.SessionID, or records a
// new completed attempt when the result carries no id.
func (s *AttemptService) SaveResult(ctx context.Context, userID string, result domain.Result) (string, error) {
	if result.TotalQuestions < 0 || result.CorrectAnswers < 0 || result.ElapsedSeconds < 0 {
		return "", fmt.Errorf("%w: negative result field", domain.ErrInvalidRequest)
	}
	completedAt := s.now().UTC()

	if result.SessionID != "" {
		attempt, err := s.attempts.Get(ctx, userID, result.SessionID)
		if err != nil {
			return "", err
		}
		applyResult(&attempt, result, completedAt)
		if err := s.attempts.Update(ctx, attempt); err != nil {
			return "", fmt.Errorf("complete attempt: %w", err)
		}
		return attempt.ID, nil
	}

	attempt := domain.Attempt{
		ID:         uuid.NewString(),
		UserID:     userID,
		Topic:      topicOrDefault(result.Topic),
		Difficulty: difficultyOrDefault(result.Difficulty),
		StartedAt:  completedAt,
	}
	applyResult(&attempt, result, completedAt)
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return "", fmt.Errorf("create attempt: %w", err)
	}
	return attempt.ID, nil
}

func applyResult(attempt *domain.Attempt, result domain.Result, completedAt time.Time) {
	attempt.Status = domain.AttemptCompleted
	attempt.Category = domain.DefaultCategory
	if result.Category != "" {
		attempt.Category = result.Category
	}
	if result.TotalQuestions > 0 {
		attempt.TotalQuestions = result.TotalQuestions
	}
	attempt.Score = result.Score
	attempt.Percentage = result.Percentage
	attempt.CorrectAnswers = result.CorrectAnswers
	attempt.IncorrectAnswers = attempt.TotalQuestions - result.CorrectAnswers
	if attempt.IncorrectAnswers < 0 {
		attempt.IncorrectAnswers = 0
	}
	attempt.TimeTaken = result.ElapsedSeconds
	attempt.CompletedAt = &completedAt
}

// Ongoing lists resumable attempts with their progress.
func (s *AttemptService) Ongoing(ctx context.Context, userID string) ([]domain.OngoingSummary, error) {
	attempts, err := s.attempts.List(ctx, userID, domain.AttemptOngoing, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OngoingSummary, 0, len(attempts))
	for _, a := range attempts {
		summary := domain.OngoingSummary{
			ID:              a.ID,
			Topic:           a.Topic,
			Category:        a.Category,
			Difficulty:      a.Difficulty,
			TotalQuestions:  a.TotalQuestions,
			CurrentQuestion: a.CurrentQuestionIndex + 1,
			StartedAt:       a.StartedAt,
		}
		if a.TotalQuestions > 0 {
			summary.ProgressPercentage = round(float64(a.CurrentQuestionIndex+1)/float64(a.TotalQuestions)*100, 1)
		}
		out = append(out, summary)
	}
	return out, nil
}

// History lists completed attempts, most recently completed first.
func (s *AttemptService) History(ctx context.Context, userID string, limit, offset int) ([]domain.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	attempts, err := s.attempts.List(ctx, userID, domain.AttemptCompleted, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range attempts {
		attempts[i].Questions = nil
		attempts[i].Answers = nil
		attempts[i].Percentage = round(attempts[i].Percentage, 2)
	}
	return attempts, nil
}

// Stats aggregates the user's completed attempts.
func (s *AttemptService) Stats(ctx context.Context, userID string) (domain.DashboardStats, error) {
	completed, err := s.attempts.List(ctx, userID, domain.AttemptCompleted, 0, 0)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	ongoing, err := s.attempts.List(ctx, userID, domain.AttemptOngoing, 0, 0)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	stats := domain.DashboardStats{TotalQuizzes: len(completed), OngoingQuizzes: len(ongoing)}
	if len(completed) == 0 {
		return stats, nil
	}
	var sum float64
	stats.BestScore = math.Inf(-1)
	stats.LowestScore = math.Inf(1)
	for _, a := range completed {
		sum += a.Percentage
		stats.BestScore = math.Max(stats.BestScore, a.Percentage)
		stats.LowestScore = math.Min(stats.LowestScore, a.Percentage)
		stats.TotalTimeSpent += a.TimeTaken
		stats.TotalCorrect += a.CorrectAnswers
		stats.TotalQuestions += a.TotalQuestions
	}
	stats.AverageScore = round(sum/float64(len(completed)), 2)
	stats.BestScore = round(stats.BestScore, 2)
	stats.LowestScore = round(stats.LowestScore, 2)
	if stats.TotalQuestions > 0 {
		stats.Accuracy = round(float64(stats.TotalCorrect)/float64(stats.TotalQuestions)*100, 2)
	}
	return stats, nil
}

// PerformanceByCategory groups completed attempts by topic, best average first.
func (s *AttemptService) PerformanceByCategory(ctx context.Context, userID string) ([]domain.CategoryPerformance, error) {
	completed, err := s.attempts.List(ctx, userID, domain.AttemptCompleted, 0, 0)
	if err != nil {
		return nil, err
	}
	type totals struct {
		quizzes   int
		score     float64
		questions int
		correct   int
	}
	byTopic := make(map[string]*totals)
	for _, a := range completed {
		t, ok := byTopic[a.Topic]
		if !ok {
			t = &totals{}
			byTopic[a.Topic] = t
		}
		t.quizzes++
		t.score += a.Percentage
		t.questions += a.TotalQuestions
		t.correct += a.CorrectAnswers
	}

	out := make([]domain.CategoryPerformance, 0, len(byTopic))
	for topic, t := range byTopic {
		perf := domain.CategoryPerformance{
			Category:     topic,
			TotalQuizzes: t.quizzes,
			AverageScore: round(t.score/float64(t.quizzes), 2),
		}
		if t.questions > 0 {
			perf.Accuracy = round(float64(t.correct)/float64(t.questions)*100, 2)
		}
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Detail returns one attempt including its questions and answers.
func (s *AttemptService) Detail(ctx context.Context, userID, id string) (domain.Attempt, error) {
	attempt, err := s.attempts.Get(ctx, userID, id)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.Percentage = round(attempt.Percentage, 2)
	return attempt, nil
}

// Delete removes an attempt of the user.
func (s *AttemptService) Delete(ctx context.Context, userID, id string) error {
	return s.attempts.Delete(ctx, userID, id)
}

func topicOrDefault(topic string) string {
	if topic = strings.TrimSpace(topic); topic == "" {
		return "Custom Quiz"
	}
	return topic
}

func difficultyOrDefault(d domain.Difficulty) domain.Difficulty {
	if parsed, err := domain.ParseDifficulty(string(d)); err == nil {
		return parsed
	}
	return domain.DifficultyMedium
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
