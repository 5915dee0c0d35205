package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore keeps attempts in the quiz_attempts table; questions and
// answers are stored as JSONB.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

const attemptColumns = `id, user_id, topic, category, difficulty, status, total_questions,
	current_question_index, questions_data, user_answers, score, percentage,
	correct_answers, incorrect_answers, time_taken, started_at, completed_at`

func (s *AttemptStore) Create(ctx context.Context, a domain.Attempt) error {
	questions, answers, err := encodeJSON(a)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (`+attemptColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.UserID, a.Topic, a.Category, string(a.Difficulty), string(a.Status), a.TotalQuestions,
		a.CurrentQuestionIndex, questions, answers, a.Score, a.Percentage,
		a.CorrectAnswers, a.IncorrectAnswers, a.TimeTaken, a.StartedAt, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, userID, id string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1 AND user_id = $2`, id, userID)
	a, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return a, nil
}

func (s *AttemptStore) Update(ctx context.Context, a domain.Attempt) error {
	questions, answers, err := encodeJSON(a)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE quiz_attempts SET topic = $3, category = $4, difficulty = $5, status = $6,
			total_questions = $7, current_question_index = $8, questions_data = $9, user_answers = $10,
			score = $11, percentage = $12, correct_answers = $13, incorrect_answers = $14,
			time_taken = $15, completed_at = $16
		 WHERE id = $1 AND user_id = $2`,
		a.ID, a.UserID, a.Topic, a.Category, string(a.Difficulty), string(a.Status),
		a.TotalQuestions, a.CurrentQuestionIndex, questions, answers,
		a.Score, a.Percentage, a.CorrectAnswers, a.IncorrectAnswers, a.TimeTaken, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quiz_attempts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) List(ctx context.Context, userID string, status domain.AttemptStatus, limit, offset int) ([]domain.Attempt, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts
		 WHERE user_id = $1 AND status = $2
		 ORDER BY COALESCE(completed_at, started_at) DESC, id
		 LIMIT $3 OFFSET $4`,
		userID, string(status), limitArg, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeJSON(a domain.Attempt) ([]byte, []byte, error) {
	var questions, answers []byte
	var err error
	if a.Questions != nil {
		if questions, err = json.Marshal(a.Questions); err != nil {
			return nil, nil, fmt.Errorf("marshal questions: %w", err)
		}
	}
	if a.Answers != nil {
		if answers, err = json.Marshal(a.Answers); err != nil {
			return nil, nil, fmt.Errorf("marshal answers: %w", err)
		}
	}
	return questions, answers, nil
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		a                  domain.Attempt
		difficulty, status string
		questions, answers []byte
		completed          *time.Time
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Topic, &a.Category, &difficulty, &status, &a.TotalQuestions,
		&a.CurrentQuestionIndex, &questions, &answers, &a.Score, &a.Percentage,
		&a.CorrectAnswers, &a.IncorrectAnswers, &a.TimeTaken, &a.StartedAt, &completed)
	if err != nil {
		return domain.Attempt{}, err
	}
	a.Difficulty = domain.Difficulty(difficulty)
	a.Status = domain.AttemptStatus(status)
	a.StartedAt = a.StartedAt.UTC()
	if completed != nil {
		t := completed.UTC()
		a.CompletedAt = &t
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &a.Questions); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return a, nil
}
