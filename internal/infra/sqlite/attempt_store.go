package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-quiz-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// AttemptStore persists attempts in a local sqlite file. It serves
// single-user deployments and local play without Postgres.
type AttemptStore struct {
	db *sql.DB
}

func NewAttemptStore(path string) (*AttemptStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := &AttemptStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *AttemptStore) Close() error {
	return s.db.Close()
}

func (s *AttemptStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			category TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			status TEXT NOT NULL,
			total_questions INTEGER NOT NULL DEFAULT 0,
			current_question_index INTEGER NOT NULL DEFAULT 0,
			questions_json TEXT,
			answers_json TEXT,
			-- REAL holds partial credit.
			score REAL NOT NULL DEFAULT 0,
			percentage REAL NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			incorrect_answers INTEGER NOT NULL DEFAULT 0,
			time_taken INTEGER NOT NULL DEFAULT 0,
			started_at_unix INTEGER NOT NULL,
			completed_at_unix INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_status ON quiz_attempts(user_id, status);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const attemptColumns = `id, user_id, topic, category, difficulty, status, total_questions,
	current_question_index, questions_json, answers_json, score, percentage,
	correct_answers, incorrect_answers, time_taken, started_at_unix, completed_at_unix`

func (s *AttemptStore) Create(ctx context.Context, a domain.Attempt) error {
	args, err := attemptArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	return err
}

func (s *AttemptStore) Get(ctx context.Context, userID, id string) (domain.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a, err
}

func (s *AttemptStore) Update(ctx context.Context, a domain.Attempt) error {
	args, err := attemptArgs(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET topic = ?, category = ?, difficulty = ?, status = ?,
			total_questions = ?, current_question_index = ?, questions_json = ?, answers_json = ?,
			score = ?, percentage = ?, correct_answers = ?, incorrect_answers = ?, time_taken = ?,
			started_at_unix = ?, completed_at_unix = ?
		 WHERE id = ? AND user_id = ?`,
		append(args[2:], a.ID, a.UserID)...,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *AttemptStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_attempts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *AttemptStore) List(ctx context.Context, userID string, status domain.AttemptStatus, limit, offset int) ([]domain.Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts
		 WHERE user_id = ? AND status = ?
		 ORDER BY COALESCE(completed_at_unix, started_at_unix) DESC, id
		 LIMIT ? OFFSET ?`,
		userID, string(status), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func attemptArgs(a domain.Attempt) ([]any, error) {
	questions, err := marshalNullable(a.Questions, a.Questions == nil)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	answers, err := marshalNullable(a.Answers, a.Answers == nil)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	var completed any
	if a.CompletedAt != nil {
		completed = a.CompletedAt.UnixNano()
	}
	return []any{
		a.ID, a.UserID, a.Topic, a.Category, string(a.Difficulty), string(a.Status),
		a.TotalQuestions, a.CurrentQuestionIndex, questions, answers,
		a.Score, a.Percentage, a.CorrectAnswers, a.IncorrectAnswers, a.TimeTaken,
		a.StartedAt.UnixNano(), completed,
	}, nil
}

func marshalNullable(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var (
		a                  domain.Attempt
		difficulty, status string
		questions, answers sql.NullString
		started            int64
		completed          sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Topic, &a.Category, &difficulty, &status,
		&a.TotalQuestions, &a.CurrentQuestionIndex, &questions, &answers,
		&a.Score, &a.Percentage, &a.CorrectAnswers, &a.IncorrectAnswers, &a.TimeTaken,
		&started, &completed)
	if err != nil {
		return domain.Attempt{}, err
	}
	a.Difficulty = domain.Difficulty(difficulty)
	a.Status = domain.AttemptStatus(status)
	a.StartedAt = time.Unix(0, started).UTC()
	if completed.Valid {
		t := time.Unix(0, completed.Int64).UTC()
		a.CompletedAt = &t
	}
	if questions.Valid {
		if err := json.Unmarshal([]byte(questions.String), &a.Questions); err != nil {
			return domain.Attempt{}, fmt.Errorf("decode questions: %w", err)
		}
	}
	if answers.Valid {
		if err := json.Unmarshal([]byte(answers.String), &a.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return a, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}
