package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, userID, id string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok || attempt.UserID != userID {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt.Clone(), nil
}

func (s *AttemptStore) Update(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.attempts[attempt.ID]
	if !ok || existing.UserID != attempt.UserID {
		return domain.ErrAttemptNotFound
	}
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok || attempt.UserID != userID {
		return domain.ErrAttemptNotFound
	}
	delete(s.attempts, id)
	return nil
}

func (s *AttemptStore) List(_ context.Context, userID string, status domain.AttemptStatus, limit, offset int) ([]domain.Attempt, error) {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.Status == status {
			out = append(out, attempt.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := sortTime(out[i]), sortTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func sortTime(a domain.Attempt) time.Time {
	if a.Status == domain.AttemptCompleted && a.CompletedAt != nil {
		return *a.CompletedAt
	}
	return a.StartedAt
}

func page(attempts []domain.Attempt, limit, offset int) []domain.Attempt {
	if offset >= len(attempts) {
		return []domain.Attempt{}
	}
	if offset > 0 {
		attempts = attempts[offset:]
	}
	if limit > 0 && limit < len(attempts) {
		attempts = attempts[:limit]
	}
	return attempts
}
