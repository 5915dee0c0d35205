package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
)

// LocalGateway persists one user's session straight through the AttemptService.
// The server uses it for sessions it hosts itself, such as websocket clients.
type LocalGateway struct {
	attempts     *AttemptService
	userID       string
	flushTimeout time.Duration
	logger       *log.Logger

	flushes sync.WaitGroup
}

func NewLocalGateway(attempts *AttemptService, userID string, logger *log.Logger) *LocalGateway {
	if logger == nil {
		logger = log.Default()
	}
	return &LocalGateway{attempts: attempts, userID: userID, flushTimeout: 5 * time.Second, logger: logger}
}

func (g *LocalGateway) SaveSnapshot(ctx context.Context, snap domain.Snapshot) (string, error) {
	return g.attempts.SaveState(ctx, g.userID, snap)
}

func (g *LocalGateway) LoadSnapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	return g.attempts.Resume(ctx, g.userID, id)
}

func (g *LocalGateway) SaveResult(ctx context.Context, result domain.Result) error {
	_, err := g.attempts.SaveResult(ctx, g.userID, result)
	return err
}

func (g *LocalGateway) FlushSnapshot(snap domain.Snapshot) {
	g.flushes.Add(1)
	go func() {
		defer g.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.flushTimeout)
		defer cancel()
		if _, err := g.SaveSnapshot(ctx, snap); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
			g.logger.Printf("flush snapshot failed: %v", err)
		}
	}()
}

// Drain waits for pending flushes or until ctx is done.
func (g *LocalGateway) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.flushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
