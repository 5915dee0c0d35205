package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AttemptCache fronts an attempt repository with Redis so repeated resume and
// checkpoint reads skip the database. Writes go to the backing store first and
// then refresh the cached copy.
// Keys: quiz:attempt:{userID}:{attemptID} -> JSON attempt, expiring after ttl.
type AttemptCache struct {
	client *redis.Client
	next   app.AttemptRepository
	ttl    time.Duration
	sf     singleflight.Group
	logger *log.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAttemptCache(client *redis.Client, next app.AttemptRepository, ttl time.Duration, logger *log.Logger) *AttemptCache {
	if logger == nil {
		logger = log.Default()
	}
	return &AttemptCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AttemptCache) Get(ctx context.Context, userID, id string) (domain.Attempt, error) {
	key := c.key(userID, id)
	if attempt, ok := c.cached(ctx, key, userID); ok {
		return attempt, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if attempt, ok := c.cached(ctx, key, userID); ok {
			return attempt, nil
		}
		attempt, err := c.next.Get(ctx, userID, id)
		if err != nil {
			return domain.Attempt{}, err
		}
		c.store(ctx, attempt)
		return attempt, nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return result.(domain.Attempt).Clone(), nil
}

func (c *AttemptCache) Create(ctx context.Context, attempt domain.Attempt) error {
	if err := c.next.Create(ctx, attempt); err != nil {
		return err
	}
	c.store(ctx, attempt)
	return nil
}

func (c *AttemptCache) Update(ctx context.Context, attempt domain.Attempt) error {
	if err := c.next.Update(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			c.evict(ctx, attempt.UserID, attempt.ID)
		}
		return err
	}
	c.store(ctx, attempt)
	return nil
}

func (c *AttemptCache) Delete(ctx context.Context, userID, id string) error {
	if err := c.next.Delete(ctx, userID, id); err != nil {
		return err
	}
	c.evict(ctx, userID, id)
	return nil
}

// List is not cached; dashboard listings must reflect every write.
func (c *AttemptCache) List(ctx context.Context, userID string, status domain.AttemptStatus, limit, offset int) ([]domain.Attempt, error) {
	return c.next.List(ctx, userID, status, limit, offset)
}

func (c *AttemptCache) cached(ctx context.Context, key, userID string) (domain.Attempt, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("attempt cache read failed: %v", err)
		}
		return domain.Attempt{}, false
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		c.logger.Printf("attempt cache entry %s corrupt: %v", key, err)
		return domain.Attempt{}, false
	}
	attempt.UserID = userID
	return attempt, true
}

// store is best effort; the backing repository stays the source of truth.
func (c *AttemptCache) store(ctx context.Context, attempt domain.Attempt) {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(attempt.UserID, attempt.ID), raw, c.ttlWithJitter()).Err(); err != nil {
		c.logger.Printf("attempt cache write failed: %v", err)
	}
}

func (c *AttemptCache) evict(ctx context.Context, userID, id string) {
	if err := c.client.Del(ctx, c.key(userID, id)).Err(); err != nil {
		c.logger.Printf("attempt cache evict failed: %v", err)
	}
}

func (c *AttemptCache) key(userID, id string) string {
	return "quiz:attempt:" + userID + ":" + id
}

func (c *AttemptCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
