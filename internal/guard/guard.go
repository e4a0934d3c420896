// Package guard serializes checkout submissions per user.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrHeld is returned when another submission for the same user holds the guard.
var ErrHeld = errors.New("submission already in progress")

// Guard admits at most one in-flight submission per user.
type Guard interface {
	// Acquire claims the guard for userID. The returned release func must be called exactly once.
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, userID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[userID]; ok {
		return nil, ErrHeld
	}
	g.held[userID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, userID)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only while it still carries our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisGuard is a Guard shared by every instance pointed at the same Redis.
// A lock outlives a crashed holder by at most ttl.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisGuard creates a RedisGuard whose locks expire after ttl.
func NewRedisGuard(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, log: log.With().Str("component", "checkout_guard").Logger()}
}

func lockKey(userID string) string {
	return fmt.Sprintf("lock:checkout:%s", userID)
}

func (g *RedisGuard) Acquire(ctx context.Context, userID string) (func(), error) {
	key := lockKey(userID)
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled when the submission ends.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := g.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
				g.log.Warn().Err(err).
					Str("user_id", userID).
					Dur("expires_in", g.ttl).
					Msg("failed to release checkout lock, it stays held until it expires")
			}
		})
	}, nil
}
