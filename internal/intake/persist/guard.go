package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Release frees a held guard.
type Release func(ctx context.Context) error

// Guard admits one save per key at a time. Acquire returns ErrSaveInProgress
// when the key is already held.
type Guard interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// LocalGuard is an in-process guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: map[string]struct{}{}}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (Release, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrSaveInProgress, key)
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
		return nil
	}, nil
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds the save lock in Redis so every worker instance sees it.
// The TTL bounds how long a crashed holder can block a booking.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) lockKey(key string) string {
	return fmt.Sprintf("%s:save-lock:%s", g.prefix, key)
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (Release, error) {
	lockKey := g.lockKey(key)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, lockKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire save lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSaveInProgress, key)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, g.client, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("release save lock: %w", err)
		}
		return nil
	}, nil
}
