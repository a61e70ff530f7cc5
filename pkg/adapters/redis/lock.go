package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/roboflow/pkg/ports"
)

// pollInterval is the delay between SET NX attempts while a lock is held elsewhere.
const pollInterval = 50 * time.Millisecond

// unlockScript deletes the key only if it still holds our token.
var unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// renewScript extends the key's expiry only if it still holds our token.
var renewScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Locker implements ports.DistributedLocker and ports.LeaseRenewer using Redis SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string // lock key -> token of the lease held here
}

// NewLocker creates a Redis locker. An empty prefix uses DefaultPrefix.
func NewLocker(client *backend.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Locker{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// Lock polls until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			l.mu.Lock()
			l.tokens[lockKey] = token
			l.mu.Unlock()
			return func(ctx context.Context) error {
				l.mu.Lock()
				if l.tokens[lockKey] == token {
					delete(l.tokens, lockKey)
				}
				l.mu.Unlock()
				return unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Renew extends the lease on key acquired through this Locker.
func (l *Locker) Renew(ctx context.Context, key string, ttl time.Duration) error {
	lockKey := l.prefix + "lock:" + key
	l.mu.Lock()
	token, held := l.tokens[lockKey]
	l.mu.Unlock()
	if !held {
		return ports.ErrLeaseLost
	}

	n, err := renewScript.Run(ctx, l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis error renewing lock: %w", err)
	}
	if n == 0 {
		return ports.ErrLeaseLost
	}
	return nil
}
