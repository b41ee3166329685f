// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"marketplace-spotlight/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker serializes short critical sections across API replicas. Payment
// session creation takes a per-request lock so two concurrent callers cannot
// mint two fingerprinted amounts for the same request.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Tuned to the session-creation path: one short transaction holds the lock,
// losing callers get ErrSessionLocked and retry the idempotent endpoint.
const (
	lockAttempts  = 3
	lockRetryWait = 25 * time.Millisecond
)

type RedisLocker struct {
	cli *redis.Client
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			continue
		}
		if ok {
			return token, nil
		}
		time.Sleep(lockRetryWait)
	}
	return "", domain.ErrSessionLocked
}

// Unlock releases only if the token still matches, so a lock that expired
// and was re-acquired elsewhere is never deleted by the original holder.
var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}
