package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockNotOwned is returned when unlocking or refreshing a lock that has
// expired or been taken over.
var ErrLockNotOwned = errors.New("lock not owned by this instance")

// Locker is a best-effort distributed mutex.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error
}

// Only the holder of token may delete or extend the key.
var (
	unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker implements Locker with SET NX and token-checked release.
type RedisLocker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("TryLock %s: %w", key, err)
	}
	if !acquired {
		l.logger.Debug("Lock held elsewhere", zap.String("key", key))
		return false, "", nil
	}
	return true, token, nil
}

func (l *RedisLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("Refresh %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("Unlock %s: %w", key, err)
	}
	if n == 0 {
		l.logger.Warn("Lock was no longer ours at release", zap.String("key", key))
		return ErrLockNotOwned
	}
	return nil
}
