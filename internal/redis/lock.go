package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)

// Locker serializes writers that touch the same doctor's day.
type Locker interface {
	WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error
}

// ScheduleKey is the lock key for one doctor on one calendar date.
func ScheduleKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("lock:schedule:%s:%s", doctorID.String(), date)
}

// acquireAttempts bounds how often a busy key is retried before the caller
// gets ErrLockNotAcquired. Waits double from acquireBackoff.
const (
	acquireAttempts = 3
	acquireBackoff  = 25 * time.Millisecond
)

type redisScheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleLocker creates a locker backed by one Redis key per doctor and date.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := ScheduleKey(doctorID, date)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		// release with a fresh context so a cancelled request still frees the key
		relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.release(relCtx, key, token)
	}()

	// the critical section must finish before the key can expire
	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisScheduleLocker) acquire(ctx context.Context, key, token string) error {
	wait := acquireBackoff
	for attempt := 1; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire schedule lock: %w", err)
		}
		if ok {
			return nil
		}
		if attempt == acquireAttempts {
			return ErrLockNotAcquired
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("acquire schedule lock: %w", ctx.Err())
		case <-t.C:
		}
		wait *= 2
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
