package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These run against a real server and are skipped unless REDIS_TEST_ADDR is set.
func testClientLocker(t *testing.T) Locker {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := NewRedisClient(context.Background(), addr, "", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisScheduleLocker(client, 2*time.Second)
}

func TestRedisLocker_BusyKey(t *testing.T) {
	locker := testClientLocker(t)
	doctor := uuid.New()
	ctx := context.Background()

	err := locker.WithScheduleLock(ctx, doctor, "2024-06-01", func(ctx context.Context) error {
		inner := locker.WithScheduleLock(ctx, doctor, "2024-06-01", func(context.Context) error {
			t.Fatal("must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		other := locker.WithScheduleLock(ctx, doctor, "2024-06-02", func(context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)

	// released after the first holder returned
	ran := false
	err = locker.WithScheduleLock(ctx, doctor, "2024-06-01", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
