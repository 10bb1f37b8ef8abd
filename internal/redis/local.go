package redisclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker is an in-process Locker for single instance deployments and tests.
// Unlike the Redis locker it waits for the holder instead of failing fast.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localEntry)}
}

func (l *LocalLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := ScheduleKey(doctorID, date)

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire schedule lock: %w", ctx.Err())
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}
