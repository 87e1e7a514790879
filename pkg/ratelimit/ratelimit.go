package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Lock serializes requests and enforces a minimum wait between them.
type Lock interface {
	Lock(ctx context.Context) (unlock func())
}

type lock struct {
	wait time.Duration
	mu   sync.Mutex
	last time.Time
}

func New(wait time.Duration) Lock {
	return &lock{wait: wait}
}

func (l *lock) Lock(ctx context.Context) func() {
	l.mu.Lock()
	if elapsed := time.Since(l.last); elapsed < l.wait {
		t := time.NewTimer(l.wait - elapsed)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	return func() {
		l.last = time.Now()
		l.mu.Unlock()
	}
}
