package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many calls pass between removals of expired windows.
const sweepEvery = 1000

type clientInfo struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter per key.
type MemoryLimiter struct {
	clients map[string]*clientInfo
	mtx     sync.Mutex
	calls   int
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	info, exists := l.clients[key]
	if !exists || !now.Before(info.resetAt) {
		info = &clientInfo{resetAt: now.Add(window)}
		l.clients[key] = info
	}

	if info.count >= limit {
		return &Result{Allowed: false, Remaining: 0, ResetAt: info.resetAt, Limit: limit}, nil
	}

	info.count++
	return &Result{
		Allowed:   true,
		Remaining: limit - info.count,
		ResetAt:   info.resetAt,
		Limit:     limit,
	}, nil
}

// Reset forgets the window of key.
func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	delete(l.clients, key)
	return nil
}

// sweep expects the lock to be held
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, info := range l.clients {
		if !now.Before(info.resetAt) {
			delete(l.clients, key)
		}
	}
}
