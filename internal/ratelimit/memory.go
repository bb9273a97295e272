package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type counter struct {
	hits    int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter held in process memory.
// Windows are not aligned to wall-clock boundaries: the first hit for a
// key opens a window of the configured duration. Expired keys are
// reclaimed by the sweep loop, not on access.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]counter

	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]counter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (l *MemoryLimiter) Consume(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	existing, ok := l.counters[key]
	if !ok || !now.Before(existing.resetAt) {
		resetAt := now.Add(l.window)
		l.counters[key] = counter{hits: 1, resetAt: resetAt}

		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: maxInt(l.limit-1, 0),
			ResetAt:   resetAt,
		}, nil
	}

	existing.hits++
	l.counters[key] = existing

	result := Result{
		Allowed:   existing.hits <= l.limit,
		Limit:     l.limit,
		Remaining: maxInt(l.limit-existing.hits, 0),
		ResetAt:   existing.resetAt,
	}
	if !result.Allowed {
		result.RetryAfterSeconds = retryAfterSeconds(existing.resetAt.Sub(now))
	}

	return result, nil
}

func (l *MemoryLimiter) Peek(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	existing, ok := l.counters[key]
	if !ok || !now.Before(existing.resetAt) {
		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit,
			ResetAt:   now,
		}, nil
	}

	result := Result{
		Allowed:   existing.hits < l.limit,
		Limit:     l.limit,
		Remaining: maxInt(l.limit-existing.hits, 0),
		ResetAt:   existing.resetAt,
	}
	if !result.Allowed {
		result.RetryAfterSeconds = retryAfterSeconds(existing.resetAt.Sub(now))
	}

	return result, nil
}

// StartSweep reclaims expired counters every interval until Close is
// called or ctx is cancelled. Without it the table grows with every
// distinct caller seen over the process lifetime.
func (l *MemoryLimiter) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := l.sweep()
				if removed > 0 {
					logrus.WithField("removed", removed).Debug("rate limit sweep reclaimed expired keys")
				}
			case <-l.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() {
		close(l.stop)
	})

	return nil
}

func (l *MemoryLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
			removed++
		}
	}

	return removed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
