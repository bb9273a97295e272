package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one admission decision.
// RetryAfterSeconds is only populated when the request is disallowed.
type Result struct {
	Allowed           bool
	Limit             int
	Remaining         int
	RetryAfterSeconds int64
	ResetAt           time.Time
}

// Limiter is the admission-control capability used by the API handlers.
// Consume counts the request against the key's window budget; Peek
// reports the current state without counting.
type Limiter interface {
	Consume(ctx context.Context, key string) (Result, error)
	Peek(ctx context.Context, key string) (Result, error)
}

func retryAfterSeconds(until time.Duration) int64 {
	seconds := int64(until / time.Second)
	if until%time.Second > 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}

	return seconds
}
