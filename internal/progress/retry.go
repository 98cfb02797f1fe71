package progress

import (
	"context"
	"errors"
	"time"

	"idle_clicker/internal/logger"
)

// ErrPersistentWriteFailure means retries were exhausted and the attempt was
// abandoned. The identity cache has been invalidated by the time it is
// returned.
var ErrPersistentWriteFailure = errors.New("progress: persistent write failure")

// Invalidator drops cached identity/auth state so the next call re-resolves.
type Invalidator interface {
	Invalidate(userID int64)
}

// RetryWriter retries corrective record writes with exponential backoff.
// Corrective writes are idempotent replacements, so retrying them is safe;
// optimistic delta flushes deliberately do NOT go through this path.
type RetryWriter struct {
	store       RecordStore
	invalidator Invalidator
	attempts    int
	baseDelay   time.Duration
}

const (
	defaultAttempts  = 3
	defaultBaseDelay = 500 * time.Millisecond

	correctiveWriteTimeout = 15 * time.Second
)

func NewRetryWriter(store RecordStore, invalidator Invalidator) *RetryWriter {
	return &RetryWriter{
		store:       store,
		invalidator: invalidator,
		attempts:    defaultAttempts,
		baseDelay:   defaultBaseDelay,
	}
}

// Write updates record fields, retrying up to 3 times with the base delay
// doubling each attempt. On exhaustion the cached identity is invalidated to
// force re-resolution on the next call.
func (w *RetryWriter) Write(ctx context.Context, userID int64, fields map[string]any) error {
	var lastErr error
	delay := w.baseDelay

	for attempt := 1; attempt <= w.attempts; attempt++ {
		lastErr = w.store.UpdateFields(ctx, userID, fields)
		if lastErr == nil {
			return nil
		}

		logger.Warn("corrective write failed",
			"user_id", userID, "attempt", attempt, "error", lastErr)

		if attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	if w.invalidator != nil {
		w.invalidator.Invalidate(userID)
	}
	logger.Error("corrective write abandoned", "user_id", userID, "error", lastErr)
	return ErrPersistentWriteFailure
}
