package web

// limiter.go implements concurrency control for conversion processing.
//
// The limiter uses a semaphore pattern to restrict parallel conversions to
// a configurable maximum, preventing resource exhaustion under load. When
// all slots are occupied, new requests wait up to maxWait before failing
// with errTooManyConversions.
//
// The limiter also supports graceful shutdown via waitForDrain, which
// blocks until all active conversions complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errTooManyConversions is returned when all conversion slots are occupied
// and the wait timeout expires. Clients should retry after a short delay.
var errTooManyConversions = errors.New("too many concurrent conversions, please try again later")

const (
	defaultMaxConcurrent = 5
	defaultMaxWait       = 30 * time.Second
)

// convertLimiter controls concurrent conversion processing using a
// semaphore pattern.
type convertLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// newConvertLimiter creates a limiter that allows at most maxConcurrent
// simultaneous conversions. Requests that cannot acquire a slot within
// maxWait receive errTooManyConversions.
func newConvertLimiter(maxConcurrent int, maxWait time.Duration) *convertLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

	return &convertLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// acquire attempts to acquire a conversion slot.
// The caller MUST call release() when the conversion completes (use defer).
func (l *convertLimiter) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errTooManyConversions

	case <-ctx.Done():
		return ctx.Err()
	}
}

// release releases a previously acquired slot.
// Must be called exactly once for each successful acquire.
func (l *convertLimiter) release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// activeCount returns the number of currently active conversions.
func (l *convertLimiter) activeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// waitForDrain blocks until all active conversions complete or the context
// is cancelled. Used for graceful shutdown.
func (l *convertLimiter) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.activeCount() == 0 {
				return nil
			}
		}
	}
}
