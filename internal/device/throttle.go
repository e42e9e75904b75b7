package device

import (
	"context"
	"sync"
	"time"
)

// Throttle admits at most limit operations in any sliding window of period.
// Callers over the limit wait for the oldest admission to age out; nothing
// is ever dropped.
type Throttle struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu     sync.Mutex
	recent []time.Time // admission times, oldest first
}

// NewThrottle creates a sliding-window throttle.
func NewThrottle(limit int, period time.Duration) *Throttle {
	if limit < 1 {
		limit = 1
	}
	return &Throttle{
		limit:  limit,
		period: period,
		now:    time.Now,
		recent: make([]time.Time, 0, limit),
	}
}

// Wait blocks until an operation may proceed or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		delay := t.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records an admission and returns 0, or returns how long to wait
// before trying again.
func (t *Throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.period)
	expired := 0
	for expired < len(t.recent) && !t.recent[expired].After(cutoff) {
		expired++
	}
	t.recent = append(t.recent[:0], t.recent[expired:]...)

	if len(t.recent) < t.limit {
		t.recent = append(t.recent, now)
		return 0
	}
	return t.recent[0].Add(t.period).Sub(now)
}
