package infra

import (
	"context"
	"time"
)

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// LinearBackoff returns the wait before retry number attempt+1.
// Logic: baseDelay * (attempt+1), capped at maxDelay.
// A negative attempt returns baseDelay.
func LinearBackoff(attempt int) time.Duration {
	if attempt < 0 {
		return baseDelay
	}
	if attempt >= int(maxDelay/baseDelay) {
		return maxDelay
	}
	return baseDelay * time.Duration(attempt+1)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
