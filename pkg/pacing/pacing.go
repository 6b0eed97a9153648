// Package pacing holds the cancellable sleeps used for anti-flood delays.
package pacing

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is done. It returns ctx.Err() when
// interrupted and nil otherwise; a non-positive d returns immediately.
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
