// Package settle races an external completion signal against a timeout.
package settle

import (
	"context"
	"time"
)

// First resolves with the first value received on signal, or with ok=false
// once timeout elapses or ctx is done, whichever happens first. After it
// returns nothing else is read from signal.
func First[T any](ctx context.Context, signal <-chan T, timeout time.Duration) (value T, ok bool) {
	if signal == nil {
		return value, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v, open := <-signal:
		if !open {
			return value, false
		}
		return v, true
	case <-timer.C:
		return value, false
	case <-ctx.Done():
		return value, false
	}
}
