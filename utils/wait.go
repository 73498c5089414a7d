package utils

import (
	"context"
	"time"
)

// SleepOrWait pauses between retries.
//
// A context that is already done returns its error without pausing. Delays up
// to threshold sleep without watching ctx; longer delays return early with
// ctx.Err() when ctx is done first.
func SleepOrWait(ctx context.Context, delay, threshold time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	if delay <= threshold {
		time.Sleep(delay)
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
