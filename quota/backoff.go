package quota

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxRetries bounds the optimistic commit loop.
	DefaultMaxRetries = 30

	// sleepThreshold is the delay below which backoff sleeps without
	// watching the context.
	sleepThreshold = time.Millisecond
)

// nextDelay produces a sawtooth exponential backoff with jitter. feedback is
// the duration of the failed attempt, so slow backends back off longer.
func nextDelay(attempt int, feedback time.Duration) time.Duration {
	feedback = min(max(feedback, 30*time.Nanosecond), 10*time.Second)

	shift := attempt % 8
	mult := time.Duration(attempt + 1)
	delay := (feedback * mult) << shift

	half := delay >> 1
	// #nosec: G404 non security context
	jitter := time.Duration(rand.Int64N(int64(half) + 1))

	return half + jitter
}
