package toolmgr

import (
	"math"
	"math/rand/v2"
	"time"
)

// backoff computes the sleep before retry attempt+1. Attempt is 0-based. The
// deterministic portion is min(base * multiplier^attempt, max); when jitter is
// enabled a uniform random value in [0, 0.1*backoff] is added on top.
func (c RecoveryConfig) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	if d > c.MaxBackoff || d <= 0 {
		// The power can overflow for large attempts; treat that as capped.
		d = c.MaxBackoff
	}
	if c.jitter() {
		d += time.Duration(rand.Int64N(int64(d)/10 + 1))
	}
	return d
}
