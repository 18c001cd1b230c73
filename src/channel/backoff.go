package channel

import (
	"math"
	"time"
)

const backoffMultiplier = 1.5

// backoffDelay returns base × 1.5^attempt, capped at max when max > 0.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(backoffMultiplier, float64(attempt)))
	if max > 0 && d > max {
		d = max
	}
	return d
}
