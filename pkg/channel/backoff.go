package channel

import (
	"math/rand"
	"time"
)

// BackoffPolicy computes reconnect delays as
// min(base * multiplier^attempt, max) with full jitter: the actual delay is
// drawn uniformly from [0, computed-cap). attempt is zero-based.
type BackoffPolicy struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// DefaultBackoffPolicy matches the teacher's general reconnect cadence:
// start fast, cap well below the idle timeout of most load balancers.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Base: 250 * time.Millisecond, Multiplier: 2, Max: 30 * time.Second}
}

// Delay returns the jittered delay before reconnect attempt number attempt
// (0-based: the first retry after the initial failure is attempt 0).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if p.Base <= 0 {
		p = DefaultBackoffPolicy()
	}
	cap := float64(p.Base) * pow(p.Multiplier, attempt)
	if max := float64(p.Max); p.Max > 0 && cap > max {
		cap = max
	}
	if cap <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(cap)))
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
