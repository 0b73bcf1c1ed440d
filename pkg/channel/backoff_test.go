package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayRespectsMax(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Multiplier: 2, Max: 5 * time.Second}
	for attempt := 0; attempt < 20; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, p.Max)
	}
}

func TestBackoffDelayGrowsWithAttempt(t *testing.T) {
	p := BackoffPolicy{Base: time.Millisecond, Multiplier: 2, Max: time.Hour}
	// Upper bound of the jitter range grows monotonically with attempt;
	// sample many draws and compare maxima rather than single draws,
	// since full jitter means any individual draw can be near zero.
	maxAt := func(attempt int, tries int) time.Duration {
		var max time.Duration
		for i := 0; i < tries; i++ {
			if d := p.Delay(attempt); d > max {
				max = d
			}
		}
		return max
	}
	assert.Greater(t, maxAt(10, 200), maxAt(1, 200))
}

func TestBackoffDelayFallsBackToDefaultWhenUnconfigured(t *testing.T) {
	p := BackoffPolicy{}
	d := p.Delay(0)
	assert.LessOrEqual(t, d, DefaultBackoffPolicy().Base)
}
