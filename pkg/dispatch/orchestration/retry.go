package orchestration

import (
	"math"
	"time"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

// RetryPolicy governs CallActivityWithRetry/CallSubOrchestratorWithRetry.
// Retries are implemented entirely in orchestrator code via durable timers
// (spec §4.4.2/§6.3) rather than at the transport layer, so the backoff
// delay itself becomes part of replayed history like any other await.
type RetryPolicy struct {
	MaxAttempts        int
	FirstRetryInterval time.Duration
	BackoffCoefficient float64
	MaxRetryInterval   time.Duration
	RetryTimeout       time.Duration // 0 means no overall deadline
	// Handler, when set, overrides the default backoff/max-attempts
	// decision: given the attempt number (1-based) and the failure,
	// return the delay to wait before retrying, or ok=false to stop
	// retrying and surface the failure.
	Handler func(attempt int, failure *durabletask.FailureDetail) (delay time.Duration, ok bool)
}

// DefaultRetryPolicy mirrors the teacher's default reconnect backoff shape
// (see pkg/channel.DefaultBackoffPolicy), adapted to activity retry counts
// instead of connection attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		FirstRetryInterval: time.Second,
		BackoffCoefficient: 2.0,
		MaxRetryInterval:   time.Minute,
	}
}

func (p RetryPolicy) nextDelay(attempt int, failure *durabletask.FailureDetail) (time.Duration, bool) {
	if failure != nil && failure.IsNonRetriable {
		return 0, false
	}
	if p.Handler != nil {
		return p.Handler(attempt, failure)
	}
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	coeff := p.BackoffCoefficient
	if coeff <= 0 {
		coeff = 1
	}
	delay := time.Duration(float64(p.FirstRetryInterval) * math.Pow(coeff, float64(attempt-1)))
	if p.MaxRetryInterval > 0 && delay > p.MaxRetryInterval {
		delay = p.MaxRetryInterval
	}
	return delay, true
}

// CallActivityWithRetry calls name repeatedly per policy until it succeeds,
// a non-retriable failure is returned, or attempts are exhausted — each
// attempt and each intervening durable timer becomes its own positionally
// replayed history entry, so retried orchestrations replay deterministically
// just like any other sequence of awaits.
func (c *Context) CallActivityWithRetry(name string, input any, policy RetryPolicy) ([]byte, error) {
	deadline := time.Time{}
	if policy.RetryTimeout > 0 {
		deadline = c.CurrentUTCDateTime().Add(policy.RetryTimeout)
	}

	attempt := 0
	for {
		attempt++
		result, err := c.CallActivity(name, input)
		if err == nil {
			return result, nil
		}

		afErr, ok := err.(*durabletask.ActivityFailureError)
		if !ok {
			return nil, err
		}
		if !deadline.IsZero() && !c.CurrentUTCDateTime().Before(deadline) {
			return nil, afErr
		}

		delay, retry := policy.nextDelay(attempt, afErr.Detail)
		if !retry {
			return nil, afErr
		}
		if err := c.CreateTimer(delay); err != nil {
			return nil, err
		}
	}
}

// CallSubOrchestratorWithRetry is CallActivityWithRetry's counterpart for
// child orchestrations.
func (c *Context) CallSubOrchestratorWithRetry(name, instanceID string, input any, policy RetryPolicy) ([]byte, error) {
	deadline := time.Time{}
	if policy.RetryTimeout > 0 {
		deadline = c.CurrentUTCDateTime().Add(policy.RetryTimeout)
	}

	attempt := 0
	for {
		attempt++
		result, err := c.CallSubOrchestrator(name, instanceID, input)
		if err == nil {
			return result, nil
		}
		afErr, ok := err.(*durabletask.ActivityFailureError)
		if !ok {
			return nil, err
		}
		if !deadline.IsZero() && !c.CurrentUTCDateTime().Before(deadline) {
			return nil, afErr
		}
		delay, retry := policy.nextDelay(attempt, afErr.Detail)
		if !retry {
			return nil, afErr
		}
		if err := c.CreateTimer(delay); err != nil {
			return nil, err
		}
	}
}
