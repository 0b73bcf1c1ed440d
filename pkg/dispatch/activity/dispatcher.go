// Package activity executes activity work items: stateless, side-effecting
// user functions dispatched by name, with no replay semantics at all (spec
// §4.1, §4.4). Concurrency is bounded by a weighted semaphore rather than
// the teacher's unbounded goroutine-per-container loop, since an
// unbounded activity pool is exactly the kind of resource exhaustion spec
// §6.3's maxConcurrentActivities exists to prevent.
package activity

import (
	"context"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/metrics"
	"github.com/cuemby/durabletask/pkg/tracing"
)

// Func is the shape every registered activity implements. DIHost resolves
// any services the activity needs beyond its raw input — activities are
// not restricted to logging the way orchestrations are (spec §4.4.3).
type Func func(ctx context.Context, host DIHost, input []byte) ([]byte, error)

// DIHost resolves services for activity/entity code.
type DIHost interface {
	Resolve(t reflect.Type) (any, error)
}

// Lookup resolves a registered activity by name; ok is false for
// unregistered names, which Execute reports as a TaskNotFound failure.
type Lookup func(name string) (Func, bool)

// Dispatcher runs activity work items with bounded concurrency, mirroring
// the teacher's Worker.containerExecutorLoop/executeContainer shape
// (ticker-driven poll loop handing each unit of work to its own goroutine,
// tracked in a mutex-guarded map) generalized from "one goroutine per
// running container" to "one goroutine per in-flight activity call,
// capped by a semaphore instead of node resource limits."
type Dispatcher struct {
	lookup  Lookup
	diHost  DIHost
	sem     *semaphore.Weighted
	timeout time.Duration

	mu      sync.Mutex
	inFlight map[int32]context.CancelFunc
}

// unboundedWeight is the semaphore size used when maxConcurrent <= 0
// ("unbounded"); semaphore.NewWeighted(0) would instead block every
// Acquire forever, which is not what "unbounded" means.
const unboundedWeight = 1 << 30

// NewDispatcher builds a Dispatcher bounded to maxConcurrent simultaneous
// activity executions (maxConcurrent <= 0 means effectively unbounded);
// perCallTimeout of 0 means no per-call deadline beyond ctx's own.
func NewDispatcher(lookup Lookup, diHost DIHost, maxConcurrent int64, perCallTimeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = unboundedWeight
	}
	return &Dispatcher{
		lookup:   lookup,
		diHost:   diHost,
		sem:      semaphore.NewWeighted(maxConcurrent),
		timeout:  perCallTimeout,
		inFlight: make(map[int32]context.CancelFunc),
	}
}

// Execute blocks until a semaphore slot is available (or ctx is canceled),
// then runs the named activity to completion and renders its outcome as a
// wire Completion. It never panics outward: a panicking activity body
// surfaces as an ordinary ActivityFailure.
func (d *Dispatcher) Execute(ctx context.Context, item *durabletask.WorkItem) *durabletask.Completion {
	logger := log.WithComponent("activity").With().Str("name", item.Name).Int32("task_id", item.TaskID).Logger()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return d.failureCompletion(item, durabletask.NewFailureDetail(durabletask.ErrKindInfrastructure, err))
	}
	defer d.sem.Release(1)

	metrics.ActivitiesInFlight.Inc()
	defer metrics.ActivitiesInFlight.Dec()
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ActivityExecutionDuration)

	fn, ok := d.lookup(item.Name)
	if !ok {
		metrics.ActivityExecutionsTotal.WithLabelValues("not_found").Inc()
		notFound := &durabletask.TaskNotFoundError{Name: item.Name, Kind: "activity"}
		return d.failureCompletion(item, notFound.ToFailureDetail())
	}

	callCtx, cancel := d.withDeadline(ctx)
	d.trackCancel(item.TaskID, cancel)
	defer func() {
		d.untrackCancel(item.TaskID)
		cancel()
	}()

	callCtx = tracing.ContextFromTraceParent(callCtx, item.TraceContext)
	callCtx, span := tracing.Tracer().Start(callCtx, "activity:"+item.Name)
	defer span.End()

	result, err := d.runCatchingPanics(callCtx, fn, item.Input)
	if err != nil {
		metrics.ActivityExecutionsTotal.WithLabelValues("failure").Inc()
		logger.Warn().Err(err).Msg("activity execution failed")
		span.RecordError(err)
		return d.failureCompletion(item, durabletask.NewFailureDetail(durabletask.ErrKindActivityFailure, err))
	}

	metrics.ActivityExecutionsTotal.WithLabelValues("success").Inc()
	return &durabletask.Completion{
		DeliveryID: item.DeliveryID,
		TaskID:     item.TaskID,
		Result:     result,
	}
}

// Cancel requests early termination of an in-flight activity call (spec
// §6.4's worker-shutdown/per-call-timeout cancellation sources); a no-op
// if no call for taskID is currently tracked.
func (d *Dispatcher) Cancel(taskID int32) {
	d.mu.Lock()
	cancel, ok := d.inFlight[taskID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

func (d *Dispatcher) trackCancel(taskID int32, cancel context.CancelFunc) {
	d.mu.Lock()
	d.inFlight[taskID] = cancel
	d.mu.Unlock()
}

func (d *Dispatcher) untrackCancel(taskID int32) {
	d.mu.Lock()
	delete(d.inFlight, taskID)
	d.mu.Unlock()
}

func (d *Dispatcher) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) failureCompletion(item *durabletask.WorkItem, detail *durabletask.FailureDetail) *durabletask.Completion {
	return &durabletask.Completion{
		DeliveryID: item.DeliveryID,
		TaskID:     item.TaskID,
		Failure:    detail,
	}
}

// runCatchingPanics converts a panicking activity body into an error
// rather than crashing the dispatcher goroutine — user activity code is
// untrusted the same way the teacher never trusts a container's exit code
// to be well-behaved.
func (d *Dispatcher) runCatchingPanics(ctx context.Context, fn Func, input []byte) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return fn(ctx, d.diHost, input)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if e, ok := p.v.(error); ok {
		return "activity panicked: " + e.Error()
	}
	return "activity panicked"
}
