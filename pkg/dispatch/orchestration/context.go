package orchestration

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

// maxTimerInterval is the longest single durable timer the scheduler will
// accept in one action; CreateTimer transparently splits a longer request
// into a chain of back-to-back timers (spec §4.4.2).
var maxTimerInterval = 3 * 24 * time.Hour

// SetMaxTimerInterval overrides the timer-splitting threshold (spec §6.3's
// maximumTimerInterval). It must be set once at worker startup, before any
// turn runs: changing it for an in-flight instance breaks replay, since the
// split count an existing history was recorded with would no longer match.
func SetMaxTimerInterval(d time.Duration) {
	if d > 0 {
		maxTimerInterval = d
	}
}

// guidNamespace seeds the deterministic NewGUID derivation. It has no
// significance beyond being a fixed, never-changing UUID.
var guidNamespace = uuid.MustParse("7b3e9b0a-6e3b-4e8b-9b0a-6e3b4e8b9b0a")

// Context is the facade handed to orchestrator functions. Every method
// that issues a call must run on the coroutine goroutine; it is not safe
// to retain a Context past the orchestrator function's return.
type Context struct {
	state   *TurnState
	input   []byte
	logger  zerolog.Logger
	diHost  DIHost
	park    func(*Future) []byte              // blocks until f resolves or the turn ends
	parkAny func([]*Future) (int, []byte)     // blocks until the first future in the group resolves
}

// DIHost resolves non-logging services for activities/entities. Orchestrator
// code is restricted to logging only (spec §4.4.3); CallActivity/CallEntity
// dispatch through the host on the *dispatcher* side, not through Context.
type DIHost interface {
	Resolve(t reflect.Type) (any, error)
}

// GetInput unmarshals the orchestration's input into v.
func (c *Context) GetInput(v any) error {
	if len(c.input) == 0 {
		return nil
	}
	return unmarshalJSON(c.input, v)
}

// IsReplaying reports whether this turn is replaying previously recorded
// history (spec §4.4.3). Orchestrator code must not branch on this value
// except to suppress side effects like logging.
func (c *Context) IsReplaying() bool {
	return c.state.IsReplaying()
}

// CurrentUTCDateTime returns a deterministic clock driven by the most
// recent orchestratorStarted marker observed in history — never wall time.
func (c *Context) CurrentUTCDateTime() time.Time {
	return c.state.currentTime
}

// NewGUID derives a deterministic v5-style UUID from the instance id, the
// turn generation and a per-turn call ordinal, so repeated replays of the
// same turn produce the same sequence of GUIDs (spec §4.4.3).
func (c *Context) NewGUID() uuid.UUID {
	seed := fmt.Sprintf("%s-%d-%d", c.state.instanceID, c.state.turnGen, c.state.nextCallOrdinal())
	return uuid.NewSHA1(guidNamespace, []byte(seed))
}

// CreateReplaySafeLogger returns a logger that suppresses output while
// IsReplaying is true, so log lines are only ever emitted once, live.
func (c *Context) CreateReplaySafeLogger() zerolog.Logger {
	if c.IsReplaying() {
		return c.logger.Level(zerolog.Disabled)
	}
	return c.logger
}

// SetCustomStatus records a custom status payload sent back to the client
// surface on the next completion (spec §4.4.2).
func (c *Context) SetCustomStatus(v any) error {
	b, err := marshalJSON(v)
	if err != nil {
		return err
	}
	c.state.customStatus = b
	return nil
}

// CallActivity schedules an activity call and blocks the coroutine until
// it resolves. input is marshaled with the default JSON codec; callers
// needing externalized large payloads should marshal through a converter
// before calling.
func (c *Context) CallActivity(name string, input any) ([]byte, error) {
	return c.callTask(durabletask.KindTaskScheduled, name, "", input)
}

// CallSubOrchestrator schedules a child orchestration instance and blocks
// until it completes. If instanceID is empty, the scheduler assigns one.
func (c *Context) CallSubOrchestrator(name, instanceID string, input any) ([]byte, error) {
	return c.callTask(durabletask.KindSubOrchCreated, name, instanceID, input)
}

func (c *Context) callTask(kind durabletask.EventKind, name, instanceID string, input any) ([]byte, error) {
	payload, err := marshalJSON(input)
	if err != nil {
		return nil, err
	}

	taskID := c.state.allocateTaskID()
	action := durabletask.Action{Kind: kind, TaskID: taskID, Name: name, Input: payload, InstanceID: instanceID}
	if err := c.state.consumeScheduled(taskID, kind, name, action); err != nil {
		panic(err) // non-determinism: unwind to dispatcher, which fails the turn
	}

	f := newFuture()
	c.state.registerPending(taskID, kind, name, f)

	result := c.park(f)
	return c.unwrapResult(taskID, name, result, f)
}

// unwrapResult distinguishes a resolved success from a resolved failure,
// returning an *durabletask.ActivityFailureError in the latter case.
func (c *Context) unwrapResult(taskID int32, name string, value []byte, f *Future) ([]byte, error) {
	if f.lastFailure != nil {
		return nil, &durabletask.ActivityFailureError{TaskID: taskID, Name: name, Detail: f.lastFailure}
	}
	return value, nil
}

// CreateTimer blocks the coroutine until d has elapsed in scheduler time.
// Durations longer than maxTimerInterval are split into a chain of
// sequential timers, each re-issued positionally on replay (spec §4.4.2).
func (c *Context) CreateTimer(d time.Duration) error {
	f, err := c.createCancelableTimer(d)
	if err != nil || f == nil {
		return err
	}
	_, err = c.waitTimerLeg(f)
	return err
}

// CreateCancelableTimer behaves like CreateTimer but returns the final
// leg's future without waiting on it, so it can be abandoned (e.g. to
// implement a timeout race via WhenAny). Earlier legs of a split timer are
// still awaited before it returns.
func (c *Context) CreateCancelableTimer(d time.Duration) (*Future, error) {
	return c.createCancelableTimer(d)
}

func (c *Context) createCancelableTimer(d time.Duration) (*Future, error) {
	remaining := d
	fireAt := c.CurrentUTCDateTime().Add(d)
	var f *Future
	for remaining > 0 {
		leg := remaining
		if leg > maxTimerInterval {
			leg = maxTimerInterval
		}
		remaining -= leg

		taskID := c.state.allocateTaskID()
		legFireAt := fireAt
		if remaining > 0 {
			legFireAt = c.CurrentUTCDateTime().Add(d - remaining)
		}
		action := durabletask.Action{Kind: durabletask.KindTimerCreated, TaskID: taskID, FireAt: legFireAt}
		if err := c.state.consumeScheduled(taskID, durabletask.KindTimerCreated, "", action); err != nil {
			panic(err)
		}

		f = newFuture()
		c.state.registerPending(taskID, durabletask.KindTimerCreated, "", f)
		if remaining > 0 {
			if _, err := c.waitTimerLeg(f); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (c *Context) waitTimerLeg(f *Future) ([]byte, error) {
	v := c.park(f)
	if f.lastFailure != nil {
		return nil, fmt.Errorf("timer failed: %s", f.lastFailure.Message)
	}
	return v, nil
}

// WaitForExternalEvent blocks until an event of the given name is raised
// against this instance, consuming buffered deliveries oldest-first
// (spec §4.4.2).
func (c *Context) WaitForExternalEvent(name string) ([]byte, error) {
	f := newFuture()
	c.state.subscribeExternalEvent(name, f)
	v := c.park(f)
	return v, nil
}

// CallEntity invokes a named operation on an entity and blocks for its
// result.
func (c *Context) CallEntity(entityID, operation string, input any) ([]byte, error) {
	payload, err := marshalJSON(input)
	if err != nil {
		return nil, err
	}
	taskID := c.state.allocateTaskID()
	action := durabletask.Action{Kind: durabletask.KindEntityOpCalled, TaskID: taskID, Name: operation, Input: payload, InstanceID: entityID}
	if err := c.state.consumeScheduled(taskID, durabletask.KindEntityOpCalled, operation, action); err != nil {
		panic(err)
	}
	f := newFuture()
	c.state.registerPending(taskID, durabletask.KindEntityOpCalled, operation, f)
	result := c.park(f)
	return c.unwrapResult(taskID, operation, result, f)
}

// SignalEntity fires-and-forgets an operation at an entity; it never
// blocks the coroutine.
func (c *Context) SignalEntity(entityID, operation string, input any) error {
	payload, err := marshalJSON(input)
	if err != nil {
		return err
	}
	taskID := c.state.allocateTaskID()
	action := durabletask.Action{Kind: durabletask.KindEntityOpSignaled, TaskID: taskID, Name: operation, Input: payload, InstanceID: entityID}
	return c.state.consumeScheduled(taskID, durabletask.KindEntityOpSignaled, operation, action)
}

// ContinueAsNew ends the current execution and restarts the instance with
// a fresh history and the given input. preserveEvents is recorded on the
// turn state, but the emitted continueAsNew action carries only the new
// input: eventRaised entries not yet consumed are not forwarded to the new
// execution, whatever the flag's value.
func (c *Context) ContinueAsNew(input any, preserveEvents bool) error {
	payload, err := marshalJSON(input)
	if err != nil {
		return err
	}
	c.state.markContinuedAsNew(payload, preserveEvents)
	panic(&continueAsNewSignal{})
}

// continueAsNewSignal unwinds the coroutine immediately, the same way a
// normal return would, once ContinueAsNew has recorded its outcome.
type continueAsNewSignal struct{}

// Resolve services other than the replay-safe logger are explicitly
// restricted inside orchestrations (spec §4.4.3); activities/entities are
// the DI-enabled surface.
func (c *Context) Resolve(t reflect.Type) (any, error) {
	return nil, &durabletask.OrchestrationDIRestrictedError{Requested: t.String()}
}
