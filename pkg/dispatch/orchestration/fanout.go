package orchestration

import "github.com/cuemby/durabletask/pkg/durabletask"

// ScheduleActivity issues an activity call without blocking, returning a
// Future the coroutine can await later — the building block fan-out
// patterns use to issue N calls back to back before awaiting any of them
// (spec §4.4.2). Each call still self-consumes its own scheduled-class
// history entry positionally, exactly like CallActivity.
func (c *Context) ScheduleActivity(name string, input any) (*Future, error) {
	return c.schedule(durabletask.KindTaskScheduled, name, "", input)
}

// ScheduleSubOrchestrator is ScheduleActivity's counterpart for child
// orchestrations.
func (c *Context) ScheduleSubOrchestrator(name, instanceID string, input any) (*Future, error) {
	return c.schedule(durabletask.KindSubOrchCreated, name, instanceID, input)
}

func (c *Context) schedule(kind durabletask.EventKind, name, instanceID string, input any) (*Future, error) {
	payload, err := marshalJSON(input)
	if err != nil {
		return nil, err
	}
	taskID := c.state.allocateTaskID()
	action := durabletask.Action{Kind: kind, TaskID: taskID, Name: name, Input: payload, InstanceID: instanceID}
	if err := c.state.consumeScheduled(taskID, kind, name, action); err != nil {
		panic(err)
	}
	f := newFuture()
	f.taskID, f.name = taskID, name
	c.state.registerPending(taskID, kind, name, f)
	return f, nil
}

// Await blocks the coroutine until f resolves, returning its success value
// or an *durabletask.ActivityFailureError.
func (c *Context) Await(f *Future) ([]byte, error) {
	value := c.park(f)
	return c.unwrapResult(f.taskID, f.name, value, f)
}

// WhenAll blocks until every future in the set has resolved. It returns
// the first failure encountered in slice order, after still awaiting the
// rest so their history entries are never left unconsumed.
func WhenAll(c *Context, futures []*Future) ([][]byte, error) {
	results := make([][]byte, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := c.Await(f)
		results[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// WhenAny blocks until whichever future in the set resolves first,
// returning its index — the building block for timeout races (await an
// activity and a cancelable timer together, keep whichever wins). Futures
// that lose the race are left pending; callers that no longer care about
// one should call its Abandon method so a later, no-longer-awaited
// completion isn't mistaken for a protocol error.
func WhenAny(c *Context, futures []*Future) (int, []byte, error) {
	if len(futures) == 0 {
		return -1, nil, nil
	}
	chosen, value := c.parkAny(futures)
	f := futures[chosen]
	result, err := c.unwrapResult(f.taskID, f.name, value, f)
	return chosen, result, err
}
