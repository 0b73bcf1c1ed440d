package orchestration

import (
	"bytes"
	"time"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

type eventClass int

const (
	classScheduled eventClass = iota // TaskScheduled, TimerCreated, SubOrchCreated, EntityOpCalled/Signaled
	classResolved                    // TaskCompleted/Failed, TimerFired, SubOrchCompleted/Failed, EntityOpCompleted/Failed
	classEventRaised
	classEntityLockGranted
	classMarker // ExecutionStarted/Completed, OrchestratorStarted/Completed, ContinueAsNew
)

func classOf(kind durabletask.EventKind) eventClass {
	switch kind {
	case durabletask.KindTaskScheduled, durabletask.KindTimerCreated, durabletask.KindSubOrchCreated,
		durabletask.KindEntityOpCalled, durabletask.KindEntityOpSignaled, durabletask.KindEntityLockRequest:
		return classScheduled
	case durabletask.KindTaskCompleted, durabletask.KindTaskFailed, durabletask.KindTimerFired,
		durabletask.KindSubOrchCompleted, durabletask.KindSubOrchFailed,
		durabletask.KindEntityOpCompleted, durabletask.KindEntityOpFailed:
		return classResolved
	case durabletask.KindEventRaised:
		return classEventRaised
	case durabletask.KindEntityLockGranted:
		return classEntityLockGranted
	default:
		return classMarker
	}
}

// pendingCall is an outstanding call's bookkeeping: the task id it was
// allocated, the name/kind it was issued as (for the next replay's
// assertion), and the future the coroutine is (or will be) awaiting.
type pendingCall struct {
	taskID int32
	kind   durabletask.EventKind
	name   string
	future *Future
}

// TurnState is the per-turn replay bookkeeping: the fresh state
// constructed for every OrchestratorRequest (spec §4.4.1 step 2). Nothing
// here survives past one turn.
type TurnState struct {
	instanceID string

	history   []durabletask.HistoryEvent
	newEvents []durabletask.HistoryEvent
	cursor    int // position within history only
	liveCursor int // position within newEvents, once history is drained

	nextTaskID  int32
	callOrdinal int64
	turnGen     int // number of OrchestratorStarted markers seen so far

	pending map[int32]*pendingCall

	// externalEvents buffers eventRaised entries that arrived before a
	// subscriber awaited them, keyed by event name, oldest first.
	externalEvents map[string][]durabletask.HistoryEvent
	// waiters holds a future for a name that's currently awaiting an
	// event not yet in externalEvents.
	waiters map[string]*Future

	currentTime time.Time

	actions      []durabletask.Action
	customStatus []byte

	complete           bool
	output             []byte
	failure            *durabletask.FailureDetail
	continuedAsNew     bool
	continueAsNewInput []byte
	preserveEvents     bool
}

// NewTurnState builds the fresh per-turn state for one work item.
func NewTurnState(instanceID string, history, newEvents []durabletask.HistoryEvent) *TurnState {
	s := &TurnState{
		instanceID:     instanceID,
		history:        history,
		newEvents:      newEvents,
		pending:        make(map[int32]*pendingCall),
		externalEvents: make(map[string][]durabletask.HistoryEvent),
		waiters:        make(map[string]*Future),
	}
	for _, ev := range history {
		if ev.Kind == durabletask.KindExecutionStarted {
			s.currentTime = ev.Timestamp
			break
		}
	}
	return s
}

// IsReplaying reports whether the cursor is still within the known
// history array, per the context-facade table in spec §4.4.3.
func (s *TurnState) IsReplaying() bool {
	return s.cursor < len(s.history)
}

// allocateTaskID returns the next task id and advances the counter. It is
// only ever called from the coroutine goroutine.
func (s *TurnState) allocateTaskID() int32 {
	id := s.nextTaskID
	s.nextTaskID++
	return id
}

// nextCallOrdinal returns a monotonic ordinal for NewGUID, scoped to this
// turn/instance.
func (s *TurnState) nextCallOrdinal() int64 {
	v := s.callOrdinal
	s.callOrdinal++
	return v
}

// skipAdministrative advances the cursor past any leading marker or
// entity-lock-granted entries, recording turn-generation/clock state as it
// goes. Both consumeScheduled (called synchronously by the coroutine) and
// advance (called by the turn loop) must skip these the same way, since
// either one may be the first to reach a given position in history.
func (s *TurnState) skipAdministrative() {
	for s.cursor < len(s.history) {
		ev := s.history[s.cursor]
		switch classOf(ev.Kind) {
		case classMarker:
			if ev.Kind == durabletask.KindOrchestratorStart {
				s.turnGen++
				s.currentTime = ev.Timestamp
			}
			s.cursor++
		case classEntityLockGranted:
			s.cursor++
		default:
			return
		}
	}
}

// consumeScheduled is called synchronously from the coroutine when it
// issues a call (CallActivity, CreateTimer, ...). If still replaying, it
// asserts the next history entry matches — including the input payload,
// since a call with the same task id/kind/name but a different input is
// just as much a divergence as a renamed or reordered call — otherwise it
// appends a new action. Returns a non-nil error only for a genuine
// mismatch.
func (s *TurnState) consumeScheduled(taskID int32, kind durabletask.EventKind, name string, action durabletask.Action) error {
	s.skipAdministrative()
	if s.IsReplaying() {
		ev := s.history[s.cursor]
		if classOf(ev.Kind) != classScheduled || ev.TaskID != taskID || ev.Kind != kind || ev.Name != name || !bytes.Equal(ev.Input, action.Input) {
			return &durabletask.NonDeterminismError{
				TaskID:            taskID,
				ExpectedKind:      ev.Kind,
				ExpectedName:      ev.Name,
				ExpectedInputHash: durabletask.HashInput(ev.Input),
				ObservedKind:      kind,
				ObservedName:      name,
				ObservedInputHash: durabletask.HashInput(action.Input),
			}
		}
		s.cursor++
		return nil
	}
	s.actions = append(s.actions, action)
	return nil
}

// registerPending records a newly issued call's future, keyed by task id,
// so a later resolved-class event (or future-turn completion) can find it.
func (s *TurnState) registerPending(taskID int32, kind durabletask.EventKind, name string, f *Future) {
	s.pending[taskID] = &pendingCall{taskID: taskID, kind: kind, name: name, future: f}
}

// advance walks forward through history then newEvents, resolving exactly
// one meaningful event (a resolved-class completion or an eventRaised
// delivery) and returning true, or returns false once nothing remains
// that can make further progress — marker/administrative events are
// skipped transparently. classScheduled events are never resolved here;
// they are consumed synchronously by the coroutine itself, so encountering
// one still unconsumed means the coroutine has diverged or is waiting on
// something else, and the turn should yield.
func (s *TurnState) advance() bool {
	s.skipAdministrative()
	if s.cursor < len(s.history) {
		ev := s.history[s.cursor]
		switch classOf(ev.Kind) {
		case classScheduled:
			return false
		case classResolved:
			s.cursor++
			s.resolveTask(ev)
			return true
		case classEventRaised:
			s.cursor++
			s.deliverExternalEvent(ev)
			return true
		}
	}

	for s.liveCursor < len(s.newEvents) {
		ev := s.newEvents[s.liveCursor]
		s.liveCursor++
		switch classOf(ev.Kind) {
		case classResolved:
			s.resolveTask(ev)
			return true
		case classEventRaised:
			s.deliverExternalEvent(ev)
			return true
		default:
			continue
		}
	}

	return false
}

func (s *TurnState) resolveTask(ev durabletask.HistoryEvent) {
	pc, ok := s.pending[ev.TaskID]
	if !ok {
		// No one is (or ever was) waiting — an abandoned cancelable timer's
		// delayed fire, or a stale redelivery. Not an error (spec §4.4.2).
		return
	}
	delete(s.pending, ev.TaskID)
	if pc.future.abandoned {
		return
	}
	if ev.Failure != nil {
		pc.future.resolve(futureResult{failure: ev.Failure})
		return
	}
	pc.future.resolve(futureResult{value: ev.Result})
}

func (s *TurnState) deliverExternalEvent(ev durabletask.HistoryEvent) {
	if w, ok := s.waiters[ev.EventName]; ok {
		delete(s.waiters, ev.EventName)
		w.resolve(futureResult{value: ev.Input})
		return
	}
	s.externalEvents[ev.EventName] = append(s.externalEvents[ev.EventName], ev)
}

// subscribeExternalEvent either immediately resolves f from a buffered
// event of the given name (oldest first) or registers f as the waiter.
func (s *TurnState) subscribeExternalEvent(name string, f *Future) {
	if buf := s.externalEvents[name]; len(buf) > 0 {
		ev := buf[0]
		s.externalEvents[name] = buf[1:]
		f.resolve(futureResult{value: ev.Input})
		return
	}
	s.waiters[name] = f
}

func (s *TurnState) markComplete(output []byte, failure *durabletask.FailureDetail) {
	s.complete = true
	s.output = output
	s.failure = failure
}

func (s *TurnState) markContinuedAsNew(input []byte, preserveEvents bool) {
	s.continuedAsNew = true
	s.continueAsNewInput = input
	s.preserveEvents = preserveEvents
	// Pending tasks/timers are dropped per spec §4.4.2; there is nothing
	// further to resolve them with this turn.
	s.pending = make(map[int32]*pendingCall)
}

// BuildCompletion renders the turn's outcome into the wire Completion.
func (s *TurnState) BuildCompletion(deliveryID string) *durabletask.Completion {
	actions := s.actions
	if s.continuedAsNew {
		actions = append(actions, durabletask.Action{
			Kind:     durabletask.KindContinueAsNew,
			NewInput: s.continueAsNewInput,
		})
	}
	return &durabletask.Completion{
		DeliveryID:   deliveryID,
		InstanceID:   s.instanceID,
		Actions:      actions,
		IsComplete:   s.complete || s.continuedAsNew,
		Output:       s.output,
		CustomStatus: s.customStatus,
		Failure:      s.failure,
	}
}
