package orchestration

import "github.com/cuemby/durabletask/pkg/durabletask"

// futureResult is what a pending call resolves to: either a success
// payload or a failure detail, never both.
type futureResult struct {
	value   []byte
	failure *durabletask.FailureDetail
}

// Future represents one outstanding call — activity, sub-orchestration,
// timer, entity call — issued by orchestrator code. It resolves exactly
// once, either during replay (from a matching history event) or live
// (once the scheduler redelivers a completion in a later turn).
//
// settled is set by resolve() (mostly from the turn loop's
// state.advance(), and from the coroutine when a buffered external event
// is handed over at subscription) and by Abandon on the coroutine
// goroutine. It needs no locking because the two goroutines never run at
// the same time: each hands control to the other over channels, and those
// channel operations establish the happens-before relationship the Go
// memory model requires.
type Future struct {
	ch          chan futureResult
	settled     bool // turn-loop-local: has resolve() been called yet
	abandoned   bool // set when a cancelable timer/await is abandoned; see Abandon
	lastFailure *durabletask.FailureDetail // populated by park() when the resolution carried a failure

	taskID int32  // the task id this future was registered under, for error reporting
	name   string // the activity/sub-orchestration/operation name, for error reporting
}

func newFuture() *Future {
	return &Future{ch: make(chan futureResult, 1)}
}

// resolve delivers r to the waiting (or future) reader and marks the
// future settled, so the turn loop's drive-until-settled wait knows to
// stop calling advance() on this future's account.
func (f *Future) resolve(r futureResult) {
	f.settled = true
	select {
	case f.ch <- r:
	default:
		// Already resolved or abandoned; resolving twice would indicate a
		// dispatcher bug, not a user error, so this is silently dropped
		// rather than panicking mid-turn.
	}
}

// Abandon marks the future as no longer awaited — used for cancelable
// timers whose cancellation token fired during replay (spec §4.4.2): the
// timerCreated history entry is still consumed normally, but a later
// timerFired for the same task id must not be treated as an error just
// because nothing is listening anymore.
func (f *Future) Abandon() {
	f.abandoned = true
	f.settled = true
}
