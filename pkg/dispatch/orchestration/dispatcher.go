// Package orchestration implements the deterministic-replay turn loop for
// orchestrator functions. Each OrchestratorRequest work item gets a fresh
// TurnState (nothing survives across turns) and runs the registered
// orchestrator function in its own goroutine, so blocking Context calls
// (CallActivity, CreateTimer, WaitForExternalEvent, ...) can be written as
// ordinary sequential Go code instead of an explicit state machine.
//
// The turn loop goroutine and the coroutine goroutine never touch
// TurnState concurrently: the coroutine runs freely until it parks on a
// Future, announcing that over parkedCh, at which point the turn loop
// alone drives state.advance() until that specific Future settles or no
// further progress is possible. This strict alternation is what lets
// TurnState's cursor, pending map and action buffer go unlocked.
package orchestration

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

// Func is the shape every registered orchestrator implements.
type Func func(ctx *Context) (any, error)

// coroutineOutcome is what runCoroutine sends on doneCh: either the
// orchestrator returned normally, or it failed (including via a detected
// non-determinism panic). A continueAsNew call unwinds the coroutine by
// panicking after state.markContinuedAsNew; runCoroutine recovers that
// signal and sends an empty outcome, which applyOutcome ignores because
// the result is already recorded on TurnState.
type coroutineOutcome struct {
	output  any
	err     error
}

// RunTurn drives one orchestrator turn to completion (or to the point
// where it can make no further progress this turn) and renders the result
// as a wire Completion.
func RunTurn(state *TurnState, input []byte, logger zerolog.Logger, diHost DIHost, fn Func, deliveryID string) *durabletask.Completion {
	parkedCh := make(chan []*Future, 1)
	doneCh := make(chan coroutineOutcome, 1)
	turnDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)

	cctx := &Context{
		state:  state,
		input:  input,
		logger: logger,
		diHost: diHost,
	}
	cctx.park = func(f *Future) []byte {
		_, v := parkGroup(parkedCh, turnDone, []*Future{f})
		return v
	}
	cctx.parkAny = func(group []*Future) (int, []byte) {
		return parkGroup(parkedCh, turnDone, group)
	}

	go runCoroutine(cctx, fn, &wg, doneCh)

	for {
		select {
		case outcome := <-doneCh:
			wg.Wait()
			applyOutcome(state, outcome)
			return state.BuildCompletion(deliveryID)
		case group := <-parkedCh:
			for !anySettled(group) {
				if !state.advance() {
					close(turnDone)
					wg.Wait()
					return state.BuildCompletion(deliveryID)
				}
			}
		}
	}
}

func anySettled(group []*Future) bool {
	for _, f := range group {
		if f.settled {
			return true
		}
	}
	return false
}

// parkGroup announces group to the turn loop then blocks until whichever
// future in it settles first delivers on its channel, or the turn loop
// gives up on this turn (turnDone), in which case the coroutine unwinds
// via runtime.Goexit rather than ever returning to its caller.
func parkGroup(parkedCh chan []*Future, turnDone chan struct{}, group []*Future) (int, []byte) {
	parkedCh <- group

	cases := make([]reflect.SelectCase, 0, len(group)+1)
	for _, f := range group {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(f.ch)})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(turnDone)})

	chosen, recv, _ := reflect.Select(cases)
	if chosen == len(group) {
		runtime.Goexit()
		return -1, nil
	}
	r := recv.Interface().(futureResult)
	group[chosen].lastFailure = r.failure
	return chosen, r.value
}

// runCoroutine executes the user orchestrator function. A NonDeterminismError
// panic (raised by Context.callTask/createCancelableTimer/CallEntity on a
// replay mismatch) is converted into the turn's terminal failure; any other
// panic is treated as an ordinary orchestrator failure so a buggy
// orchestrator fails its instance rather than crashing the worker process.
// runtime.Goexit (triggered from park() once the turn loop gives up) simply
// unwinds this goroutine — wg.Done() still fires via the deferred call
// below, since Goexit runs deferred functions before exiting.
func runCoroutine(cctx *Context, fn Func, wg *sync.WaitGroup, doneCh chan coroutineOutcome) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*continueAsNewSignal); ok {
				doneCh <- coroutineOutcome{}
				return
			}
			doneCh <- coroutineOutcome{err: toError(r)}
		}
	}()

	output, err := fn(cctx)
	doneCh <- coroutineOutcome{output: output, err: err}
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("orchestrator panicked: %v", r)
}

// applyOutcome records a finished (non-continueAsNew) coroutine's result
// onto TurnState. continueAsNew outcomes already marked themselves via
// Context.ContinueAsNew/state.markContinuedAsNew before unwinding, so
// state.continuedAsNew is checked first to avoid clobbering that.
func applyOutcome(state *TurnState, outcome coroutineOutcome) {
	if state.continuedAsNew {
		return
	}

	var ndErr *durabletask.NonDeterminismError
	if asNonDeterminism(outcome.err, &ndErr) {
		state.markComplete(nil, ndErr.ToFailureDetail())
		return
	}

	if outcome.err != nil {
		state.markComplete(nil, durabletask.NewFailureDetail(durabletask.ErrKindActivityFailure, outcome.err))
		return
	}

	output, err := marshalJSON(outcome.output)
	if err != nil {
		state.markComplete(nil, durabletask.NewFailureDetail(durabletask.ErrKindSerialization, err))
		return
	}
	state.markComplete(output, nil)
}

func asNonDeterminism(err error, target **durabletask.NonDeterminismError) bool {
	nd, ok := err.(*durabletask.NonDeterminismError)
	if !ok {
		return false
	}
	*target = nd
	return true
}
