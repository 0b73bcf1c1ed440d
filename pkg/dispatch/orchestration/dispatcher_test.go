package orchestration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func startMarker(ts time.Time) durabletask.HistoryEvent {
	return durabletask.HistoryEvent{Kind: durabletask.KindExecutionStarted, Timestamp: ts}
}

func TestRunTurnSingleActivityFreshInstance(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		out, err := ctx.CallActivity("SayHello", "world")
		require.NoError(t, err)
		return string(out), nil
	}

	state := NewTurnState("inst-1", []durabletask.HistoryEvent{startMarker(time.Unix(0, 0))}, nil)
	completion := RunTurn(state, []byte(`"ignored"`), noopLogger(), nil, fn, "d1")

	require.Len(t, completion.Actions, 1)
	assert.Equal(t, durabletask.KindTaskScheduled, completion.Actions[0].Kind)
	assert.Equal(t, "SayHello", completion.Actions[0].Name)
	assert.False(t, completion.IsComplete)
}

func TestRunTurnReplayConsumesHistoryThenCompletes(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		out, err := ctx.CallActivity("SayHello", "world")
		require.NoError(t, err)
		var result string
		require.NoError(t, json.Unmarshal(out, &result))
		return result, nil
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindOrchestratorStart, Timestamp: time.Unix(1, 0)},
		{Kind: durabletask.KindTaskScheduled, TaskID: 0, Name: "SayHello", Input: []byte(`"world"`)},
		{Kind: durabletask.KindTaskCompleted, TaskID: 0, Result: []byte(`"hi"`)},
	}
	state := NewTurnState("inst-1", history, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d2")

	require.True(t, completion.IsComplete)
	assert.Equal(t, []byte(`"hi"`), completion.Output)
	assert.Empty(t, completion.Actions)
}

func TestRunTurnNonDeterminismDetectedNameMismatch(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		_, err := ctx.CallActivity("WrongName", "world")
		return nil, err
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindTaskScheduled, TaskID: 0, Name: "SayHello", Input: []byte(`"world"`)},
		{Kind: durabletask.KindTaskCompleted, TaskID: 0, Result: []byte(`"hi"`)},
	}
	state := NewTurnState("inst-1", history, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d3")

	require.True(t, completion.IsComplete)
	require.NotNil(t, completion.Failure)
	assert.Equal(t, durabletask.ErrKindNonDeterminism, completion.Failure.Kind)
}

// TestRunTurnNonDeterminismDetectedInputMismatch covers the scenario where
// a replayed call matches on task id, kind and name but was issued with a
// different input — e.g. CallActivity("A", "x") on the first execution
// versus CallActivity("A", "y") on replay. This must be caught exactly
// like a renamed or reordered call, and the resulting NonDeterminismError
// must name both input hashes.
func TestRunTurnNonDeterminismDetectedInputMismatch(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		_, err := ctx.CallActivity("SayHello", "y")
		return nil, err
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindTaskScheduled, TaskID: 0, Name: "SayHello", Input: []byte(`"x"`)},
		{Kind: durabletask.KindTaskCompleted, TaskID: 0, Result: []byte(`"hi"`)},
	}
	state := NewTurnState("inst-1", history, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d3b")

	require.True(t, completion.IsComplete)
	require.NotNil(t, completion.Failure)
	assert.Equal(t, durabletask.ErrKindNonDeterminism, completion.Failure.Kind)
	assert.Contains(t, completion.Failure.Message, durabletask.HashInput([]byte(`"x"`)))
	assert.Contains(t, completion.Failure.Message, durabletask.HashInput([]byte(`"y"`)))
}

func TestRunTurnActivityFailurePropagates(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		_, err := ctx.CallActivity("Explode", nil)
		return nil, err
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindTaskScheduled, TaskID: 0, Name: "Explode"},
		{Kind: durabletask.KindTaskFailed, TaskID: 0, Failure: &durabletask.FailureDetail{Kind: "ActivityFailure", Message: "boom"}},
	}
	state := NewTurnState("inst-1", history, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d4")

	require.True(t, completion.IsComplete)
	require.NotNil(t, completion.Failure)
	assert.Contains(t, completion.Failure.Message, "boom")
}

func TestRunTurnFanOutFanIn(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		futures := make([]*Future, 3)
		for i := 0; i < 3; i++ {
			f, err := ctx.ScheduleActivity("DoWork", i)
			require.NoError(t, err)
			futures[i] = f
		}
		results, err := WhenAll(ctx, futures)
		require.NoError(t, err)
		total := 0
		for _, r := range results {
			total += len(r)
		}
		return total, nil
	}

	state := NewTurnState("inst-fanout", []durabletask.HistoryEvent{startMarker(time.Unix(0, 0))}, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d5")

	require.Len(t, completion.Actions, 3)
	for i, a := range completion.Actions {
		assert.Equal(t, int32(i), a.TaskID)
		assert.Equal(t, "DoWork", a.Name)
	}
	assert.False(t, completion.IsComplete)
}

func TestRunTurnFanOutFanInResolvesAcrossNewEvents(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		futures := make([]*Future, 3)
		for i := 0; i < 3; i++ {
			f, err := ctx.ScheduleActivity("DoWork", i)
			require.NoError(t, err)
			futures[i] = f
		}
		results, err := WhenAll(ctx, futures)
		require.NoError(t, err)
		return len(results), nil
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindTaskScheduled, TaskID: 0, Name: "DoWork", Input: []byte("0")},
		{Kind: durabletask.KindTaskScheduled, TaskID: 1, Name: "DoWork", Input: []byte("1")},
		{Kind: durabletask.KindTaskScheduled, TaskID: 2, Name: "DoWork", Input: []byte("2")},
	}
	newEvents := []durabletask.HistoryEvent{
		{Kind: durabletask.KindTaskCompleted, TaskID: 2, Result: []byte("2")},
		{Kind: durabletask.KindTaskCompleted, TaskID: 0, Result: []byte("0")},
		{Kind: durabletask.KindTaskCompleted, TaskID: 1, Result: []byte("1")},
	}
	state := NewTurnState("inst-fanout2", history, newEvents)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d6")

	require.True(t, completion.IsComplete)
	assert.Equal(t, []byte("3"), completion.Output)
}

func TestRunTurnExternalEventBufferedBeforeAwait(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		out, err := ctx.WaitForExternalEvent("approval")
		require.NoError(t, err)
		var result string
		require.NoError(t, json.Unmarshal(out, &result))
		return result, nil
	}

	history := []durabletask.HistoryEvent{
		startMarker(time.Unix(0, 0)),
		{Kind: durabletask.KindEventRaised, EventName: "approval", Input: []byte(`"yes"`)},
	}
	state := NewTurnState("inst-evt", history, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d7")

	require.True(t, completion.IsComplete)
	assert.Equal(t, []byte(`"yes"`), completion.Output)
}

func TestRunTurnContinueAsNewSkipsCompletion(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		err := ctx.ContinueAsNew("next-input", true)
		return nil, err
	}

	state := NewTurnState("inst-can", []durabletask.HistoryEvent{startMarker(time.Unix(0, 0))}, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d8")

	require.True(t, completion.IsComplete)
	require.Len(t, completion.Actions, 1)
	assert.Equal(t, durabletask.KindContinueAsNew, completion.Actions[0].Kind)
	assert.Nil(t, completion.Failure)
}

func TestCreateTimerSplitsLongDurationsIntoLegs(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		return nil, ctx.CreateTimer(7 * 24 * time.Hour)
	}

	state := NewTurnState("inst-timer", []durabletask.HistoryEvent{startMarker(time.Unix(0, 0))}, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d9")

	require.Len(t, completion.Actions, 1)
	assert.Equal(t, durabletask.KindTimerCreated, completion.Actions[0].Kind)
	assert.False(t, completion.IsComplete)
}

func TestTaskIDsAreMonotonicAcrossCallKinds(t *testing.T) {
	fn := func(ctx *Context) (any, error) {
		_, _ = ctx.ScheduleActivity("A", nil)
		_, _ = ctx.ScheduleActivity("B", nil)
		return nil, ctx.CreateTimer(time.Minute)
	}

	state := NewTurnState("inst-ids", []durabletask.HistoryEvent{startMarker(time.Unix(0, 0))}, nil)
	completion := RunTurn(state, nil, noopLogger(), nil, fn, "d10")

	require.Len(t, completion.Actions, 3)
	assert.Equal(t, int32(0), completion.Actions[0].TaskID)
	assert.Equal(t, int32(1), completion.Actions[1].TaskID)
	assert.Equal(t, int32(2), completion.Actions[2].TaskID)
}
