package entity

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

type fakeDIHost struct{}

func (fakeDIHost) Resolve(reflect.Type) (any, error) { return nil, errors.New("not used") }

// counterEntity mirrors the spec §8 scenario 5 fixture: add(n) accumulates
// onto an int state, get() returns it, both encoded via plain JSON.
type counterEntity struct{}

func (counterEntity) HandleOperation(ctx *Context, name string, input []byte) ([]byte, error) {
	var value int
	if raw := ctx.GetState(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, err
		}
	}

	switch name {
	case "add":
		var delta int
		if err := json.Unmarshal(input, &delta); err != nil {
			return nil, err
		}
		value += delta
		out, _ := json.Marshal(value)
		ctx.SetState(out)
		return nil, nil
	case "get":
		return json.Marshal(value)
	default:
		return nil, errors.New("unknown operation " + name)
	}
}

func lookupOf(entities map[string]Entity) Lookup {
	return func(name string, host DIHost) (Entity, bool, error) {
		e, ok := entities[name]
		return e, ok, nil
	}
}

func TestEntityBatchMixedSuccessFailure(t *testing.T) {
	d := NewDispatcher(lookupOf(map[string]Entity{"Counter": counterEntity{}}), fakeDIHost{})

	addFive, _ := json.Marshal(5)
	completion := d.Execute(&durabletask.WorkItem{
		Kind:          durabletask.WorkItemEntityRequest,
		DeliveryID:    "d1",
		EntityID:      "Counter@k1",
		StateAbsent:   true,
		StateSnapshot: nil,
		Operations: []durabletask.EntityOperation{
			{ID: "op1", Name: "add", Input: addFive},
			{ID: "op2", Name: "add", Input: []byte(`"oops"`)},
			{ID: "op3", Name: "get"},
		},
	})

	require.Len(t, completion.OperationResults, 3)

	require.Nil(t, completion.OperationResults[0].Failure)

	require.NotNil(t, completion.OperationResults[1].Failure)
	assert.Equal(t, durabletask.ErrKindEntityOperationFailure, completion.OperationResults[1].Failure.Kind)

	require.Nil(t, completion.OperationResults[2].Failure)
	var final int
	require.NoError(t, json.Unmarshal(completion.OperationResults[2].Result, &final))
	assert.Equal(t, 5, final)

	assert.False(t, completion.StateDeleted)
	var snapshot int
	require.NoError(t, json.Unmarshal(completion.FinalState, &snapshot))
	assert.Equal(t, 5, snapshot)
}

func TestEntityDeleteOperationClearsState(t *testing.T) {
	d := NewDispatcher(lookupOf(map[string]Entity{"Counter": counterEntity{}}), fakeDIHost{})
	existing, _ := json.Marshal(42)

	completion := d.Execute(&durabletask.WorkItem{
		EntityID:      "Counter@k2",
		StateSnapshot: existing,
		Operations: []durabletask.EntityOperation{
			{ID: "op1", Name: "delete"},
		},
	})

	require.Len(t, completion.OperationResults, 1)
	require.Nil(t, completion.OperationResults[0].Failure)
	assert.True(t, completion.StateDeleted)
	assert.Empty(t, completion.FinalState)
}

func TestEntitySignalProducesNoOperationResult(t *testing.T) {
	d := NewDispatcher(lookupOf(map[string]Entity{"Counter": counterEntity{}}), fakeDIHost{})
	input, _ := json.Marshal(1)

	completion := d.Execute(&durabletask.WorkItem{
		EntityID: "Counter@k3",
		Operations: []durabletask.EntityOperation{
			{ID: "op1", Name: "add", Input: input, IsSignal: true},
		},
	})

	assert.Empty(t, completion.OperationResults)
	var snapshot int
	require.NoError(t, json.Unmarshal(completion.FinalState, &snapshot))
	assert.Equal(t, 1, snapshot)
}

func TestEntityNotFound(t *testing.T) {
	d := NewDispatcher(lookupOf(nil), fakeDIHost{})
	completion := d.Execute(&durabletask.WorkItem{
		EntityID: "Missing@k1",
		Operations: []durabletask.EntityOperation{
			{ID: "op1", Name: "get"},
		},
	})

	require.Len(t, completion.OperationResults, 1)
	require.NotNil(t, completion.OperationResults[0].Failure)
	assert.Equal(t, durabletask.ErrKindTaskNotFound, completion.OperationResults[0].Failure.Kind)
}
