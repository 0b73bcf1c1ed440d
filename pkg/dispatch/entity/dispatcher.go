package entity

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/metrics"
)

// Lookup resolves a registered entity instance by name (case-sensitive;
// the implicit DeleteOperation name match is case-insensitive and handled
// by the dispatcher before Lookup is ever consulted). ok is false only when
// name was never registered; err carries a construction failure for a name
// that was registered.
type Lookup func(name string, host DIHost) (inst Entity, ok bool, err error)

// Dispatcher runs one EntityRequest's operation batch to completion against
// a single, single-writer entity instance (spec §4.5). There is no
// concurrency internal to Execute: the scheduler never dispatches two
// batches for the same (name, key) concurrently, and the dispatcher does
// not attempt to second-guess that beyond the ordering it itself provides.
type Dispatcher struct {
	lookup Lookup
	diHost DIHost
}

// NewDispatcher builds a Dispatcher resolving entity instances through lookup.
func NewDispatcher(lookup Lookup, diHost DIHost) *Dispatcher {
	return &Dispatcher{lookup: lookup, diHost: diHost}
}

// Execute hydrates state from item's snapshot, runs every batched operation
// in order against one entity instance, and renders the outcome as a single
// wire Completion carrying final state, per-operation results and any
// outbound signals/orchestration-starts the batch produced.
func (d *Dispatcher) Execute(item *durabletask.WorkItem) *durabletask.Completion {
	logger := log.WithComponent("entity").With().Str("entity_id", item.EntityID).Logger()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WorkItemProcessingDuration, "entity")

	entityName, _ := splitEntityID(item.EntityID)

	state := append([]byte(nil), item.StateSnapshot...)
	stateAbsent := item.StateAbsent || len(state) == 0
	var nextTaskID int32
	var actions []durabletask.Action
	results := make([]durabletask.EntityOperationResult, 0, len(item.Operations))

	for _, op := range item.Operations {
		res := d.runOne(logger, entityName, item.EntityID, op, &state, stateAbsent, &nextTaskID, &actions)
		if !op.IsSignal {
			results = append(results, res)
		}
		// A state mutation (including delete) by this operation is visible
		// to the remaining operations in the batch; StateWasAbsent only
		// reflects the batch's starting condition, so it stays fixed.
	}

	completion := &durabletask.Completion{
		DeliveryID:       item.DeliveryID,
		InstanceID:       item.EntityID,
		OperationResults: results,
		Signals:          actions,
		StateDeleted:     len(state) == 0,
		FinalState:       state,
	}
	return completion
}

func (d *Dispatcher) runOne(
	logger zerolog.Logger,
	entityName, entityID string,
	op durabletask.EntityOperation,
	state *[]byte,
	stateAbsent bool,
	nextTaskID *int32,
	actions *[]durabletask.Action,
) durabletask.EntityOperationResult {
	if strings.EqualFold(op.Name, DeleteOperation) {
		*state = nil
		metrics.EntityOperationsTotal.WithLabelValues("success").Inc()
		return durabletask.EntityOperationResult{ID: op.ID}
	}

	inst, ok, err := d.lookup(entityName, d.diHost)
	if err != nil {
		metrics.EntityOperationsTotal.WithLabelValues("failure").Inc()
		return durabletask.EntityOperationResult{
			ID:      op.ID,
			Failure: durabletask.NewFailureDetail(durabletask.ErrKindInfrastructure, err),
		}
	}
	if !ok {
		metrics.EntityOperationsTotal.WithLabelValues("not_found").Inc()
		notFound := &durabletask.TaskNotFoundError{Name: entityName, Kind: "entity"}
		return durabletask.EntityOperationResult{ID: op.ID, Failure: notFound.ToFailureDetail()}
	}

	ctx := &Context{
		entityID:      entityID,
		operationName: op.Name,
		isSignal:      op.IsSignal,
		stateAbsent:   stateAbsent,
		diHost:        d.diHost,
		logger:        logger.With().Str("operation", op.Name).Logger(),
		nextTaskID:    nextTaskID,
		actions:       actions,
		state:         state,
	}

	result, err := d.runCatchingPanics(ctx, inst, op.Name, op.Input)
	if err != nil {
		logger.Warn().Err(err).Str("operation", op.Name).Msg("entity operation failed")
		metrics.EntityOperationsTotal.WithLabelValues("failure").Inc()
		return durabletask.EntityOperationResult{
			ID:      op.ID,
			Failure: durabletask.NewFailureDetail(durabletask.ErrKindEntityOperationFailure, err),
		}
	}

	metrics.EntityOperationsTotal.WithLabelValues("success").Inc()
	return durabletask.EntityOperationResult{ID: op.ID, Result: result}
}

// runCatchingPanics converts a panicking handler into an ordinary failure
// for this one operation — per spec §4.5 step 2, a failing operation must
// not abort the rest of the batch.
func (d *Dispatcher) runCatchingPanics(ctx *Context, inst Entity, name string, input []byte) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = entityPanicError{name: name, v: r}
		}
	}()
	return inst.HandleOperation(ctx, name, input)
}

type entityPanicError struct {
	name string
	v    any
}

func (p entityPanicError) Error() string {
	if e, ok := p.v.(error); ok {
		return "entity operation " + p.name + " panicked: " + e.Error()
	}
	return "entity operation " + p.name + " panicked"
}

// splitEntityID splits an "(entity-name, key)" address of the form
// "name@key" into its two parts. A malformed id with no separator is
// treated as a bare entity name with an empty key.
func splitEntityID(entityID string) (name, key string) {
	idx := strings.Index(entityID, "@")
	if idx < 0 {
		return entityID, ""
	}
	return entityID[:idx], entityID[idx+1:]
}
