// Package entity executes batches of operations against single-writer,
// addressable stateful objects (spec §4.5). Unlike orchestrations, entity
// code runs exactly once per operation — there is no replay, so nothing
// here needs a coroutine or a history cursor.
package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

// DeleteOperation is the implicit, case-insensitive operation name that
// clears an entity's state without invoking user code.
const DeleteOperation = "delete"

// Entity is the shape every registered entity type implements. Dynamic
// dispatch by operation name (rather than reflection-based method lookup)
// is the most language-portable encoding, and the one used here.
type Entity interface {
	HandleOperation(ctx *Context, name string, input []byte) ([]byte, error)
}

// DIHost resolves services for entity code; unlike orchestrations,
// entities face no DI restriction.
type DIHost interface {
	Resolve(t reflect.Type) (any, error)
}

// Context is passed to every HandleOperation call. It exposes the entity's
// identity, the operation currently executing, and the means to emit
// outbound signals/orchestration-starts captured into the batch's action
// buffer (spec §4.5 step 2's "capture any outbound signals").
type Context struct {
	entityID      string
	operationName string
	isSignal      bool
	stateAbsent   bool
	diHost        DIHost
	logger        zerolog.Logger
	nextTaskID    *int32
	actions       *[]durabletask.Action
	markedDeleted bool

	// state is shared by every Context constructed for operations in the
	// same batch, so a state change from operation N is visible to
	// operation N+1 — entities are hydrated once per batch, not once per
	// operation (spec §4.5 step 1/2).
	state *[]byte
}

// EntityID returns the (entity-name, key) pair this batch is addressed to,
// opaque to the dispatcher beyond routing.
func (c *Context) EntityID() string { return c.entityID }

// OperationName returns the name of the operation currently executing.
func (c *Context) OperationName() string { return c.operationName }

// IsSignal reports whether the current operation was fired without an
// expected reply (spec §4.2's signalEntity vs callEntity distinction).
func (c *Context) IsSignal() bool { return c.isSignal }

// StateWasAbsent reports whether the entity had no prior persisted state
// when this batch began (spec §4.5 step 1's stateAbsent flag).
func (c *Context) StateWasAbsent() bool { return c.stateAbsent }

// Logger returns a structured logger scoped to this entity instance.
func (c *Context) Logger() *zerolog.Logger { return &c.logger }

// Resolve constructs a DI-backed service for entity code; entities are not
// subject to the orchestration restriction.
func (c *Context) Resolve(t reflect.Type) (any, error) {
	if c.diHost == nil {
		return nil, fmt.Errorf("entity: no DI host configured to resolve %s", t)
	}
	return c.diHost.Resolve(t)
}

// DeleteState clears the entity's persisted state, exactly as the implicit
// "delete" operation does — user code can call this explicitly from within
// a handler for another operation name (e.g. a "close" op that also tears
// down state).
func (c *Context) DeleteState() {
	c.markedDeleted = true
	*c.state = nil
}

// GetState returns the entity's current raw state bytes, nil if absent or
// deleted. Entities own their own encoding (typically via encoding/json or
// the shared data converter); the dispatcher never interprets these bytes.
func (c *Context) GetState() []byte { return *c.state }

// SetState replaces the entity's current state, visible to every
// subsequent operation in this batch and persisted in the batch's final
// Completion once the batch finishes.
func (c *Context) SetState(data []byte) {
	c.markedDeleted = false
	*c.state = data
}

// SignalEntity appends a fire-and-forget action targeting another entity,
// scheduled immediately or at scheduledTimeUTC if non-zero.
func (c *Context) SignalEntity(targetEntityID, operation string, input []byte, scheduledTimeUTC time.Time) {
	*c.actions = append(*c.actions, durabletask.Action{
		Kind:       durabletask.KindEntityOpSignaled,
		TaskID:     c.allocateTaskID(),
		Name:       operation,
		Input:      input,
		InstanceID: targetEntityID,
		FireAt:     scheduledTimeUTC,
	})
}

// StartOrchestration appends an action requesting the scheduler launch a
// new orchestration instance, the entity-side equivalent of an
// orchestrator's sub-orchestration call but fire-and-forget.
func (c *Context) StartOrchestration(name, instanceID string, input []byte) {
	*c.actions = append(*c.actions, durabletask.Action{
		Kind:       durabletask.KindSubOrchCreated,
		TaskID:     c.allocateTaskID(),
		Name:       name,
		Input:      input,
		InstanceID: instanceID,
	})
}

func (c *Context) allocateTaskID() int32 {
	id := *c.nextTaskID
	*c.nextTaskID++
	return id
}
