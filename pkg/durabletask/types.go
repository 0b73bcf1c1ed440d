// Package durabletask holds the wire-level and domain types shared by every
// dispatcher, the scheduler channel and the client surface: history events,
// actions, work items and failure details. None of these types carry
// behavior beyond simple validation — the dispatchers in pkg/dispatch own
// the logic that interprets them.
package durabletask

import "time"

// EventKind enumerates every history event and action category the
// orchestration dispatcher must recognize during replay.
type EventKind string

const (
	KindExecutionStarted   EventKind = "executionStarted"
	KindExecutionCompleted EventKind = "executionCompleted"
	KindTaskScheduled      EventKind = "taskScheduled"
	KindTaskCompleted      EventKind = "taskCompleted"
	KindTaskFailed         EventKind = "taskFailed"
	KindTimerCreated       EventKind = "timerCreated"
	KindTimerFired         EventKind = "timerFired"
	KindSubOrchCreated     EventKind = "subOrchCreated"
	KindSubOrchCompleted   EventKind = "subOrchCompleted"
	KindSubOrchFailed      EventKind = "subOrchFailed"
	KindEventRaised        EventKind = "eventRaised"
	KindEventSent          EventKind = "eventSent"
	KindEntityOpCalled     EventKind = "entityOperationCalled"
	KindEntityOpSignaled   EventKind = "entityOperationSignaled"
	KindEntityOpCompleted  EventKind = "entityOperationCompleted"
	KindEntityOpFailed     EventKind = "entityOperationFailed"
	KindEntityLockRequest  EventKind = "entityLockRequested"
	KindEntityLockGranted  EventKind = "entityLockGranted"
	KindContinueAsNew      EventKind = "continueAsNew"
	KindOrchestratorStart  EventKind = "orchestratorStarted"
	KindOrchestratorDone   EventKind = "orchestratorCompleted"
)

// RuntimeStatus mirrors the orchestration instance lifecycle in spec §4.4.4.
type RuntimeStatus string

const (
	StatusPending     RuntimeStatus = "pending"
	StatusRunning     RuntimeStatus = "running"
	StatusSuspended   RuntimeStatus = "suspended"
	StatusCompleted   RuntimeStatus = "completed"
	StatusFailed      RuntimeStatus = "failed"
	StatusTerminated  RuntimeStatus = "terminated"
	StatusContinued   RuntimeStatus = "continuedAsNew"
)

// HistoryEvent is one immutable log entry supplied by the scheduler. TaskID
// is meaningful for the *Scheduled/*Created/timerCreated kinds and for the
// completion kinds that answer them; it is the key the dispatcher matches
// calls and their results against during replay.
type HistoryEvent struct {
	SequenceNumber int64
	Kind           EventKind
	Timestamp      time.Time
	TaskID         int32
	Name           string
	Input          []byte
	Result         []byte
	Failure        *FailureDetail
	InstanceID     string // for sub-orchestration / entity events
	EventName      string // for eventRaised/waitForExternalEvent
}

// Action is produced by one orchestrator turn. It shares the categorical
// space of HistoryEvent kinds: an action is the not-yet-acknowledged form of
// a scheduled event, emitted only when no matching history entry consumed it
// during replay.
type Action struct {
	Kind        EventKind
	TaskID      int32
	Name        string
	Input       []byte
	InstanceID  string
	FireAt      time.Time
	EventName   string
	NewInput    []byte // continueAsNew
	CustomStatus []byte
	TraceParent string
}

// WorkItem is the unit of dispatch delivered by the scheduler channel.
type WorkItem struct {
	DeliveryID string
	Kind       WorkItemKind

	// OrchestratorRequest fields.
	InstanceID string
	Version    string // spec §4.7 versioning; empty means the caller's defaultVersion applies
	History    []HistoryEvent
	NewEvents  []HistoryEvent

	// ActivityRequest fields.
	TaskID        int32
	Name          string
	Input         []byte
	TraceContext  string

	// EntityRequest fields.
	EntityID       string
	Operations     []EntityOperation
	StateSnapshot  []byte
	StateAbsent    bool
}

// WorkItemKind discriminates the WorkItem union.
type WorkItemKind string

const (
	WorkItemOrchestratorRequest WorkItemKind = "orchestratorRequest"
	WorkItemActivityRequest     WorkItemKind = "activityRequest"
	WorkItemEntityRequest       WorkItemKind = "entityRequest"
	WorkItemHealthPing          WorkItemKind = "healthPing"
)

// EntityOperation is one batched operation delivered to an entity instance.
type EntityOperation struct {
	ID       string
	Name     string
	Input    []byte
	IsSignal bool
}

// EntityOperationResult is the outcome of executing one EntityOperation.
type EntityOperationResult struct {
	ID      string
	Result  []byte
	Failure *FailureDetail
}

// Completion is what the worker sends back for a WorkItem: either a success
// payload plus the action buffer, or a failure detail.
type Completion struct {
	DeliveryID string
	InstanceID string

	// Orchestrator completion.
	Actions       []Action
	IsComplete    bool
	Output        []byte
	CustomStatus  []byte

	// Activity / sub-orchestration completion.
	TaskID int32
	Result []byte

	// Entity completion.
	FinalState      []byte
	StateDeleted    bool
	OperationResults []EntityOperationResult
	Signals         []Action

	Failure *FailureDetail
}

// FailureDetail is the structured, wire-stable failure record from spec §3.
type FailureDetail struct {
	Kind            string
	Message         string
	StackText       string
	IsNonRetriable  bool
	Inner           *FailureDetail
}

func (f *FailureDetail) Error() string {
	if f == nil {
		return ""
	}
	return f.Message
}
