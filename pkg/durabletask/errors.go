package durabletask

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashInput renders a call's input payload as a short hex digest for
// NonDeterminismError messages — comparing raw payload bytes directly in
// an error string would be unreadable for anything but trivial inputs.
func HashInput(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:8])
}

// Kind strings used in FailureDetail.Kind and matched by clients to decide
// on retry behavior. These mirror the taxonomy in spec §7.
const (
	ErrKindTransport              = "Transport"
	ErrKindAuth                   = "Auth"
	ErrKindSerialization          = "Serialization"
	ErrKindTaskNotFound           = "TaskNotFound"
	ErrKindActivityFailure        = "ActivityFailure"
	ErrKindNonDeterminism         = "NonDeterminism"
	ErrKindEntityOperationFailure = "EntityOperationFailure"
	ErrKindInfrastructure         = "Infrastructure"
)

// NonDeterminismError is raised when replay observes a call that does not
// match the next expected history event. It is always non-retriable and
// terminal for the orchestration instance (spec §4.4.2, §4.4.5).
type NonDeterminismError struct {
	TaskID            int32
	ExpectedKind      EventKind
	ExpectedName      string
	ExpectedInputHash string
	ObservedKind      EventKind
	ObservedName      string
	ObservedInputHash string
}

func (e *NonDeterminismError) Error() string {
	msg := fmt.Sprintf(
		"non-determinism at task id %d: history expects %s %q, orchestrator issued %s %q",
		e.TaskID, e.ExpectedKind, e.ExpectedName, e.ObservedKind, e.ObservedName,
	)
	if e.ExpectedInputHash != e.ObservedInputHash {
		msg += fmt.Sprintf(" (expected input hash %s, observed input hash %s)", e.ExpectedInputHash, e.ObservedInputHash)
	}
	return msg
}

// ToFailureDetail renders the error as the wire-stable failure record.
func (e *NonDeterminismError) ToFailureDetail() *FailureDetail {
	return &FailureDetail{
		Kind:           ErrKindNonDeterminism,
		Message:        e.Error(),
		IsNonRetriable: true,
	}
}

// TaskNotFoundError is built by the dispatchers when a work item names an
// orchestrator, activity or entity that the registry has no entry for. Per spec §7
// it is never retried by the caller.
type TaskNotFoundError struct {
	Name string
	Kind string // "orchestrator" | "activity" | "entity"
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("%s %q is not registered", e.Kind, e.Name)
}

func (e *TaskNotFoundError) ToFailureDetail() *FailureDetail {
	return &FailureDetail{
		Kind:           ErrKindTaskNotFound,
		Message:        e.Error(),
		IsNonRetriable: true,
	}
}

// OrchestrationDIRestrictedError is returned whenever orchestrator code
// attempts to resolve a DI service other than the replay-safe logger
// (spec §4.4.3).
type OrchestrationDIRestrictedError struct {
	Requested string
}

func (e *OrchestrationDIRestrictedError) Error() string {
	return fmt.Sprintf("services other than logging cannot be injected into orchestrations (requested %q)", e.Requested)
}

// ActivityFailureError wraps a failure surfaced from activity or
// sub-orchestration execution, exposed to orchestrator code as a typed
// failure associated with the failed task.
type ActivityFailureError struct {
	TaskID  int32
	Name    string
	Detail  *FailureDetail
}

func (e *ActivityFailureError) Error() string {
	return fmt.Sprintf("task %d (%s) failed: %s", e.TaskID, e.Name, e.Detail.Error())
}

func (e *ActivityFailureError) Unwrap() error { return e.Detail }

// EntityOperationFailureError attaches a per-operation failure without
// aborting the remainder of the batch (spec §4.5, §7).
type EntityOperationFailureError struct {
	OperationID string
	Detail      *FailureDetail
}

func (e *EntityOperationFailureError) Error() string {
	return fmt.Sprintf("entity operation %s failed: %s", e.OperationID, e.Detail.Error())
}
