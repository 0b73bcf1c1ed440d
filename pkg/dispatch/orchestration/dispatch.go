package orchestration

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/versioning"
)

// Lookup resolves a registered orchestrator factory by name, the
// orchestration-specific analogue of activity.Lookup/entity.Lookup. ok is
// false only when name was never registered.
type Lookup func(name string) (Func, bool, error)

// orchestratorName extracts the registered orchestrator name from a work
// item's history: it is carried on the ExecutionStarted marker, the first
// event of any execution (spec §3's History Event kinds).
func orchestratorName(item *durabletask.WorkItem) (name string, input []byte) {
	for _, ev := range item.History {
		if ev.Kind == durabletask.KindExecutionStarted {
			return ev.Name, ev.Input
		}
	}
	return "", nil
}

// Dispatch is the worker-facing entry point for one OrchestratorRequest: it
// applies versioning (spec §4.7), resolves the orchestrator function named
// by the work item's ExecutionStarted event, builds a fresh TurnState and
// runs RunTurn. accepted is false when versioning.Reject applies — the
// caller must not send a completion at all in that case, leaving the work
// item for the scheduler to redeliver elsewhere.
func Dispatch(item *durabletask.WorkItem, lookup Lookup, diHost DIHost, logger zerolog.Logger, verOpts versioning.Options) (completion *durabletask.Completion, accepted bool) {
	outcome, err := versioning.Evaluate(verOpts, item.Version)
	if err != nil {
		return failureCompletion(item, durabletask.NewFailureDetail(durabletask.ErrKindInfrastructure, err)), true
	}
	switch outcome {
	case versioning.Reject:
		return nil, false
	case versioning.Fail:
		return failureCompletion(item, &durabletask.FailureDetail{
			Kind:           durabletask.ErrKindInfrastructure,
			Message:        "orchestration version " + item.Version + " rejected by worker versioning policy",
			IsNonRetriable: true,
		}), true
	}

	name, input := orchestratorName(item)
	fn, ok, err := lookup(name)
	if err != nil {
		return failureCompletion(item, durabletask.NewFailureDetail(durabletask.ErrKindInfrastructure, err)), true
	}
	if !ok {
		notFound := &durabletask.TaskNotFoundError{Name: name, Kind: "orchestrator"}
		return failureCompletion(item, notFound.ToFailureDetail()), true
	}

	state := NewTurnState(item.InstanceID, item.History, item.NewEvents)
	return RunTurn(state, input, logger, diHost, fn, item.DeliveryID), true
}

func failureCompletion(item *durabletask.WorkItem, detail *durabletask.FailureDetail) *durabletask.Completion {
	return &durabletask.Completion{
		DeliveryID: item.DeliveryID,
		InstanceID: item.InstanceID,
		IsComplete: true,
		Failure:    detail,
	}
}
