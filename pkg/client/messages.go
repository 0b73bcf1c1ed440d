package client

import (
	"time"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

// The request/response shapes below are plain JSON-tagged structs riding
// pkg/channel's unary Invoke helper — there is no generated protobuf stub
// in this tree (see DESIGN.md), so client-surface RPCs use the same codec
// the streaming Hub connection does.

type scheduleRequest struct {
	Name          string    `json:"name"`
	InstanceID    string    `json:"instanceId"`
	Input         []byte    `json:"input"`
	Version       string    `json:"version"`
	ScheduledUTC  time.Time `json:"scheduledUtc,omitempty"`
}

type scheduleResponse struct {
	InstanceID string `json:"instanceId"`
}

type queryRequest struct {
	InstanceID      string `json:"instanceId"`
	IncludeInput    bool   `json:"includeInput"`
	IncludeOutput   bool   `json:"includeOutput"`
}

// OrchestrationMetadata describes one orchestration instance, the client
// surface's rendering of the scheduler-owned conceptual aggregate from
// spec §3 (the worker itself never stores this).
type OrchestrationMetadata struct {
	InstanceID      string                     `json:"instanceId"`
	Name            string                     `json:"name"`
	RuntimeStatus   durabletask.RuntimeStatus  `json:"runtimeStatus"`
	CreatedAtUTC    time.Time                  `json:"createdAtUtc"`
	LastUpdatedUTC  time.Time                  `json:"lastUpdatedUtc"`
	Input           []byte                     `json:"input,omitempty"`
	Output          []byte                     `json:"output,omitempty"`
	CustomStatus    []byte                     `json:"customStatus,omitempty"`
	FailureDetails  *durabletask.FailureDetail `json:"failureDetails,omitempty"`
}

// IsTerminal reports whether RuntimeStatus will never change again.
func (m *OrchestrationMetadata) IsTerminal() bool {
	switch m.RuntimeStatus {
	case durabletask.StatusCompleted, durabletask.StatusFailed, durabletask.StatusTerminated:
		return true
	default:
		return false
	}
}

type purgeRequest struct {
	InstanceID string `json:"instanceId"`
}

type raiseEventRequest struct {
	InstanceID string `json:"instanceId"`
	EventName  string `json:"eventName"`
	Input      []byte `json:"input"`
}

type terminateRequest struct {
	InstanceID string `json:"instanceId"`
	Reason     []byte `json:"reason"`
	Recursive  bool   `json:"recursive"`
}

type suspendResumeRequest struct {
	InstanceID string `json:"instanceId"`
	Reason     string `json:"reason"`
}

type signalEntityRequest struct {
	EntityID         string    `json:"entityId"`
	Operation        string    `json:"operation"`
	Input            []byte    `json:"input"`
	ScheduledTimeUTC time.Time `json:"scheduledTimeUtc,omitempty"`
}

type callEntityRequest struct {
	EntityID  string `json:"entityId"`
	Operation string `json:"operation"`
	Input     []byte `json:"input"`
}

type callEntityResponse struct {
	Result  []byte                     `json:"result,omitempty"`
	Failure *durabletask.FailureDetail `json:"failure,omitempty"`
}
