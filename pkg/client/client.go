// Package client implements the typed wrappers over the scheduler's unary
// RPCs that a starter/caller process uses to drive orchestrations and
// entities from outside the worker (spec §2's Client Surface, §4 "only to
// the precision needed to drive the worker"). It shares the scheduler
// channel's connection-string parsing, token cache and JSON codec with
// pkg/channel but opens its own *grpc.ClientConn: a client is typically a
// short-lived process (a CLI invocation, an HTTP handler) that never joins
// the worker's streaming Hub.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/cuemby/durabletask/pkg/channel"
	"github.com/cuemby/durabletask/pkg/converter"
	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/security"
)

// pollInterval governs WaitForOrchestrationStart/Completion's client-side
// poll loop: the unary RPC surface has no long-poll or streaming query, so
// the client polls QueryOrchestration until the awaited condition holds.
const pollInterval = 500 * time.Millisecond

// Client is a connection to one task hub's scheduler, scoped to the
// client-surface unary RPCs only — it never receives work items.
type Client struct {
	conn       *grpc.ClientConn
	cs         *channel.ConnectionString
	tokenCache *security.TokenCache
	converter  *converter.Converter
}

// New dials cs.Endpoint and returns a Client. tokenCache may be nil only
// when cs.Authentication is channel.AuthNone. conv defaults to
// converter.New(nil, 0) (inline JSON, no externalization) if nil.
func New(cs *channel.ConnectionString, tokenCache *security.TokenCache, conv *converter.Converter) (*Client, error) {
	conn, err := channel.Dial(cs)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cs.Endpoint, err)
	}
	if conv == nil {
		conv = converter.New(nil, 0)
	}
	return &Client{conn: conn, cs: cs, tokenCache: tokenCache, converter: conv}, nil
}

// NewFromConnectionString parses s (spec §6.2) before dialing.
func NewFromConnectionString(s string, tokenCache *security.TokenCache, conv *converter.Converter) (*Client, error) {
	cs, err := channel.ParseConnectionString(s)
	if err != nil {
		return nil, err
	}
	return New(cs, tokenCache, conv)
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, err := channel.AttachHeaders(ctx, c.cs, c.tokenCache)
	if err != nil {
		return err
	}
	return channel.Invoke(ctx, c.conn, channel.Method(method), req, resp)
}

// ScheduleOptions configures ScheduleNewOrchestration.
type ScheduleOptions struct {
	// InstanceID, if empty, is assigned a new random id by the client
	// (spec §3: instance ids are client-assignable but opaque).
	InstanceID string
	// Version tags the execution for worker versioning (spec §4.7).
	Version string
	// StartAt delays the orchestration's first turn until this time, if
	// non-zero.
	StartAt time.Time
}

// ScheduleNewOrchestration starts a new orchestration instance named name
// with the given input, returning its instance id.
func (c *Client) ScheduleNewOrchestration(ctx context.Context, name string, input any, opts ScheduleOptions) (string, error) {
	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	raw, err := c.converter.Serialize(ctx, input)
	if err != nil {
		return "", err
	}

	req := &scheduleRequest{
		Name:         name,
		InstanceID:   instanceID,
		Input:        raw,
		Version:      opts.Version,
		ScheduledUTC: opts.StartAt,
	}
	var resp scheduleResponse
	if err := c.invoke(ctx, "ScheduleOrchestration", req, &resp); err != nil {
		return "", err
	}
	return resp.InstanceID, nil
}

// GetOrchestrationMetadata queries the current state of instanceID.
// getInputsOutputs controls whether the (potentially large, externalized)
// input/output payloads are fetched along with the status summary.
func (c *Client) GetOrchestrationMetadata(ctx context.Context, instanceID string, getInputsOutputs bool) (*OrchestrationMetadata, error) {
	req := &queryRequest{InstanceID: instanceID, IncludeInput: getInputsOutputs, IncludeOutput: getInputsOutputs}
	var meta OrchestrationMetadata
	if err := c.invoke(ctx, "QueryOrchestration", req, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// WaitForOrchestrationStart blocks until instanceID leaves StatusPending,
// or ctx is done.
func (c *Client) WaitForOrchestrationStart(ctx context.Context, instanceID string) (*OrchestrationMetadata, error) {
	return c.pollUntil(ctx, instanceID, false, func(m *OrchestrationMetadata) bool {
		return m.RuntimeStatus != durabletask.StatusPending
	})
}

// WaitForOrchestrationCompletion blocks until instanceID reaches a terminal
// status, or ctx is done. getInputsOutputs controls whether the final
// payload is fetched once the terminal status is observed.
func (c *Client) WaitForOrchestrationCompletion(ctx context.Context, instanceID string, getInputsOutputs bool) (*OrchestrationMetadata, error) {
	return c.pollUntil(ctx, instanceID, getInputsOutputs, (*OrchestrationMetadata).IsTerminal)
}

func (c *Client) pollUntil(ctx context.Context, instanceID string, getInputsOutputs bool, done func(*OrchestrationMetadata) bool) (*OrchestrationMetadata, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		meta, err := c.GetOrchestrationMetadata(ctx, instanceID, false)
		if err != nil {
			return nil, err
		}
		if done(meta) {
			if getInputsOutputs {
				return c.GetOrchestrationMetadata(ctx, instanceID, true)
			}
			return meta, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// PurgeOrchestration removes a terminal instance's history from the
// scheduler. It is not valid for a non-terminal instance; the scheduler is
// authoritative on that rejection.
func (c *Client) PurgeOrchestration(ctx context.Context, instanceID string) error {
	return c.invoke(ctx, "PurgeOrchestration", &purgeRequest{InstanceID: instanceID}, &struct{}{})
}

// RaiseEvent sends an external event to a running (or not-yet-subscribed)
// orchestration instance (spec §4.4.2's buffered-event semantics).
func (c *Client) RaiseEvent(ctx context.Context, instanceID, eventName string, data any) error {
	raw, err := c.converter.Serialize(ctx, data)
	if err != nil {
		return err
	}
	req := &raiseEventRequest{InstanceID: instanceID, EventName: eventName, Input: raw}
	return c.invoke(ctx, "RaiseEvent", req, &struct{}{})
}

// TerminateOrchestration forcibly completes instanceID with StatusTerminated.
func (c *Client) TerminateOrchestration(ctx context.Context, instanceID string, reason any, recursive bool) error {
	raw, err := c.converter.Serialize(ctx, reason)
	if err != nil {
		return err
	}
	req := &terminateRequest{InstanceID: instanceID, Reason: raw, Recursive: recursive}
	return c.invoke(ctx, "TerminateOrchestration", req, &struct{}{})
}

// SuspendOrchestration halts a running instance's execution; queued
// messages still accumulate (spec §3's Lifecycle states).
func (c *Client) SuspendOrchestration(ctx context.Context, instanceID, reason string) error {
	return c.invoke(ctx, "SuspendOrchestration", &suspendResumeRequest{InstanceID: instanceID, Reason: reason}, &struct{}{})
}

// ResumeOrchestration resumes a previously suspended instance.
func (c *Client) ResumeOrchestration(ctx context.Context, instanceID, reason string) error {
	return c.invoke(ctx, "ResumeOrchestration", &suspendResumeRequest{InstanceID: instanceID, Reason: reason}, &struct{}{})
}

// SignalEntity sends a fire-and-forget operation to an entity, optionally
// delayed until scheduledTime.
func (c *Client) SignalEntity(ctx context.Context, entityID, operation string, input any, scheduledTime *time.Time) error {
	raw, err := c.converter.Serialize(ctx, input)
	if err != nil {
		return err
	}
	req := &signalEntityRequest{EntityID: entityID, Operation: operation, Input: raw}
	if scheduledTime != nil {
		req.ScheduledTimeUTC = *scheduledTime
	}
	return c.invoke(ctx, "SignalEntity", req, &struct{}{})
}

// CallEntity invokes an entity operation and waits for its result,
// deserializing it into out (pass a pointer, or nil to discard the result).
func (c *Client) CallEntity(ctx context.Context, entityID, operation string, input any, out any) error {
	raw, err := c.converter.Serialize(ctx, input)
	if err != nil {
		return err
	}
	req := &callEntityRequest{EntityID: entityID, Operation: operation, Input: raw}
	var resp callEntityResponse
	if err := c.invoke(ctx, "CallEntity", req, &resp); err != nil {
		return err
	}
	if resp.Failure != nil {
		return resp.Failure
	}
	if out == nil {
		return nil
	}
	return c.converter.Deserialize(ctx, resp.Result, out)
}
