// Package worker hosts the durable-task worker daemon: one scheduler
// channel connection, bounded orchestration/activity concurrency, and the
// entity dispatcher, wired together the same way the teacher's Worker
// wired a heartbeat loop and a container executor loop onto one node
// identity — generalized from "poll for container assignments" to "hold
// one streaming connection open and dispatch whatever arrives on it."
package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cuemby/durabletask/pkg/channel"
	"github.com/cuemby/durabletask/pkg/config"
	"github.com/cuemby/durabletask/pkg/dispatch/activity"
	"github.com/cuemby/durabletask/pkg/dispatch/entity"
	"github.com/cuemby/durabletask/pkg/dispatch/orchestration"
	"github.com/cuemby/durabletask/pkg/durabletask"
	"github.com/cuemby/durabletask/pkg/events"
	"github.com/cuemby/durabletask/pkg/log"
	"github.com/cuemby/durabletask/pkg/metrics"
	"github.com/cuemby/durabletask/pkg/registry"
	"github.com/cuemby/durabletask/pkg/security"
)

// componentChannel and componentRegistry are the names GetReadiness checks
// for in its critical components list (pkg/metrics/health.go) — the worker
// registers both itself, since it owns the scheduler channel and the task
// registry it was built with for its whole lifetime, the scheduler-channel
// analogue of the teacher's HealthMonitor component names.
const (
	componentChannel  = "channel"
	componentRegistry = "registry"
)

// Worker is one durable-task worker process: it owns the scheduler
// channel, the task registry, and the three dispatchers that turn
// incoming work items into outgoing completions.
type Worker struct {
	opts     config.Options
	cs       *channel.ConnectionString
	factory  *registry.Factory
	diHost   registry.DIHost
	tokenCache *security.TokenCache

	activityDispatcher *activity.Dispatcher
	entityDispatcher   *entity.Dispatcher

	orchSem *semaphore.Weighted
	events  *events.Broker

	mu      sync.Mutex
	current *channel.Channel
	wg      sync.WaitGroup
}

// Events returns the worker's lifecycle event broker. A host application
// subscribes to it to learn about scheduler connectivity and dispatch
// failures without the worker package depending on its logging/alerting
// stack (spec §6.4's observability hooks).
func (w *Worker) Events() *events.Broker {
	return w.events
}

// New builds a Worker from opts and factory. opts must already have passed
// Normalize; factory is built once at startup and is immutable for the
// worker's lifetime (spec §4.2).
func New(opts config.Options, factory *registry.Factory) (*Worker, error) {
	cs, err := channel.ParseConnectionString(opts.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}

	var tokenCache *security.TokenCache
	if cs.Authentication != channel.AuthNone {
		if opts.CredentialProvider == nil {
			return nil, fmt.Errorf("worker: CredentialProvider is required for Authentication=%s", cs.Authentication)
		}
		tokenCache = security.NewTokenCache(opts.CredentialProvider)
	}

	diHost := opts.DIHost

	w := &Worker{
		opts:       opts,
		cs:         cs,
		factory:    factory,
		diHost:     diHost,
		tokenCache: tokenCache,
		events:     events.NewBroker(),
	}

	w.activityDispatcher = activity.NewDispatcher(activityLookup(factory, diHost), diHost, opts.MaxConcurrentActivities, opts.ActivityTimeout)
	w.entityDispatcher = entity.NewDispatcher(entityLookup(factory), diHost)
	if opts.MaxConcurrentOrchestrations > 0 {
		w.orchSem = semaphore.NewWeighted(opts.MaxConcurrentOrchestrations)
	}

	metrics.RegisterComponent(componentRegistry, true, "built")

	return w, nil
}

// Start connects to the scheduler and begins dispatching work items. It
// blocks until ctx is canceled; failed connects and dropped connections
// are retried with backoff for as long as ctx lives, with no attempt limit.
// Callers typically run it in its own goroutine and use Stop for graceful
// shutdown (spec §6.4).
func (w *Worker) Start(ctx context.Context) error {
	w.opts.ApplyMaxTimerInterval()
	w.events.Start()
	metrics.RegisterComponent(componentChannel, false, "connecting")

	newChannel := func() *channel.Channel {
		return channel.New(w.cs, w.opts.WorkerID, w.tokenCache)
	}

	onConnected := func(ch *channel.Channel) {
		w.mu.Lock()
		w.current = ch
		w.mu.Unlock()
		metrics.UpdateComponent(componentChannel, true, "connected")
		w.events.Publish(&events.Event{Type: events.EventChannelConnected, Message: "scheduler channel connected"})
	}

	err := channel.RunWithReconnect(ctx, w.opts.Capabilities, newChannel, onConnected, func(item *durabletask.WorkItem) {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.handle(ctx, item)
		}()
	})

	metrics.UpdateComponent(componentChannel, false, "disconnected")
	w.events.Publish(&events.Event{Type: events.EventChannelDisconnected, Message: "scheduler channel closed"})
	return err
}

// Stop blocks until every in-flight handle goroutine has returned (spec
// §6.4's graceful drain). It does not cancel the context passed to Start;
// callers cancel that context first so RunWithReconnect stops accepting
// new work, then call Stop to wait out what is already running.
func (w *Worker) Stop() {
	w.wg.Wait()
	w.events.Stop()
}

// handle dispatches a single inbound work item by kind and sends the
// resulting completion back on whichever channel is currently connected.
// A reconnect mid-flight simply means the completion goes out on the new
// connection — the scheduler redelivers a work item it never heard back
// about, so no completion is ever silently dropped (spec §4.3).
func (w *Worker) handle(ctx context.Context, item *durabletask.WorkItem) {
	logger := log.WithComponent("worker")

	switch item.Kind {
	case durabletask.WorkItemHealthPing:
		w.sendHealthPong(ctx, item.DeliveryID)
		return

	case durabletask.WorkItemOrchestratorRequest:
		if w.orchSem != nil {
			if err := w.orchSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer w.orchSem.Release(1)
		}
		completion, accepted := orchestration.Dispatch(item, orchestrationLookup(w.factory, w.diHost), w.diHost, logger, w.opts.Versioning)
		if !accepted {
			w.events.Publish(&events.Event{Type: events.EventWorkItemRejected, Message: "orchestrator work item rejected by versioning policy", Metadata: map[string]string{"name": item.Name}})
			return
		}
		if completion.Failure != nil {
			w.events.Publish(&events.Event{Type: events.EventOrchestrationFailed, Message: completion.Failure.Message, Metadata: map[string]string{"name": item.Name}})
		}
		w.sendCompletion(ctx, completion)

	case durabletask.WorkItemActivityRequest:
		completion := w.activityDispatcher.Execute(ctx, item)
		if completion.Failure != nil {
			w.events.Publish(&events.Event{Type: events.EventActivityFailed, Message: completion.Failure.Message, Metadata: map[string]string{"name": item.Name}})
		}
		w.sendCompletion(ctx, completion)

	case durabletask.WorkItemEntityRequest:
		if !w.opts.EnableEntitySupport {
			logger.Warn().Str("entity_id", item.EntityID).Msg("received entity work item with entity support disabled")
			return
		}
		completion := w.entityDispatcher.Execute(item)
		for _, res := range completion.OperationResults {
			if res.Failure != nil {
				w.events.Publish(&events.Event{Type: events.EventEntityOperationFailed, Message: res.Failure.Message, Metadata: map[string]string{"entity_id": item.EntityID, "operation_id": res.ID}})
			}
		}
		w.sendCompletion(ctx, completion)

	default:
		logger.Warn().Str("kind", string(item.Kind)).Msg("unrecognized work item kind")
	}
}

func (w *Worker) sendCompletion(ctx context.Context, completion *durabletask.Completion) {
	ch := w.currentChannel()
	if ch == nil {
		return
	}
	if err := ch.SendCompletion(ctx, completion); err != nil {
		log.WithComponent("worker").Warn().Err(err).Msg("failed to send completion")
	}
}

func (w *Worker) sendHealthPong(ctx context.Context, deliveryID string) {
	ch := w.currentChannel()
	if ch == nil {
		return
	}
	if err := ch.SendHealthPong(ctx, deliveryID); err != nil {
		log.WithComponent("worker").Warn().Err(err).Msg("failed to send health pong")
	}
}

func (w *Worker) currentChannel() *channel.Channel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
