/*
Package client implements the durable-task client surface: the typed
wrappers a starter process (a CLI, an HTTP handler, a test) uses to drive
orchestrations and entities hosted by a remote task-hub scheduler, without
ever joining the worker's streaming connection.

# Architecture

The client is deliberately thin — everything it does is a single unary RPC
plus, for the two Wait methods, a client-side poll loop:

	┌──────────────────── CALLER PROCESS ─────────────────────────┐
	│                                                               │
	│  import "github.com/cuemby/durabletask/pkg/client"           │
	│                                                               │
	│  c, _ := client.NewFromConnectionString(connStr, tc, conv)   │
	│  id, _ := c.ScheduleNewOrchestration(ctx, "ProcessOrder", in, │
	│      client.ScheduleOptions{})                                 │
	│  meta, _ := c.WaitForOrchestrationCompletion(ctx, id, true)   │
	│                                                               │
	└──────────────────┬────────────────────────────────────────┘
	                    │
	┌───────────────────▼──────── pkg/client ─────────────────────┐
	│                                                               │
	│  Client                                                      │
	│   - Schedule / Query / Purge                                 │
	│   - RaiseEvent / Terminate / Suspend / Resume                │
	│   - SignalEntity / CallEntity                                │
	│   - WaitForOrchestrationStart / ...Completion (poll loop)    │
	│                                                               │
	└───────────────────┬──────────────────────────────────────────┘
	                    │ gRPC unary RPC, JSON codec (pkg/channel)
	                    ▼
	              task-hub scheduler

Unlike pkg/channel's bidirectional Hub connection (which a worker process
holds open to receive work items), a Client opens its own *grpc.ClientConn
and never receives anything unsolicited — every call here is caller-
initiated and scoped to one instance id or entity id.

# Instance ids

ScheduleNewOrchestration assigns a random instance id (via github.com/
google/uuid) when the caller does not supply one, matching spec §3's
"client-assignable" instance identifier: callers that need idempotent
scheduling (e.g. "start if not already running") should supply their own.

# Wait semantics

There is no dedicated long-poll or streaming query RPC in this wire
protocol (see DESIGN.md on the dropped generated-stub dependency), so
WaitForOrchestrationStart/Completion poll QueryOrchestration on a fixed
interval until the awaited condition holds or the caller's context is done.
This trades a little latency and RPC volume for a much simpler wire
surface; a production deployment fronted by the real Azure-hosted
scheduler would instead ride that backend's native wait RPCs.
*/
package client
