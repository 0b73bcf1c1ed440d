/*
Package worker implements the durable-task worker daemon: the process a
host application runs to execute orchestrations, activities and entities
on behalf of a remote task-hub scheduler.

# Architecture

A worker is a single scheduler channel connection plus three dispatchers,
the same shape as the teacher's heartbeat-loop-plus-container-executor
agent, generalized from "run containers for a manager" to "run registered
functions for a scheduler":

	┌───────────────────────── WORKER PROCESS ─────────────────────────┐
	│                                                                    │
	│  ┌───────────────────────────────────────────────────────┐       │
	│  │                      Worker                             │       │
	│  │  - scheduler channel (RunWithReconnect)                │       │
	│  │  - handle(item): dispatch by WorkItemKind              │       │
	│  └──────┬─────────────────┬─────────────────┬─────────────┘       │
	│         │                 │                 │                     │
	│  ┌──────▼──────┐   ┌──────▼──────┐   ┌──────▼───────────┐        │
	│  │Orchestration│   │  Activity   │   │    Entity         │        │
	│  │  Dispatch   │   │ Dispatcher  │   │  Dispatcher       │        │
	│  │(goroutine-  │   │(semaphore-  │   │(single-writer     │        │
	│  │ per-turn)   │   │ bounded)    │   │ batch loop)        │        │
	│  └─────────────┘   └─────────────┘   └────────────────────┘        │
	│                                                                    │
	└────────────────────────────────────────────────────────────────────┘

Orchestrator, activity and entity work items each render a
durabletask.Completion (a health ping is answered with a pong; an
orchestration rejected by versioning policy, or an entity item received
while entity support is disabled, gets no reply) sent back over
whichever *channel.Channel is currently connected — a reconnect mid-flight
just means the completion goes out on the new connection, since the
scheduler already re-delivers anything it never heard back about.

# Wiring

New takes a config.Options and a *registry.Factory built at startup; the
three registry→dispatcher adapters in wiring.go convert the factory's
uniform TryCreate*(name, host) (any, bool, error) surface onto each
dispatch package's own Lookup type. The activity package's Lookup has no
error return (construction failures there convert into a Func that errors
at invocation time instead), the one deliberate asymmetry among the three
Lookup shapes.

# Shutdown

Stop waits for in-flight handle goroutines to return and then stops the
event broker; it does not cancel the context passed to Start, which the caller (typically
a cmd/durabletask-worker main) owns and cancels on SIGINT/SIGTERM.
*/
package worker
