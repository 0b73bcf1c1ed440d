/*
Package log provides structured logging for the worker runtime using
zerolog.

The package wraps zerolog to give every dispatcher and the client surface
JSON-structured logging with component-specific child loggers, configurable
levels, and helper functions for the common patterns: logging against an
instance id, a task id, or the configured task hub.

# Usage

Initializing the logger:

	import "github.com/cuemby/durabletask/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component and context loggers:

	dispatchLog := log.WithComponent("orchestration-dispatcher")
	dispatchLog.Info().Msg("turn started")

	instLog := log.WithInstanceID(instanceID)
	instLog.Debug().Int32("task_id", taskID).Msg("activity scheduled")

# Design patterns

Global logger: a single package-level zerolog.Logger, initialized once via
Init and read from concurrently — zerolog.Logger is safe for that.

Context loggers: WithComponent/WithInstanceID/WithTaskID/WithTaskHub return
child loggers carrying one extra field each; combine them with zerolog's own
.With() chaining when a call site needs more than one.

# Security

Never log raw payload bytes or credentials. Activity/orchestrator input and
output pass through the converter, not the logger; only identifiers
(instance id, task id, task hub, delivery id) are safe to attach as fields.
*/
package log
