// Package config holds the worker-level options from spec §6.3: the
// dispatcher concurrency ceilings, the timer-splitting threshold, the data
// converter's externalization threshold, versioning policy and the entity
// support toggle. It is the one place all of that is assembled, the same
// role the teacher's cmd/warren/main.go flag-to-struct wiring plays for
// worker node configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/durabletask/pkg/channel"
	"github.com/cuemby/durabletask/pkg/dispatch/orchestration"
	"github.com/cuemby/durabletask/pkg/registry"
	"github.com/cuemby/durabletask/pkg/security"
	"github.com/cuemby/durabletask/pkg/versioning"
)

// Options configures a Worker. Zero values are valid and resolve to the
// defaults named in spec §6.3 via Normalize.
type Options struct {
	// ConnectionString is the semicolon-separated grammar from spec §6.2.
	ConnectionString string

	// MaxConcurrentActivities bounds the activity dispatcher's pool.
	// 0 means unbounded.
	MaxConcurrentActivities int64
	// MaxConcurrentOrchestrations bounds how many orchestrator turns may
	// run at once. 0 means unbounded.
	MaxConcurrentOrchestrations int64
	// ActivityTimeout bounds a single activity call; 0 means no per-call
	// deadline beyond the worker's own shutdown context.
	ActivityTimeout time.Duration

	// MaximumTimerInterval is the timer-splitting threshold (default 3
	// days). Immutable for in-flight instances — spec §6.3.
	MaximumTimerInterval time.Duration

	// ExternalPayloadThreshold is the data converter's externalization
	// cutoff in bytes (default 60 KiB).
	ExternalPayloadThreshold int

	// EnableEntitySupport gates the entity dispatcher; requires a
	// scheduler backend that understands EntityRequest work items.
	EnableEntitySupport bool

	// Versioning configures the orchestration dispatcher's version-match
	// policy (spec §4.7).
	Versioning versioning.Options

	// Capabilities advertised in the channel Hello handshake.
	Capabilities []string

	// WorkerID identifies this process to the scheduler; if empty,
	// Normalize generates one from the hostname and a random suffix.
	WorkerID string

	// DIHost resolves activity/entity services by reflect.Type; nil means
	// only factory/singleton registrations are usable (spec §4.2).
	DIHost registry.DIHost

	// CredentialProvider backs the token cache for every Authentication
	// mode other than None; required unless ConnectionString sets
	// Authentication=None.
	CredentialProvider security.CredentialProvider
}

// Default values named in spec §6.3.
const (
	DefaultMaximumTimerInterval     = 3 * 24 * time.Hour
	DefaultExternalPayloadThreshold = 60 * 1024
)

// Normalize fills in every zero-valued field with its spec §6.3 default and
// validates the connection string eagerly so construction errors surface
// before the worker ever dials the scheduler.
func (o Options) Normalize() (Options, error) {
	if o.ConnectionString == "" {
		return Options{}, fmt.Errorf("config: ConnectionString is required")
	}
	if _, err := channel.ParseConnectionString(o.ConnectionString); err != nil {
		return Options{}, err
	}
	if o.MaximumTimerInterval <= 0 {
		o.MaximumTimerInterval = DefaultMaximumTimerInterval
	}
	if o.ExternalPayloadThreshold <= 0 {
		o.ExternalPayloadThreshold = DefaultExternalPayloadThreshold
	}
	if o.Versioning == (versioning.Options{}) {
		o.Versioning = versioning.DefaultOptions()
	}
	if len(o.Capabilities) == 0 {
		o.Capabilities = []string{"orchestrations", "activities"}
		if o.EnableEntitySupport {
			o.Capabilities = append(o.Capabilities, "entities")
		}
	}
	if o.WorkerID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		o.WorkerID = host + "-" + uuid.NewString()[:8]
	}
	return o, nil
}

// ApplyMaxTimerInterval pushes MaximumTimerInterval into the orchestration
// package's package-level split threshold. It must be called exactly once,
// before the worker's first turn runs.
func (o Options) ApplyMaxTimerInterval() {
	orchestration.SetMaxTimerInterval(o.MaximumTimerInterval)
}
