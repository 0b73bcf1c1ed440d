package worker

import (
	"context"

	"github.com/cuemby/durabletask/pkg/dispatch/activity"
	"github.com/cuemby/durabletask/pkg/dispatch/entity"
	"github.com/cuemby/durabletask/pkg/dispatch/orchestration"
	"github.com/cuemby/durabletask/pkg/registry"
)

// The three adapters below bridge registry.Factory's uniform
// TryCreate*(name, host) (any, bool, error) surface onto each dispatcher
// package's own Lookup type, converting a construction error into a
// runtime failure the dispatcher already knows how to report rather than
// inventing a second error channel through Lookup's return shape.

func activityLookup(f *registry.Factory, host registry.DIHost) activity.Lookup {
	return func(name string) (activity.Func, bool) {
		inst, ok, err := f.TryCreateActivity(name, host)
		if !ok {
			return nil, false
		}
		if err != nil {
			return failingActivity(err), true
		}
		fn, isFunc := inst.(activity.Func)
		if !isFunc {
			return failingActivity(notAFunc(name, "activity")), true
		}
		return fn, true
	}
}

func failingActivity(err error) activity.Func {
	return func(context.Context, activity.DIHost, []byte) ([]byte, error) { return nil, err }
}

func orchestrationLookup(f *registry.Factory, host registry.DIHost) orchestration.Lookup {
	return func(name string) (orchestration.Func, bool, error) {
		inst, ok, err := f.TryCreateOrchestrator(name, host)
		if !ok {
			return nil, false, nil
		}
		if err != nil {
			return nil, true, err
		}
		fn, isFunc := inst.(orchestration.Func)
		if !isFunc {
			return nil, true, notAFunc(name, "orchestrator")
		}
		return fn, true, nil
	}
}

func entityLookup(f *registry.Factory) entity.Lookup {
	return func(name string, host entity.DIHost) (entity.Entity, bool, error) {
		inst, ok, err := f.TryCreateEntity(name, adaptDIHost(host))
		if !ok || err != nil {
			return nil, ok, err
		}
		e, isEntity := inst.(entity.Entity)
		if !isEntity {
			return nil, true, notAFunc(name, "entity")
		}
		return e, true, nil
	}
}

// adaptDIHost re-wraps an entity.DIHost as a registry.DIHost. The two
// interfaces are structurally identical (Resolve(reflect.Type) (any,
// error)), so this only exists to satisfy the type checker across package
// boundaries, not to change behavior.
func adaptDIHost(h entity.DIHost) registry.DIHost {
	if h == nil {
		return nil
	}
	return h
}

func notAFunc(name, kind string) error {
	return &mismatchedRegistrationError{Name: name, Kind: kind}
}

type mismatchedRegistrationError struct {
	Name string
	Kind string
}

func (e *mismatchedRegistrationError) Error() string {
	return "worker: " + e.Kind + " " + e.Name + " registration did not produce the expected function/interface type"
}
