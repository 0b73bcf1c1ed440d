// Package registry maps task names to orchestrator, activity and entity
// constructors and resolves concrete instances per work item, deferring to
// a DI host for type-based registrations.
package registry

import (
	"fmt"
	"reflect"
)

// DIHost constructs a value of the given type, the same role the teacher's
// container runtime plays for injected executors: registry code never
// constructs DI-backed instances itself.
type DIHost interface {
	Resolve(t reflect.Type) (any, error)
}

type entryKind int

const (
	kindFactory entryKind = iota
	kindSingleton
	kindType
)

type entry struct {
	kind      entryKind
	factory   func() (any, error)
	singleton any
	typ       reflect.Type
}

func (e entry) create(host DIHost) (any, error) {
	switch e.kind {
	case kindFactory:
		return e.factory()
	case kindSingleton:
		return e.singleton, nil
	case kindType:
		if host == nil {
			return nil, fmt.Errorf("registry: type-based registration for %s requires a DI host", e.typ)
		}
		return host.Resolve(e.typ)
	default:
		return nil, fmt.Errorf("registry: unknown entry kind %d", e.kind)
	}
}

// Builder accumulates orchestrator/activity/entity registrations. It is not
// safe for concurrent use; call Build once registration is complete.
type Builder struct {
	orchestrators map[string]entry
	activities    map[string]entry
	entities      map[string]entry
	errs          []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		orchestrators: make(map[string]entry),
		activities:    make(map[string]entry),
		entities:      make(map[string]entry),
	}
}

// AddOrchestrator registers name against a zero-arg factory closure. Each
// call must return a fresh instance: orchestrator instances are per-turn
// transient by contract.
func (b *Builder) AddOrchestrator(name string, factory func() (any, error)) *Builder {
	return b.add(b.orchestrators, name, entry{kind: kindFactory, factory: factory}, "orchestrator")
}

// AddOrchestratorType defers construction of name to the DI host, resolving
// a fresh instance of t on every turn.
func (b *Builder) AddOrchestratorType(name string, t reflect.Type) *Builder {
	return b.add(b.orchestrators, name, entry{kind: kindType, typ: t}, "orchestrator")
}

// AddActivity registers name against a zero-arg factory closure.
func (b *Builder) AddActivity(name string, factory func() (any, error)) *Builder {
	return b.add(b.activities, name, entry{kind: kindFactory, factory: factory}, "activity")
}

// AddActivitySingleton registers name against a fixed, shared instance.
func (b *Builder) AddActivitySingleton(name string, instance any) *Builder {
	return b.add(b.activities, name, entry{kind: kindSingleton, singleton: instance}, "activity")
}

// AddActivityType defers construction of name to the DI host.
func (b *Builder) AddActivityType(name string, t reflect.Type) *Builder {
	return b.add(b.activities, name, entry{kind: kindType, typ: t}, "activity")
}

// AddEntity registers name against a zero-arg factory closure.
func (b *Builder) AddEntity(name string, factory func() (any, error)) *Builder {
	return b.add(b.entities, name, entry{kind: kindFactory, factory: factory}, "entity")
}

// AddEntityType defers construction of name to the DI host.
func (b *Builder) AddEntityType(name string, t reflect.Type) *Builder {
	return b.add(b.entities, name, entry{kind: kindType, typ: t}, "entity")
}

func (b *Builder) add(m map[string]entry, name string, e entry, kind string) *Builder {
	if _, exists := m[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("registry: %s %q already registered", kind, name))
		return b
	}
	m[name] = e
	return b
}

// Build validates that no name collisions occurred and returns an
// immutable Factory. It is the only fallible step in registration.
func (b *Builder) Build() (*Factory, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("registry: build failed: %w", joinErrors(b.errs))
	}
	return &Factory{
		orchestrators: copyMap(b.orchestrators),
		activities:    copyMap(b.activities),
		entities:      copyMap(b.entities),
	}, nil
}

func copyMap(m map[string]entry) map[string]entry {
	out := make(map[string]entry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func joinErrors(errs []error) error {
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// Factory is the immutable, read-only view of a Builder produced by Build.
// Reads require no locking: the map is never mutated after construction.
type Factory struct {
	orchestrators map[string]entry
	activities    map[string]entry
	entities      map[string]entry
}

// TryCreateOrchestrator constructs a fresh orchestrator instance for name,
// or (nil, false, nil) if name was never registered.
func (f *Factory) TryCreateOrchestrator(name string, host DIHost) (any, bool, error) {
	return tryCreate(f.orchestrators, name, host)
}

// TryCreateActivity constructs (or returns) an activity instance for name.
func (f *Factory) TryCreateActivity(name string, host DIHost) (any, bool, error) {
	return tryCreate(f.activities, name, host)
}

// TryCreateEntity constructs a fresh entity instance for name.
func (f *Factory) TryCreateEntity(name string, host DIHost) (any, bool, error) {
	return tryCreate(f.entities, name, host)
}

func tryCreate(m map[string]entry, name string, host DIHost) (any, bool, error) {
	e, ok := m[name]
	if !ok {
		return nil, false, nil
	}
	inst, err := e.create(host)
	if err != nil {
		return nil, true, err
	}
	return inst, true, nil
}
