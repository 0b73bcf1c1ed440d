package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDIHost struct{ t *testing.T }

func (h fakeDIHost) Resolve(t reflect.Type) (any, error) {
	return reflect.New(t).Interface(), nil
}

type widgetActivity struct{ Calls int }

func TestBuildCollisionIsFatal(t *testing.T) {
	b := NewBuilder()
	b.AddActivity("do-thing", func() (any, error) { return &widgetActivity{}, nil })
	b.AddActivity("do-thing", func() (any, error) { return &widgetActivity{}, nil })

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do-thing")
}

func TestFactoryCreatesFreshOrchestratorPerCall(t *testing.T) {
	b := NewBuilder()
	b.AddOrchestrator("greet", func() (any, error) { return &widgetActivity{}, nil })
	f, err := b.Build()
	require.NoError(t, err)

	first, ok, err := f.TryCreateOrchestrator("greet", nil)
	require.NoError(t, err)
	require.True(t, ok)
	second, _, err := f.TryCreateOrchestrator("greet", nil)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestTryCreateMissingNameReturnsFalse(t *testing.T) {
	f, err := NewBuilder().Build()
	require.NoError(t, err)

	inst, ok, err := f.TryCreateActivity("missing", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, inst)
}

func TestTypeBasedRegistrationUsesDIHost(t *testing.T) {
	b := NewBuilder()
	b.AddActivityType("widget", reflect.TypeOf(widgetActivity{}))
	f, err := b.Build()
	require.NoError(t, err)

	inst, ok, err := f.TryCreateActivity("widget", fakeDIHost{t: t})
	require.NoError(t, err)
	require.True(t, ok)
	_, isWidget := inst.(*widgetActivity)
	assert.True(t, isWidget)
}

func TestTypeBasedRegistrationWithoutHostErrors(t *testing.T) {
	b := NewBuilder()
	b.AddActivityType("widget", reflect.TypeOf(widgetActivity{}))
	f, err := b.Build()
	require.NoError(t, err)

	_, ok, err := f.TryCreateActivity("widget", nil)
	assert.True(t, ok)
	require.Error(t, err)
}

func TestSingletonReturnsSameInstance(t *testing.T) {
	b := NewBuilder()
	shared := &widgetActivity{}
	b.AddActivitySingleton("shared", shared)
	f, err := b.Build()
	require.NoError(t, err)

	first, _, _ := f.TryCreateActivity("shared", nil)
	second, _, _ := f.TryCreateActivity("shared", nil)
	assert.Same(t, first, second)
}
