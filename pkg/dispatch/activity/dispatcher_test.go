package activity

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/durabletask/pkg/durabletask"
)

type fakeDIHost struct{}

func (fakeDIHost) Resolve(reflect.Type) (any, error) { return nil, errors.New("not used") }

func registryOf(funcs map[string]Func) Lookup {
	return func(name string) (Func, bool) {
		fn, ok := funcs[name]
		return fn, ok
	}
}

func TestExecuteSuccess(t *testing.T) {
	lookup := registryOf(map[string]Func{
		"Greet": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			return append([]byte("hello "), input...), nil
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 4, 0)
	completion := d.Execute(context.Background(), &durabletask.WorkItem{
		DeliveryID: "d1", TaskID: 1, Name: "Greet", Input: []byte("world"),
	})

	require.Nil(t, completion.Failure)
	assert.Equal(t, []byte("hello world"), completion.Result)
	assert.Equal(t, int32(1), completion.TaskID)
}

func TestExecuteNotFound(t *testing.T) {
	d := NewDispatcher(registryOf(nil), fakeDIHost{}, 4, 0)
	completion := d.Execute(context.Background(), &durabletask.WorkItem{
		DeliveryID: "d2", TaskID: 2, Name: "Missing",
	})

	require.NotNil(t, completion.Failure)
	assert.Equal(t, durabletask.ErrKindTaskNotFound, completion.Failure.Kind)
	assert.True(t, completion.Failure.IsNonRetriable)
}

func TestExecuteErrorBecomesActivityFailure(t *testing.T) {
	lookup := registryOf(map[string]Func{
		"Explode": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			return nil, errors.New("boom")
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 4, 0)
	completion := d.Execute(context.Background(), &durabletask.WorkItem{
		DeliveryID: "d3", TaskID: 3, Name: "Explode",
	})

	require.NotNil(t, completion.Failure)
	assert.Equal(t, durabletask.ErrKindActivityFailure, completion.Failure.Kind)
	assert.Contains(t, completion.Failure.Message, "boom")
}

func TestExecutePanicRecovered(t *testing.T) {
	lookup := registryOf(map[string]Func{
		"Panicky": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			panic("oh no")
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 4, 0)
	completion := d.Execute(context.Background(), &durabletask.WorkItem{
		DeliveryID: "d4", TaskID: 4, Name: "Panicky",
	})

	require.NotNil(t, completion.Failure)
	assert.Equal(t, durabletask.ErrKindActivityFailure, completion.Failure.Kind)
}

func TestExecuteBoundedConcurrency(t *testing.T) {
	var concurrent int32
	var maxSeen int32
	block := make(chan struct{})

	lookup := registryOf(map[string]Func{
		"Slow": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			n := atomic.AddInt32(&concurrent, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			<-block
			atomic.AddInt32(&concurrent, -1)
			return nil, nil
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 2, 0)

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func(id int32) {
			d.Execute(context.Background(), &durabletask.WorkItem{DeliveryID: "d", TaskID: id, Name: "Slow"})
			done <- struct{}{}
		}(int32(i))
	}

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2))
	close(block)
	for i := 0; i < 3; i++ {
		<-done
	}
}

func TestExecuteRespectsPerCallTimeout(t *testing.T) {
	lookup := registryOf(map[string]Func{
		"Hangs": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 4, 20*time.Millisecond)
	completion := d.Execute(context.Background(), &durabletask.WorkItem{
		DeliveryID: "d5", TaskID: 5, Name: "Hangs",
	})

	require.NotNil(t, completion.Failure)
	assert.Contains(t, completion.Failure.Message, "deadline")
}

func TestCancelStopsInFlightCall(t *testing.T) {
	started := make(chan struct{})
	lookup := registryOf(map[string]Func{
		"Cancelable": func(ctx context.Context, host DIHost, input []byte) ([]byte, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	d := NewDispatcher(lookup, fakeDIHost{}, 4, 0)

	resultCh := make(chan *durabletask.Completion, 1)
	go func() {
		resultCh <- d.Execute(context.Background(), &durabletask.WorkItem{
			DeliveryID: "d6", TaskID: 6, Name: "Cancelable",
		})
	}()

	<-started
	d.Cancel(6)

	completion := <-resultCh
	require.NotNil(t, completion.Failure)
}
