package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/domain"
)

func TestNewParallelExecutor(t *testing.T) {
	executor := NewParallelExecutor()

	require.NotNil(t, executor)
	assert.Equal(t, 0, executor.maxConcurrency)
	assert.Equal(t, 10*time.Minute, executor.timeout)
}

func TestParallelExecutor_Execute_EmptyTasks(t *testing.T) {
	executor := NewParallelExecutor()
	assert.NoError(t, executor.Execute(context.Background(), nil))
}

func TestParallelExecutor_Execute_RunsEnabledTasks(t *testing.T) {
	executor := NewParallelExecutor()

	var ran int32
	tasks := []domain.ExecutableTask{
		NewSimpleTask("a", true, func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		}),
		NewSimpleTask("b", true, func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		}),
		NewSimpleTask("disabled", false, func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 100)
			return nil, nil
		}),
	}

	require.NoError(t, executor.Execute(context.Background(), tasks))
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestParallelExecutor_Execute_CollectsErrors(t *testing.T) {
	executor := NewParallelExecutor()

	var ran int32
	tasks := []domain.ExecutableTask{
		NewSimpleTask("fails", true, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		}),
		NewSimpleTask("succeeds", true, func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		}),
	}

	err := executor.Execute(context.Background(), tasks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task fails failed")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestParallelExecutor_MaxConcurrency(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(2)

	var current, peak int32
	tasks := make([]domain.ExecutableTask, 8)
	for i := range tasks {
		tasks[i] = NewSimpleTask("task", true, func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil, nil
		})
	}

	require.NoError(t, executor.Execute(context.Background(), tasks))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestParallelExecutor_Timeout(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetTimeout(20 * time.Millisecond)

	task := NewSimpleTask("slow", true, func(ctx context.Context) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return nil, nil
		}
	})

	err := executor.Execute(context.Background(), []domain.ExecutableTask{task})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParallelExecutor_CancelledContext(t *testing.T) {
	executor := NewParallelExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executed := false
	task := NewSimpleTask("never", true, func(ctx context.Context) (interface{}, error) {
		executed = true
		return nil, nil
	})

	err := executor.Execute(ctx, []domain.ExecutableTask{task})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, executed)
}

func TestSimpleTask(t *testing.T) {
	task := NewSimpleTask("named", true, nil)
	assert.Equal(t, "named", task.Name())
	assert.True(t, task.IsEnabled())

	_, err := task.Execute(context.Background())
	assert.Error(t, err)
}
