package parallex

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitAndForce(t *testing.T) {
	p := NewPool(4)
	defer p.Stop()

	task, err := Go(p, func() (int, error) { return 42, nil })
	require.NoError(t, err)

	v, err := task.YieldForce()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, task.Done())
}

func TestPool_ForceIsIdempotent(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	task, err := Go(p, func() (int, error) { return 7, nil })
	require.NoError(t, err)

	v1, err1 := task.YieldForce()
	v2, err2 := task.YieldForce()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, v1, v2)
}

func TestPool_SpinForceSteals(t *testing.T) {
	// A pool with zero workers never pops anything; SpinForce must steal
	// and run the task inline on the calling goroutine.
	p := NewPool(0)
	defer p.Stop()

	task := NewTask(func() (int, error) { return 9, nil })
	require.NoError(t, Submit(p, task))

	v, err := task.SpinForce()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestPool_WorkForceStealsQueuedTasksWithNoWorkers(t *testing.T) {
	// Force tasks on a pool with zero workers while several are queued:
	// WorkForce steals the target out of the middle of the queue and runs
	// it inline, and forcing the remaining tasks the same way runs each
	// of them exactly once on the calling goroutine.
	p := NewPool(0)
	defer p.Stop()

	var ran int32
	var others []*Task[int]
	for i := 0; i < 5; i++ {
		ot := NewTask(func() (int, error) {
			atomic.AddInt32(&ran, 1)
			return 0, nil
		})
		require.NoError(t, Submit(p, ot))
		others = append(others, ot)
	}

	target := NewTask(func() (int, error) { return 99, nil })
	require.NoError(t, Submit(p, target))

	v, err := target.WorkForce()
	require.NoError(t, err)
	assert.Equal(t, 99, v)

	for _, ot := range others {
		_, _ = ot.WorkForce()
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&ran))
}

func TestPool_ExecutionFaultCapturedAndRethrown(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	task := NewTask(func() (int, error) { return 0, assert.AnError })
	require.NoError(t, Submit(p, task))

	_, err1 := task.YieldForce()
	require.ErrorIs(t, err1, assert.AnError)

	// Forcing again must raise the same fault again.
	_, err2 := task.YieldForce()
	require.ErrorIs(t, err2, assert.AnError)
}

func TestPool_PanicIsCapturedAsExecutionFault(t *testing.T) {
	p := NewPool(1)
	defer p.Stop()

	task := NewTask(func() (int, error) {
		panic("boom")
	})
	require.NoError(t, Submit(p, task))

	_, err := task.YieldForce()
	require.ErrorIs(t, err, ErrExecution)
}

func TestPool_FinishDrainsThenStops(t *testing.T) {
	p := NewPool(2)

	var done int32
	for i := 0; i < 20; i++ {
		task := NewTask(func() (int, error) {
			atomic.AddInt32(&done, 1)
			return 0, nil
		})
		require.NoError(t, Submit(p, task))
	}

	p.Finish()
	p.Wait()
	assert.EqualValues(t, 20, atomic.LoadInt32(&done))

	// Submitting after Finish must fail.
	_, err := Go(p, func() (int, error) { return 0, nil })
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestPool_StopAbandonsQueueButOwnerCanStillForce(t *testing.T) {
	p := NewPool(0) // no workers ever pop, so nothing runs until stolen
	task := NewTask(func() (int, error) { return 5, nil })
	require.NoError(t, Submit(p, task))

	p.Stop()
	p.Wait()

	// The task is still queued (Stop does not clear it); its owner can
	// still force it via stealing.
	v, err := task.YieldForce()
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestPool_StopAndFinishAreIdempotent(t *testing.T) {
	p := NewPool(1)
	p.Stop()
	p.Stop()
	p.Finish()
	p.Wait()
}

func TestPool_WorkerIndexStableAndZeroOutside(t *testing.T) {
	p := NewPool(3)
	defer p.Stop()

	assert.Equal(t, 0, p.WorkerIndex())

	seen := make(chan int, 3)
	for i := 0; i < 3; i++ {
		task := NewTask(func() (int, error) {
			return p.WorkerIndex(), nil
		})
		require.NoError(t, Submit(p, task))
		go func(t *Task[int]) {
			// Wait for a worker to finish it: forcing a still-queued task
			// would steal it onto this goroutine, whose index is 0.
			for !t.Done() {
				time.Sleep(time.Millisecond)
			}
			v, _ := t.YieldForce()
			seen <- v
		}(task)
	}

	indices := map[int]bool{}
	for i := 0; i < 3; i++ {
		select {
		case v := <-seen:
			assert.GreaterOrEqual(t, v, 1)
			assert.LessOrEqual(t, v, 3)
			indices[v] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for worker index")
		}
	}
}

func TestGlobalPool_IsDaemonAndSingleton(t *testing.T) {
	p1 := GlobalPool()
	p2 := GlobalPool()
	assert.Same(t, p1, p2)
	assert.True(t, p1.IsDaemon())
}

func TestNewPool_NegativeSizePanics(t *testing.T) {
	assert.Panics(t, func() { NewPool(-1) })
}

func TestQueue_FIFOPopOrder(t *testing.T) {
	// A single worker pops and runs tasks one at a time, so the run order
	// is the queue's pop order.
	p := NewPool(1)
	defer p.Stop()

	var order []int
	tasks := make([]*Task[int], 5)
	for i := 0; i < 5; i++ {
		i := i
		tasks[i] = NewTask(func() (int, error) {
			order = append(order, i)
			return i, nil
		})
		require.NoError(t, Submit(p, tasks[i]))
	}
	p.Finish()
	p.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestTask_OneShotExecuteInNewThread(t *testing.T) {
	task := NewTask(func() (string, error) { return "ok", nil })
	task.ExecuteInNewThread()

	v, err := task.YieldForce()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestPool_StatsReportsQueuedAndCompleted(t *testing.T) {
	p := NewPool(0) // no workers pop, so submitted tasks stay queued
	defer p.Stop()

	var tasks []*Task[int]
	for i := 0; i < 3; i++ {
		task := NewTask(func() (int, error) { return 0, nil })
		require.NoError(t, Submit(p, task))
		tasks = append(tasks, task)
	}

	stats := p.Stats()
	assert.Equal(t, 3, stats.Queued)
	assert.Len(t, stats.WorkersBusy, 0)

	for _, tk := range tasks {
		_, _ = tk.SpinForce()
	}

	stats = p.Stats()
	assert.Equal(t, 0, stats.Queued)
	assert.EqualValues(t, 3, stats.Completed)
}

func TestTask_ForcingNeverSubmittedTaskIsPrecondition(t *testing.T) {
	spin := NewTask(func() (int, error) { return 1, nil })
	_, err := spin.SpinForce()
	assert.ErrorIs(t, err, ErrPrecondition)

	yield := NewTask(func() (int, error) { return 1, nil })
	_, err = yield.YieldForce()
	assert.ErrorIs(t, err, ErrPrecondition)

	work := NewTask(func() (int, error) { return 1, nil })
	_, err = work.WorkForce()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestScopedTask_CloseForces(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	var ran int32
	func() {
		task := NewScopedTask(func() (int, error) {
			atomic.AddInt32(&ran, 1)
			return 0, nil
		})
		require.NoError(t, Submit(p, task))
		defer task.Close()
	}()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}
