package parallex

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

const (
	notStarted int32 = iota
	inProgress
	taskDone
)

// node is the type-erased task record shared by every Task[T]. It carries
// the intrusive queue links, the state machine, and an erased run thunk;
// the typed payload (callable, arguments, result slot) lives in the
// enclosing Task[T]. Keeping the queue itself untyped is what lets a single
// FIFO hold tasks of unrelated result types.
type node struct {
	state int32 // atomic: notStarted / inProgress / taskDone

	prev, next *node // valid only while linked into a pool's queue

	run func() // executes the payload and transitions state to taskDone

	err error

	pool *Pool // nil for one-shot (execute-in-new-thread) tasks

	scoped bool

	oneShotDone chan struct{} // closed when a pool-less task finishes
}

func (n *node) isDone() bool {
	return atomic.LoadInt32(&n.state) == taskDone
}

// Task is a future/promise: a single unit of work submitted once and later
// forced to yield its result. Tasks are movable only by construction —
// once submitted, a Task's address must not change until it is Done.
type Task[T any] struct {
	node
	result T
}

// NewTask builds a task wrapping fn, ready to be submitted to a Pool. The
// task is not yet running: call Submit, or ExecuteInNewThread to run it on
// a dedicated goroutine outside of any pool.
func NewTask[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{}
	t.run = func() {
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("%w: %v", ErrExecution, r)
			}
			atomic.StoreInt32(&t.state, taskDone)
		}()
		res, err := fn()
		t.result = res
		t.err = err
	}
	return t
}

// NewScopedTask builds a task pinned to the caller's stack frame. Go has no
// destructors, so the scoped discipline is enforced by convention: the
// caller must `defer t.Close()` to force completion before the frame
// carrying any captured locals unwinds.
func NewScopedTask[T any](fn func() (T, error)) *Task[T] {
	t := NewTask(fn)
	t.scoped = true
	return t
}

// Close forces a scoped task to completion, discarding its result. It is
// meant to be deferred immediately after NewScopedTask so captured
// stack-local state outlives execution.
func (t *Task[T]) Close() {
	if !t.scoped {
		return
	}
	_, _ = t.WorkForce()
}

// Submit enqueues t on p. Returns ErrPrecondition if p is no longer
// accepting work or t was already submitted.
func Submit[T any](p *Pool, t *Task[T]) error {
	if t.pool != nil || t.oneShotDone != nil {
		return fmt.Errorf("%w: task already submitted", ErrPrecondition)
	}
	return p.submitNode(&t.node)
}

// Go is a convenience wrapper that builds and submits a task in one call.
func Go[T any](p *Pool, fn func() (T, error)) (*Task[T], error) {
	t := NewTask(fn)
	if err := Submit(p, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ExecuteInNewThread runs t on a freshly spawned goroutine, bypassing the
// pool entirely — the degenerate "one-shot" mode of §4.9. priority is a
// best-effort OS thread priority hint (see SetPriority).
func (t *Task[T]) ExecuteInNewThread(priority ...int) {
	t.oneShotDone = make(chan struct{})
	prio, hasPrio := 0, len(priority) > 0
	if hasPrio {
		prio = priority[0]
	}
	go func() {
		if hasPrio {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			setCurrentThreadPriority(prio)
		}
		t.run()
		close(t.oneShotDone)
	}()
}

// Done reports whether the task has finished. It never blocks and never
// rethrows — use one of the Force methods to observe the result.
func (t *Task[T]) Done() bool {
	return t.isDone()
}

func (t *Task[T]) finish() (T, error) {
	return t.result, t.err
}

// neverStarted reports whether t has neither been Submitted nor handed to
// ExecuteInNewThread — forcing it is a precondition fault, not a wait.
func (t *Task[T]) neverStarted() bool {
	return t.pool == nil && t.oneShotDone == nil
}

// SpinForce busy-waits for completion after attempting to steal the task
// out of its queue and run it inline. Intended for very short tasks where
// the cost of blocking on a condition variable would dominate.
func (t *Task[T]) SpinForce() (T, error) {
	if t.neverStarted() {
		var zero T
		return zero, fmt.Errorf("%w: task was never submitted or started", ErrPrecondition)
	}
	if t.pool == nil {
		<-t.oneShotDone
		return t.finish()
	}
	if t.pool.tryStealAndExecute(&t.node) {
		return t.finish()
	}
	for !t.isDone() {
		runtime.Gosched()
	}
	return t.finish()
}

// YieldForce attempts the same steal as SpinForce, then blocks on the
// pool's waiter condition variable until some worker's completion
// broadcast observes the task Done.
func (t *Task[T]) YieldForce() (T, error) {
	if t.neverStarted() {
		var zero T
		return zero, fmt.Errorf("%w: task was never submitted or started", ErrPrecondition)
	}
	if t.pool == nil {
		<-t.oneShotDone
		return t.finish()
	}
	if t.pool.tryStealAndExecute(&t.node) {
		return t.finish()
	}
	p := t.pool
	p.mu.Lock()
	for !t.isDone() {
		p.waiterCond.Wait()
	}
	p.mu.Unlock()
	return t.finish()
}

// WorkForce is the cooperative form used to force nested work without
// deadlocking: after the initial steal attempt, the forcing goroutine
// drains and executes other queued tasks itself while waiting, falling
// back to YieldForce once the queue runs dry. A goroutine blocked on a
// child task this way does useful work instead of idling — this is what
// makes nested parallelism on the same pool safe.
func (t *Task[T]) WorkForce() (T, error) {
	if t.neverStarted() {
		var zero T
		return zero, fmt.Errorf("%w: task was never submitted or started", ErrPrecondition)
	}
	if t.pool == nil {
		<-t.oneShotDone
		return t.finish()
	}
	if t.pool.tryStealAndExecute(&t.node) {
		return t.finish()
	}
	p := t.pool
	for !t.isDone() {
		other := p.tryPopAny()
		if other == nil {
			break
		}
		other.run()
		atomic.AddInt64(&p.completed, 1)
		p.mu.Lock()
		p.waiterCond.Broadcast()
		p.mu.Unlock()
	}
	if t.isDone() {
		return t.finish()
	}
	return t.YieldForce()
}
