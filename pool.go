package parallex

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/parallex-go/parallex/internal/obslog"
)

type poolStatus int32

const (
	statusRunning poolStatus = iota
	statusFinishing
	statusStopNow
)

// Pool owns N worker goroutines and one shared FIFO task queue. It is the
// runtime underneath every future and every data-parallel algorithm in
// this package.
type Pool struct {
	mu         sync.Mutex
	workerCond *sync.Cond // workers wait here when the queue is empty
	waiterCond *sync.Cond // forcers wait here for a completion broadcast

	qHead, qTail *node

	status poolStatus
	size   int
	daemon bool
	prio   int32

	workerIDs sync.Map // goroutineID (uint64) -> worker index (int, 1..size)
	wg        sync.WaitGroup

	busy      []int32 // atomic per-worker flag, indexed by worker index - 1
	completed int64   // atomic count of nodes this pool has run to completion
}

// Stats is a point-in-time snapshot of a pool's occupancy, consumed by the
// dashboard command.
type Stats struct {
	WorkersBusy []bool
	Queued      int
	Completed   int64
}

// Stats reports which workers are currently running a task and how many
// tasks sit queued. Cheap enough to poll on a UI tick.
func (p *Pool) Stats() Stats {
	busy := make([]bool, len(p.busy))
	for i := range p.busy {
		busy[i] = atomic.LoadInt32(&p.busy[i]) == 1
	}
	p.mu.Lock()
	queued := 0
	for n := p.qHead; n != nil; n = n.next {
		queued++
	}
	p.mu.Unlock()
	return Stats{WorkersBusy: busy, Queued: queued, Completed: atomic.LoadInt64(&p.completed)}
}

// NewPool starts a new pool. With no argument it uses DefaultPoolThreads();
// an explicit size of 0 is legal and degenerate — ForEach, AMap and Reduce
// run inline on the caller instead of queuing work, while tasks submitted
// directly (and AsyncBuf/LazyMap background fills) stay queued until the
// goroutine forcing them steals and runs them.
// Pools constructed explicitly default their workers to non-daemon,
// unlike the lazily-built global pool.
func NewPool(nWorkers ...int) *Pool {
	n := DefaultPoolThreads()
	if len(nWorkers) > 0 {
		n = nWorkers[0]
	}
	if n < 0 {
		panic(fmt.Errorf("%w: negative worker count %d", ErrPrecondition, n))
	}
	p := &Pool{size: n, busy: make([]int32, n)}
	p.workerCond = sync.NewCond(&p.mu)
	p.waiterCond = sync.NewCond(&p.mu)
	p.startWorkers()
	return p
}

func (p *Pool) startWorkers() {
	p.wg.Add(p.size)
	for i := 1; i <= p.size; i++ {
		idx := i
		go func() {
			defer p.wg.Done()
			p.workerLoop(idx)
		}()
	}
}

func (p *Pool) workerLoop(idx int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.workerIDs.Store(goroutineID(), idx)
	obslog.Debugf("worker %d started", idx)
	defer obslog.Debugf("worker %d finished", idx)

	var appliedPrio int32
	setCurrentThreadPriority(int(atomic.LoadInt32(&p.prio)))

	for {
		if want := atomic.LoadInt32(&p.prio); want != appliedPrio {
			setCurrentThreadPriority(int(want))
			appliedPrio = want
		}

		p.mu.Lock()
		for p.qHead == nil && p.loadStatus() == statusRunning {
			p.workerCond.Wait()
		}
		switch p.loadStatus() {
		case statusStopNow:
			p.mu.Unlock()
			return
		case statusFinishing:
			if p.qHead == nil {
				p.setStatus(statusStopNow)
				p.mu.Unlock()
				return
			}
		}
		n := p.popFrontLocked()
		if n != nil {
			atomic.StoreInt32(&n.state, inProgress)
		}
		p.mu.Unlock()
		if n == nil {
			continue
		}
		atomic.StoreInt32(&p.busy[idx-1], 1)
		n.run()
		atomic.StoreInt32(&p.busy[idx-1], 0)
		atomic.AddInt64(&p.completed, 1)
		p.mu.Lock()
		p.waiterCond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Pool) loadStatus() poolStatus {
	return poolStatus(atomic.LoadInt32((*int32)(&p.status)))
}

func (p *Pool) setStatus(s poolStatus) {
	atomic.StoreInt32((*int32)(&p.status), int32(s))
}

// Size returns the number of worker goroutines this pool owns.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) pushBackLocked(n *node) {
	n.prev = p.qTail
	n.next = nil
	if p.qTail != nil {
		p.qTail.next = n
	} else {
		p.qHead = n
	}
	p.qTail = n
}

func (p *Pool) popFrontLocked() *node {
	n := p.qHead
	if n == nil {
		return nil
	}
	p.unlinkLocked(n)
	return n
}

// unlinkLocked detaches an arbitrary interior node and restores head/tail
// consistency. Called under p.mu by both normal pop and the steal path.
func (p *Pool) unlinkLocked(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if p.qHead == n {
		p.qHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if p.qTail == n {
		p.qTail = n.prev
	}
	n.prev = nil
	n.next = nil
}

// submitNode pushes n onto the tail of the queue and wakes one worker.
func (p *Pool) submitNode(n *node) error {
	p.mu.Lock()
	if p.loadStatus() != statusRunning {
		p.mu.Unlock()
		return fmt.Errorf("%w: pool is not running", ErrPrecondition)
	}
	n.pool = p
	atomic.StoreInt32(&n.state, notStarted)
	p.pushBackLocked(n)
	p.mu.Unlock()
	p.workerCond.Signal()
	return nil
}

// tryStealAndExecute is the caller-steal primitive (§4.1): if n is still
// NotStarted and queued on p, atomically detach and run it inline on the
// calling goroutine. Returns false if the task was already claimed by a
// worker, already done, or belongs to no pool (one-shot).
func (p *Pool) tryStealAndExecute(n *node) bool {
	if n.pool != p {
		return false
	}
	p.mu.Lock()
	if atomic.LoadInt32(&n.state) != notStarted {
		p.mu.Unlock()
		return false
	}
	p.unlinkLocked(n)
	atomic.StoreInt32(&n.state, inProgress)
	p.mu.Unlock()

	n.run()
	atomic.AddInt64(&p.completed, 1)

	p.mu.Lock()
	p.waiterCond.Broadcast()
	p.mu.Unlock()
	return true
}

// tryPopAny pops any queued task (used by work_force to do useful work
// while waiting on a different task) and marks it InProgress for the
// caller to execute.
func (p *Pool) tryPopAny() *node {
	p.mu.Lock()
	n := p.popFrontLocked()
	if n != nil {
		atomic.StoreInt32(&n.state, inProgress)
	}
	p.mu.Unlock()
	return n
}

// Finish marks the pool Finishing: workers drain the remaining queue and
// exit once it is empty. Idempotent.
func (p *Pool) Finish() {
	p.mu.Lock()
	if p.loadStatus() == statusRunning {
		p.setStatus(statusFinishing)
	}
	p.mu.Unlock()
	p.workerCond.Broadcast()
}

// Stop marks the pool StopNow: workers abandon any queued tasks and exit
// as soon as their current task (if any) completes. Queued tasks are not
// deleted — an owner can still force one to completion via stealing.
// Idempotent.
func (p *Pool) Stop() {
	p.setStatus(statusStopNow)
	p.mu.Lock()
	p.mu.Unlock()
	p.workerCond.Broadcast()
	p.waiterCond.Broadcast()
}

// Wait blocks until every worker goroutine has exited (after Finish or
// Stop). Mainly useful in tests and graceful-shutdown paths.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// IsDaemon reports whether this pool's workers are marked daemon (they do
// not, by convention, prevent a clean process exit; Go has no language
// notion of daemon goroutines, so this is advisory metadata consulted by
// callers such as the global pool accessor).
func (p *Pool) IsDaemon() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.daemon
}

// SetDaemon sets the daemon flag. See IsDaemon.
func (p *Pool) SetDaemon(daemon bool) {
	p.mu.Lock()
	p.daemon = daemon
	p.mu.Unlock()
}

// Priority returns the last priority hint passed to SetPriority.
func (p *Pool) Priority() int {
	return int(atomic.LoadInt32(&p.prio))
}

// SetPriority passes an OS thread priority hint through to every worker.
// See setCurrentThreadPriority for platform support.
func (p *Pool) SetPriority(priority int) {
	atomic.StoreInt32(&p.prio, int32(priority))
}

// WorkerIndex returns the stable 1..Size() index of the calling goroutine
// if it is one of p's workers, or 0 for any other goroutine (including a
// forcer that is merely stealing work).
func (p *Pool) WorkerIndex() int {
	if v, ok := p.workerIDs.Load(goroutineID()); ok {
		return v.(int)
	}
	return 0
}

// goroutineID extracts the runtime-assigned goroutine id from the current
// goroutine's stack trace header. Go deliberately exposes no goroutine-local
// storage API; parsing "goroutine N [...]" out of runtime.Stack is the
// standard low-level workaround and is stable across the goroutine's
// lifetime, which is exactly the lifetime a worker needs to key its WLS
// slot by.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

var (
	defaultPoolThreads int32
	globalPool         atomic.Pointer[Pool]
	globalPoolOnce     sync.Once
)

func init() {
	atomic.StoreInt32(&defaultPoolThreads, int32(max0(runtime.NumCPU()-1)))
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// TotalCPUs is the detected core count (runtime.NumCPU).
func TotalCPUs() int {
	return runtime.NumCPU()
}

// DefaultPoolThreads returns the worker count new pools use when none is
// given explicitly, including the lazily-constructed global pool.
func DefaultPoolThreads() int {
	return int(atomic.LoadInt32(&defaultPoolThreads))
}

// SetDefaultPoolThreads changes the default used by future pools. It has
// no effect on pools — including the global pool — that already exist.
func SetDefaultPoolThreads(n int) {
	atomic.StoreInt32(&defaultPoolThreads, int32(n))
}

// GlobalPool lazily constructs, under a single-init guard, a process-wide
// pool sized by DefaultPoolThreads at the time of first use. Its workers
// are marked daemon.
func GlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		p := NewPool(DefaultPoolThreads())
		p.SetDaemon(true)
		globalPool.Store(p)
	})
	return globalPool.Load()
}
