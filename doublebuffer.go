package parallex

import "fmt"

// Source is a pull iterator over elements of type T: each call returns the
// next element, whether one was produced, and an error. End of stream is
// ok=false, err=nil — the "not random-access" source shape referenced by
// spec §4.4/§4.6 (buffered in work-unit-sized arrays rather than split by
// index).
type Source[T any] func() (T, bool, error)

type rawResult[T any] struct {
	buf []T
	eof bool
}

// doubleBuffer is the background-fill engine shared by AsyncBuf and
// LazyMap: one buffer is handed to the consumer while the fill of the next
// buffer runs on the pool, per spec §4.6. It keeps exactly one background
// task in flight at a time and reuses the same node round after round —
// the memory-bounded behavior the spec cares about is real here, because
// the whole point of AsyncBuf is iterating sources too large to submit as
// N upfront tasks. A node is only ever live (queued or running) or idle
// between rounds, so reusing it is safe: submitNode resets state to
// notStarted itself, the same reset path an ordinary Submit takes.
type doubleBuffer[T any] struct {
	pool    *Pool
	bufSize int
	fill    func() ([]T, bool, error)
	bg      *Task[rawResult[T]]
	live    bool // whether bg currently names a queued/running fill
}

// newDoubleBuffer fills the first buffer synchronously and, unless the
// source was already exhausted, submits a background task to fill the
// second.
func newDoubleBuffer[T any](pool *Pool, bufSize int, fill func() ([]T, bool, error)) (*doubleBuffer[T], []T, bool, error) {
	if bufSize <= 0 {
		return nil, nil, false, fmt.Errorf("%w: buffer size must be positive", ErrPrecondition)
	}
	db := &doubleBuffer[T]{pool: pool, bufSize: bufSize, fill: fill}
	db.bg = NewTask(func() (rawResult[T], error) {
		buf, eof, err := db.fill()
		return rawResult[T]{buf: buf, eof: eof}, err
	})
	first, eof, err := fill()
	if err != nil {
		return nil, nil, false, err
	}
	if !eof {
		db.submitNext()
	}
	return db, first, eof, nil
}

// submitNext re-queues the single background node owned by db. Unlike
// Submit, this bypasses the already-submitted guard deliberately: the same
// node is round-tripped through notStarted -> inProgress -> taskDone and
// back again for as long as the source keeps producing.
func (db *doubleBuffer[T]) submitNext() {
	db.live = true
	// A pool with zero workers still accepts the task; it simply sits
	// queued until the consumer's WorkForce below steals and runs it
	// inline, which is exactly the serial degradation the spec wants.
	_ = db.pool.submitNode(&db.bg.node)
}

// next forces the outstanding background fill, swaps it in, and — unless
// the source is now exhausted — resubmits the same node for the round
// after that. WorkForce is used deliberately: forcing this from inside
// another task body running on the same pool must not deadlock.
func (db *doubleBuffer[T]) next() ([]T, bool, error) {
	if !db.live {
		return nil, true, nil
	}
	res, err := db.bg.WorkForce()
	db.live = false
	if err != nil {
		return nil, false, err
	}
	if !res.eof {
		db.submitNext()
	}
	return res.buf, res.eof, nil
}

// bufferedRange is the element-at-a-time cursor shared by AsyncBuf[T] and
// LazyMap[T, R] (instantiated at X=T and X=R respectively).
type bufferedRange[X any] struct {
	db     *doubleBuffer[X]
	cur    []X
	idx    int
	noMore bool
}

func (r *bufferedRange[X]) next() (X, bool, error) {
	var zero X
	if r.idx < len(r.cur) {
		v := r.cur[r.idx]
		r.idx++
		return v, true, nil
	}
	if r.noMore {
		return zero, false, nil
	}
	buf, eof, err := r.db.next()
	if err != nil {
		return zero, false, err
	}
	r.cur, r.idx, r.noMore = buf, 0, eof
	if len(r.cur) == 0 {
		return zero, false, nil
	}
	v := r.cur[0]
	r.idx = 1
	return v, true, nil
}
