package parallex

import "fmt"

// defaultWorkUnit picks a work-unit size so the number of work units is
// roughly 4*(poolSize+1), clamped to at least 1, per spec §4.4.
func defaultWorkUnit(poolSize, length int) int {
	units := 4 * (poolSize + 1)
	if units <= 0 {
		units = 1
	}
	w := length / units
	if w < 1 {
		w = 1
	}
	return w
}

// ForEachOption configures ForEach/AMap/Reduce.
type ForEachOption struct {
	WorkUnit int
}

// runUnitsBounded drives n work units through makeTask, keeping at most
// windowSize Task objects alive at once instead of submitting all n up
// front — the pool never holds more than O(pool size) pending tasks
// regardless of how large n is. Units are submitted and forced in order;
// as each one finishes, its slot is refilled from the next unsubmitted
// unit. The moment a unit faults, whether by failing to submit or by
// returning an error, submission of further units stops immediately;
// units already in flight still run to completion. results holds every
// slot in order, left zero-valued past whatever point submission
// stopped at.
func runUnitsBounded[T any](p *Pool, n, windowSize int, makeTask func(i int) *Task[T]) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}
	if windowSize > n {
		windowSize = n
	}
	if windowSize < 1 {
		windowSize = 1
	}

	type inflightTask struct {
		task  *Task[T]
		index int
	}
	inflight := make([]inflightTask, 0, windowSize)
	next := 0
	var faults []error
	stopped := false

	submitNext := func() {
		if stopped || next >= n {
			return
		}
		i := next
		next++
		task := makeTask(i)
		if err := Submit(p, task); err != nil {
			faults = append(faults, err)
			stopped = true
			return
		}
		inflight = append(inflight, inflightTask{task: task, index: i})
	}

	for len(inflight) < windowSize && !stopped {
		submitNext()
	}

	for len(inflight) > 0 {
		head := inflight[0]
		inflight = inflight[1:]
		v, err := head.task.WorkForce()
		results[head.index] = v
		if err != nil {
			faults = append(faults, err)
			stopped = true
		}
		submitNext()
	}
	return results, aggregate(faults)
}

// ForEach splits data into contiguous work units and runs fn over each
// element exactly once, in parallel across p's workers. fn receives the
// element's index and value; returning a non-nil error is how a body
// signals a fault — unlike a bare `break`, which this API makes
// structurally impossible since fn cannot early-exit the whole loop, only
// report failure for its own element (see ErrForeachBreak for the
// analogous fault a caller gets by returning it deliberately).
//
// Work units are submitted in a window of at most 2*p.Size() at a time
// rather than all at once, so the pool never holds more than O(pool
// size) pending tasks no matter how large data is. If any work unit's
// elements return an error, submission of further work units stops
// immediately, units already in flight are allowed to finish, and the
// errors are returned together: a single error as it is, several chained
// into one *AggregateError.
func ForEach[T any](p *Pool, data []T, fn func(index int, elem T) error, opt ...ForEachOption) error {
	l := len(data)
	w := workUnitFrom(opt)
	if w == 0 {
		w = defaultWorkUnit(p.Size(), l)
	}
	if w < 0 {
		return fmt.Errorf("%w: work unit size must be positive", ErrPrecondition)
	}
	if l == 0 {
		return nil
	}

	if p.Size() == 0 {
		for i, v := range data {
			if err := fn(i, v); err != nil {
				return err
			}
		}
		return nil
	}

	type unit struct {
		start, end int
	}
	var units []unit
	for start := 0; start < l; start += w {
		end := start + w
		if end > l {
			end = l
		}
		units = append(units, unit{start, end})
	}

	_, err := runUnitsBounded(p, len(units), 2*p.Size(), func(i int) *Task[struct{}] {
		u := units[i]
		return NewTask(func() (struct{}, error) {
			for idx := u.start; idx < u.end; idx++ {
				if err := fn(idx, data[idx]); err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, nil
		})
	})
	return err
}

// ForEachValue is ForEach without the index argument.
func ForEachValue[T any](p *Pool, data []T, fn func(elem T) error, opt ...ForEachOption) error {
	return ForEach(p, data, func(_ int, v T) error { return fn(v) }, opt...)
}

func workUnitFrom(opt []ForEachOption) int {
	if len(opt) == 0 {
		return 0
	}
	return opt[0].WorkUnit
}
