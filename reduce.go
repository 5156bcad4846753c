package parallex

import "fmt"

// reduceFoldRange left-folds data[start:end] with op. The unit that owns
// index 0 starts from *seed when seed is given; every other unit starts
// from its own first element instead of re-seeding, so a caller-supplied
// seed contributes to the final result exactly once no matter how many
// units the data was split into.
func reduceFoldRange[T any](data []T, start, end int, seed *T, op func(a, b T) T) T {
	var acc T
	i := start
	if seed != nil && start == 0 {
		acc = *seed
	} else {
		acc = data[start]
		i++
	}
	for ; i < end; i++ {
		acc = op(acc, data[i])
	}
	return acc
}

// Reduce folds data with op, an associative (not necessarily commutative)
// binary operator. data is split into ceil(len/workUnit) contiguous work
// units, submitted through the same bounded window ForEach uses so at
// most O(pool size) units are ever in flight; each unit left-folds its
// own slice (the unit covering index 0 starts from seed if given, every
// unit starts from its own first element otherwise), the units are
// forced in submission order, and the driver folds the partial results
// serially in that same order — so non-commutativity is preserved even
// though the per-unit folds ran in parallel, and seed's contribution is
// applied exactly once overall.
//
// If pool.Size() == 0, Reduce degrades to a single serial left-fold. If
// data is empty and seed is nil, Reduce fails with ErrEmptyReduce.
func Reduce[T any](p *Pool, data []T, seed *T, op func(a, b T) T, opt ...ForEachOption) (T, error) {
	var zero T
	l := len(data)
	if l == 0 {
		if seed == nil {
			return zero, fmt.Errorf("%w", ErrEmptyReduce)
		}
		return *seed, nil
	}

	w := workUnitFrom(opt)
	if w == 0 {
		w = defaultWorkUnit(p.Size(), l)
	}
	if w < 0 {
		return zero, fmt.Errorf("%w: work unit size must be positive", ErrPrecondition)
	}

	if p.Size() == 0 {
		return reduceFoldRange(data, 0, l, seed, op), nil
	}

	type unit struct{ start, end int }
	var units []unit
	for start := 0; start < l; start += w {
		end := start + w
		if end > l {
			end = l
		}
		units = append(units, unit{start, end})
	}

	partials, err := runUnitsBounded(p, len(units), 2*p.Size(), func(i int) *Task[T] {
		u := units[i]
		return NewTask(func() (T, error) {
			return reduceFoldRange(data, u.start, u.end, seed, op), nil
		})
	})
	if err != nil {
		return zero, err
	}

	acc := partials[0]
	for _, partial := range partials[1:] {
		acc = op(acc, partial)
	}
	return acc, nil
}

// Reduce2 folds data with two independent associative operators at once,
// carrying a (T, T) accumulator pair through the same split — the "tuple
// of per-operator accumulators" case from spec §4.7, e.g. simultaneous
// sum and product (`reduce(("+","*"), (0,1), [1,2,3,4])` returns
// `(10, 24)`). Each accumulator is folded exactly the way Reduce folds a
// single one — including applying its seed exactly once overall — so the
// two components can use unrelated operators (including ones, like
// multiplication, with no zero-valued identity) without one corrupting
// the other.
func Reduce2[T any](
	p *Pool,
	data []T,
	seed1, seed2 T,
	op1, op2 func(a, b T) T,
	opt ...ForEachOption,
) (T, T, error) {
	l := len(data)
	if l == 0 {
		return seed1, seed2, nil
	}
	w := workUnitFrom(opt)
	if w == 0 {
		w = defaultWorkUnit(p.Size(), l)
	}
	if w < 0 {
		var zero T
		return zero, zero, fmt.Errorf("%w: work unit size must be positive", ErrPrecondition)
	}

	if p.Size() == 0 {
		return reduceFoldRange(data, 0, l, &seed1, op1), reduceFoldRange(data, 0, l, &seed2, op2), nil
	}

	type partial struct{ a1, a2 T }
	type unit struct{ start, end int }
	var units []unit
	for start := 0; start < l; start += w {
		end := start + w
		if end > l {
			end = l
		}
		units = append(units, unit{start, end})
	}

	parts, err := runUnitsBounded(p, len(units), 2*p.Size(), func(i int) *Task[partial] {
		u := units[i]
		return NewTask(func() (partial, error) {
			a1 := reduceFoldRange(data, u.start, u.end, &seed1, op1)
			a2 := reduceFoldRange(data, u.start, u.end, &seed2, op2)
			return partial{a1, a2}, nil
		})
	})
	if err != nil {
		var zero T
		return zero, zero, err
	}

	accA1, accA2 := parts[0].a1, parts[0].a2
	for _, part := range parts[1:] {
		accA1 = op1(accA1, part.a1)
		accA2 = op2(accA2, part.a2)
	}
	return accA1, accA2, nil
}
