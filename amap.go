package parallex

import "fmt"

// AMap applies fn element-wise across in, writing results into buf (or a
// freshly allocated slice of len(in) if buf is nil). Each work unit writes
// only to its own disjoint slice of buf, so no synchronization is needed
// between units.
//
// If pool.Size() == 0, AMap degrades to a plain serial loop.
func AMap[T, R any](p *Pool, fn func(T) (R, error), in []T, buf []R, opt ...ForEachOption) ([]R, error) {
	l := len(in)
	if buf == nil {
		buf = make([]R, l)
	} else if len(buf) != l {
		return nil, fmt.Errorf("%w: output buffer length %d, want %d", ErrPrecondition, len(buf), l)
	}

	err := ForEach(p, in, func(i int, v T) error {
		r, err := fn(v)
		if err != nil {
			return err
		}
		buf[i] = r
		return nil
	}, opt...)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
