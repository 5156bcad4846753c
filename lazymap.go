package parallex

// LazyMap is AsyncBuf's map-fused sibling: the background fill applies fn
// across a freshly pulled buffer via AMap before handing it to the
// consumer, so the pool work of producing and transforming elements
// overlaps with the caller consuming the previous buffer.
type LazyMap[T, R any] struct {
	bufferedRange[R]
}

// NewLazyMap builds a LazyMap directly over a Source[T], allocating its
// own AsyncBuf[T] internally with buffer size bufSize.
func NewLazyMap[T, R any](pool *Pool, fn func(T) (R, error), src Source[T], bufSize int) (*LazyMap[T, R], error) {
	inner, err := NewAsyncBuf(pool, src, bufSize)
	if err != nil {
		return nil, err
	}
	return newLazyMapChained(pool, fn, inner)
}

// NewLazyMapChained stacks a LazyMap directly on an already-constructed
// AsyncBuf[T]. Per spec §4.6's chaining elision, the outer layer does not
// allocate its own input array or buffer size: it takes ownership of
// inner's raw buffers on each swap and inherits inner's buffer size B,
// overriding whatever bufSize the caller might otherwise have asked for.
func NewLazyMapChained[T, R any](pool *Pool, fn func(T) (R, error), inner *AsyncBuf[T]) (*LazyMap[T, R], error) {
	return newLazyMapChained(pool, fn, inner)
}

func newLazyMapChained[T, R any](pool *Pool, fn func(T) (R, error), inner *AsyncBuf[T]) (*LazyMap[T, R], error) {
	mapBuf := func(raw []T) ([]R, error) {
		if len(raw) == 0 {
			return nil, nil
		}
		return AMap(pool, fn, raw, nil)
	}

	// inner already holds its first raw buffer (possibly partially
	// consumed by direct Next() calls before chaining — ownership
	// transfers here, so callers should chain before consuming inner).
	firstRaw := inner.cur[inner.idx:]
	firstEOF := inner.noMore
	first, err := mapBuf(firstRaw)
	if err != nil {
		return nil, err
	}

	db := &doubleBuffer[R]{pool: pool, bufSize: inner.db.bufSize}
	db.bg = NewTask(func() (rawResult[R], error) {
		buf, eof, err := db.fill()
		return rawResult[R]{buf: buf, eof: eof}, err
	})
	db.fill = func() ([]R, bool, error) {
		raw, eof, err := inner.db.next()
		if err != nil {
			return nil, false, err
		}
		mapped, err := mapBuf(raw)
		if err != nil {
			return nil, false, err
		}
		return mapped, eof, nil
	}
	if !firstEOF {
		db.submitNext()
	}

	lm := &LazyMap[T, R]{}
	lm.db, lm.cur, lm.noMore = db, first, firstEOF
	return lm, nil
}

// BufferSize returns the (possibly inherited, via chaining) buffer size.
func (m *LazyMap[T, R]) BufferSize() int {
	return m.db.bufSize
}

// Next returns the next mapped element, or ok=false once exhausted.
func (m *LazyMap[T, R]) Next() (R, bool, error) {
	return m.next()
}
