package parallex

// AsyncBuf is a double-buffered, pool-backed read-ahead over a Source: one
// buffer of size B is consumed while the next is filled in the
// background. When the source is exhausted, one final (possibly partial)
// buffer is delivered and every call after reports empty.
type AsyncBuf[T any] struct {
	bufferedRange[T]
	length    int
	hasLength bool
}

// NewAsyncBuf builds an AsyncBuf over src with buffer size bufSize,
// filling the first buffer synchronously before returning.
func NewAsyncBuf[T any](pool *Pool, src Source[T], bufSize int) (*AsyncBuf[T], error) {
	fill := func() ([]T, bool, error) {
		buf := make([]T, 0, bufSize)
		for len(buf) < bufSize {
			v, ok, err := src()
			if err != nil {
				return buf, true, err
			}
			if !ok {
				return buf, true, nil
			}
			buf = append(buf, v)
		}
		return buf, false, nil
	}
	db, first, eof, err := newDoubleBuffer(pool, bufSize, fill)
	if err != nil {
		return nil, err
	}
	a := &AsyncBuf[T]{}
	a.db, a.cur, a.noMore = db, first, eof
	return a, nil
}

// WithLength attaches a known source length that Remaining decrements as
// elements are consumed. Purely informational.
func (a *AsyncBuf[T]) WithLength(n int) *AsyncBuf[T] {
	a.length, a.hasLength = n, true
	return a
}

// Remaining reports the source's declared remaining length, if known via
// WithLength.
func (a *AsyncBuf[T]) Remaining() (int, bool) {
	return a.length, a.hasLength
}

// BufferSize returns B, the configured buffer size.
func (a *AsyncBuf[T]) BufferSize() int {
	return a.db.bufSize
}

// Next returns the next element, or ok=false once the source and its
// buffers are fully drained. An error raised during a background fill
// surfaces here, at the consumer's next read, per spec §4.6.
func (a *AsyncBuf[T]) Next() (T, bool, error) {
	v, ok, err := a.next()
	if ok && a.hasLength && a.length > 0 {
		a.length--
	}
	return v, ok, err
}
