package parallex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceSource[T any](xs []T) Source[T] {
	i := 0
	return func() (T, bool, error) {
		var zero T
		if i >= len(xs) {
			return zero, false, nil
		}
		v := xs[i]
		i++
		return v, true, nil
	}
}

func drain[T any](t *testing.T, next func() (T, bool, error)) []T {
	t.Helper()
	var out []T
	for {
		v, ok, err := next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestAsyncBuf_DeliversEveryElementInOrder(t *testing.T) {
	p := NewPool(3)
	defer p.Stop()

	xs := make([]int, 97)
	for i := range xs {
		xs[i] = i
	}

	ab, err := NewAsyncBuf(p, sliceSource(xs), 10)
	require.NoError(t, err)

	got := drain(t, ab.Next)
	assert.Equal(t, xs, got)
}

func TestAsyncBuf_EmptySource(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	ab, err := NewAsyncBuf(p, sliceSource([]int{}), 4)
	require.NoError(t, err)

	_, ok, err := ab.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAsyncBuf_SurfacesProducerError(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	calls := 0
	src := func() (int, bool, error) {
		calls++
		if calls == 3 {
			return 0, false, assert.AnError
		}
		return calls, true, nil
	}

	ab, err := NewAsyncBuf(p, src, 2)
	require.NoError(t, err)

	v1, ok, err := ab.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v1)

	v2, ok, err := ab.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v2)

	_, ok, err = ab.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLazyMap_ProducesFOfSourceInOrder(t *testing.T) {
	p := NewPool(3)
	defer p.Stop()

	xs := make([]int, 50)
	for i := range xs {
		xs[i] = i
	}

	lm, err := NewLazyMap(p, func(x int) (int, error) { return x * 2, nil }, sliceSource(xs), 8)
	require.NoError(t, err)

	got := drain(t, lm.Next)
	want := make([]int, len(xs))
	for i, x := range xs {
		want[i] = x * 2
	}
	assert.Equal(t, want, got)
}

func TestLazyMap_ChainedBufferSizeIsOverriddenByInner(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	xs := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ab, err := NewAsyncBuf(p, sliceSource(xs), 64)
	require.NoError(t, err)

	lm, err := NewLazyMapChained(p, func(x int) (int, error) { return x, nil }, ab)
	require.NoError(t, err)

	assert.Equal(t, 64, lm.BufferSize())

	got := drain(t, lm.Next)
	assert.Equal(t, xs, got)
}
