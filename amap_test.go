package parallex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serialMap(xs []int, f func(int) int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

func TestAMap_MatchesSerialMap(t *testing.T) {
	square := func(x int) int { return x * x }
	xs := []int{1, 2, 3, 4, 5}

	for _, poolSize := range []int{0, 1, 4} {
		p := NewPool(poolSize)
		got, err := AMap(p, func(x int) (int, error) { return square(x), nil }, xs, nil)
		require.NoError(t, err)
		assert.Equal(t, serialMap(xs, square), got)
		p.Stop()
	}
}

func TestAMap_Scenario2(t *testing.T) {
	p := NewPool(4)
	defer p.Stop()

	got, err := AMap(p, func(x int) (int, error) { return x * x, nil }, []int{1, 2, 3, 4, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, got)
}

func TestAMap_WrongBufferLengthIsPrecondition(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	buf := make([]int, 4)
	_, err := AMap(p, func(x int) (int, error) { return x * x, nil }, []int{1, 2, 3, 4, 5}, buf)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestAMap_WritesIntoProvidedBuffer(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	in := []int{1, 2, 3}
	buf := make([]int, 3)
	got, err := AMap(p, func(x int) (int, error) { return x + 100, nil }, in, buf)
	require.NoError(t, err)
	assert.Same(t, &buf[0], &got[0])
	assert.Equal(t, []int{101, 102, 103}, got)
}
