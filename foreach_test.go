package parallex

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach_VisitsEveryElementExactlyOnce(t *testing.T) {
	for _, size := range []int{0, 1, 2, 997, 1000} {
		size := size
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			p := NewPool(4)
			defer p.Stop()

			data := make([]int, size)
			for i := range data {
				data[i] = i
			}

			var mu sync.Mutex
			seen := make(map[int]int)
			err := ForEach(p, data, func(idx int, v int) error {
				if idx != v {
					return fmt.Errorf("index/value mismatch: %d != %d", idx, v)
				}
				mu.Lock()
				seen[idx]++
				mu.Unlock()
				return nil
			}, ForEachOption{WorkUnit: 1})
			require.NoError(t, err)

			assert.Len(t, seen, size)
			for _, count := range seen {
				assert.Equal(t, 1, count)
			}
		})
	}
}

func TestForEach_WorkerLocalStorageSumsTo499500(t *testing.T) {
	p := NewPool(8)
	defer p.Stop()

	data := make([]int, 1000)
	for i := range data {
		data[i] = i
	}

	wls := NewWorkerLocalStorage[int](p)
	err := ForEach(p, data, func(_ int, v int) error {
		acc := wls.Get()
		*acc += v
		return nil
	}, ForEachOption{WorkUnit: 1})
	require.NoError(t, err)

	sum := 0
	for _, v := range wls.ToRange() {
		sum += v
	}
	assert.Equal(t, 499500, sum)
}

func TestForEach_ZeroPoolSizeIsSerial(t *testing.T) {
	p := NewPool(0)
	defer p.Stop()

	data := []int{1, 2, 3, 4, 5}
	var order []int
	err := ForEach(p, data, func(_ int, v int) error {
		order = append(order, v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, data, order)
}

func TestForEach_AggregatesFaultsFromMultipleUnits(t *testing.T) {
	// Pool size 5 gives a submission window of 2*5=10, equal to the
	// number of work units below, so every unit is already in flight
	// before the first fault is observed and stop-on-fault can't drop
	// any of them from the aggregate.
	p := NewPool(5)
	defer p.Stop()

	data := make([]int, 10)
	for i := range data {
		data[i] = i
	}

	err := ForEach(p, data, func(idx int, v int) error {
		if v == 0 || v == 4 || v == 9 {
			return fmt.Errorf("%w at %d", ErrForeachBreak, idx)
		}
		return nil
	}, ForEachOption{WorkUnit: 1})

	require.Error(t, err)
	assert.True(t, IsForeachBreak(err))
	var agg *AggregateError
	if assert.ErrorAs(t, err, &agg) {
		assert.Len(t, agg.Errs, 3)
	}
}

func TestForEach_StopsSubmittingAfterFirstFault(t *testing.T) {
	// A window smaller than the unit count (pool size 2 -> window 4)
	// means units beyond the window are still unsubmitted when the
	// first fault lands; they must never run.
	p := NewPool(2)
	defer p.Stop()

	data := make([]int, 20)
	for i := range data {
		data[i] = i
	}

	var calls int32
	err := ForEach(p, data, func(idx int, v int) error {
		atomic.AddInt32(&calls, 1)
		if idx == 0 {
			return assert.AnError
		}
		return nil
	}, ForEachOption{WorkUnit: 1})

	require.ErrorIs(t, err, assert.AnError)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(4),
		"units beyond the initial submission window must not run once a fault stops submission")
}

func TestForEach_FaultFromFirstMiddleLastUnit(t *testing.T) {
	for _, failAt := range []int{0, 5, 9} {
		failAt := failAt
		t.Run(fmt.Sprintf("failAt=%d", failAt), func(t *testing.T) {
			p := NewPool(4)
			defer p.Stop()

			data := make([]int, 10)
			for i := range data {
				data[i] = i
			}

			var calls int32
			err := ForEach(p, data, func(idx int, v int) error {
				atomic.AddInt32(&calls, 1)
				if idx == failAt {
					return assert.AnError
				}
				return nil
			}, ForEachOption{WorkUnit: 1})
			require.ErrorIs(t, err, assert.AnError)
		})
	}
}

func TestForEach_NegativeWorkUnitIsPrecondition(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()
	err := ForEach(p, []int{1, 2, 3}, func(int, int) error { return nil }, ForEachOption{WorkUnit: -1})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestForEach_WGreaterThanLength(t *testing.T) {
	p := NewPool(3)
	defer p.Stop()
	data := []int{10, 20, 30}

	var sum int32
	err := ForEach(p, data, func(_ int, v int) error {
		atomic.AddInt32(&sum, int32(v))
		return nil
	}, ForEachOption{WorkUnit: 1000})
	require.NoError(t, err)
	assert.EqualValues(t, 60, sum)
}
