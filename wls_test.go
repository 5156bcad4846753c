package parallex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWLS_ToRangeHasSizePlusOneSlots(t *testing.T) {
	p := NewPool(5)
	defer p.Stop()

	wls := NewWorkerLocalStorage[int](p)
	vals := wls.ToRange()
	assert.Len(t, vals, 6)
}

func TestWLS_GetAfterToRangePanics(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	wls := NewWorkerLocalStorage[int](p)
	wls.ToRange()
	assert.Panics(t, func() { wls.Get() })
}

func TestWLS_OutsideThreadUsesSlotZero(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	wls := NewWorkerLocalStorage[int](p)
	*wls.Get() = 11
	vals := wls.ToRange()
	assert.Equal(t, 11, vals[0])
}
