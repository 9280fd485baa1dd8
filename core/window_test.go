package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnWindowEmpty(t *testing.T) {
	w := NewReturnWindow(3)

	_, ok := w.Last()
	assert.False(t, ok)
	_, ok = w.Mean()
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len())
}

func TestReturnWindowEvictsOldest(t *testing.T) {
	w := NewReturnWindow(3)
	for _, r := range []float64{1, 2, 3, 4} {
		w.Push(r)
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())

	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, 4.0, last)

	mean, ok := w.Mean()
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestReturnWindowDefaultCapacity(t *testing.T) {
	w := NewReturnWindow(0)
	assert.Equal(t, DefaultReturnWindowSize, w.Cap())
}

func TestReturnWindowWrapsInOrder(t *testing.T) {
	w := NewReturnWindow(2)
	for i := 0; i < 7; i++ {
		w.Push(float64(i))
	}
	assert.Equal(t, []float64{5, 6}, w.Values())
}
