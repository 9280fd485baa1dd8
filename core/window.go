package core

import "gonum.org/v1/gonum/stat"

const DefaultReturnWindowSize = 100

// ReturnWindow is a fixed-capacity FIFO of completed-episode returns, used
// only for progress reporting. Pushing into a full window evicts the oldest
// entry. It is never consulted for control decisions.
type ReturnWindow struct {
	values []float64
	start  int
	size   int
}

func NewReturnWindow(capacity int) *ReturnWindow {
	if capacity <= 0 {
		capacity = DefaultReturnWindowSize
	}
	return &ReturnWindow{values: make([]float64, capacity)}
}

func (w *ReturnWindow) Push(r float64) {
	if w.size < len(w.values) {
		w.values[(w.start+w.size)%len(w.values)] = r
		w.size++
		return
	}
	w.values[w.start] = r
	w.start = (w.start + 1) % len(w.values)
}

func (w *ReturnWindow) Len() int {
	return w.size
}

func (w *ReturnWindow) Cap() int {
	return len(w.values)
}

// Last reports the most recently pushed return. The second value is false
// while no episode has completed yet.
func (w *ReturnWindow) Last() (float64, bool) {
	if w.size == 0 {
		return 0, false
	}
	return w.values[(w.start+w.size-1)%len(w.values)], true
}

// Mean reports the average return over the window. The second value is
// false while no episode has completed yet.
func (w *ReturnWindow) Mean() (float64, bool) {
	if w.size == 0 {
		return 0, false
	}
	return stat.Mean(w.Values(), nil), true
}

// Values copies the window contents, oldest first.
func (w *ReturnWindow) Values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.values[(w.start+i)%len(w.values)]
	}
	return out
}
