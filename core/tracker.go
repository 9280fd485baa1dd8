package core

import "fmt"

// EpisodeTracker keeps per-slot episode bookkeeping for a vectorized
// environment: cumulative return, step count and episode index for each of
// the N slots. Slots are reused across episodes, never reallocated.
type EpisodeTracker struct {
	returns  []float64
	lengths  []int
	episodes []int
}

func NewEpisodeTracker(numEnvs int) (*EpisodeTracker, error) {
	if numEnvs < 1 {
		return nil, fmt.Errorf("episode tracker needs at least one slot, got %d", numEnvs)
	}
	return &EpisodeTracker{
		returns:  make([]float64, numEnvs),
		lengths:  make([]int, numEnvs),
		episodes: make([]int, numEnvs),
	}, nil
}

func (e *EpisodeTracker) NumSlots() int {
	return len(e.returns)
}

// Accumulate folds one batch transition into every slot: the return
// accumulates the reward and the step count advances by one.
func (e *EpisodeTracker) Accumulate(rewards []float64) error {
	if len(rewards) != len(e.returns) {
		return fmt.Errorf("reward batch of size %d does not match %d slots", len(rewards), len(e.returns))
	}
	for i, r := range rewards {
		e.returns[i] += r
		e.lengths[i]++
	}
	return nil
}

// TruncationMask marks slots whose current episode just reached maxLen.
// The comparison is strict equality: step counts advance exactly once per
// Accumulate and Finalize clears them, so a slot can neither skip past the
// bound nor fire twice within one episode. maxLen <= 0 disables truncation.
func (e *EpisodeTracker) TruncationMask(maxLen int) []bool {
	mask := make([]bool, len(e.lengths))
	if maxLen <= 0 {
		return mask
	}
	for i, l := range e.lengths {
		mask[i] = l == maxLen
	}
	return mask
}

// Finalize archives every slot marked in end: its return is collected into
// the result, its episode index advances and its return and step count are
// cleared for the next episode. Results appear in slot order.
func (e *EpisodeTracker) Finalize(end []bool) []float64 {
	finished := make([]float64, 0)
	for i, ended := range end {
		if !ended {
			continue
		}
		finished = append(finished, e.returns[i])
		e.episodes[i]++
		e.returns[i] = 0
		e.lengths[i] = 0
	}
	return finished
}

// TotalEpisodes sums completed episodes over all slots.
func (e *EpisodeTracker) TotalEpisodes() int {
	total := 0
	for _, n := range e.episodes {
		total += n
	}
	return total
}

// Return reports the running return of slot i.
func (e *EpisodeTracker) Return(i int) float64 {
	return e.returns[i]
}

// Length reports the running step count of slot i.
func (e *EpisodeTracker) Length(i int) int {
	return e.lengths[i]
}

// EpisodeIndex reports how many episodes slot i has completed.
func (e *EpisodeTracker) EpisodeIndex(i int) int {
	return e.episodes[i]
}

func orMask(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] || b[i]
	}
	return out
}

func notMask(a []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = !a[i]
	}
	return out
}
