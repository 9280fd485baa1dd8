package envs

import (
	"fmt"
	"sync"

	"github.com/vectrain/vectrain/core"
)

// SliceVectorEnv drives N single-instance environments in lock-step as one
// core.VectorEnv. With Parallel set, each slot steps in its own goroutine;
// the batch call still returns only once every slot has finished, so the
// boundary stays synchronous.
type SliceVectorEnv struct {
	envs     []core.Env
	states   []core.State
	parallel bool
	closed   bool
}

var _ core.VectorEnv = &SliceVectorEnv{}

func NewSliceVectorEnv(envs []core.Env, parallel bool) (*SliceVectorEnv, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("vector env needs at least one instance")
	}
	return &SliceVectorEnv{
		envs:     envs,
		states:   make([]core.State, len(envs)),
		parallel: parallel,
	}, nil
}

func (v *SliceVectorEnv) NumEnvs() int {
	return len(v.envs)
}

func (v *SliceVectorEnv) Reset(keep []bool) ([]core.State, error) {
	if keep != nil && len(keep) != len(v.envs) {
		return nil, fmt.Errorf("keep mask of size %d does not match %d slots", len(keep), len(v.envs))
	}
	for i, env := range v.envs {
		if keep != nil && keep[i] {
			continue
		}
		s, err := env.Reset()
		if err != nil {
			return nil, fmt.Errorf("resetting slot %d: %w", i, err)
		}
		v.states[i] = s
	}
	out := make([]core.State, len(v.states))
	copy(out, v.states)
	return out, nil
}

func (v *SliceVectorEnv) Step(actions []core.Action) ([]core.State, []float64, []bool, []core.Info, error) {
	if len(actions) != len(v.envs) {
		return nil, nil, nil, nil, fmt.Errorf("action batch of size %d does not match %d slots", len(actions), len(v.envs))
	}
	states := make([]core.State, len(v.envs))
	rewards := make([]float64, len(v.envs))
	dones := make([]bool, len(v.envs))
	infos := make([]core.Info, len(v.envs))
	errs := make([]error, len(v.envs))

	step := func(i int) {
		states[i], rewards[i], dones[i], infos[i], errs[i] = v.envs[i].Step(actions[i])
	}
	if v.parallel {
		wg := new(sync.WaitGroup)
		for i := range v.envs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				step(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range v.envs {
			step(i)
		}
	}
	for i, err := range errs {
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("stepping slot %d: %w", i, err)
		}
	}
	copy(v.states, states)
	return states, rewards, dones, infos, nil
}

func (v *SliceVectorEnv) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	var firstErr error
	for _, env := range v.envs {
		if err := env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
