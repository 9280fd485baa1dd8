package core

// StepHook is called once per elapsed global time step, after the
// transition that produced the step has been folded into the episode
// bookkeeping. Hooks written against a single-instance driver work
// unmodified against the batched loop: the loop fires them once per slot
// per iteration, each call seeing the then-current global step.
type StepHook func(env VectorEnv, agent BatchAgent, t int)

// HookRunner fires registered hooks in registration order.
type HookRunner struct {
	hooks []StepHook
}

func NewHookRunner(hooks ...StepHook) *HookRunner {
	return &HookRunner{hooks: append([]StepHook{}, hooks...)}
}

func (h *HookRunner) Add(hook StepHook) {
	h.hooks = append(h.hooks, hook)
}

func (h *HookRunner) Len() int {
	return len(h.hooks)
}

// RunAll fires every hook once for the single global step t.
func (h *HookRunner) RunAll(env VectorEnv, agent BatchAgent, t int) {
	for _, hook := range h.hooks {
		hook(env, agent, t)
	}
}

// LinearInterpolationHook builds a hook that anneals a scalar linearly
// from startValue at step 0 to stopValue at totalSteps, clamping past the
// end, and hands each value to setter. Typical use is annealing an
// exploration rate over the course of a run.
func LinearInterpolationHook(totalSteps int, startValue, stopValue float64, setter func(env VectorEnv, agent BatchAgent, value float64)) StepHook {
	return func(env VectorEnv, agent BatchAgent, t int) {
		var value float64
		if t >= totalSteps {
			value = stopValue
		} else {
			value = startValue + (stopValue-startValue)*(float64(t)/float64(totalSteps))
		}
		setter(env, agent, value)
	}
}
