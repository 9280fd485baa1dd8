package core

// State is an opaque per-slot observation produced by a VectorEnv.
type State interface{}

// Action is an opaque per-slot action consumed by a VectorEnv.
type Action interface{}

// Info carries auxiliary per-slot diagnostics emitted by a step.
type Info map[string]interface{}

// VectorEnv is a batched environment: N independent instances stepped in
// lock-step. Slot i of every returned slice corresponds to slot i of the
// input, across all calls. Implementations may run instances concurrently
// internally; calls are synchronous at this boundary.
type VectorEnv interface {
	NumEnvs() int
	// Reset restarts every instance whose keep entry is false and returns
	// the current state of all N slots. Kept slots report their existing
	// state unchanged. A nil keep mask restarts everything.
	Reset(keep []bool) ([]State, error)
	// Step applies one action per slot and returns the next states,
	// scalar rewards, natural-termination flags and per-slot info.
	Step(actions []Action) ([]State, []float64, []bool, []Info, error)
	// Close releases the environment's resources. Safe to call twice.
	Close() error
}

// Env is a single-instance environment. N of these can be driven as a
// VectorEnv through envs.SliceVectorEnv.
type Env interface {
	Reset() (State, error)
	Step(action Action) (State, float64, bool, Info, error)
	Close() error
}
