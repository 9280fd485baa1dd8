package core

// Stat is one entry of an agent's statistics snapshot, logged alongside
// progress reports.
type Stat struct {
	Name  string
	Value interface{}
}

// BatchAgent is a stateful learner driven with one batched transition per
// loop iteration.
type BatchAgent interface {
	// BatchActAndTrain returns one action per slot for the given states.
	BatchActAndTrain(obss []State) ([]Action, error)
	// BatchObserveAndTrain informs the agent of the outcome of its last
	// batch of actions. dones marks natural termination, resets marks
	// forced truncation by episode length; the two end an episode alike
	// but carry different learning signal.
	BatchObserveAndTrain(obss []State, rewards []float64, dones, resets []bool) error
}

// GreedyActor is implemented by agents that can act without updating their
// parameters. Evaluation rollouts require it.
type GreedyActor interface {
	BatchAct(obss []State) ([]Action, error)
}

// Timestepped is implemented by agents whose internal step counter can be
// seeded when training resumes from an offset.
type Timestepped interface {
	SetTimestep(t int)
}

// Snapshotter is implemented by agents that expose statistics for progress
// reports.
type Snapshotter interface {
	Statistics() []Stat
}

// Saveable is implemented by agents whose state can be persisted by
// SaveAgent.
type Saveable interface {
	Save(dirname string) error
}
