package policies

import (
	"fmt"
	"path"
	"time"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/vectrain/vectrain/core"
	"github.com/vectrain/vectrain/util"
)

type QLearningConfig struct {
	// Actions is the enumerable action set, shared by every slot.
	Actions []core.Action
	Alpha   float64
	Gamma   float64
	Epsilon float64
	// Key maps a state to its Q-table key. Defaults to fmt.Sprint.
	Key func(core.State) string
	// Seed of zero seeds from the clock.
	Seed uint64
}

// QLearning is a tabular epsilon-greedy Q-learning agent that learns from
// all slots of a vectorized environment in one update pass. Truncated
// episodes keep their bootstrap target; only natural termination is
// treated as a zero-value terminal state.
type QLearning struct {
	cfg     QLearningConfig
	key     func(core.State) string
	epsilon float64
	src     erand.Source
	rnd     *erand.Rand

	qtable  map[string][]float64
	updates int
	t       int

	prevObss    []core.State
	prevActions []int
}

var (
	_ core.BatchAgent  = &QLearning{}
	_ core.GreedyActor = &QLearning{}
	_ core.Timestepped = &QLearning{}
	_ core.Snapshotter = &QLearning{}
	_ core.Saveable    = &QLearning{}
)

func NewQLearning(cfg QLearningConfig) (*QLearning, error) {
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("q-learning needs a non-empty action set")
	}
	key := cfg.Key
	if key == nil {
		key = func(s core.State) string { return fmt.Sprint(s) }
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := erand.NewSource(seed)
	return &QLearning{
		cfg:     cfg,
		key:     key,
		epsilon: cfg.Epsilon,
		src:     src,
		rnd:     erand.New(src),
		qtable:  make(map[string][]float64),
	}, nil
}

func (q *QLearning) values(stateKey string) []float64 {
	vals, ok := q.qtable[stateKey]
	if !ok {
		vals = make([]float64, len(q.cfg.Actions))
		q.qtable[stateKey] = vals
	}
	return vals
}

func (q *QLearning) greedy(stateKey string) int {
	vals := q.values(stateKey)
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

// explore samples an action uniformly through the same weighted sampler
// the greedy path shares its source with.
func (q *QLearning) explore() int {
	weights := make([]float64, len(q.cfg.Actions))
	for i := range weights {
		weights[i] = 1
	}
	i, ok := sampleuv.NewWeighted(weights, q.src).Take()
	if !ok {
		return 0
	}
	return i
}

func (q *QLearning) BatchActAndTrain(obss []core.State) ([]core.Action, error) {
	actions := make([]core.Action, len(obss))
	picked := make([]int, len(obss))
	for i, obs := range obss {
		var j int
		if q.rnd.Float64() < q.epsilon {
			j = q.explore()
		} else {
			j = q.greedy(q.key(obs))
		}
		picked[i] = j
		actions[i] = q.cfg.Actions[j]
	}
	q.prevObss = obss
	q.prevActions = picked
	return actions, nil
}

func (q *QLearning) BatchObserveAndTrain(obss []core.State, rewards []float64, dones, resets []bool) error {
	if len(q.prevObss) != len(obss) {
		return fmt.Errorf("observed batch of size %d without a matching act of size %d", len(obss), len(q.prevObss))
	}
	for i := range obss {
		prevKey := q.key(q.prevObss[i])
		vals := q.values(prevKey)
		a := q.prevActions[i]

		target := rewards[i]
		if !dones[i] {
			nextVals := q.values(q.key(obss[i]))
			best := nextVals[0]
			for _, v := range nextVals[1:] {
				if v > best {
					best = v
				}
			}
			target += q.cfg.Gamma * best
		}
		vals[a] += q.cfg.Alpha * (target - vals[a])
		q.updates++
		q.t++
	}
	return nil
}

func (q *QLearning) BatchAct(obss []core.State) ([]core.Action, error) {
	actions := make([]core.Action, len(obss))
	for i, obs := range obss {
		actions[i] = q.cfg.Actions[q.greedy(q.key(obs))]
	}
	return actions, nil
}

func (q *QLearning) SetTimestep(t int) {
	q.t = t
}

func (q *QLearning) SetEpsilon(epsilon float64) {
	q.epsilon = epsilon
}

func (q *QLearning) Epsilon() float64 {
	return q.epsilon
}

func (q *QLearning) Statistics() []core.Stat {
	return []core.Stat{
		{Name: "states", Value: len(q.qtable)},
		{Name: "updates", Value: q.updates},
		{Name: "epsilon", Value: q.epsilon},
	}
}

type qlearningState struct {
	QTable  map[string][]float64 `json:"qtable"`
	Updates int                  `json:"updates"`
	T       int                  `json:"t"`
	Epsilon float64              `json:"epsilon"`
}

func (q *QLearning) Save(dirname string) error {
	return util.SaveJson(path.Join(dirname, "qtable.json"), qlearningState{
		QTable:  q.qtable,
		Updates: q.updates,
		T:       q.t,
		Epsilon: q.epsilon,
	})
}

// Load restores state written by Save.
func (q *QLearning) Load(dirname string) error {
	var state qlearningState
	if err := util.LoadJson(path.Join(dirname, "qtable.json"), &state); err != nil {
		return err
	}
	for _, vals := range state.QTable {
		if len(vals) != len(q.cfg.Actions) {
			return fmt.Errorf("saved q-table has %d actions, config has %d", len(vals), len(q.cfg.Actions))
		}
	}
	q.qtable = state.QTable
	q.updates = state.Updates
	q.t = state.T
	q.epsilon = state.Epsilon
	return nil
}
