package policies

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vectrain/vectrain/core"
)

// RandomAgent picks uniformly over a fixed action set and never learns.
// Useful as a baseline and for exercising the loop in tests.
type RandomAgent struct {
	actions []core.Action
	rand    *rand.Rand
}

var (
	_ core.BatchAgent  = &RandomAgent{}
	_ core.GreedyActor = &RandomAgent{}
)

func NewRandomAgent(actions []core.Action) (*RandomAgent, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("random agent needs a non-empty action set")
	}
	return &RandomAgent{
		actions: actions,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (r *RandomAgent) act(n int) []core.Action {
	actions := make([]core.Action, n)
	for i := range actions {
		actions[i] = r.actions[r.rand.Intn(len(r.actions))]
	}
	return actions
}

func (r *RandomAgent) BatchActAndTrain(obss []core.State) ([]core.Action, error) {
	return r.act(len(obss)), nil
}

func (r *RandomAgent) BatchObserveAndTrain(_ []core.State, _ []float64, _, _ []bool) error {
	return nil
}

func (r *RandomAgent) BatchAct(obss []core.State) ([]core.Action, error) {
	return r.act(len(obss)), nil
}
