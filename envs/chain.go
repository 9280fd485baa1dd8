package envs

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vectrain/vectrain/core"
)

// Move is the chain environment's action type.
type Move int

const (
	MoveBack Move = iota
	MoveForward
)

// Moves is the chain environment's full action set.
var Moves = []core.Action{MoveBack, MoveForward}

// Position is the chain environment's observation: the slot's place on the
// chain.
type Position int

type ChainConfig struct {
	Length     int     // positions 0..Length-1
	BackReward float64 // immediate reward for dropping back to the start
	GoalReward float64 // reward for reaching the final position
	Slip       float64 // probability a move is flipped
	Seed       int64   // zero seeds from the clock
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		Length:     5,
		BackReward: 0.01,
		GoalReward: 1,
	}
}

// Chain is the classic chain MDP. The agent starts at position 0; moving
// forward pays nothing until the final position pays GoalReward and ends
// the episode, moving back drops to the start for the small immediate
// BackReward. A policy greedy on immediate reward never reaches the goal,
// which makes the chain a useful smoke test for learning.
type Chain struct {
	cfg    ChainConfig
	rng    *rand.Rand
	pos    int
	closed bool
}

var _ core.Env = &Chain{}

func NewChain(cfg ChainConfig) (*Chain, error) {
	if cfg.Length < 2 {
		return nil, fmt.Errorf("chain needs at least two positions, got %d", cfg.Length)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Chain{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

func (c *Chain) Reset() (core.State, error) {
	if c.closed {
		return nil, fmt.Errorf("chain env is closed")
	}
	c.pos = 0
	return Position(0), nil
}

func (c *Chain) Step(action core.Action) (core.State, float64, bool, core.Info, error) {
	if c.closed {
		return nil, 0, false, nil, fmt.Errorf("chain env is closed")
	}
	move, ok := action.(Move)
	if !ok {
		return nil, 0, false, nil, fmt.Errorf("chain env expects a Move, got %T", action)
	}
	if c.cfg.Slip > 0 && c.rng.Float64() < c.cfg.Slip {
		if move == MoveBack {
			move = MoveForward
		} else {
			move = MoveBack
		}
	}

	var reward float64
	done := false
	switch move {
	case MoveForward:
		c.pos++
		if c.pos >= c.cfg.Length-1 {
			reward = c.cfg.GoalReward
			done = true
		}
	case MoveBack:
		c.pos = 0
		reward = c.cfg.BackReward
	default:
		return nil, 0, false, nil, fmt.Errorf("unknown move %d", move)
	}
	return Position(c.pos), reward, done, core.Info{"position": c.pos}, nil
}

func (c *Chain) Close() error {
	c.closed = true
	return nil
}

// NewChainVector builds a vectorized chain environment with numEnvs
// independent instances. Instance i is seeded with cfg.Seed+i so slots
// decorrelate under slip.
func NewChainVector(numEnvs int, cfg ChainConfig, parallel bool) (*SliceVectorEnv, error) {
	if numEnvs < 1 {
		return nil, fmt.Errorf("chain vector needs at least one instance, got %d", numEnvs)
	}
	chains := make([]core.Env, numEnvs)
	for i := range chains {
		c := cfg
		if c.Seed != 0 {
			c.Seed = cfg.Seed + int64(i)
		}
		chain, err := NewChain(c)
		if err != nil {
			return nil, err
		}
		chains[i] = chain
	}
	return NewSliceVectorEnv(chains, parallel)
}
