package core

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStep = errors.New("step exploded")

type fakeEnv struct {
	n          int
	reward     float64
	stepCalls  int
	failAt     int // 1-based step call that fails, 0 disables
	doneAt     func(call int) []bool
	keepMasks  [][]bool
	closeCalls int
}

func newFakeEnv(n int) *fakeEnv {
	return &fakeEnv{n: n, reward: 1}
}

func (e *fakeEnv) NumEnvs() int { return e.n }

func (e *fakeEnv) Reset(keep []bool) ([]State, error) {
	e.keepMasks = append(e.keepMasks, append([]bool(nil), keep...))
	obss := make([]State, e.n)
	for i := range obss {
		obss[i] = i
	}
	return obss, nil
}

func (e *fakeEnv) Step(actions []Action) ([]State, []float64, []bool, []Info, error) {
	e.stepCalls++
	if e.failAt > 0 && e.stepCalls == e.failAt {
		return nil, nil, nil, nil, errStep
	}
	obss := make([]State, e.n)
	rewards := make([]float64, e.n)
	dones := make([]bool, e.n)
	infos := make([]Info, e.n)
	for i := range obss {
		obss[i] = i
		rewards[i] = e.reward
	}
	if e.doneAt != nil {
		dones = e.doneAt(e.stepCalls)
	}
	return obss, rewards, dones, infos, nil
}

func (e *fakeEnv) Close() error {
	e.closeCalls++
	return nil
}

type fakeAgent struct {
	acts        int
	donesSeen   [][]bool
	resetsSeen  [][]bool
	saves       []string // base names of save directories
	saveErr     error
	timestep    int
	timestepSet bool
}

func (a *fakeAgent) BatchActAndTrain(obss []State) ([]Action, error) {
	a.acts++
	return make([]Action, len(obss)), nil
}

func (a *fakeAgent) BatchObserveAndTrain(_ []State, _ []float64, dones, resets []bool) error {
	a.donesSeen = append(a.donesSeen, append([]bool(nil), dones...))
	a.resetsSeen = append(a.resetsSeen, append([]bool(nil), resets...))
	return nil
}

func (a *fakeAgent) BatchAct(obss []State) ([]Action, error) {
	return make([]Action, len(obss)), nil
}

func (a *fakeAgent) Save(dirname string) error {
	a.saves = append(a.saves, path.Base(dirname))
	return a.saveErr
}

func (a *fakeAgent) SetTimestep(t int) {
	a.timestep = t
	a.timestepSet = true
}

func (a *fakeAgent) savesWithSuffix(suffix string) []string {
	var out []string
	for _, s := range a.saves {
		if strings.HasSuffix(s, suffix) {
			out = append(out, s)
		}
	}
	return out
}

type fakeGate struct {
	env     VectorEnv
	runFrom int // global step from which passes report as run
	score   float64
	calls   int
	ran     int
}

func (g *fakeGate) EvaluateIfNecessary(t, episodes int) (bool, error) {
	g.calls++
	if t >= g.runFrom {
		g.ran++
		return true, nil
	}
	return false, nil
}

func (g *fakeGate) MaxScore() float64 { return g.score }
func (g *fakeGate) Env() VectorEnv    { return g.env }

func TestLoopRunsExactlyBudgetOverN(t *testing.T) {
	env := newFakeEnv(4)
	agent := &fakeAgent{}

	var steps []int
	hook := func(_ VectorEnv, _ BatchAgent, step int) {
		steps = append(steps, step)
	}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:     20,
		Outdir:    t.TempDir(),
		StepHooks: []StepHook{hook},
	})
	require.NoError(t, err)

	outcome, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExhausted, outcome)

	assert.Equal(t, 5, env.stepCalls)
	assert.Equal(t, 5, agent.acts)

	// One hook call per elapsed global step, strictly increasing.
	require.Len(t, steps, 20)
	for i, s := range steps {
		assert.Equal(t, i+1, s)
	}
}

func TestLoopResumesFromStepOffset(t *testing.T) {
	env := newFakeEnv(4)
	agent := &fakeAgent{}

	var last int
	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:      20,
		StepOffset: 8,
		Outdir:     t.TempDir(),
		StepHooks: []StepHook{func(_ VectorEnv, _ BatchAgent, step int) {
			last = step
		}},
	})
	require.NoError(t, err)

	_, err = loop.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, agent.timestepSet)
	assert.Equal(t, 8, agent.timestep)
	assert.Equal(t, 3, env.stepCalls)
	assert.Equal(t, 20, last)
}

func TestLoopTruncatesAtMaxEpisodeLen(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:         12,
		MaxEpisodeLen: 3,
		Outdir:        t.TempDir(),
	})
	require.NoError(t, err)

	outcome, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExhausted, outcome)

	// Iterations 3 and 6 truncate both slots; dones stay false
	// throughout.
	require.Len(t, agent.resetsSeen, 6)
	for i, resets := range agent.resetsSeen {
		want := (i+1)%3 == 0
		assert.Equal(t, []bool{want, want}, resets, "iteration %d", i+1)
		assert.Equal(t, []bool{false, false}, agent.donesSeen[i])
	}

	// Four completed episodes of three unit rewards each.
	assert.Equal(t, 4, loop.TotalEpisodes())
	last, ok := loop.LastReturn()
	require.True(t, ok)
	assert.Equal(t, 3.0, last)
	mean, ok := loop.AverageReturn()
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestLoopResetsOnlyEndedSlots(t *testing.T) {
	env := newFakeEnv(3)
	env.doneAt = func(call int) []bool {
		if call == 2 {
			return []bool{true, false, false}
		}
		return make([]bool, 3)
	}
	agent := &fakeAgent{}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:  9,
		Outdir: t.TempDir(),
	})
	require.NoError(t, err)

	_, err = loop.Run(context.Background())
	require.NoError(t, err)

	// Initial reset has a nil mask; the per-iteration keep mask flips
	// only for the slot that finished.
	require.Len(t, env.keepMasks, 4)
	assert.Empty(t, env.keepMasks[0])
	assert.Equal(t, []bool{true, true, true}, env.keepMasks[1])
	assert.Equal(t, []bool{false, true, true}, env.keepMasks[2])
	assert.Equal(t, []bool{true, true, true}, env.keepMasks[3])

	assert.Equal(t, 1, loop.TotalEpisodes())
	last, ok := loop.LastReturn()
	require.True(t, ok)
	assert.Equal(t, 2.0, last)
}

func TestLoopFinishCheckpointOnNormalExit(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:  10,
		Outdir: t.TempDir(),
	})
	require.NoError(t, err)

	_, err = loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"10_finish"}, agent.saves)
	assert.Empty(t, agent.savesWithSuffix("_except"))
	assert.Equal(t, 0, env.closeCalls)
}

func TestLoopExceptCheckpointOnStepFailure(t *testing.T) {
	env := newFakeEnv(2)
	env.failAt = 3
	agent := &fakeAgent{}
	evalEnv := newFakeEnv(2)
	gate := &fakeGate{env: evalEnv, runFrom: 1 << 30}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:     100,
		Outdir:    t.TempDir(),
		Evaluator: gate,
	})
	require.NoError(t, err)

	outcome, err := loop.Run(context.Background())
	assert.Equal(t, OutcomeFailure, outcome)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errStep))

	// Two full iterations elapsed before the failure, so the checkpoint
	// carries step 4.
	assert.Equal(t, []string{"4_except"}, agent.saves)
	assert.Equal(t, 1, env.closeCalls)
	assert.Equal(t, 1, evalEnv.closeCalls)
}

func TestLoopExceptCheckpointOnCancel(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:  100,
		Outdir: t.TempDir(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := loop.Run(ctx)
	assert.Equal(t, OutcomeFailure, outcome)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"0_except"}, agent.saves)
	assert.Equal(t, 1, env.closeCalls)
}

func TestLoopSuccessThresholdExitsEarly(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}
	gate := &fakeGate{env: newFakeEnv(2), runFrom: 6, score: 0.9}
	threshold := 0.5

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:           1000,
		Outdir:          t.TempDir(),
		Evaluator:       gate,
		SuccessfulScore: &threshold,
	})
	require.NoError(t, err)

	outcome, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccessThreshold, outcome)

	// Early success is a normal exit: finish checkpoint at the step the
	// evaluation ran, well before the budget.
	assert.Equal(t, []string{"6_finish"}, agent.saves)
	assert.Equal(t, 3, env.stepCalls)
	assert.Equal(t, 0, env.closeCalls)
}

func TestLoopBelowThresholdKeepsGoing(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}
	gate := &fakeGate{env: newFakeEnv(2), runFrom: 2, score: 0.1}
	threshold := 0.5

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:           10,
		Outdir:          t.TempDir(),
		Evaluator:       gate,
		SuccessfulScore: &threshold,
	})
	require.NoError(t, err)

	outcome, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetExhausted, outcome)
	assert.Equal(t, 5, gate.ran)
}

func TestLoopLogsOnIntervalCrossings(t *testing.T) {
	env := newFakeEnv(4)
	agent := &fakeAgent{}
	logger, hook := test.NewNullLogger()

	loop, err := NewBatchTrainingLoop(agent, env, LoopConfig{
		Steps:       40,
		LogInterval: 10,
		Outdir:      t.TempDir(),
		Logger:      logger,
	})
	require.NoError(t, err)

	_, err = loop.Run(context.Background())
	require.NoError(t, err)

	// t advances 4 at a time, so the 10-step boundaries are crossed at
	// t = 12, 20, 32 and 40.
	var progress int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "training progress" {
			progress++
		}
	}
	assert.Equal(t, 4, progress)
}

func TestLoopRejectsBadConfig(t *testing.T) {
	env := newFakeEnv(2)
	agent := &fakeAgent{}

	_, err := NewBatchTrainingLoop(nil, env, LoopConfig{Steps: 10})
	assert.Error(t, err)
	_, err = NewBatchTrainingLoop(agent, nil, LoopConfig{Steps: 10})
	assert.Error(t, err)
	_, err = NewBatchTrainingLoop(agent, env, LoopConfig{Steps: 0})
	assert.Error(t, err)
	_, err = NewBatchTrainingLoop(agent, newFakeEnv(0), LoopConfig{Steps: 10})
	assert.Error(t, err)
}
