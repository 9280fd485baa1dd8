package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// LoopConfig is the caller-owned configuration of a training run. No field
// is shared between runs; hooks belong to the caller.
type LoopConfig struct {
	// Steps is the total step budget, counted across all slots.
	Steps int
	// Outdir receives checkpoints and reports.
	Outdir string
	// LogInterval is the progress-report cadence in global steps. Zero
	// disables progress reports.
	LogInterval int
	// MaxEpisodeLen forces an episode reset once a slot's step count
	// reaches it. Zero disables truncation.
	MaxEpisodeLen int
	// StepOffset is the global step to resume counting from.
	StepOffset int
	// SuccessfulScore stops training early once the evaluator's best
	// score reaches it. Nil disables the early exit.
	SuccessfulScore *float64
	// ReturnWindowSize bounds the moving-average window. Zero means
	// DefaultReturnWindowSize.
	ReturnWindowSize int
	// StepHooks are fired once per elapsed global step, in order.
	StepHooks []StepHook
	// Evaluator, when set, is consulted every iteration for a due
	// evaluation pass.
	Evaluator EvaluationGate
	Logger    logrus.FieldLogger
}

// BatchTrainingLoop drives a BatchAgent against a VectorEnv: act, step,
// fold the transition into per-slot bookkeeping, restart ended slots,
// advance the global step counter by one per slot. The agent is saved on
// every exit path.
type BatchTrainingLoop struct {
	agent  BatchAgent
	env    VectorEnv
	cfg    LoopConfig
	logger logrus.FieldLogger

	tracker *EpisodeTracker
	window  *ReturnWindow
	hooks   *HookRunner
	guard   *CheckpointGuard
}

func NewBatchTrainingLoop(agent BatchAgent, env VectorEnv, cfg LoopConfig) (*BatchTrainingLoop, error) {
	if agent == nil || env == nil {
		return nil, fmt.Errorf("training loop needs an agent and an environment")
	}
	if cfg.Steps < 1 {
		return nil, fmt.Errorf("step budget must be positive, got %d", cfg.Steps)
	}
	tracker, err := NewEpisodeTracker(env.NumEnvs())
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BatchTrainingLoop{
		agent:   agent,
		env:     env,
		cfg:     cfg,
		logger:  logger,
		tracker: tracker,
		window:  NewReturnWindow(cfg.ReturnWindowSize),
		hooks:   NewHookRunner(cfg.StepHooks...),
		guard:   NewCheckpointGuard(agent, cfg.Outdir, logger),
	}, nil
}

// AddHook registers a step hook after construction. Useful for hooks that
// need to observe the loop itself.
func (l *BatchTrainingLoop) AddHook(hook StepHook) {
	l.hooks.Add(hook)
}

// TotalEpisodes sums completed episodes over all slots.
func (l *BatchTrainingLoop) TotalEpisodes() int {
	return l.tracker.TotalEpisodes()
}

// LastReturn reports the most recently completed episode's return.
func (l *BatchTrainingLoop) LastReturn() (float64, bool) {
	return l.window.Last()
}

// AverageReturn reports the moving-average return over the window.
func (l *BatchTrainingLoop) AverageReturn() (float64, bool) {
	return l.window.Mean()
}

// Run drives the step/observe cycle until the budget is exhausted, the
// success threshold is reached, or a failure occurs. Cancelling ctx is the
// interrupt path: it routes through the same exception checkpoint as a
// collaborator failure. On failure the training and evaluation
// environments are closed and the original cause is returned.
func (l *BatchTrainingLoop) Run(ctx context.Context) (LoopOutcome, error) {
	t := l.cfg.StepOffset
	if ts, ok := l.agent.(Timestepped); ok {
		ts.SetTimestep(t)
	}

	obss, err := l.env.Reset(nil)
	if err != nil {
		return l.fail(t, err)
	}
	numEnvs := l.env.NumEnvs()

	for t < l.cfg.Steps {
		select {
		case <-ctx.Done():
			return l.fail(t, ctx.Err())
		default:
		}

		actions, err := l.agent.BatchActAndTrain(obss)
		if err != nil {
			return l.fail(t, err)
		}
		next, rewards, dones, _, err := l.env.Step(actions)
		if err != nil {
			return l.fail(t, err)
		}
		obss = next
		if err := l.tracker.Accumulate(rewards); err != nil {
			return l.fail(t, err)
		}

		// Truncation is computed after the step count advanced, so a
		// slot hitting MaxEpisodeLen is reset on this iteration.
		resets := l.tracker.TruncationMask(l.cfg.MaxEpisodeLen)
		if err := l.agent.BatchObserveAndTrain(obss, rewards, dones, resets); err != nil {
			return l.fail(t, err)
		}

		end := orMask(dones, resets)
		for _, r := range l.tracker.Finalize(end) {
			l.window.Push(r)
		}
		obss, err = l.env.Reset(notMask(end))
		if err != nil {
			return l.fail(t, err)
		}

		// One global step per slot. Hooks fire once per step, after the
		// transition's bookkeeping is final.
		for i := 0; i < numEnvs; i++ {
			t++
			l.hooks.RunAll(l.env, l.agent, t)
		}

		// t jumps by numEnvs per iteration, so the interval crossing is
		// detected through the remainder.
		if l.cfg.LogInterval > 0 && t >= l.cfg.LogInterval && t%l.cfg.LogInterval < numEnvs {
			l.logProgress(t)
		}

		if l.cfg.Evaluator != nil {
			ran, err := l.cfg.Evaluator.EvaluateIfNecessary(t, l.tracker.TotalEpisodes())
			if err != nil {
				return l.fail(t, err)
			}
			if ran && l.cfg.SuccessfulScore != nil && l.cfg.Evaluator.MaxScore() >= *l.cfg.SuccessfulScore {
				if err := l.guard.Finish(t); err != nil {
					return OutcomeFailure, err
				}
				return OutcomeSuccessThreshold, nil
			}
		}
	}

	if err := l.guard.Finish(t); err != nil {
		return OutcomeFailure, err
	}
	return OutcomeBudgetExhausted, nil
}

// fail is the single abnormal exit path: exception checkpoint first, then
// resource release, then the original cause back to the caller.
func (l *BatchTrainingLoop) fail(t int, cause error) (LoopOutcome, error) {
	err := l.guard.Except(t, cause)
	if cerr := l.env.Close(); cerr != nil {
		l.logger.WithError(cerr).Warn("closing training environment")
	}
	if l.cfg.Evaluator != nil {
		if env := l.cfg.Evaluator.Env(); env != nil {
			if cerr := env.Close(); cerr != nil {
				l.logger.WithError(cerr).Warn("closing evaluation environment")
			}
		}
	}
	return OutcomeFailure, err
}

func (l *BatchTrainingLoop) logProgress(t int) {
	fields := logrus.Fields{
		"outdir":  l.cfg.Outdir,
		"step":    t,
		"episode": l.tracker.TotalEpisodes(),
	}
	if last, ok := l.window.Last(); ok {
		fields["lastR"] = last
	}
	if mean, ok := l.window.Mean(); ok {
		fields["averageR"] = mean
	}
	l.logger.WithFields(fields).Info("training progress")
	if s, ok := l.agent.(Snapshotter); ok {
		stats := logrus.Fields{}
		for _, st := range s.Statistics() {
			stats[st.Name] = st.Value
		}
		l.logger.WithFields(stats).Info("agent statistics")
	}
}
