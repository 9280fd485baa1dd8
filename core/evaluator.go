package core

import (
	"fmt"
	"math"
	"path"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/vectrain/vectrain/util"
)

// EvaluationGate decides whether an evaluation pass runs at the current
// point of training and tracks the best score seen so far. The training
// loop only decides when to ask; the gate owns its cadence and rollouts.
type EvaluationGate interface {
	// EvaluateIfNecessary runs an evaluation pass if one is due at global
	// step t and reports whether it actually ran.
	EvaluateIfNecessary(t, episodes int) (bool, error)
	// MaxScore is the best mean evaluation score observed so far. It is
	// monotonically non-decreasing across a run.
	MaxScore() float64
	// Env is the gate's own environment handle, closed separately from
	// the training environment.
	Env() VectorEnv
}

// ScoreEntry is one recorded evaluation result.
type ScoreEntry struct {
	T        int
	Episodes int
	Mean     float64
	Best     float64
}

type EvaluatorConfig struct {
	Agent         BatchAgent
	Env           VectorEnv
	NRuns         int
	Interval      int
	Outdir        string
	MaxEpisodeLen int
	StepOffset    int
	SaveBestSoFar bool
	Logger        logrus.FieldLogger
}

// Evaluator runs evaluation episodes on its own environment at a fixed
// global-step interval. Rollouts use the agent's greedy act path and never
// touch training bookkeeping. Scores are appended to a scores file under
// the output directory.
type Evaluator struct {
	cfg       EvaluatorConfig
	actor     GreedyActor
	logger    logrus.FieldLogger
	maxScore  float64
	prevEvalT int
	history   []ScoreEntry
}

var _ EvaluationGate = &Evaluator{}

func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Agent == nil || cfg.Env == nil {
		return nil, fmt.Errorf("evaluator needs an agent and an environment")
	}
	actor, ok := cfg.Agent.(GreedyActor)
	if !ok {
		return nil, fmt.Errorf("agent %T cannot act greedily, evaluation needs a GreedyActor", cfg.Agent)
	}
	if cfg.NRuns < 1 {
		return nil, fmt.Errorf("evaluation needs at least one run, got %d", cfg.NRuns)
	}
	if cfg.Interval < 1 {
		return nil, fmt.Errorf("evaluation interval must be positive, got %d", cfg.Interval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{
		cfg:       cfg,
		actor:     actor,
		logger:    logger,
		maxScore:  math.Inf(-1),
		prevEvalT: cfg.StepOffset - cfg.StepOffset%cfg.Interval,
	}, nil
}

func (e *Evaluator) MaxScore() float64 {
	return e.maxScore
}

func (e *Evaluator) Env() VectorEnv {
	return e.cfg.Env
}

// History reports all recorded evaluations, oldest first.
func (e *Evaluator) History() []ScoreEntry {
	out := make([]ScoreEntry, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Evaluator) EvaluateIfNecessary(t, episodes int) (bool, error) {
	if t < e.prevEvalT+e.cfg.Interval {
		return false, nil
	}
	mean, err := e.evaluate()
	if err != nil {
		return false, fmt.Errorf("evaluation at step %d: %w", t, err)
	}
	e.prevEvalT = t - t%e.cfg.Interval

	improved := mean > e.maxScore
	if improved {
		e.maxScore = mean
	}
	entry := ScoreEntry{T: t, Episodes: episodes, Mean: mean, Best: e.maxScore}
	e.history = append(e.history, entry)
	e.logger.WithFields(logrus.Fields{
		"step":     t,
		"episode":  episodes,
		"mean":     mean,
		"best":     e.maxScore,
		"runs":     e.cfg.NRuns,
		"improved": improved,
	}).Info("evaluation")

	if e.cfg.Outdir != "" {
		line := fmt.Sprintf("%d\t%d\t%f\t%f", t, episodes, mean, e.maxScore)
		if err := util.AppendLine(path.Join(e.cfg.Outdir, "scores.txt"), line); err != nil {
			e.logger.WithError(err).Warn("recording evaluation score")
		}
	}
	if improved && e.cfg.SaveBestSoFar {
		if err := SaveAgent(e.cfg.Agent, t, e.cfg.Outdir, e.logger, "_best"); err != nil {
			return true, err
		}
	}
	return true, nil
}

// evaluate collects NRuns completed episodes from the evaluation
// environment and returns their mean return.
func (e *Evaluator) evaluate() (float64, error) {
	tracker, err := NewEpisodeTracker(e.cfg.Env.NumEnvs())
	if err != nil {
		return 0, err
	}
	obss, err := e.cfg.Env.Reset(nil)
	if err != nil {
		return 0, err
	}
	scores := make([]float64, 0, e.cfg.NRuns)
	for len(scores) < e.cfg.NRuns {
		actions, err := e.actor.BatchAct(obss)
		if err != nil {
			return 0, err
		}
		next, rewards, dones, _, err := e.cfg.Env.Step(actions)
		if err != nil {
			return 0, err
		}
		obss = next
		if err := tracker.Accumulate(rewards); err != nil {
			return 0, err
		}
		resets := tracker.TruncationMask(e.cfg.MaxEpisodeLen)
		end := orMask(dones, resets)
		for _, r := range tracker.Finalize(end) {
			if len(scores) < e.cfg.NRuns {
				scores = append(scores, r)
			}
		}
		obss, err = e.cfg.Env.Reset(notMask(end))
		if err != nil {
			return 0, err
		}
	}
	return stat.Mean(scores, nil), nil
}
