package cmd

import (
	"context"
	"os"
	"os/signal"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vectrain/vectrain/analysis"
	"github.com/vectrain/vectrain/core"
	"github.com/vectrain/vectrain/envs"
	"github.com/vectrain/vectrain/policies"
)

func ChainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Train a tabular q-learning agent on the chain MDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)

			doneCh := make(chan struct{})

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-sigCh:
				case <-doneCh:
				}
				cancel()
			}()
			defer close(doneCh)

			return runChain(ctx, cmd)
		},
	}
	return cmd
}

func runChain(ctx context.Context, cmd *cobra.Command) error {
	logger := logrus.StandardLogger()

	chainCfg := envs.ChainConfig{
		Length:     flags.ChainLength,
		BackReward: flags.BackReward,
		GoalReward: flags.GoalReward,
		Slip:       flags.Slip,
		Seed:       flags.Seed,
	}
	trainEnv, err := envs.NewChainVector(flags.NumEnvs, chainCfg, flags.Parallel)
	if err != nil {
		return err
	}
	defer trainEnv.Close()

	agent, err := policies.NewQLearning(policies.QLearningConfig{
		Actions: envs.Moves,
		Alpha:   flags.Alpha,
		Gamma:   flags.Gamma,
		Epsilon: flags.Epsilon,
		Seed:    uint64(flags.Seed),
	})
	if err != nil {
		return err
	}

	cfg := core.LoopConfig{
		Steps:            flags.Steps,
		Outdir:           flags.Outdir,
		LogInterval:      flags.LogInterval,
		MaxEpisodeLen:    flags.MaxEpisodeLen,
		StepOffset:       flags.StepOffset,
		ReturnWindowSize: flags.ReturnWindowSize,
		Logger:           logger,
	}
	if cmd.Root().PersistentFlags().Changed("successful-score") {
		score := flags.SuccessfulScore
		cfg.SuccessfulScore = &score
	}
	if flags.FinalEpsilon != flags.Epsilon {
		cfg.StepHooks = append(cfg.StepHooks, core.LinearInterpolationHook(
			flags.Steps, flags.Epsilon, flags.FinalEpsilon,
			func(_ core.VectorEnv, _ core.BatchAgent, value float64) {
				agent.SetEpsilon(value)
			},
		))
	}

	var evaluator *core.Evaluator
	if flags.EvalInterval > 0 {
		evalEnv, err := envs.NewChainVector(flags.NumEnvs, chainCfg, flags.Parallel)
		if err != nil {
			return err
		}
		defer evalEnv.Close()
		evaluator, err = core.NewEvaluator(core.EvaluatorConfig{
			Agent:         agent,
			Env:           evalEnv,
			NRuns:         flags.EvalNRuns,
			Interval:      flags.EvalInterval,
			Outdir:        flags.Outdir,
			MaxEpisodeLen: flags.MaxEpisodeLen,
			StepOffset:    flags.StepOffset,
			SaveBestSoFar: flags.SaveBestSoFar,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		cfg.Evaluator = evaluator
	}

	loop, err := core.NewBatchTrainingLoop(agent, trainEnv, cfg)
	if err != nil {
		return err
	}
	if flags.ProgressInterval > 0 {
		progress := analysis.NewProgress(loop, flags.Steps, flags.ProgressInterval)
		progress.Start()
		defer progress.Stop()
		loop.AddHook(progress.Hook())
	}

	outcome, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"outcome":  outcome.String(),
		"episodes": loop.TotalEpisodes(),
		"outdir":   flags.Outdir,
	}).Info("training done")

	if evaluator != nil && len(evaluator.History()) > 0 {
		chartPath := path.Join(flags.Outdir, "scores.html")
		if err := analysis.WriteScoreChart(chartPath, evaluator.History()); err != nil {
			logger.WithError(err).Warn("writing score chart")
		}
	}
	return nil
}
