package cmd

import (
	"path"

	"github.com/spf13/cobra"

	"github.com/vectrain/vectrain/util"
)

type Flags struct {
	TrainFlags
	ChainFlags
	AgentFlags
	Outdir string
	Debug  bool
}

type TrainFlags struct {
	Steps            int
	NumEnvs          int
	MaxEpisodeLen    int
	LogInterval      int
	StepOffset       int
	ReturnWindowSize int
	EvalInterval     int
	EvalNRuns        int
	SuccessfulScore  float64
	SaveBestSoFar    bool
	ProgressInterval int
	Parallel         bool
}

type ChainFlags struct {
	ChainLength int
	BackReward  float64
	GoalReward  float64
	Slip        float64
}

type AgentFlags struct {
	Alpha        float64
	Gamma        float64
	Epsilon      float64
	FinalEpsilon float64
	Seed         int64
}

func DefaultFlags() *Flags {
	return &Flags{
		TrainFlags: TrainFlags{
			Steps:            20000,
			NumEnvs:          8,
			MaxEpisodeLen:    50,
			LogInterval:      1000,
			ReturnWindowSize: 100,
			EvalInterval:     2000,
			EvalNRuns:        10,
			SaveBestSoFar:    true,
			ProgressInterval: 100,
		},
		ChainFlags: ChainFlags{
			ChainLength: 6,
			BackReward:  0.01,
			GoalReward:  1,
			Slip:        0.05,
		},
		AgentFlags: AgentFlags{
			Alpha:        0.2,
			Gamma:        0.95,
			Epsilon:      0.5,
			FinalEpsilon: 0.05,
		},
		Outdir: "results",
	}
}

func (f *Flags) Record() {
	util.SaveJson(path.Join(f.Outdir, "config.json"), f)
}

var (
	flags *Flags = DefaultFlags()

	outdir           string
	debug            bool
	steps            int
	numEnvs          int
	maxEpisodeLen    int
	logInterval      int
	stepOffset       int
	returnWindowSize int
	evalInterval     int
	evalNRuns        int
	successfulScore  float64
	saveBestSoFar    bool
	progressInterval int
	parallel         bool

	chainLength int
	backReward  float64
	goalReward  float64
	slip        float64

	alpha        float64
	gamma        float64
	epsilon      float64
	finalEpsilon float64
	seed         int64
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&outdir, "outdir", flags.Outdir, "Directory for checkpoints and reports")
	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Enable debug logging")
	cmd.PersistentFlags().IntVar(&steps, "steps", flags.Steps, "Total step budget across all slots")
	cmd.PersistentFlags().IntVar(&numEnvs, "num-envs", flags.NumEnvs, "Number of environment slots")
	cmd.PersistentFlags().IntVar(&maxEpisodeLen, "max-episode-len", flags.MaxEpisodeLen, "Episode truncation length, 0 disables")
	cmd.PersistentFlags().IntVar(&logInterval, "log-interval", flags.LogInterval, "Progress report interval in steps, 0 disables")
	cmd.PersistentFlags().IntVar(&stepOffset, "step-offset", flags.StepOffset, "Global step to resume counting from")
	cmd.PersistentFlags().IntVar(&returnWindowSize, "return-window-size", flags.ReturnWindowSize, "Moving-average window over completed episodes")
	cmd.PersistentFlags().IntVar(&evalInterval, "eval-interval", flags.EvalInterval, "Evaluation interval in steps, 0 disables")
	cmd.PersistentFlags().IntVar(&evalNRuns, "eval-n-runs", flags.EvalNRuns, "Episodes per evaluation pass")
	cmd.PersistentFlags().Float64Var(&successfulScore, "successful-score", flags.SuccessfulScore, "Stop once the best evaluation score reaches this value")
	cmd.PersistentFlags().BoolVar(&saveBestSoFar, "save-best", flags.SaveBestSoFar, "Save the agent whenever evaluation improves")
	cmd.PersistentFlags().IntVar(&progressInterval, "progress-interval", flags.ProgressInterval, "Live terminal progress interval in steps, 0 disables")
	cmd.PersistentFlags().BoolVar(&parallel, "parallel", flags.Parallel, "Step environment slots in parallel goroutines")

	cmd.PersistentFlags().IntVar(&chainLength, "chain-length", flags.ChainLength, "Number of chain positions")
	cmd.PersistentFlags().Float64Var(&backReward, "back-reward", flags.BackReward, "Immediate reward for moving back")
	cmd.PersistentFlags().Float64Var(&goalReward, "goal-reward", flags.GoalReward, "Reward for reaching the goal")
	cmd.PersistentFlags().Float64Var(&slip, "slip", flags.Slip, "Probability a move is flipped")

	cmd.PersistentFlags().Float64Var(&alpha, "alpha", flags.Alpha, "Q-learning step size")
	cmd.PersistentFlags().Float64Var(&gamma, "gamma", flags.Gamma, "Discount factor")
	cmd.PersistentFlags().Float64Var(&epsilon, "epsilon", flags.Epsilon, "Initial exploration rate")
	cmd.PersistentFlags().Float64Var(&finalEpsilon, "final-epsilon", flags.FinalEpsilon, "Exploration rate at the end of the budget")
	cmd.PersistentFlags().Int64Var(&seed, "seed", flags.Seed, "Random seed, 0 seeds from the clock")
}

func UpdateFlags() {
	flags.Outdir = outdir
	flags.Debug = debug
	flags.Steps = steps
	flags.NumEnvs = numEnvs
	flags.MaxEpisodeLen = maxEpisodeLen
	flags.LogInterval = logInterval
	flags.StepOffset = stepOffset
	flags.ReturnWindowSize = returnWindowSize
	flags.EvalInterval = evalInterval
	flags.EvalNRuns = evalNRuns
	flags.SuccessfulScore = successfulScore
	flags.SaveBestSoFar = saveBestSoFar
	flags.ProgressInterval = progressInterval
	flags.Parallel = parallel

	flags.ChainLength = chainLength
	flags.BackReward = backReward
	flags.GoalReward = goalReward
	flags.Slip = slip

	flags.Alpha = alpha
	flags.Gamma = gamma
	flags.Epsilon = epsilon
	flags.FinalEpsilon = finalEpsilon
	flags.Seed = seed
}
