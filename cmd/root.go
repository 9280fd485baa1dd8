package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vectrain/vectrain/util"
)

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectrain",
		Short: "Train agents against vectorized environments",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load()
			UpdateFlags()
			if !cmd.Root().PersistentFlags().Changed("outdir") {
				if dir := os.Getenv("VECTRAIN_OUTDIR"); dir != "" {
					flags.Outdir = dir
				}
			}
			// Every run gets its own directory so checkpoints never
			// collide.
			flags.Outdir = util.RunDir(flags.Outdir)
			if flags.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			flags.Record()
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		ChainCommand(),
	)

	return cmd
}
