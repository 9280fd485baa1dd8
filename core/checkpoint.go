package core

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// SaveAgent persists the agent's state under outdir, in a directory named
// after the step and suffix ("20000_finish", "13500_except", "8000_best").
// Agents without the Saveable capability are skipped with a log line.
func SaveAgent(agent BatchAgent, t int, outdir string, logger logrus.FieldLogger, suffix string) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	saveable, ok := agent.(Saveable)
	if !ok {
		logger.WithField("step", t).Debug("agent is not saveable, skipping checkpoint")
		return nil
	}
	dirname := path.Join(outdir, fmt.Sprintf("%d%s", t, suffix))
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}
	if err := saveable.Save(dirname); err != nil {
		return fmt.Errorf("saving agent to %s: %w", dirname, err)
	}
	logger.WithFields(logrus.Fields{"step": t, "dir": dirname}).Info("saved the agent")
	return nil
}

// CheckpointGuard guarantees the agent is saved on every exit path of a
// training run: suffix "_finish" on normal completion, "_except" on any
// failure, written before environment resources are released so the
// persisted state reflects the step at which the run stopped.
type CheckpointGuard struct {
	agent  BatchAgent
	outdir string
	logger logrus.FieldLogger
}

func NewCheckpointGuard(agent BatchAgent, outdir string, logger logrus.FieldLogger) *CheckpointGuard {
	return &CheckpointGuard{agent: agent, outdir: outdir, logger: logger}
}

// Finish writes the normal-completion checkpoint.
func (g *CheckpointGuard) Finish(t int) error {
	return SaveAgent(g.agent, t, g.outdir, g.logger, "_finish")
}

// Except writes the failure checkpoint and hands the original cause back.
// If the save itself fails, both errors are joined so neither masks the
// other.
func (g *CheckpointGuard) Except(t int, cause error) error {
	if err := SaveAgent(g.agent, t, g.outdir, g.logger, "_except"); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
