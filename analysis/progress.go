package analysis

import (
	"fmt"

	"github.com/gosuri/uilive"
	"github.com/logrusorgru/aurora"

	"github.com/vectrain/vectrain/core"
)

// ProgressReporter is what the live progress display reads from a running
// loop.
type ProgressReporter interface {
	TotalEpisodes() int
	LastReturn() (float64, bool)
	AverageReturn() (float64, bool)
}

// Progress repaints a single-line training summary in place in the
// terminal, driven as a step hook.
type Progress struct {
	loop     ProgressReporter
	steps    int
	interval int
	writer   *uilive.Writer
}

// NewProgress builds a display updating every interval global steps of a
// run with the given step budget.
func NewProgress(loop ProgressReporter, steps, interval int) *Progress {
	return &Progress{
		loop:     loop,
		steps:    steps,
		interval: interval,
		writer:   uilive.New(),
	}
}

// Start begins the live terminal session. Stop must be called afterwards.
func (p *Progress) Start() {
	p.writer.Start()
}

// Hook returns the step hook driving the display.
func (p *Progress) Hook() core.StepHook {
	return func(_ core.VectorEnv, _ core.BatchAgent, t int) {
		if p.interval > 0 && t%p.interval != 0 {
			return
		}
		line := fmt.Sprintf("%s %d/%d  %s %d",
			aurora.Cyan("step"), t, p.steps,
			aurora.Cyan("episodes"), p.loop.TotalEpisodes())
		if last, ok := p.loop.LastReturn(); ok {
			line += fmt.Sprintf("  %s %.3f", aurora.Yellow("lastR"), last)
		}
		if mean, ok := p.loop.AverageReturn(); ok {
			line += fmt.Sprintf("  %s %.3f", aurora.Green("averageR"), mean)
		}
		fmt.Fprintln(p.writer, line)
		p.writer.Flush()
	}
}

// Stop flushes the final line and stops the live writer.
func (p *Progress) Stop() {
	p.writer.Stop()
}
