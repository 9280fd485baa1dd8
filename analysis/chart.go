package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/vectrain/vectrain/core"
)

// WriteScoreChart renders the evaluation score history as an HTML line
// chart at path: mean score per evaluation and the best score so far.
func WriteScoreChart(path string, history []core.ScoreEntry) error {
	if len(history) == 0 {
		return fmt.Errorf("no evaluation scores to chart")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "evaluation scores",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, 0, len(history))
	means := make([]opts.LineData, 0, len(history))
	bests := make([]opts.LineData, 0, len(history))
	for _, entry := range history {
		steps = append(steps, fmt.Sprintf("%d", entry.T))
		means = append(means, opts.LineData{Value: entry.Mean})
		bests = append(bests, opts.LineData{Value: entry.Best})
	}
	line.SetXAxis(steps)
	line.AddSeries("mean", means)
	line.AddSeries("best", bests)

	page := components.NewPage()
	page.AddCharts(line)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
