package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gpubench/internal/bench"
)

// StageSeries extracts one stage's milliseconds in step order.
func StageSeries(samples []bench.StageTimingSample, stage bench.Stage) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Get(stage)
	}
	return out
}

// PlotStage draws one stage across measured steps.
func PlotStage(samples []bench.StageTimingSample, stage bench.Stage, width, height int) string {
	if len(samples) == 0 {
		return "no samples"
	}
	s := samples[0]
	caption := fmt.Sprintf("%s %s [%s] %s (ms/step)", s.RunID, s.Task, s.Difficulty, stage)
	return asciigraph.Plot(StageSeries(samples, stage),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption(caption),
	)
}
