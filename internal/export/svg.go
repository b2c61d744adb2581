// Package export renders per-step stage timings to files.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/gpubench/internal/bench"
)

// StageColors are the stroke colors of each stage line.
var StageColors = [bench.NumStages]string{
	"#00ffff", // broadphase
	"#ff00ff", // narrowphase
	"#ffcc00", // coloring
	"#ff4444", // solver
	"#00ff88", // update
	"#888899", // other
	"#ffffff", // total
}

// StagesToSVG draws one polyline per stage with step on x and milliseconds
// on y. All stages share the y scale.
func StagesToSVG(samples []bench.StageTimingSample, stages []bench.Stage, width, height int) string {
	if len(samples) < 2 || len(stages) == 0 {
		return ""
	}

	minX, maxX := float64(samples[0].Step), float64(samples[len(samples)-1].Step)
	minY, maxY := samples[0].Get(stages[0]), samples[0].Get(stages[0])
	for _, s := range samples {
		for _, st := range stages {
			minY = min(minY, s.Get(st))
			maxY = max(maxY, s.Get(st))
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for li, st := range stages {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, StageColors[st])
		for i, s := range samples {
			x := (float64(s.Step) - minX) / rangeX * float64(width)
			y := float64(height) - (s.Get(st)-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*li, StageColors[st], st)
	}

	fmt.Fprintf(&sb, `<text x="8" y="%d" fill="#666688" font-family="monospace" font-size="11">%.4f ms</text>
<text x="8" y="%d" fill="#666688" font-family="monospace" font-size="11">%.4f ms</text>
</svg>`, height-6, minY, 16+14*len(stages), maxY)
	return sb.String()
}
