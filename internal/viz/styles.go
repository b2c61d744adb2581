package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (t Theme) title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Header)
}

func (t Theme) muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) keyHint() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted).Italic(true)
}

func (t Theme) panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

// heat picks a color for v relative to the [lo, hi] range of its column.
func (t Theme) heat(v, lo, hi float64) lipgloss.Style {
	s := lipgloss.NewStyle()
	if hi <= lo {
		return s.Foreground(t.Text)
	}
	norm := (v - lo) / (hi - lo)
	switch {
	case norm > 0.7:
		return s.Foreground(t.Slow)
	case norm > 0.3:
		return s.Foreground(t.Medium)
	}
	return s.Foreground(t.Fast)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one row of block characters, sampling down
// to width when there are more values than columns.
func (t Theme) Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		idx := int((v - lo) / rng * float64(len(sparkChars)-1))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteString(t.heat(v, lo, hi).Render(string(sparkChars[idx])))
	}
	return b.String()
}
