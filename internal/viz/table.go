package viz

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/gpubench/internal/bench"
)

var identityHeaders = []string{"run_id", "task", "difficulty", "steps"}

// SummaryHeaders are the column titles of SummaryTable.
func SummaryHeaders() []string {
	h := append([]string(nil), identityHeaders...)
	for _, st := range bench.Stages() {
		if st == bench.Total {
			continue
		}
		h = append(h, st.String())
	}
	return append(h, "total_mean", "total_p95", "total_max")
}

func ms(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// SummaryCells renders one row in SummaryHeaders order; stage columns hold
// mean milliseconds.
func SummaryCells(r bench.SummaryRow) []string {
	cells := []string{r.RunID, r.Task, r.Difficulty, strconv.Itoa(r.Steps)}
	for _, st := range bench.Stages() {
		if st == bench.Total {
			continue
		}
		cells = append(cells, ms(r.Stat(st).Mean))
	}
	total := r.Stat(bench.Total)
	return append(cells, ms(total.Mean), ms(total.P95), ms(total.Max))
}

// columnValue is the number shown in a timing column.
func columnValue(r bench.SummaryRow, col int) float64 {
	col -= len(identityHeaders)
	if col < int(bench.Total) {
		return r.Stat(bench.Stage(col)).Mean
	}
	total := r.Stat(bench.Total)
	switch col - int(bench.Total) {
	case 0:
		return total.Mean
	case 1:
		return total.P95
	}
	return total.Max
}

// SummaryTable renders rows with each timing column colored by its range.
// selected highlights one row; pass -1 for none.
func SummaryTable(rows []bench.SummaryRow, theme Theme, selected int) string {
	ncols := len(SummaryHeaders())
	lo := make([]float64, ncols)
	hi := make([]float64, ncols)
	for c := len(identityHeaders); c < ncols; c++ {
		for i, r := range rows {
			v := columnValue(r, c)
			if i == 0 || v < lo[c] {
				lo[c] = v
			}
			if i == 0 || v > hi[c] {
				hi[c] = v
			}
		}
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = SummaryCells(r)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers(SummaryHeaders()...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Bold(true).Foreground(theme.Header)
			case row == selected:
				return base.Bold(true).Foreground(theme.Select)
			case col < len(identityHeaders):
				return base.Foreground(theme.Text)
			}
			return base.Inherit(theme.heat(columnValue(rows[row], col), lo[col], hi[col])).Align(lipgloss.Right)
		})
	return t.Render()
}
