package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gpubench/internal/bench"
)

// StepLoader fetches the measured steps of one task run.
type StepLoader func(runID, task string) ([]bench.StageTimingSample, error)

type stepsLoadedMsg struct {
	key     string
	samples []bench.StageTimingSample
	err     error
}

// Browser lists summary rows and plots the steps of the selected one.
type Browser struct {
	rows          []bench.SummaryRow
	load          StepLoader
	cursor        int
	stage         bench.Stage
	theme         Theme
	cache         map[string][]bench.StageTimingSample
	shown         string
	err           error
	width, height int
}

func NewBrowser(rows []bench.SummaryRow, load StepLoader) Browser {
	return Browser{
		rows:   rows,
		load:   load,
		stage:  bench.Total,
		theme:  CurrentTheme,
		cache:  map[string][]bench.StageTimingSample{},
		width:  100,
		height: 30,
	}
}

func rowKey(r bench.SummaryRow) string { return r.RunID + "/" + r.Task }

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case stepsLoadedMsg:
		b.err = msg.err
		if msg.err == nil {
			b.cache[msg.key] = msg.samples
			b.shown = msg.key
		}
	case tea.KeyMsg:
		return b.handleKey(msg)
	}
	return b, nil
}

func (b Browser) handleKey(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return b, tea.Quit
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(b.rows)-1 {
			b.cursor++
		}
	case "s":
		b.stage = (b.stage + 1) % bench.NumStages
	case "t":
		b.theme = b.theme.next()
	case "enter":
		cmd := b.loadSelected()
		return b, cmd
	}
	return b, nil
}

func (b *Browser) loadSelected() tea.Cmd {
	if len(b.rows) == 0 || b.load == nil {
		return nil
	}
	r := b.rows[b.cursor]
	key := rowKey(r)
	if _, ok := b.cache[key]; ok {
		b.shown = key
		return nil
	}
	load := b.load
	return func() tea.Msg {
		samples, err := load(r.RunID, r.Task)
		return stepsLoadedMsg{key: key, samples: samples, err: err}
	}
}

// Selected returns the highlighted row.
func (b Browser) Selected() (bench.SummaryRow, bool) {
	if len(b.rows) == 0 {
		return bench.SummaryRow{}, false
	}
	return b.rows[b.cursor], true
}

func (b Browser) View() string {
	var s strings.Builder
	s.WriteString(b.theme.title().Render("gpubench results"))
	s.WriteString(b.theme.muted().Render(fmt.Sprintf("  %d rows  theme %s  stage %s", len(b.rows), b.theme.Name, b.stage)))
	s.WriteString("\n\n")

	if len(b.rows) == 0 {
		s.WriteString(b.theme.muted().Render("no summaries found"))
		s.WriteString("\n")
	} else {
		s.WriteString(SummaryTable(b.rows, b.theme, b.cursor))
		s.WriteString("\n")
	}

	if b.err != nil {
		s.WriteString(errorLine(b.theme, b.err))
		s.WriteString("\n")
	} else if samples, ok := b.cache[b.shown]; ok {
		width := max(b.width-20, 20)
		plot := PlotStage(samples, b.stage, width, max(b.height/4, 5))
		trend := b.theme.Sparkline(StageSeries(samples, b.stage), width)
		s.WriteString(b.theme.panel().Render(plot + "\n" + trend))
		s.WriteString("\n")
	}

	s.WriteString(b.theme.keyHint().Render("↑/↓ select · enter plot · s stage · t theme · q quit"))
	return s.String()
}

func errorLine(t Theme, err error) string {
	return t.heat(1, 0, 1).Render("error: " + err.Error())
}
