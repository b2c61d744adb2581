package bench

import (
	"context"
	"strconv"
)

// Report is everything one experiment produced, in execution order.
type Report struct {
	RunID     string
	Steps     []StageTimingSample
	Summaries []SummaryRow
}

// Sink persists a finished report.
type Sink interface {
	Publish(ctx context.Context, r *Report) error
}

var stepIdentity = []string{"run_id", "task", "difficulty", "step", "dt"}

var summaryIdentity = []string{"run_id", "task", "difficulty", "steps", "warmup_steps", "dt", "task_config"}

var statNames = []string{"mean", "p50", "p95", "max"}

// StepColumns is the header of per-step rows.
func StepColumns() []string {
	cols := append([]string(nil), stepIdentity...)
	for _, st := range Stages() {
		cols = append(cols, st.Key())
	}
	return cols
}

// SummaryColumns is the header of summary rows: the identity columns
// followed by <stage>_<stat>_ms for every stage.
func SummaryColumns() []string {
	cols := append([]string(nil), summaryIdentity...)
	for _, st := range Stages() {
		for _, stat := range statNames {
			cols = append(cols, st.String()+"_"+stat+"_ms")
		}
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Record renders the sample in StepColumns order.
func (s StageTimingSample) Record() []string {
	rec := []string{s.RunID, s.Task, s.Difficulty, strconv.Itoa(s.Step), formatFloat(s.Dt)}
	for _, v := range s.Ms {
		rec = append(rec, formatFloat(v))
	}
	return rec
}

// Record renders the row in SummaryColumns order.
func (r SummaryRow) Record() []string {
	rec := []string{
		r.RunID, r.Task, r.Difficulty,
		strconv.Itoa(r.Steps), strconv.Itoa(r.WarmupSteps),
		formatFloat(r.Dt), r.TaskConfig,
	}
	for _, st := range r.Stages {
		rec = append(rec, formatFloat(st.Mean), formatFloat(st.P50), formatFloat(st.P95), formatFloat(st.Max))
	}
	return rec
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *Report) error

func (f SinkFunc) Publish(ctx context.Context, r *Report) error { return f(ctx, r) }
