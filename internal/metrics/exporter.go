// Package metrics exports benchmark summaries as Prometheus gauges in the
// node_exporter textfile format.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/gpubench/internal/bench"
)

const namespace = "gpubench"

// Exporter holds the gauges of the most recent report on a private registry.
type Exporter struct {
	path     string
	registry *prometheus.Registry

	stageMs  *prometheus.GaugeVec
	steps    *prometheus.GaugeVec
	warmup   *prometheus.GaugeVec
	timestep *prometheus.GaugeVec
}

// NewExporter writes to path on every Publish. An empty path keeps the
// gauges in memory only.
func NewExporter(path string) *Exporter {
	e := &Exporter{
		path:     path,
		registry: prometheus.NewRegistry(),
		stageMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_ms",
			Help:      "Per-stage step time in milliseconds.",
		}, []string{"run_id", "task", "difficulty", "stage", "stat"}),
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measured_steps",
			Help:      "Number of timed steps per task.",
		}, []string{"run_id", "task", "difficulty"}),
		warmup: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warmup_steps",
			Help:      "Number of untimed warmup steps per task.",
		}, []string{"run_id", "task", "difficulty"}),
		timestep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timestep_seconds",
			Help:      "Simulation timestep.",
		}, []string{"run_id", "task", "difficulty"}),
	}
	e.registry.MustRegister(e.stageMs, e.steps, e.warmup, e.timestep)
	return e
}

func (e *Exporter) Name() string { return "prometheus" }

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Observe replaces the gauges with the summaries of r.
func (e *Exporter) Observe(r *bench.Report) {
	e.Reset()
	for _, row := range r.Summaries {
		e.steps.WithLabelValues(row.RunID, row.Task, row.Difficulty).Set(float64(row.Steps))
		e.warmup.WithLabelValues(row.RunID, row.Task, row.Difficulty).Set(float64(row.WarmupSteps))
		e.timestep.WithLabelValues(row.RunID, row.Task, row.Difficulty).Set(row.Dt)
		for _, st := range bench.Stages() {
			s := row.Stat(st)
			for stat, v := range map[string]float64{"mean": s.Mean, "p50": s.P50, "p95": s.P95, "max": s.Max} {
				e.stageMs.WithLabelValues(row.RunID, row.Task, row.Difficulty, st.String(), stat).Set(v)
			}
		}
	}
}

func (e *Exporter) Reset() {
	e.stageMs.Reset()
	e.steps.Reset()
	e.warmup.Reset()
	e.timestep.Reset()
}

// Publish observes r and atomically rewrites the textfile.
func (e *Exporter) Publish(_ context.Context, r *bench.Report) error {
	e.Observe(r)
	if e.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return fmt.Errorf("write prometheus textfile %s: %w", e.path, err)
	}
	return nil
}

// Value returns one stage gauge, or false if it was never set.
func (e *Exporter) Value(runID, task, difficulty string, stage bench.Stage, stat string) (float64, bool) {
	families, err := e.registry.Gather()
	if err != nil {
		return 0, false
	}
	want := map[string]string{
		"run_id": runID, "task": task, "difficulty": difficulty,
		"stage": stage.String(), "stat": stat,
	}
	for _, mf := range families {
		if mf.GetName() != namespace+"_stage_ms" {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetGauge().GetValue(), true
		}
	}
	return 0, false
}

// Count is the number of stage series currently exported.
func (e *Exporter) Count() int {
	families, err := e.registry.Gather()
	if err != nil {
		return 0
	}
	n := 0
	for _, mf := range families {
		if mf.GetName() == namespace+"_stage_ms" {
			n += len(mf.GetMetric())
		}
	}
	return n
}
