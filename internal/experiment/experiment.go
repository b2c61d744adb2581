package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/tasks"
)

// Experiment runs every selected task in order and publishes one report.
type Experiment struct {
	cfg      *config.Config
	registry *tasks.Registry
	logger   *slog.Logger
	out      io.Writer
	sinks    []bench.Sink
}

func New(cfg *config.Config, registry *tasks.Registry, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		out:      os.Stdout,
	}
}

// SetOutput redirects the per-task summary lines.
func (e *Experiment) SetOutput(w io.Writer) { e.out = w }

// AddSink registers a sink; sinks receive the report in registration order.
func (e *Experiment) AddSink(s bench.Sink) { e.sinks = append(e.sinks, s) }

// Tasks resolves the configured selection into canonical names and checks
// that every one of them has a builder.
func (e *Experiment) Tasks() ([]string, error) {
	raw := e.cfg.TaskNames()
	if len(raw) == 0 {
		return nil, bench.ErrNoTasks
	}
	names := make([]string, len(raw))
	for i, r := range raw {
		names[i] = e.registry.Resolve(r)
		if _, err := e.registry.Builder(names[i]); err != nil {
			var unknown *bench.UnknownTaskError
			if errors.As(err, &unknown) {
				unknown.Name = r
			}
			return nil, err
		}
	}
	return names, nil
}

// Run validates the whole selection before building anything, then builds,
// runs and summarizes each task. It stops at the first failure without
// publishing. Cancellation is checked between tasks.
func (e *Experiment) Run(ctx context.Context) (*bench.Report, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", bench.ErrConfiguration, err)
	}
	names, err := e.Tasks()
	if err != nil {
		return nil, err
	}

	report := &bench.Report{RunID: e.cfg.RunID}
	runner := &bench.Runner{
		RunID:      e.cfg.RunID,
		Difficulty: e.cfg.Difficulty,
		Logger:     e.logger,
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, samples, err := e.runTask(runner, name)
		if err != nil {
			return nil, err
		}
		report.Steps = append(report.Steps, samples...)
		report.Summaries = append(report.Summaries, row)

		total := row.Stat(bench.Total)
		fmt.Fprintf(e.out, "[%s] total_mean_ms=%.4f, total_p95_ms=%.4f\n", name, total.Mean, total.P95)
	}

	if bench.TotalsZero(report.Summaries) {
		e.logger.Warn("all stage timings are zero; profile zones may be compiled out or profiling is disabled",
			"run_id", e.cfg.RunID)
	}

	for _, s := range e.sinks {
		if err := s.Publish(ctx, report); err != nil {
			return report, fmt.Errorf("publish report: %w", err)
		}
	}
	return report, nil
}

func (e *Experiment) runTask(runner *bench.Runner, name string) (bench.SummaryRow, []bench.StageTimingSample, error) {
	builder, err := e.registry.Builder(name)
	if err != nil {
		return bench.SummaryRow{}, nil, err
	}
	e.logger.Info("building task", "task", name, "difficulty", e.cfg.Difficulty, "device", e.cfg.Device)
	rt, err := builder.Build(e.cfg)
	if err != nil {
		return bench.SummaryRow{}, nil, fmt.Errorf("build %s: %w", name, err)
	}

	samples, err := runner.Run(rt, e.cfg.Steps, e.cfg.WarmupSteps, e.cfg.Dt)
	if err != nil {
		return bench.SummaryRow{}, nil, err
	}
	row := bench.Summarize(samples, bench.SummaryInput{
		RunID:       e.cfg.RunID,
		Task:        rt.Name,
		Difficulty:  e.cfg.Difficulty,
		Steps:       e.cfg.Steps,
		WarmupSteps: e.cfg.WarmupSteps,
		Dt:          e.cfg.Dt,
		TaskConfig:  rt.Metadata,
	})
	return row, samples, nil
}
