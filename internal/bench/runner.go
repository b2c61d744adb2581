package bench

import (
	"fmt"
	"log/slog"
)

// Runner executes the warmup and measured phases of one task.
type Runner struct {
	RunID      string
	Difficulty string
	Logger     *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run initializes rt's system, performs warmup untimed steps and then steps
// measured steps inside profile frames. It returns one sample per measured
// step in step order. The scene is cleared before Run returns, whatever
// the outcome once the system was accepted.
func (r *Runner) Run(rt *Runtime, steps, warmup int, dt float64) ([]StageTimingSample, error) {
	if rt == nil || rt.System == nil {
		return nil, fmt.Errorf("%w: nil runtime", ErrConfiguration)
	}
	if !rt.System.GPU() {
		return nil, fmt.Errorf("%w: task %s", ErrNotGPU, rt.Name)
	}
	if steps < 0 || warmup < 0 {
		return nil, fmt.Errorf("%w: negative step count (steps=%d, warmup=%d)", ErrConfiguration, steps, warmup)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", ErrConfiguration, dt)
	}
	if rt.Scene != nil {
		defer rt.Scene.Clear()
	}

	log := r.logger().With("task", rt.Name, "run_id", r.RunID)
	if err := rt.System.InitGPU(); err != nil {
		return nil, fmt.Errorf("init gpu for %s: %w", rt.Name, err)
	}

	log.Debug("warmup", "steps", warmup)
	for i := 0; i < warmup; i++ {
		if rt.BeforeStep != nil {
			rt.BeforeStep(i, float64(i)*dt)
		}
		if err := rt.System.Step(); err != nil {
			return nil, fmt.Errorf("%s warmup step %d: %w", rt.Name, i, err)
		}
	}

	log.Debug("measure", "steps", steps)
	samples := make([]StageTimingSample, 0, steps)
	for i := 0; i < steps; i++ {
		if rt.BeforeStep != nil {
			rt.BeforeStep(i, float64(i)*dt)
		}
		rt.System.BeginProfileFrame()
		err := rt.System.Step()
		rt.System.EndProfileFrame()
		if err != nil {
			return nil, fmt.Errorf("%s step %d: %w", rt.Name, i, err)
		}

		s := StageTimingSample{
			RunID:      r.RunID,
			Task:       rt.Name,
			Difficulty: r.Difficulty,
			Step:       i,
			Dt:         dt,
		}
		s.fillStages(rt.System.LastFrameStageMs())
		if s.Ms[Other] < 0 {
			log.Warn("negative residual stage time, instrumentation is inconsistent",
				"step", i, "other_ms", s.Ms[Other])
		}
		samples = append(samples, s)
	}

	if InstrumentationUnavailable(samples) {
		log.Warn("all stage timings are zero; profile zones may be compiled out or profiling disabled")
	}
	return samples, nil
}

// InstrumentationUnavailable reports whether a non-empty run recorded a
// zero total on every step.
func InstrumentationUnavailable(samples []StageTimingSample) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if s.Ms[Total] != 0 {
			return false
		}
	}
	return true
}
