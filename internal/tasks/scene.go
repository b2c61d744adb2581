package tasks

import (
	"errors"
	"fmt"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/compute"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/physx"
)

// openDevice is swapped in tests to observe device lifetime.
var openDevice = compute.Open

// newScene opens the configured device and returns an empty scene with a
// ground plane at z=0.
func newScene(cfg *config.Config) (*physx.System, *physx.Scene, error) {
	dev, err := openDevice(cfg.Device)
	if err != nil {
		if errors.Is(err, compute.ErrUnknownDevice) || errors.Is(err, compute.ErrCUDAUnavailable) {
			return nil, nil, fmt.Errorf("%w: %w", bench.ErrConfiguration, err)
		}
		return nil, nil, err
	}
	opts := physx.DefaultOptions()
	opts.Profile = cfg.Profile
	sys := physx.NewSystem(dev, opts)
	scene := physx.NewScene(sys)
	scene.SetTimestep(cfg.Dt)
	if err := scene.AddGround(0); err != nil {
		dev.Release()
		return nil, nil, err
	}
	return sys, scene, nil
}

// abandon releases the device of a scene that never became a runtime.
func abandon(sys *physx.System, err error) (*bench.Runtime, error) {
	sys.Device().Release()
	return nil, err
}

// finish wraps the built scene in a runtime, releasing the device when the
// runtime is refused.
func finish(name string, sys *physx.System, scene *physx.Scene, hook bench.BeforeStepFunc, md bench.Metadata) (*bench.Runtime, error) {
	rt, err := bench.NewRuntime(name, sys, scene, hook, md)
	if err != nil {
		return abandon(sys, err)
	}
	return rt, nil
}

func countFor(task string, cfg *config.Config, override *int) (int, error) {
	if !config.ValidDifficulty(cfg.Difficulty) {
		return 0, fmt.Errorf("%w: unknown difficulty %q", bench.ErrConfiguration, cfg.Difficulty)
	}
	n, ok := config.ResolveCount(task, cfg.Difficulty, override)
	if !ok {
		return 0, fmt.Errorf("%w: unknown difficulty %q", bench.ErrConfiguration, cfg.Difficulty)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative body count %d", bench.ErrConfiguration, n)
	}
	return n, nil
}
