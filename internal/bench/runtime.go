package bench

import "fmt"

// PhysicsSystem is the engine capability the runner drives.
type PhysicsSystem interface {
	GPU() bool
	InitGPU() error
	Step() error
	BeginProfileFrame()
	EndProfileFrame()
	// LastFrameStageMs returns stage milliseconds keyed "<stage>_ms" for
	// the last completed profile frame, or nil when profiling is off.
	LastFrameStageMs() map[string]float64
}

// Scene owns the bodies of one task. Clear releases them together with the
// device resources that mirror them.
type Scene interface {
	Clear()
}

// BeforeStepFunc is called once before each physics step with the step
// index of the current phase and its simulated time.
type BeforeStepFunc func(step int, t float64)

// Runtime is one runnable task instance.
type Runtime struct {
	Name       string
	System     PhysicsSystem
	Scene      Scene
	BeforeStep BeforeStepFunc
	Metadata   Metadata
}

// NewRuntime rejects systems that are not GPU-backed.
func NewRuntime(name string, sys PhysicsSystem, scene Scene, hook BeforeStepFunc, md Metadata) (*Runtime, error) {
	if sys == nil || !sys.GPU() {
		return nil, fmt.Errorf("%w: task %s", ErrNotGPU, name)
	}
	return &Runtime{
		Name:       name,
		System:     sys,
		Scene:      scene,
		BeforeStep: hook,
		Metadata:   md,
	}, nil
}
