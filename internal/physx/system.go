package physx

import (
	"fmt"

	"github.com/san-kum/gpubench/internal/compute"
)

type Options struct {
	Profile          bool
	SolverIterations int
	Gravity          Vec3
	Friction         float64
	ContactMargin    float64
}

func DefaultOptions() Options {
	return Options{
		Profile:          true,
		SolverIterations: 4,
		Gravity:          Vec3{0, 0, -9.81},
		Friction:         0.5,
		ContactMargin:    0.002,
	}
}

// buffers is the structure-of-arrays copy of the scene on the device.
type buffers struct {
	n       int
	pos     []Vec3
	vel     []Vec3
	extent  []Vec3
	radius  []float64
	kind    []ShapeKind
	invMass []float64
	lo, hi  []Vec3
	order   []int32
}

// System steps one scene on one device.
type System struct {
	device   compute.Device
	opts     Options
	scene    *Scene
	profiler *StageProfiler

	initialized bool
	buf         *buffers
	pairs       []pair
	contacts    []contact
	batches     [][]int32
	overflow    []int32
	steps       int
}

func NewSystem(dev compute.Device, opts Options) *System {
	if opts.SolverIterations < 1 {
		opts.SolverIterations = 1
	}
	s := &System{device: dev, opts: opts}
	if opts.Profile {
		s.profiler = NewStageProfiler()
	}
	return s
}

func (s *System) Device() compute.Device { return s.device }

// GPU reports whether the system executes on a GPU-class device.
func (s *System) GPU() bool { return s.device != nil && s.device.GPU() }

func (s *System) Scene() *Scene     { return s.scene }
func (s *System) StepCount() int    { return s.steps }
func (s *System) Initialized() bool { return s.initialized }

// InitGPU uploads the scene into device buffers and locks it.
func (s *System) InitGPU() error {
	if s.scene == nil {
		return ErrNoScene
	}
	if s.initialized {
		return nil
	}
	if err := s.device.Init(); err != nil {
		return fmt.Errorf("init device %s: %w", s.device.Name(), err)
	}

	bodies := s.scene.bodies
	n := len(bodies)
	b := &buffers{
		n:       n,
		pos:     make([]Vec3, n),
		vel:     make([]Vec3, n),
		extent:  make([]Vec3, n),
		radius:  make([]float64, n),
		kind:    make([]ShapeKind, n),
		invMass: make([]float64, n),
		lo:      make([]Vec3, n),
		hi:      make([]Vec3, n),
		order:   make([]int32, n),
	}
	err := s.device.Dispatch(n, 256, func(start, end int) error {
		for i := start; i < end; i++ {
			body := bodies[i]
			b.pos[i] = body.Pose.P
			b.vel[i] = body.Velocity
			b.extent[i] = body.Shape.Extent()
			b.radius[i] = body.Shape.Radius
			b.kind[i] = body.Shape.Kind
			b.invMass[i] = body.invMass()
			b.order[i] = int32(i)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload bodies: %w", err)
	}

	s.buf = b
	s.initialized = true
	return nil
}

func (s *System) release() {
	if !s.initialized {
		return
	}
	s.buf = nil
	s.pairs = nil
	s.contacts = nil
	s.batches = nil
	s.overflow = nil
	s.initialized = false
	s.device.Release()
}

// Step advances the scene by one timestep.
func (s *System) Step() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	dt := s.scene.timestep

	phases := []struct {
		zone string
		fn   func(float64) error
	}{
		{"Sim.updateArticulationDrives", s.updateDrives},
		{"Sim.integrateVelocities", s.integrateVelocities},
		{"Sim.broadPhase", s.broadPhase},
		{"Sim.narrowPhase", s.narrowPhase},
		{"Solver.constraintPartition", s.partitionConstraints},
		{"Solver.solveConstraints", s.solveConstraints},
		{"Sim.integratePositions", s.integratePositions},
		{"Sim.fetchResults", s.fetchResults},
	}
	for _, ph := range phases {
		end := s.zone(ph.zone)
		err := ph.fn(dt)
		end()
		if err != nil {
			return fmt.Errorf("step %d: %s: %w", s.steps, ph.zone, err)
		}
	}
	s.steps++
	return nil
}

func (s *System) zone(name string) func() {
	if s.profiler == nil {
		return func() {}
	}
	return s.profiler.Zone(name)
}

// Profiler returns nil when profiling is disabled.
func (s *System) Profiler() *StageProfiler { return s.profiler }

func (s *System) BeginProfileFrame() {
	if s.profiler != nil {
		s.profiler.BeginFrame()
	}
}

func (s *System) EndProfileFrame() {
	if s.profiler != nil {
		s.profiler.EndFrame()
	}
}

// LastFrameStageMs returns nil when profiling is disabled.
func (s *System) LastFrameStageMs() map[string]float64 {
	if s.profiler == nil {
		return nil
	}
	return s.profiler.LastFrameStageMs()
}

func (s *System) LastFrameZoneMs() map[string]float64 {
	if s.profiler == nil {
		return nil
	}
	return s.profiler.LastFrameZoneMs()
}

func (s *System) integrateVelocities(dt float64) error {
	b := s.buf
	dv := s.opts.Gravity.Scale(dt)
	return s.device.Dispatch(b.n, 256, func(start, end int) error {
		for i := start; i < end; i++ {
			if b.invMass[i] > 0 {
				b.vel[i] = b.vel[i].Add(dv)
			}
		}
		return nil
	})
}

func (s *System) integratePositions(dt float64) error {
	b := s.buf
	return s.device.Dispatch(b.n, 256, func(start, end int) error {
		for i := start; i < end; i++ {
			if b.invMass[i] > 0 {
				b.pos[i] = b.pos[i].Add(b.vel[i].Scale(dt))
			}
		}
		return nil
	})
}

func (s *System) fetchResults(float64) error {
	b := s.buf
	bodies := s.scene.bodies
	return s.device.Dispatch(b.n, 256, func(start, end int) error {
		for i := start; i < end; i++ {
			bodies[i].Pose.P = b.pos[i]
			bodies[i].Velocity = b.vel[i]
		}
		return nil
	})
}
