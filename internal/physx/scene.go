package physx

import "fmt"

const defaultTimestep = 1.0 / 240.0

// Scene owns every body and articulation simulated by its system.
type Scene struct {
	system        *System
	timestep      float64
	hasGround     bool
	groundZ       float64
	bodies        []*Body
	articulations []*Articulation
}

// NewScene creates an empty scene and attaches it to sys.
func NewScene(sys *System) *Scene {
	s := &Scene{system: sys, timestep: defaultTimestep}
	sys.scene = s
	return s
}

func (s *Scene) System() *System { return s.system }

func (s *Scene) SetTimestep(dt float64) { s.timestep = dt }
func (s *Scene) Timestep() float64      { return s.timestep }

func (s *Scene) Bodies() []*Body                 { return s.bodies }
func (s *Scene) Articulations() []*Articulation { return s.articulations }

// Ground reports the ground plane altitude, if any.
func (s *Scene) Ground() (float64, bool) { return s.groundZ, s.hasGround }

func (s *Scene) locked() bool {
	return s.system != nil && s.system.initialized
}

func (s *Scene) AddGround(altitude float64) error {
	if s.locked() {
		return ErrSceneLocked
	}
	s.hasGround = true
	s.groundZ = altitude
	return nil
}

func (s *Scene) AddDynamicBox(name string, halfSize Vec3, pose Pose) (*Body, error) {
	return s.addBody(name, Dynamic, Box(halfSize), pose, 0)
}

func (s *Scene) AddDynamicSphere(name string, radius float64, pose Pose) (*Body, error) {
	return s.addBody(name, Dynamic, Sphere(radius), pose, 0)
}

func (s *Scene) AddStaticBox(name string, halfSize Vec3, pose Pose) (*Body, error) {
	return s.addBody(name, Static, Box(halfSize), pose, 0)
}

// addBody derives the mass from DefaultDensity when mass is not positive.
func (s *Scene) addBody(name string, typ BodyType, shape Shape, pose Pose, mass float64) (*Body, error) {
	if s.locked() {
		return nil, ErrSceneLocked
	}
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if !pose.P.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite pose %v", ErrInvalidShape, pose.P)
	}
	if mass <= 0 {
		mass = shape.Volume() * DefaultDensity
	}
	if name == "" {
		name = fmt.Sprintf("%s_%d", typ, len(s.bodies))
	}
	b := &Body{
		ID:    len(s.bodies),
		Name:  name,
		Type:  typ,
		Shape: shape,
		Pose:  pose,
		Mass:  mass,
	}
	s.bodies = append(s.bodies, b)
	return b, nil
}

// Clear releases every body and the device buffers that mirror them.
func (s *Scene) Clear() {
	if s.system != nil {
		s.system.release()
	}
	s.bodies = nil
	s.articulations = nil
	s.hasGround = false
	s.groundZ = 0
}
