package physx

import (
	"fmt"
	"math"
)

// DefaultDensity matches the engine default of 1000 kg/m^3.
const DefaultDensity = 1000.0

type BodyType int

const (
	Static BodyType = iota
	Dynamic
	// Kinematic bodies are moved by articulation kinematics and are
	// infinitely massive to the contact solver.
	Kinematic
)

func (t BodyType) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	}
	return "static"
}

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
)

type Shape struct {
	Kind     ShapeKind
	Radius   float64
	HalfSize Vec3
}

func Sphere(radius float64) Shape { return Shape{Kind: ShapeSphere, Radius: radius} }

func Box(halfSize Vec3) Shape { return Shape{Kind: ShapeBox, HalfSize: halfSize} }

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeSphere:
		if !(s.Radius > 0) {
			return fmt.Errorf("%w: sphere radius %g", ErrInvalidShape, s.Radius)
		}
	case ShapeBox:
		for _, h := range s.HalfSize {
			if !(h > 0) {
				return fmt.Errorf("%w: box half size %v", ErrInvalidShape, s.HalfSize)
			}
		}
	default:
		return fmt.Errorf("%w: unknown shape kind %d", ErrInvalidShape, s.Kind)
	}
	return nil
}

// Extent is the half size of the shape's bounding box.
func (s Shape) Extent() Vec3 {
	if s.Kind == ShapeSphere {
		return Vec3{s.Radius, s.Radius, s.Radius}
	}
	return s.HalfSize
}

func (s Shape) Volume() float64 {
	if s.Kind == ShapeSphere {
		return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
	}
	return 8 * s.HalfSize[0] * s.HalfSize[1] * s.HalfSize[2]
}

type Body struct {
	ID       int
	Name     string
	Type     BodyType
	Shape    Shape
	Pose     Pose
	Velocity Vec3
	Mass     float64

	// group is shared by the links of one articulation; links in the same
	// group never collide with each other.
	group int
}

func (b *Body) invMass() float64 {
	if b.Type != Dynamic || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}
