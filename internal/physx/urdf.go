package physx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type JointType string

const (
	JointFixed      JointType = "fixed"
	JointRevolute   JointType = "revolute"
	JointContinuous JointType = "continuous"
	JointPrismatic  JointType = "prismatic"
	JointPlanar     JointType = "planar"
	JointFloating   JointType = "floating"
)

// DOF reports the number of reduced coordinates a joint type contributes.
func (t JointType) DOF() int {
	switch t {
	case JointRevolute, JointContinuous, JointPrismatic:
		return 1
	case JointPlanar:
		return 2
	case JointFloating:
		return 6
	}
	return 0
}

func (t JointType) valid() bool {
	switch t {
	case JointFixed, JointRevolute, JointContinuous, JointPrismatic, JointPlanar, JointFloating:
		return true
	}
	return false
}

type GeometryKind int

const (
	GeometryBox GeometryKind = iota
	GeometrySphere
	GeometryCylinder
)

type Geometry struct {
	Kind   GeometryKind
	Size   Vec3
	Radius float64
	Length float64
	Origin Vec3
}

// shape approximates the geometry with an axis-aligned collision shape.
func (g Geometry) shape() Shape {
	switch g.Kind {
	case GeometrySphere:
		return Sphere(g.Radius)
	case GeometryCylinder:
		return Box(Vec3{g.Radius, g.Radius, g.Length / 2})
	}
	return Box(g.Size.Scale(0.5))
}

type URDFLink struct {
	Name      string
	Mass      float64
	Collision *Geometry
}

type URDFJoint struct {
	Name        string
	Type        JointType
	Parent      string
	Child       string
	Origin      Vec3
	OriginRPY   Vec3
	Axis        Vec3
	Lower       float64
	Upper       float64
	Effort      float64
	MaxVelocity float64
}

// URDF is a parsed robot description.
type URDF struct {
	Name   string
	Links  []URDFLink
	Joints []URDFJoint
}

// Root returns the single link that is no joint's child.
func (u *URDF) Root() (string, error) {
	children := make(map[string]bool, len(u.Joints))
	for _, j := range u.Joints {
		children[j.Child] = true
	}
	var roots []string
	for _, l := range u.Links {
		if !children[l.Name] {
			roots = append(roots, l.Name)
		}
	}
	if len(roots) != 1 {
		return "", fmt.Errorf("%w: expected one root link, found %d", ErrInvalidURDF, len(roots))
	}
	return roots[0], nil
}

func (u *URDF) link(name string) (int, bool) {
	for i := range u.Links {
		if u.Links[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

type xmlOrigin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

type xmlGeometry struct {
	Box *struct {
		Size string `xml:"size,attr"`
	} `xml:"box"`
	Sphere *struct {
		Radius float64 `xml:"radius,attr"`
	} `xml:"sphere"`
	Cylinder *struct {
		Radius float64 `xml:"radius,attr"`
		Length float64 `xml:"length,attr"`
	} `xml:"cylinder"`
}

type xmlRobot struct {
	XMLName xml.Name `xml:"robot"`
	Name    string   `xml:"name,attr"`
	Links   []struct {
		Name     string `xml:"name,attr"`
		Inertial *struct {
			Mass struct {
				Value float64 `xml:"value,attr"`
			} `xml:"mass"`
		} `xml:"inertial"`
		Collisions []struct {
			Origin   *xmlOrigin  `xml:"origin"`
			Geometry xmlGeometry `xml:"geometry"`
		} `xml:"collision"`
	} `xml:"link"`
	Joints []struct {
		Name   string     `xml:"name,attr"`
		Type   string     `xml:"type,attr"`
		Origin *xmlOrigin `xml:"origin"`
		Parent struct {
			Link string `xml:"link,attr"`
		} `xml:"parent"`
		Child struct {
			Link string `xml:"link,attr"`
		} `xml:"child"`
		Axis *struct {
			XYZ string `xml:"xyz,attr"`
		} `xml:"axis"`
		Limit *struct {
			Lower    float64 `xml:"lower,attr"`
			Upper    float64 `xml:"upper,attr"`
			Effort   float64 `xml:"effort,attr"`
			Velocity float64 `xml:"velocity,attr"`
		} `xml:"limit"`
	} `xml:"joint"`
}

// LoadURDF reads and parses a URDF file.
func LoadURDF(path string) (*URDF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := ParseURDF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// ParseURDF decodes a robot description and checks that its joints form a
// tree over its links.
func ParseURDF(r io.Reader) (*URDF, error) {
	var raw xmlRobot
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURDF, err)
	}
	if len(raw.Links) == 0 {
		return nil, fmt.Errorf("%w: robot %q has no links", ErrInvalidURDF, raw.Name)
	}

	u := &URDF{Name: raw.Name}
	for _, l := range raw.Links {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: link without name", ErrInvalidURDF)
		}
		if _, dup := u.link(l.Name); dup {
			return nil, fmt.Errorf("%w: duplicate link %q", ErrInvalidURDF, l.Name)
		}
		link := URDFLink{Name: l.Name}
		if l.Inertial != nil {
			link.Mass = l.Inertial.Mass.Value
		}
		for _, c := range l.Collisions {
			g, ok, err := parseGeometry(c.Geometry)
			if err != nil {
				return nil, fmt.Errorf("%w: link %q: %v", ErrInvalidURDF, l.Name, err)
			}
			if !ok {
				continue
			}
			if c.Origin != nil {
				if g.Origin, err = parseVec3(c.Origin.XYZ); err != nil {
					return nil, fmt.Errorf("%w: link %q: %v", ErrInvalidURDF, l.Name, err)
				}
			}
			link.Collision = &g
			break
		}
		u.Links = append(u.Links, link)
	}

	parentOf := make(map[string]string, len(raw.Joints))
	for _, j := range raw.Joints {
		joint := URDFJoint{
			Name:   j.Name,
			Type:   JointType(strings.ToLower(j.Type)),
			Parent: j.Parent.Link,
			Child:  j.Child.Link,
			Axis:   Vec3{1, 0, 0},
		}
		if !joint.Type.valid() {
			return nil, fmt.Errorf("%w: joint %q has unknown type %q", ErrInvalidURDF, j.Name, j.Type)
		}
		if _, ok := u.link(joint.Parent); !ok {
			return nil, fmt.Errorf("%w: joint %q references unknown parent %q", ErrInvalidURDF, j.Name, joint.Parent)
		}
		if _, ok := u.link(joint.Child); !ok {
			return nil, fmt.Errorf("%w: joint %q references unknown child %q", ErrInvalidURDF, j.Name, joint.Child)
		}
		if p, ok := parentOf[joint.Child]; ok {
			return nil, fmt.Errorf("%w: link %q has two parents (%q, %q)", ErrInvalidURDF, joint.Child, p, joint.Parent)
		}
		parentOf[joint.Child] = joint.Parent

		var err error
		if j.Origin != nil {
			if joint.Origin, err = parseVec3(j.Origin.XYZ); err != nil {
				return nil, fmt.Errorf("%w: joint %q: %v", ErrInvalidURDF, j.Name, err)
			}
			if joint.OriginRPY, err = parseVec3(j.Origin.RPY); err != nil {
				return nil, fmt.Errorf("%w: joint %q: %v", ErrInvalidURDF, j.Name, err)
			}
		}
		if j.Axis != nil && j.Axis.XYZ != "" {
			axis, err := parseVec3(j.Axis.XYZ)
			if err != nil {
				return nil, fmt.Errorf("%w: joint %q: %v", ErrInvalidURDF, j.Name, err)
			}
			joint.Axis = axis.Normalize(Vec3{1, 0, 0})
		}
		if j.Limit != nil {
			joint.Lower = j.Limit.Lower
			joint.Upper = j.Limit.Upper
			joint.Effort = j.Limit.Effort
			joint.MaxVelocity = j.Limit.Velocity
		}
		u.Joints = append(u.Joints, joint)
	}

	root, err := u.Root()
	if err != nil {
		return nil, err
	}
	// Every link must hang off the root; a cycle leaves some unreachable.
	if n := len(u.order(root)); n != len(u.Links)-1 {
		return nil, fmt.Errorf("%w: %d of %d links unreachable from root %q",
			ErrInvalidURDF, len(u.Links)-1-n, len(u.Links), root)
	}
	return u, nil
}

// order returns joint indices in breadth-first order from root.
func (u *URDF) order(root string) []int {
	var out []int
	queue := []string{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for i, j := range u.Joints {
			if j.Parent == parent {
				out = append(out, i)
				queue = append(queue, j.Child)
			}
		}
	}
	return out
}

func parseGeometry(g xmlGeometry) (Geometry, bool, error) {
	switch {
	case g.Box != nil:
		size, err := parseVec3(g.Box.Size)
		if err != nil {
			return Geometry{}, false, err
		}
		return Geometry{Kind: GeometryBox, Size: size}, true, nil
	case g.Sphere != nil:
		return Geometry{Kind: GeometrySphere, Radius: g.Sphere.Radius}, true, nil
	case g.Cylinder != nil:
		return Geometry{Kind: GeometryCylinder, Radius: g.Cylinder.Radius, Length: g.Cylinder.Length}, true, nil
	}
	// Meshes and other geometry have no collision approximation.
	return Geometry{}, false, nil
}

func parseVec3(s string) (Vec3, error) {
	var v Vec3
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return v, nil
	}
	if len(fields) != 3 {
		return v, fmt.Errorf("expected 3 components, got %q", s)
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, fmt.Errorf("parse %q: %w", s, err)
		}
		v[i] = x
	}
	return v, nil
}
