package physx

import (
	"fmt"
	"math"
)

const (
	// linkRadius sizes the collision sphere of links without collision geometry.
	linkRadius = 0.02
	// jointInertiaScale maps child link mass to reduced joint inertia.
	jointInertiaScale = 0.1
	minJointInertia   = 1e-3
)

type LoaderOptions struct {
	FixRootLink bool
	RootPose    Pose
}

type articulationLink struct {
	body   *Body
	offset Vec3 // collision origin in the link frame
	pos    Vec3
	rot    mat3
}

// Joint is one reduced-coordinate joint of an articulation.
type Joint struct {
	Name string
	Type JointType

	parent, child int
	origin        Vec3
	originRot     mat3
	axis          Vec3
	lower, upper  float64
	inertia       float64

	q, qd      []float64
	target     []float64
	velTarget  []float64
	stiffness  float64
	damping    float64
	forceLimit float64
}

func (j *Joint) DOF() int { return j.Type.DOF() }

// SetDriveProperties configures a force-mode PD drive. A non-positive force
// limit leaves the drive unclamped.
func (j *Joint) SetDriveProperties(stiffness, damping, forceLimit float64) {
	j.stiffness = stiffness
	j.damping = damping
	j.forceLimit = forceLimit
}

func (j *Joint) SetDriveTarget(target float64) {
	for i := range j.target {
		j.target[i] = target
	}
}

func (j *Joint) SetDriveVelocityTarget(v float64) {
	for i := range j.velTarget {
		j.velTarget[i] = v
	}
}

func (j *Joint) DriveTarget() []float64 { return append([]float64(nil), j.target...) }
func (j *Joint) Position() []float64    { return append([]float64(nil), j.q...) }
func (j *Joint) Velocity() []float64    { return append([]float64(nil), j.qd...) }

func (j *Joint) limited() bool {
	return (j.Type == JointRevolute || j.Type == JointPrismatic) && j.upper > j.lower
}

// drive advances the joint with an implicit PD step, clamped by the force
// limit and the joint limits.
func (j *Joint) drive(dt float64) {
	k, c, inertia := j.stiffness, j.damping, j.inertia
	for i := range j.q {
		if k > 0 || c > 0 {
			next := (inertia*j.qd[i] + dt*(k*(j.target[i]-j.q[i])+c*j.velTarget[i])) /
				(inertia + dt*c + dt*dt*k)
			tau := inertia * (next - j.qd[i]) / dt
			if j.forceLimit > 0 {
				tau = math.Max(-j.forceLimit, math.Min(tau, j.forceLimit))
			}
			j.qd[i] += tau * dt / inertia
		}
		j.q[i] += j.qd[i] * dt
		if j.limited() {
			if j.q[i] < j.lower {
				j.q[i], j.qd[i] = j.lower, 0
			} else if j.q[i] > j.upper {
				j.q[i], j.qd[i] = j.upper, 0
			}
		}
	}
}

// motion returns the joint frame displacement produced by the joint coordinates.
func (j *Joint) motion() (Vec3, mat3) {
	switch j.Type {
	case JointRevolute, JointContinuous:
		return Vec3{}, axisAngle(j.axis, j.q[0])
	case JointPrismatic:
		return j.axis.Scale(j.q[0]), identity
	case JointPlanar:
		u := j.axis.Cross(Vec3{0, 0, 1}).Normalize(Vec3{1, 0, 0})
		v := j.axis.Cross(u)
		return u.Scale(j.q[0]).Add(v.Scale(j.q[1])), identity
	case JointFloating:
		return Vec3{j.q[0], j.q[1], j.q[2]}, rpy(Vec3{j.q[3], j.q[4], j.q[5]})
	}
	return Vec3{}, identity
}

// Articulation is a tree of links connected by joints. The root link is a
// collision body of the scene; child links follow it kinematically.
type Articulation struct {
	Name string

	scene  *Scene
	links  []*articulationLink
	joints []*Joint
}

func (a *Articulation) Root() *Body { return a.links[0].body }

func (a *Articulation) Links() []*Body {
	out := make([]*Body, len(a.links))
	for i, l := range a.links {
		out[i] = l.body
	}
	return out
}

// Joints returns every joint, including fixed ones, in breadth-first order.
func (a *Articulation) Joints() []*Joint { return a.joints }

// ActiveJoints returns the joints with at least one degree of freedom.
func (a *Articulation) ActiveJoints() []*Joint {
	var out []*Joint
	for _, j := range a.joints {
		if j.DOF() > 0 {
			out = append(out, j)
		}
	}
	return out
}

// Qpos concatenates the coordinates of the active joints.
func (a *Articulation) Qpos() []float64 {
	var out []float64
	for _, j := range a.ActiveJoints() {
		out = append(out, j.q...)
	}
	return out
}

func (a *Articulation) RootPose() Pose {
	root := a.links[0]
	return Pose{P: root.body.Pose.P.Sub(root.offset)}
}

// SetRootPose moves the whole articulation. It is only allowed before the
// scene is uploaded.
func (a *Articulation) SetRootPose(p Pose) error {
	if a.scene.locked() {
		return ErrSceneLocked
	}
	root := a.links[0]
	root.body.Pose.P = p.P.Add(root.offset)
	a.forwardKinematics(root.body.Pose.P)
	for _, l := range a.links[1:] {
		l.body.Pose.P = l.pos.Add(l.rot.apply(l.offset))
	}
	return nil
}

// forwardKinematics places every link frame given the root body center.
func (a *Articulation) forwardKinematics(rootCenter Vec3) {
	root := a.links[0]
	root.pos = rootCenter.Sub(root.offset)
	root.rot = identity
	for _, j := range a.joints {
		parent, child := a.links[j.parent], a.links[j.child]
		rot := parent.rot.mul(j.originRot)
		pos := parent.pos.Add(parent.rot.apply(j.origin))
		d, r := j.motion()
		child.pos = pos.Add(rot.apply(d))
		child.rot = rot.mul(r)
	}
}

// LoadArticulation instantiates a parsed robot in the scene.
func (s *Scene) LoadArticulation(u *URDF, opts LoaderOptions) (*Articulation, error) {
	if s.locked() {
		return nil, ErrSceneLocked
	}
	rootName, err := u.Root()
	if err != nil {
		return nil, err
	}
	group := len(s.articulations) + 1
	art := &Articulation{Name: u.Name, scene: s}
	index := make(map[string]int, len(u.Links))

	addLink := func(name string, typ BodyType) error {
		li, _ := u.link(name)
		l := u.Links[li]
		shape := Sphere(linkRadius)
		var offset Vec3
		if l.Collision != nil {
			shape = l.Collision.shape()
			offset = l.Collision.Origin
		}
		body, err := s.addBody(u.Name+"/"+name, typ, shape, Pose{}, l.Mass)
		if err != nil {
			return fmt.Errorf("link %q: %w", name, err)
		}
		body.group = group
		index[name] = len(art.links)
		art.links = append(art.links, &articulationLink{body: body, offset: offset, rot: identity})
		return nil
	}

	rootType := Dynamic
	if opts.FixRootLink {
		rootType = Static
	}
	if err := addLink(rootName, rootType); err != nil {
		return nil, err
	}
	for _, ji := range u.order(rootName) {
		uj := u.Joints[ji]
		if err := addLink(uj.Child, Kinematic); err != nil {
			return nil, err
		}
		dof := uj.Type.DOF()
		child := art.links[index[uj.Child]]
		art.joints = append(art.joints, &Joint{
			Name:      uj.Name,
			Type:      uj.Type,
			parent:    index[uj.Parent],
			child:     index[uj.Child],
			origin:    uj.Origin,
			originRot: rpy(uj.OriginRPY),
			axis:      uj.Axis,
			lower:     uj.Lower,
			upper:     uj.Upper,
			inertia:   math.Max(jointInertiaScale*child.body.Mass, minJointInertia),
			q:         make([]float64, dof),
			qd:        make([]float64, dof),
			target:    make([]float64, dof),
			velTarget: make([]float64, dof),
		})
	}

	s.articulations = append(s.articulations, art)
	if err := art.SetRootPose(opts.RootPose); err != nil {
		return nil, err
	}
	return art, nil
}

// updateDrives integrates joint coordinates and moves the kinematic links
// to follow their root.
func (s *System) updateDrives(dt float64) error {
	arts := s.scene.articulations
	b := s.buf
	return s.device.Dispatch(len(arts), 1, func(start, end int) error {
		for _, a := range arts[start:end] {
			for _, j := range a.joints {
				j.drive(dt)
			}
			a.forwardKinematics(b.pos[a.links[0].body.ID])
			for _, l := range a.links[1:] {
				id := l.body.ID
				next := l.pos.Add(l.rot.apply(l.offset))
				b.vel[id] = next.Sub(b.pos[id]).Scale(1 / dt)
				b.pos[id] = next
			}
		}
		return nil
	})
}
