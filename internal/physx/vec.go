package physx

import "math"

type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a[0] * s, a[1] * s, a[2] * s} }

func (a Vec3) Dot(b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }

func (a Vec3) IsFinite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Pose places a body in world space. Bodies do not rotate.
type Pose struct {
	P Vec3
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Normalize returns the unit vector along a, or fallback when a is zero.
func (a Vec3) Normalize(fallback Vec3) Vec3 {
	l := a.Len()
	if l < 1e-12 {
		return fallback
	}
	return a.Scale(1 / l)
}

// mat3 is a row-major rotation matrix used by articulation kinematics.
type mat3 [3][3]float64

var identity = mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (m mat3) apply(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func (m mat3) mul(n mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

// axisAngle is the Rodrigues rotation about a unit axis.
func axisAngle(axis Vec3, angle float64) mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	x, y, z := axis[0], axis[1], axis[2]
	return mat3{
		{t*x*x + c, t*x*y - s*z, t*x*z + s*y},
		{t*x*y + s*z, t*y*y + c, t*y*z - s*x},
		{t*x*z - s*y, t*y*z + s*x, t*z*z + c},
	}
}

// rpy builds the fixed-axis roll, pitch, yaw rotation used by URDF origins.
func rpy(r Vec3) mat3 {
	return axisAngle(Vec3{0, 0, 1}, r[2]).
		mul(axisAngle(Vec3{0, 1, 0}, r[1])).
		mul(axisAngle(Vec3{1, 0, 0}, r[0]))
}
