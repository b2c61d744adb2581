package physx

import "math"

// contact is a single point constraint. The normal points from a to b; for
// ground contacts b is groundIndex and the normal is +z.
type contact struct {
	a, b   int32
	normal Vec3
	depth  float64

	normalImpulse  float64
	tangentImpulse Vec3
}

func (s *System) narrowPhase(float64) error {
	b := s.buf
	ground, _ := s.scene.Ground()
	out := make([]contact, len(s.pairs))
	hit := make([]bool, len(s.pairs))

	err := s.device.Dispatch(len(s.pairs), 128, func(start, end int) error {
		for k := start; k < end; k++ {
			p := s.pairs[k]
			var c contact
			var ok bool
			if p.b == groundIndex {
				c, ok = collideGround(b, p.a, ground, s.opts.ContactMargin)
			} else {
				c, ok = collidePair(b, p.a, p.b, s.opts.ContactMargin)
			}
			out[k], hit[k] = c, ok
		}
		return nil
	})
	if err != nil {
		return err
	}

	contacts := s.contacts[:0]
	for k, ok := range hit {
		if ok {
			contacts = append(contacts, out[k])
		}
	}
	s.contacts = contacts
	return nil
}

func collideGround(b *buffers, i int32, ground, margin float64) (contact, bool) {
	bottom := b.pos[i][2] - b.extent[i][2]
	depth := ground - bottom
	if depth < -margin {
		return contact{}, false
	}
	return contact{a: i, b: groundIndex, normal: Vec3{0, 0, -1}, depth: depth}, true
}

func collidePair(b *buffers, i, j int32, margin float64) (contact, bool) {
	switch {
	case b.kind[i] == ShapeSphere && b.kind[j] == ShapeSphere:
		return sphereSphere(b, i, j, margin)
	case b.kind[i] == ShapeSphere:
		c, ok := sphereBox(b, i, j, margin)
		return c, ok
	case b.kind[j] == ShapeSphere:
		c, ok := sphereBox(b, j, i, margin)
		if ok {
			c.a, c.b = i, j
			c.normal = c.normal.Scale(-1)
		}
		return c, ok
	default:
		return boxBox(b, i, j, margin)
	}
}

func sphereSphere(b *buffers, i, j int32, margin float64) (contact, bool) {
	d := b.pos[j].Sub(b.pos[i])
	dist := d.Len()
	depth := b.radius[i] + b.radius[j] - dist
	if depth < -margin {
		return contact{}, false
	}
	n := Vec3{0, 0, 1}
	if dist > 1e-12 {
		n = d.Scale(1 / dist)
	}
	return contact{a: i, b: j, normal: n, depth: depth}, true
}

// sphereBox collides sphere i against axis-aligned box j.
func sphereBox(b *buffers, i, j int32, margin float64) (contact, bool) {
	center := b.pos[i]
	lo := b.pos[j].Sub(b.extent[j])
	hi := b.pos[j].Add(b.extent[j])
	var closest Vec3
	inside := true
	for k := 0; k < 3; k++ {
		closest[k] = math.Max(lo[k], math.Min(center[k], hi[k]))
		if closest[k] != center[k] {
			inside = false
		}
	}
	r := b.radius[i]
	if inside {
		// Push out along the axis of least penetration.
		best, axis, sign := math.Inf(1), 2, 1.0
		for k := 0; k < 3; k++ {
			if d := hi[k] - center[k]; d < best {
				best, axis, sign = d, k, 1
			}
			if d := center[k] - lo[k]; d < best {
				best, axis, sign = d, k, -1
			}
		}
		var n Vec3
		n[axis] = -sign
		return contact{a: i, b: j, normal: n, depth: best + r}, true
	}
	d := closest.Sub(center)
	dist := d.Len()
	depth := r - dist
	if depth < -margin {
		return contact{}, false
	}
	return contact{a: i, b: j, normal: d.Scale(1 / dist), depth: depth}, true
}

// boxBox separates two axis-aligned boxes along the axis of least overlap.
func boxBox(b *buffers, i, j int32, margin float64) (contact, bool) {
	d := b.pos[j].Sub(b.pos[i])
	best, axis := math.Inf(1), 0
	for k := 0; k < 3; k++ {
		overlap := b.extent[i][k] + b.extent[j][k] - math.Abs(d[k])
		if overlap < -margin {
			return contact{}, false
		}
		if overlap < best {
			best, axis = overlap, k
		}
	}
	var n Vec3
	n[axis] = 1
	if d[axis] < 0 {
		n[axis] = -1
	}
	return contact{a: i, b: j, normal: n, depth: best}, true
}
