package physx

import "math"

const (
	baumgarte       = 0.2
	penetrationSlop = 0.001
)

func (s *System) solveConstraints(dt float64) error {
	for it := 0; it < s.opts.SolverIterations; it++ {
		for _, batch := range s.batches {
			err := s.device.Dispatch(len(batch), 64, func(start, end int) error {
				for _, k := range batch[start:end] {
					s.solveContact(&s.contacts[k], dt)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, k := range s.overflow {
			s.solveContact(&s.contacts[k], dt)
		}
	}
	return nil
}

// solveContact applies one projected Gauss-Seidel update. Only dynamic
// bodies are written, which keeps a color batch free of shared writes.
func (s *System) solveContact(c *contact, dt float64) {
	b := s.buf
	invA := b.invMass[c.a]
	vA := b.vel[c.a]
	var invB float64
	var vB Vec3
	if c.b != groundIndex {
		invB = b.invMass[c.b]
		vB = b.vel[c.b]
	}
	w := invA + invB
	if w == 0 {
		return
	}

	rel := vB.Sub(vA)
	vn := rel.Dot(c.normal)
	var target float64
	switch {
	case c.depth > penetrationSlop:
		target = baumgarte * (c.depth - penetrationSlop) / dt
	case c.depth < 0:
		target = c.depth / dt
	}

	lambda := (target - vn) / w
	acc := math.Max(c.normalImpulse+lambda, 0)
	lambda = acc - c.normalImpulse
	c.normalImpulse = acc
	p := c.normal.Scale(lambda)
	vA = vA.Sub(p.Scale(invA))
	vB = vB.Add(p.Scale(invB))

	rel = vB.Sub(vA)
	vt := rel.Sub(c.normal.Scale(rel.Dot(c.normal)))
	tangent := c.tangentImpulse.Sub(vt.Scale(1 / w))
	limit := s.opts.Friction * c.normalImpulse
	if l := tangent.Len(); l > limit {
		if l > 0 {
			tangent = tangent.Scale(limit / l)
		}
	}
	applied := tangent.Sub(c.tangentImpulse)
	c.tangentImpulse = tangent
	vA = vA.Sub(applied.Scale(invA))
	vB = vB.Add(applied.Scale(invB))

	if invA > 0 {
		b.vel[c.a] = vA
	}
	if invB > 0 {
		b.vel[c.b] = vB
	}
}
