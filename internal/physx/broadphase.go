package physx

import "slices"

// groundIndex marks the ground plane as the second member of a pair or contact.
const groundIndex = -1

type pair struct {
	a, b int32
}

func (s *System) broadPhase(float64) error {
	b := s.buf
	margin := s.opts.ContactMargin
	pad := Vec3{margin, margin, margin}
	err := s.device.Dispatch(b.n, 256, func(start, end int) error {
		for i := start; i < end; i++ {
			b.lo[i] = b.pos[i].Sub(b.extent[i]).Sub(pad)
			b.hi[i] = b.pos[i].Add(b.extent[i]).Add(pad)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortFunc(b.order, func(x, y int32) int {
		switch lx, ly := b.lo[x][0], b.lo[y][0]; {
		case lx < ly:
			return -1
		case lx > ly:
			return 1
		}
		return int(x - y)
	})

	bodies := s.scene.bodies
	pairs := s.pairs[:0]
	for oi, i := range b.order {
		for _, j := range b.order[oi+1:] {
			if b.lo[j][0] > b.hi[i][0] {
				break
			}
			if b.invMass[i] == 0 && b.invMass[j] == 0 {
				continue
			}
			if g := bodies[i].group; g != 0 && g == bodies[j].group {
				continue
			}
			if !overlaps(b.lo[i], b.hi[i], b.lo[j], b.hi[j]) {
				continue
			}
			if i < j {
				pairs = append(pairs, pair{i, j})
			} else {
				pairs = append(pairs, pair{j, i})
			}
		}
	}

	if ground, ok := s.scene.Ground(); ok {
		for i := 0; i < b.n; i++ {
			if b.invMass[i] > 0 && b.lo[i][2] <= ground {
				pairs = append(pairs, pair{int32(i), groundIndex})
			}
		}
	}
	s.pairs = pairs
	return nil
}

func overlaps(loA, hiA, loB, hiB Vec3) bool {
	for k := 0; k < 3; k++ {
		if loA[k] > hiB[k] || loB[k] > hiA[k] {
			return false
		}
	}
	return true
}
