package physx

import "math/bits"

// maxColors is the number of parallel batches; contacts that fit none of
// them go to a trailing batch that is solved serially.
const maxColors = 64

// partitionConstraints greedily colors contacts so that no two contacts in
// the same color touch the same dynamic body.
func (s *System) partitionConstraints(float64) error {
	b := s.buf
	used := make(map[int32]uint64)
	colors := make([][]int32, maxColors)
	var overflow []int32

	for k := range s.contacts {
		c := &s.contacts[k]
		var mask uint64
		dynA := b.invMass[c.a] > 0
		dynB := c.b != groundIndex && b.invMass[c.b] > 0
		if dynA {
			mask |= used[c.a]
		}
		if dynB {
			mask |= used[c.b]
		}
		if mask == ^uint64(0) {
			overflow = append(overflow, int32(k))
			continue
		}
		color := bits.TrailingZeros64(^mask)
		bit := uint64(1) << color
		if dynA {
			used[c.a] |= bit
		}
		if dynB {
			used[c.b] |= bit
		}
		colors[color] = append(colors[color], int32(k))
	}

	batches := s.batches[:0]
	for _, c := range colors {
		if len(c) > 0 {
			batches = append(batches, c)
		}
	}
	s.batches = batches
	s.overflow = overflow
	return nil
}
