package bench

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks. p is clamped to [0, 100], a NaN p
// counts as 0 and values is not modified.
func Percentile(values []float64, p float64) float64 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(0, math.Min(p, 100))

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	index := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(index))
	hi := int(math.Ceil(index))
	if lo == hi {
		return sorted[lo]
	}
	w := index - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
