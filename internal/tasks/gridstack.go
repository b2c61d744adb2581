package tasks

import (
	"fmt"
	"math"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/physx"
)

// GridStackLayout returns box centers level by level, row by row. Levels
// are the rounded cube root of count and each level is a square grid wide
// enough to hold its share.
func GridStackLayout(count int, halfSize, spacing float64) []physx.Vec3 {
	levels := max(1, int(math.Round(math.Cbrt(float64(count)))))
	side := max(1, int(math.Ceil(math.Sqrt(float64(count)/float64(levels)))))
	center := 0.5 * float64(side-1)

	out := make([]physx.Vec3, 0, count)
	for level := 0; level < levels && len(out) < count; level++ {
		z := halfSize*(2*float64(level)+1) + 0.01
		for ix := 0; ix < side && len(out) < count; ix++ {
			for iy := 0; iy < side && len(out) < count; iy++ {
				out = append(out, physx.Vec3{
					(float64(ix) - center) * spacing,
					(float64(iy) - center) * spacing,
					z,
				})
			}
		}
	}
	return out
}

func BuildGridStack(cfg *config.Config) (*bench.Runtime, error) {
	count, err := countFor(GridStack, cfg, cfg.GridStack.Count)
	if err != nil {
		return nil, err
	}
	half := cfg.GridStack.HalfSize
	spacing := cfg.GridStack.Spacing
	if spacing <= 0 {
		spacing = 2.2 * half
	}

	sys, scene, err := newScene(cfg)
	if err != nil {
		return nil, err
	}
	for i, p := range GridStackLayout(count, half, spacing) {
		if _, err := scene.AddDynamicBox(fmt.Sprintf("cube_%d", i), physx.Vec3{half, half, half}, physx.Pose{P: p}); err != nil {
			return abandon(sys, fmt.Errorf("grid stack: %w", err))
		}
	}

	return finish(GridStack, sys, scene, nil, bench.NewMetadata(map[string]any{
		"difficulty":     cfg.Difficulty,
		"cube_count":     count,
		"cube_half_size": half,
		"cube_spacing":   spacing,
	}))
}
