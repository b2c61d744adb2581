package tasks

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/physx"
)

type staticBox struct {
	half physx.Vec3
	pos  physx.Vec3
}

// containerBoxes returns the floor and the four walls of the container.
func containerBoxes(halfExtent, wallHeight, thickness float64) []staticBox {
	wallZ := wallHeight + thickness
	offset := halfExtent + thickness
	return []staticBox{
		{physx.Vec3{halfExtent, halfExtent, thickness}, physx.Vec3{0, 0, thickness}},
		{physx.Vec3{thickness, halfExtent + thickness, wallHeight}, physx.Vec3{offset, 0, wallZ}},
		{physx.Vec3{thickness, halfExtent + thickness, wallHeight}, physx.Vec3{-offset, 0, wallZ}},
		{physx.Vec3{halfExtent + thickness, thickness, wallHeight}, physx.Vec3{0, offset, wallZ}},
		{physx.Vec3{halfExtent + thickness, thickness, wallHeight}, physx.Vec3{0, -offset, wallZ}},
	}
}

// PourLayout places count spheres on a cubic lattice above the container
// with x/y jitter drawn from a source seeded by seed.
func PourLayout(count int, radius, wallHeight float64, seed int64) []physx.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	jitter := func() float64 { return -0.05*radius + 0.1*radius*rng.Float64() }

	grid := max(1, int(math.Ceil(math.Cbrt(float64(count)))))
	spacing := 2.2 * radius
	base := -0.5 * float64(grid-1) * spacing
	startZ := 2.5*wallHeight + radius

	out := make([]physx.Vec3, count)
	for i := range out {
		ix := i % grid
		iy := (i / grid) % grid
		iz := i / (grid * grid)
		x := base + float64(ix)*spacing + jitter()
		y := base + float64(iy)*spacing + jitter()
		out[i] = physx.Vec3{x, y, startZ + float64(iz)*spacing}
	}
	return out
}

func BuildParticlePour(cfg *config.Config) (*bench.Runtime, error) {
	count, err := countFor(ParticlePour, cfg, cfg.Pour.Count)
	if err != nil {
		return nil, err
	}
	p := cfg.Pour

	sys, scene, err := newScene(cfg)
	if err != nil {
		return nil, err
	}
	for i, box := range containerBoxes(p.ContainerHalfExtent, p.WallHeight, p.WallThickness) {
		if _, err := scene.AddStaticBox(fmt.Sprintf("container_%d", i), box.half, physx.Pose{P: box.pos}); err != nil {
			return abandon(sys, fmt.Errorf("particle pour: %w", err))
		}
	}
	for i, pos := range PourLayout(count, p.Radius, p.WallHeight, p.Seed) {
		if _, err := scene.AddDynamicSphere(fmt.Sprintf("ball_%d", i), p.Radius, physx.Pose{P: pos}); err != nil {
			return abandon(sys, fmt.Errorf("particle pour: %w", err))
		}
	}

	return finish(ParticlePour, sys, scene, nil, bench.NewMetadata(map[string]any{
		"difficulty":               cfg.Difficulty,
		"ball_count":               count,
		"ball_radius":              p.Radius,
		"container_half_extent":    p.ContainerHalfExtent,
		"container_wall_height":    p.WallHeight,
		"container_wall_thickness": p.WallThickness,
		"seed":                     p.Seed,
	}))
}
