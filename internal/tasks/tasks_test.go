package tasks

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/compute"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/physx"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Device = "emu:2"
	cfg.RunID = "test"
	return cfg
}

func bodies(t *testing.T, rt *bench.Runtime) []*physx.Body {
	t.Helper()
	scene, ok := rt.Scene.(*physx.Scene)
	require.True(t, ok, "scene type %T", rt.Scene)
	return scene.Bodies()
}

func TestGridStackLayout(t *testing.T) {
	const half = 0.04
	spacing := 2.2 * half
	pos := GridStackLayout(27, half, spacing)
	require.Len(t, pos, 27)

	// 3 levels of 3x3, centered on the origin.
	assert.InDelta(t, -spacing, pos[0][0], 1e-12)
	assert.InDelta(t, -spacing, pos[0][1], 1e-12)
	assert.InDelta(t, half+0.01, pos[0][2], 1e-12)
	assert.InDelta(t, 3*half+0.01, pos[9][2], 1e-12)
	assert.InDelta(t, 5*half+0.01, pos[26][2], 1e-12)
	assert.InDelta(t, spacing, pos[26][0], 1e-12)

	assert.Equal(t, pos, GridStackLayout(27, half, spacing))
}

func TestGridStackLayout_PartialLevel(t *testing.T) {
	pos := GridStackLayout(10, 0.5, 1)
	require.Len(t, pos, 10)
	// round(cbrt(10)) = 2 levels, side = ceil(sqrt(5)) = 3.
	assert.InDelta(t, 0.51, pos[8][2], 1e-12)
	assert.InDelta(t, 1.51, pos[9][2], 1e-12)

	assert.Empty(t, GridStackLayout(0, 0.5, 1))
}

func TestPourLayout(t *testing.T) {
	const r = 0.02
	a := PourLayout(64, r, 0.45, 7)
	b := PourLayout(64, r, 0.45, 7)
	c := PourLayout(64, r, 0.45, 8)
	require.Len(t, a, 64)
	assert.Equal(t, a, b, "same seed must reproduce identical geometry")
	assert.NotEqual(t, a, c)

	spacing := 2.2 * r
	base := -1.5 * spacing
	for i, p := range a {
		ix, iy, iz := i%4, (i/4)%4, i/16
		assert.LessOrEqual(t, math.Abs(p[0]-(base+float64(ix)*spacing)), 0.05*r+1e-15)
		assert.LessOrEqual(t, math.Abs(p[1]-(base+float64(iy)*spacing)), 0.05*r+1e-15)
		assert.InDelta(t, 2.5*0.45+r+float64(iz)*spacing, p[2], 1e-12)
	}
}

func TestBuildGridStack(t *testing.T) {
	cfg := testConfig()
	rt, err := BuildGridStack(cfg)
	require.NoError(t, err)

	assert.Equal(t, GridStack, rt.Name)
	assert.Nil(t, rt.BeforeStep)
	assert.Len(t, bodies(t, rt), 27)
	half := cfg.GridStack.HalfSize
	spacing := strconv.FormatFloat(2.2*half, 'f', -1, 64)
	assert.Equal(t, "cube_count=27;cube_half_size=0.04;cube_spacing="+spacing+";difficulty=easy", rt.Metadata.String())

	n := 5
	cfg.GridStack.Count = &n
	cfg.Difficulty = "hard"
	rt, err = BuildGridStack(cfg)
	require.NoError(t, err)
	assert.Len(t, bodies(t, rt), 5)
}

func TestBuildGridStack_Difficulties(t *testing.T) {
	for difficulty, want := range map[string]int{"easy": 27, "medium": 125, "hard": 343} {
		cfg := testConfig()
		cfg.Difficulty = difficulty
		rt, err := BuildGridStack(cfg)
		require.NoError(t, err)
		assert.Len(t, bodies(t, rt), want, difficulty)
	}
}

func TestBuildParticlePour(t *testing.T) {
	cfg := testConfig()
	n := 30
	cfg.Pour.Count = &n
	cfg.Pour.Seed = 3
	rt, err := BuildParticlePour(cfg)
	require.NoError(t, err)

	all := bodies(t, rt)
	require.Len(t, all, 35)
	for _, b := range all[:5] {
		assert.Equal(t, physx.Static, b.Type)
	}
	for _, b := range all[5:] {
		assert.Equal(t, physx.Dynamic, b.Type)
		assert.Equal(t, physx.ShapeSphere, b.Shape.Kind)
	}
	md := rt.Metadata.String()
	assert.Contains(t, md, "ball_count=30")
	assert.Contains(t, md, "seed=3")
	assert.Contains(t, md, "container_wall_thickness=0.04")
}

func TestCountFor_UnknownDifficulty(t *testing.T) {
	cfg := testConfig()
	cfg.Difficulty = "extreme"
	_, err := BuildGridStack(cfg)
	assert.True(t, errors.Is(err, bench.ErrConfiguration), "got %v", err)

	n := 8
	cfg.GridStack.Count = &n
	_, err = BuildGridStack(cfg)
	assert.True(t, errors.Is(err, bench.ErrConfiguration), "an explicit count does not excuse a bad difficulty: %v", err)
}

type countingDevice struct {
	compute.Device
	released int
}

func (d *countingDevice) Release() {
	d.released++
	d.Device.Release()
}

func useDevice(t *testing.T, dev compute.Device) {
	t.Helper()
	prev := openDevice
	openDevice = func(string) (compute.Device, error) { return dev, nil }
	t.Cleanup(func() { openDevice = prev })
}

func TestBuild_ReleasesDeviceOnFailure(t *testing.T) {
	t.Run("cpu refused", func(t *testing.T) {
		dev := &countingDevice{Device: compute.NewHostDevice()}
		useDevice(t, dev)
		_, err := BuildGridStack(testConfig())
		assert.True(t, errors.Is(err, bench.ErrNotGPU), "got %v", err)
		assert.Equal(t, 1, dev.released)
	})

	t.Run("cpu refused articulated", func(t *testing.T) {
		dev := &countingDevice{Device: compute.NewHostDevice()}
		useDevice(t, dev)
		cfg := testConfig()
		cfg.Articulated.URDF = "testdata/walker.urdf"
		_, err := BuildArticulatedURDF(cfg)
		assert.True(t, errors.Is(err, bench.ErrNotGPU), "got %v", err)
		assert.Equal(t, 1, dev.released)
	})

	t.Run("invalid body", func(t *testing.T) {
		dev := &countingDevice{Device: compute.NewEmulatedDevice(2)}
		useDevice(t, dev)
		cfg := testConfig()
		cfg.GridStack.HalfSize = -0.04
		_, err := BuildGridStack(cfg)
		assert.True(t, errors.Is(err, physx.ErrInvalidShape), "got %v", err)
		assert.Equal(t, 1, dev.released)
	})

	t.Run("success keeps device", func(t *testing.T) {
		dev := &countingDevice{Device: compute.NewEmulatedDevice(2)}
		useDevice(t, dev)
		rt, err := BuildParticlePour(testConfig())
		require.NoError(t, err)
		require.NotNil(t, rt)
		assert.Zero(t, dev.released)
	})
}

func TestBuild_DeviceErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Device = "cpu"
	_, err := BuildGridStack(cfg)
	assert.True(t, errors.Is(err, bench.ErrNotGPU), "got %v", err)

	cfg.Device = "tpu:0"
	_, err = BuildParticlePour(cfg)
	assert.True(t, errors.Is(err, bench.ErrConfiguration), "got %v", err)
}

func TestBuildArticulatedURDF_Inputs(t *testing.T) {
	cfg := testConfig()

	cfg.Articulated.URDF = ""
	_, err := BuildArticulatedURDF(cfg)
	assert.True(t, errors.Is(err, bench.ErrMissingInput), "got %v", err)
	assert.True(t, errors.Is(err, bench.ErrConfiguration))

	cfg.Articulated.URDF = filepath.Join(t.TempDir(), "missing.urdf")
	_, err = BuildArticulatedURDF(cfg)
	assert.True(t, errors.Is(err, bench.ErrInputNotFound), "got %v", err)
	assert.False(t, errors.Is(err, bench.ErrConfiguration))

	cfg.Articulated.URDF = t.TempDir()
	_, err = BuildArticulatedURDF(cfg)
	assert.True(t, errors.Is(err, bench.ErrInputNotFound), "directory should not count as a file: %v", err)

	bad := filepath.Join(t.TempDir(), "bad.urdf")
	require.NoError(t, os.WriteFile(bad, []byte("<robot name='x'></robot>"), 0644))
	cfg.Articulated.URDF = bad
	_, err = BuildArticulatedURDF(cfg)
	assert.True(t, errors.Is(err, physx.ErrInvalidURDF), "got %v", err)
}

func TestBuildArticulatedURDF_UnreadableInput(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	data, err := os.ReadFile("testdata/walker.urdf")
	require.NoError(t, err)
	locked := filepath.Join(t.TempDir(), "locked.urdf")
	require.NoError(t, os.WriteFile(locked, data, 0644))
	require.NoError(t, os.Chmod(locked, 0))

	cfg := testConfig()
	cfg.Articulated.URDF = locked
	_, err = BuildArticulatedURDF(cfg)
	assert.True(t, errors.Is(err, bench.ErrInputNotFound), "got %v", err)
	assert.False(t, errors.Is(err, bench.ErrConfiguration))
}

func TestBuildArticulatedURDF(t *testing.T) {
	cfg := testConfig()
	cfg.Articulated.URDF = "testdata/walker.urdf"
	cfg.Articulated.RootHeight = 1.2
	rt, err := BuildArticulatedURDF(cfg)
	require.NoError(t, err)
	require.NotNil(t, rt.BeforeStep)

	scene := rt.Scene.(*physx.Scene)
	require.Len(t, scene.Articulations(), 1)
	art := scene.Articulations()[0]
	assert.InDelta(t, 1.2, art.RootPose().P[2], 1e-12)

	joints := art.ActiveJoints()
	require.Len(t, joints, 3)

	rt.BeforeStep(0, 0)
	// Joint idx 0 has phase 0, so its target starts at the base position.
	assert.InDelta(t, 0, joints[0].DriveTarget()[0], 1e-12)
	assert.InDelta(t, 0.25*math.Sin(math.Pi/4), joints[1].DriveTarget()[0], 1e-12)

	rt.BeforeStep(1, 1.0/6)
	want := 0.25 * math.Sin(2*math.Pi*1.5/6)
	assert.InDelta(t, want, joints[0].DriveTarget()[0], 1e-12)

	md := rt.Metadata.String()
	abs, _ := filepath.Abs("testdata/walker.urdf")
	assert.True(t, strings.Contains(md, "urdf="+abs), md)
	assert.Contains(t, md, "motion=walk")
	assert.Contains(t, md, "joint_stiffness=80")
}

func TestMotionFor(t *testing.T) {
	assert.Equal(t, Motion{FrequencyHz: 1.5, Amplitude: 0.5}, MotionFor("walk", 0.5))
	run := MotionFor("run", 0.5)
	assert.Equal(t, 3.0, run.FrequencyHz)
	assert.InDelta(t, 0.9, run.Amplitude, 1e-12)
}

func TestGridStackEndToEnd(t *testing.T) {
	r := NewRegistry()
	cfg := testConfig()
	b, err := r.Builder(r.Resolve("stack"))
	require.NoError(t, err)
	rt, err := b.Build(cfg)
	require.NoError(t, err)

	runner := &bench.Runner{RunID: cfg.RunID, Difficulty: "easy"}
	samples, err := runner.Run(rt, 10, 2, 1.0/240)
	require.NoError(t, err)
	require.Len(t, samples, 10)
	for i, s := range samples {
		assert.Equal(t, i, s.Step)
		for _, v := range s.Ms {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
	assert.Empty(t, bodies(t, rt), "scene must be cleared after the run")

	row := bench.Summarize(samples, bench.SummaryInput{
		RunID: cfg.RunID, Task: rt.Name, Difficulty: "easy",
		Steps: 10, WarmupSteps: 2, Dt: 1.0 / 240, TaskConfig: rt.Metadata,
	})
	assert.Equal(t, 10, row.Steps)
	assert.Equal(t, 2, row.WarmupSteps)
	assert.Greater(t, row.Stat(bench.Total).Mean, 0.0)
}
