package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/physx"
)

// Motion is the periodic drive pattern of an articulated task.
type Motion struct {
	FrequencyHz float64
	Amplitude   float64
}

func MotionFor(style string, targetScale float64) Motion {
	if style == "run" {
		return Motion{FrequencyHz: 3.0, Amplitude: 1.8 * targetScale}
	}
	return Motion{FrequencyHz: 1.5, Amplitude: targetScale}
}

type drivenJoint struct {
	joint *physx.Joint
	base  float64
	phase float64
}

// resolveInput returns the absolute path of a required regular file.
func resolveInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: urdf path is required for %s", bench.ErrMissingInput, ArticulatedURDF)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", bench.ErrInputNotFound, path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil || !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: urdf %s", bench.ErrInputNotFound, abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: urdf %s: %v", bench.ErrInputNotFound, abs, err)
	}
	f.Close()
	return abs, nil
}

func BuildArticulatedURDF(cfg *config.Config) (*bench.Runtime, error) {
	a := cfg.Articulated
	path, err := resolveInput(a.URDF)
	if err != nil {
		return nil, err
	}
	robot, err := physx.LoadURDF(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%w: %w", bench.ErrInputNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bench.ErrConfiguration, err)
	}

	sys, scene, err := newScene(cfg)
	if err != nil {
		return nil, err
	}
	art, err := scene.LoadArticulation(robot, physx.LoaderOptions{FixRootLink: false})
	if err != nil {
		return abandon(sys, fmt.Errorf("articulated urdf: %w", err))
	}

	root := art.RootPose()
	root.P[2] = math.Max(root.P[2], a.RootHeight)
	if err := art.SetRootPose(root); err != nil {
		return abandon(sys, err)
	}

	qpos := art.Qpos()
	var driven []drivenJoint
	offset := 0
	for idx, j := range art.ActiveJoints() {
		dof := j.DOF()
		if dof == 1 {
			base := qpos[offset]
			j.SetDriveProperties(a.Stiffness, a.Damping, a.ForceLimit)
			j.SetDriveTarget(base)
			j.SetDriveVelocityTarget(0)
			driven = append(driven, drivenJoint{joint: j, base: base, phase: float64(idx) * math.Pi / 4})
		}
		offset += dof
	}

	motion := MotionFor(a.Motion, a.TargetScale)
	hook := func(_ int, t float64) {
		phase := 2 * math.Pi * motion.FrequencyHz * t
		for _, d := range driven {
			d.joint.SetDriveTarget(d.base + motion.Amplitude*math.Sin(phase+d.phase))
		}
	}

	return finish(ArticulatedURDF, sys, scene, hook, bench.NewMetadata(map[string]any{
		"difficulty":        cfg.Difficulty,
		"urdf":              path,
		"motion":            a.Motion,
		"target_scale":      a.TargetScale,
		"joint_stiffness":   a.Stiffness,
		"joint_damping":     a.Damping,
		"joint_force_limit": a.ForceLimit,
	}))
}
