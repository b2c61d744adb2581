package bench_test

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gpubench/internal/bench"
)

type event struct {
	kind string
	step int
	t    float64
}

type fakeSystem struct {
	gpu     bool
	initErr error
	failAt  int
	timings map[string]float64
	events  []event
	inFrame bool
	stepped int
}

func (f *fakeSystem) GPU() bool { return f.gpu }

func (f *fakeSystem) InitGPU() error {
	f.events = append(f.events, event{kind: "init"})
	return f.initErr
}

func (f *fakeSystem) Step() error {
	f.stepped++
	kind := "step"
	if f.inFrame {
		kind = "timed-step"
	}
	f.events = append(f.events, event{kind: kind})
	if f.failAt > 0 && f.stepped == f.failAt {
		return errors.New("device lost")
	}
	return nil
}

func (f *fakeSystem) BeginProfileFrame() { f.inFrame = true }
func (f *fakeSystem) EndProfileFrame()   { f.inFrame = false }

func (f *fakeSystem) LastFrameStageMs() map[string]float64 {
	if f.timings == nil {
		return nil
	}
	out := make(map[string]float64, len(f.timings))
	for k, v := range f.timings {
		out[k] = v * float64(f.stepped)
	}
	return out
}

type fakeScene struct {
	sys     *fakeSystem
	cleared int
}

func (s *fakeScene) Clear() {
	s.cleared++
	s.sys.events = append(s.sys.events, event{kind: "clear"})
}

func newFakeRuntime(sys *fakeSystem, hook bench.BeforeStepFunc) (*bench.Runtime, *fakeScene) {
	scene := &fakeScene{sys: sys}
	return &bench.Runtime{
		Name:       "grid_stack",
		System:     sys,
		Scene:      scene,
		BeforeStep: hook,
		Metadata:   bench.NewMetadata(map[string]any{"difficulty": "easy"}),
	}, scene
}

var _ = Describe("Runner", func() {
	var (
		sys    *fakeSystem
		logBuf *bytes.Buffer
		runner *bench.Runner
	)

	BeforeEach(func() {
		sys = &fakeSystem{
			gpu: true,
			timings: map[string]float64{
				"broadphase_ms": 0.1,
				"solver_ms":     0.2,
				"total_ms":      0.3,
			},
		}
		logBuf = &bytes.Buffer{}
		runner = &bench.Runner{
			RunID:      "20250101-000000",
			Difficulty: "easy",
			Logger:     slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		}
	})

	It("produces exactly one sample per measured step in order", func() {
		rt, _ := newFakeRuntime(sys, nil)
		for _, warmup := range []int{0, 1, 7} {
			samples, err := runner.Run(rt, 5, warmup, 1.0/240)
			Expect(err).NotTo(HaveOccurred())
			Expect(samples).To(HaveLen(5))
			for i, s := range samples {
				Expect(s.Step).To(Equal(i))
				Expect(s.RunID).To(Equal("20250101-000000"))
				Expect(s.Task).To(Equal("grid_stack"))
				Expect(s.Difficulty).To(Equal("easy"))
				Expect(s.Dt).To(Equal(1.0 / 240))
			}
		}
	})

	It("initializes first, warms up untimed, measures inside frames, then clears", func() {
		rt, scene := newFakeRuntime(sys, nil)
		_, err := runner.Run(rt, 2, 3, 0.01)
		Expect(err).NotTo(HaveOccurred())

		kinds := make([]string, len(sys.events))
		for i, e := range sys.events {
			kinds[i] = e.kind
		}
		Expect(kinds).To(Equal([]string{"init", "step", "step", "step", "timed-step", "timed-step", "clear"}))
		Expect(scene.cleared).To(Equal(1))
	})

	It("calls the hook before every step with phase-local indices", func() {
		var calls []event
		hook := func(step int, t float64) {
			calls = append(calls, event{step: step, t: t, kind: map[bool]string{true: "measure", false: "warmup"}[sys.stepped >= 2]})
		}
		rt, _ := newFakeRuntime(sys, hook)
		_, err := runner.Run(rt, 3, 2, 0.5)
		Expect(err).NotTo(HaveOccurred())

		Expect(calls).To(Equal([]event{
			{kind: "warmup", step: 0, t: 0},
			{kind: "warmup", step: 1, t: 0.5},
			{kind: "measure", step: 0, t: 0},
			{kind: "measure", step: 1, t: 0.5},
			{kind: "measure", step: 2, t: 1.0},
		}))
	})

	It("reads stage timings and defaults missing stages to zero", func() {
		rt, _ := newFakeRuntime(sys, nil)
		samples, err := runner.Run(rt, 2, 1, 0.01)
		Expect(err).NotTo(HaveOccurred())

		// The fake scales timings by the number of steps taken so far.
		Expect(samples[0].Get(bench.Solver)).To(BeNumerically("~", 0.4, 1e-12))
		Expect(samples[1].Get(bench.Total)).To(BeNumerically("~", 0.9, 1e-12))
		Expect(samples[1].Get(bench.Narrowphase)).To(Equal(0.0))
		Expect(samples[1].Get(bench.Other)).To(Equal(0.0))
	})

	It("records zeros and warns when profiling yields nothing", func() {
		sys.timings = nil
		rt, _ := newFakeRuntime(sys, nil)
		samples, err := runner.Run(rt, 3, 0, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(HaveLen(3))
		for _, s := range samples {
			Expect(s.Ms).To(Equal([bench.NumStages]float64{}))
		}
		Expect(logBuf.String()).To(ContainSubstring("level=WARN"))
		Expect(logBuf.String()).To(ContainSubstring("all stage timings are zero"))
	})

	It("warns on a negative residual without clamping it", func() {
		sys.timings["other_ms"] = -0.05
		rt, _ := newFakeRuntime(sys, nil)
		samples, err := runner.Run(rt, 1, 0, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(samples[0].Get(bench.Other)).To(BeNumerically("<", 0))
		Expect(logBuf.String()).To(ContainSubstring("negative residual"))
	})

	It("rejects a non-GPU system before stepping", func() {
		sys.gpu = false
		rt, scene := newFakeRuntime(sys, nil)
		_, err := runner.Run(rt, 5, 1, 0.01)
		Expect(err).To(MatchError(bench.ErrNotGPU))
		Expect(errors.Is(err, bench.ErrConfiguration)).To(BeTrue())
		Expect(sys.events).To(BeEmpty())
		Expect(scene.cleared).To(BeZero())
	})

	It("rejects invalid step parameters", func() {
		rt, _ := newFakeRuntime(sys, nil)
		_, err := runner.Run(rt, -1, 0, 0.01)
		Expect(err).To(MatchError(bench.ErrConfiguration))
		_, err = runner.Run(rt, 1, 0, 0)
		Expect(err).To(MatchError(bench.ErrConfiguration))
	})

	It("clears the scene when a step fails", func() {
		sys.failAt = 3
		rt, scene := newFakeRuntime(sys, nil)
		samples, err := runner.Run(rt, 5, 1, 0.01)
		Expect(err).To(MatchError(ContainSubstring("device lost")))
		Expect(samples).To(BeNil())
		Expect(scene.cleared).To(Equal(1))
	})

	It("surfaces init failures", func() {
		sys.initErr = errors.New("no context")
		rt, _ := newFakeRuntime(sys, nil)
		_, err := runner.Run(rt, 1, 0, 0.01)
		Expect(err).To(MatchError(ContainSubstring("no context")))
		Expect(sys.stepped).To(BeZero())
	})
})

var _ = Describe("NewRuntime", func() {
	It("rejects non-GPU systems", func() {
		_, err := bench.NewRuntime("x", &fakeSystem{}, nil, nil, bench.Metadata{})
		Expect(err).To(MatchError(bench.ErrNotGPU))
	})

	It("accepts GPU systems", func() {
		rt, err := bench.NewRuntime("x", &fakeSystem{gpu: true}, nil, nil, bench.Metadata{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rt.Name).To(Equal("x"))
	})
})

var _ = Describe("UnknownTaskError", func() {
	It("lists the available tasks and unwraps to a configuration error", func() {
		err := error(&bench.UnknownTaskError{Name: "nope", Available: []string{"a", "b"}})
		Expect(err.Error()).To(Equal("unknown task 'nope'. Available tasks: a, b"))
		Expect(errors.Is(err, bench.ErrUnknownTask)).To(BeTrue())
		Expect(errors.Is(err, bench.ErrConfiguration)).To(BeTrue())
	})
})
