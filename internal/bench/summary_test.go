package bench_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gpubench/internal/bench"
)

func samplesWithTotals(totals ...float64) []bench.StageTimingSample {
	out := make([]bench.StageTimingSample, len(totals))
	for i, v := range totals {
		out[i].Step = i
		out[i].Ms[bench.Total] = v
		out[i].Ms[bench.Solver] = v / 2
	}
	return out
}

var _ = Describe("Summarize", func() {
	input := bench.SummaryInput{
		RunID:       "r1",
		Task:        "grid_stack",
		Difficulty:  "easy",
		Steps:       4,
		WarmupSteps: 2,
		Dt:          1.0 / 240,
		TaskConfig:  bench.NewMetadata(map[string]any{"b": 2, "a": 1}),
	}

	It("computes mean, p50, p95 and max per stage", func() {
		row := bench.Summarize(samplesWithTotals(1, 2, 3, 4), input)

		total := row.Stat(bench.Total)
		Expect(total.Mean).To(BeNumerically("~", 2.5, 1e-12))
		Expect(total.P50).To(BeNumerically("~", 2.5, 1e-12))
		Expect(total.P95).To(BeNumerically("~", 3.85, 1e-12))
		Expect(total.Max).To(Equal(4.0))

		solver := row.Stat(bench.Solver)
		Expect(solver.Max).To(Equal(2.0))
		Expect(row.Stat(bench.Broadphase)).To(Equal(bench.StageStats{}))
	})

	It("copies identity fields and serializes metadata", func() {
		row := bench.Summarize(samplesWithTotals(1), input)
		Expect(row.RunID).To(Equal("r1"))
		Expect(row.Steps).To(Equal(4))
		Expect(row.WarmupSteps).To(Equal(2))
		Expect(row.TaskConfig).To(Equal("a=1;b=2"))
	})

	It("defaults every statistic to zero without samples", func() {
		row := bench.Summarize(nil, input)
		for _, st := range bench.Stages() {
			Expect(row.Stat(st)).To(Equal(bench.StageStats{}))
		}
	})

	It("reports negative residuals without clamping", func() {
		samples := samplesWithTotals(1, 1)
		samples[0].Ms[bench.Other] = -0.5
		samples[1].Ms[bench.Other] = -0.25
		Expect(bench.Summarize(samples, input).Stat(bench.Other).Max).To(Equal(-0.25))
	})

	It("keeps max >= p95 >= p50 and mean within [min, max]", func() {
		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 50; trial++ {
			n := 1 + rng.Intn(40)
			samples := make([]bench.StageTimingSample, n)
			for i := range samples {
				for _, st := range bench.Stages() {
					samples[i].Ms[st] = rng.Float64() * 10
				}
			}
			row := bench.Summarize(samples, input)
			for _, st := range bench.Stages() {
				lo, hi := samples[0].Ms[st], samples[0].Ms[st]
				for _, s := range samples {
					lo = min(lo, s.Ms[st])
					hi = max(hi, s.Ms[st])
				}
				stats := row.Stat(st)
				Expect(stats.Max).To(BeNumerically(">=", stats.P95))
				Expect(stats.P95).To(BeNumerically(">=", stats.P50))
				Expect(stats.Mean).To(BeNumerically(">=", lo-1e-12))
				Expect(stats.Mean).To(BeNumerically("<=", hi+1e-12))
			}
		}
	})

	It("flags runs whose totals are all zero", func() {
		Expect(bench.InstrumentationUnavailable(samplesWithTotals(0, 0, 0))).To(BeTrue())
		Expect(bench.InstrumentationUnavailable(samplesWithTotals(0, 0.1))).To(BeFalse())
		Expect(bench.InstrumentationUnavailable(nil)).To(BeFalse())

		zero := bench.Summarize(samplesWithTotals(0, 0), input)
		busy := bench.Summarize(samplesWithTotals(1), input)
		Expect(bench.TotalsZero([]bench.SummaryRow{zero})).To(BeTrue())
		Expect(bench.TotalsZero([]bench.SummaryRow{zero, busy})).To(BeFalse())
	})
})

var _ = Describe("Columns", func() {
	It("has 12 step columns", func() {
		cols := bench.StepColumns()
		Expect(cols).To(HaveLen(12))
		Expect(cols[:5]).To(Equal([]string{"run_id", "task", "difficulty", "step", "dt"}))
		Expect(cols[11]).To(Equal("total_ms"))
	})

	It("has 35 summary columns", func() {
		cols := bench.SummaryColumns()
		Expect(cols).To(HaveLen(35))
		Expect(cols[6]).To(Equal("task_config"))
		Expect(cols[7:11]).To(Equal([]string{"broadphase_mean_ms", "broadphase_p50_ms", "broadphase_p95_ms", "broadphase_max_ms"}))
		Expect(cols[34]).To(Equal("total_max_ms"))
	})

	It("renders records matching the headers", func() {
		s := samplesWithTotals(1.5)[0]
		Expect(s.Record()).To(HaveLen(len(bench.StepColumns())))
		row := bench.Summarize([]bench.StageTimingSample{s}, bench.SummaryInput{Steps: 1})
		rec := row.Record()
		Expect(rec).To(HaveLen(len(bench.SummaryColumns())))
		Expect(rec[31]).To(Equal("1.5"))
	})

	It("parses stage names with and without suffix", func() {
		st, ok := bench.ParseStage("solver_ms")
		Expect(ok).To(BeTrue())
		Expect(st).To(Equal(bench.Solver))
		st, ok = bench.ParseStage("total")
		Expect(ok).To(BeTrue())
		Expect(st).To(Equal(bench.Total))
		_, ok = bench.ParseStage("physics")
		Expect(ok).To(BeFalse())
	})
})
