package bench_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gpubench/internal/bench"
)

var _ = Describe("Percentile", func() {
	It("returns 0 for empty input", func() {
		for _, p := range []float64{0, 50, 95, 100} {
			Expect(bench.Percentile(nil, p)).To(Equal(0.0))
		}
	})

	It("returns the only element for single-element input", func() {
		for _, p := range []float64{0, 12.5, 50, 100} {
			Expect(bench.Percentile([]float64{7.25}, p)).To(Equal(7.25))
		}
	})

	DescribeTable("interpolates between closest ranks",
		func(values []float64, p, want float64) {
			Expect(bench.Percentile(values, p)).To(BeNumerically("~", want, 1e-12))
		},
		Entry("median of four", []float64{1, 2, 3, 4}, 50.0, 2.5),
		Entry("p0 is min", []float64{1, 2, 3, 4}, 0.0, 1.0),
		Entry("p100 is max", []float64{1, 2, 3, 4}, 100.0, 4.0),
		Entry("unsorted input", []float64{4, 1, 3, 2}, 50.0, 2.5),
		Entry("p95 of five", []float64{10, 20, 30, 40, 50}, 95.0, 48.0),
		Entry("duplicates", []float64{2, 2, 2, 5}, 50.0, 2.0),
	)

	It("clamps p outside [0, 100]", func() {
		values := []float64{1, 2, 3, 4}
		Expect(bench.Percentile(values, -10)).To(Equal(1.0))
		Expect(bench.Percentile(values, 250)).To(Equal(4.0))
	})

	It("treats a NaN rank as the minimum", func() {
		values := []float64{3, 1, 2}
		Expect(func() { bench.Percentile(values, math.NaN()) }).NotTo(Panic())
		Expect(bench.Percentile(values, math.NaN())).To(Equal(1.0))
		Expect(bench.Percentile(values, math.Inf(1))).To(Equal(3.0))
	})

	It("does not reorder its input", func() {
		values := []float64{3, 1, 2}
		bench.Percentile(values, 50)
		Expect(values).To(Equal([]float64{3, 1, 2}))
	})
})
