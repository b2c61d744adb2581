package bench_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gpubench/internal/bench"
)

var _ = Describe("Metadata", func() {
	It("serializes sorted key=value pairs joined by ';'", func() {
		md := bench.NewMetadata(map[string]any{
			"difficulty":     "easy",
			"cube_count":     27,
			"cube_half_size": 0.04,
		})
		Expect(md.String()).To(Equal("cube_count=27;cube_half_size=0.04;difficulty=easy"))
	})

	It("is independent of insertion order", func() {
		a := map[string]any{}
		a["z"] = 1
		a["a"] = "x"
		a["m"] = 2.5
		b := map[string]any{}
		b["m"] = 2.5
		b["z"] = 1
		b["a"] = "x"
		Expect(bench.NewMetadata(a).String()).To(Equal(bench.NewMetadata(b).String()))
	})

	It("is immutable after construction", func() {
		src := map[string]any{"seed": 0}
		md := bench.NewMetadata(src)
		src["seed"] = 99
		src["extra"] = true

		Expect(md.String()).To(Equal("seed=0"))
		Expect(md.Keys()).To(Equal([]string{"seed"}))
		Expect(md.Len()).To(Equal(1))
	})

	It("serializes empty metadata as an empty string", func() {
		Expect(bench.Metadata{}.String()).To(BeEmpty())
		Expect(bench.Metadata{}.Keys()).To(BeEmpty())
	})
})
