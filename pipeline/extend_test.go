package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// TestPipeline in pipeline_test.go (package pipeline_test) drives
// RunSpecs for the whole directory's Ginkgo tree, including the specs
// registered here.

var _ = Describe("extendLoad", func() {
	It("sign-extends a negative 16-bit value when the mask is all-ones", func() {
		Expect(extendLoad(0x00008000, 2, ^uint64(0))).To(Equal(uint64(0xffffffffffff8000)))
	})

	It("zero-extends a 16-bit value when the mask is zero", func() {
		Expect(extendLoad(0x00008000, 2, 0)).To(Equal(uint64(0x0000000000008000)))
	})

	It("sign-extends a negative byte when the mask is all-ones", func() {
		Expect(extendLoad(0x000000ff, 1, ^uint64(0))).To(Equal(uint64(0xffffffffffffffff)))
	})

	It("passes an 8-byte value through unchanged regardless of mask", func() {
		Expect(extendLoad(0x0123456789abcdef, 8, ^uint64(0))).To(Equal(uint64(0x0123456789abcdef)))
		Expect(extendLoad(0x0123456789abcdef, 8, 0)).To(Equal(uint64(0x0123456789abcdef)))
	})

	It("leaves a positive 32-bit value unchanged regardless of mask", func() {
		Expect(extendLoad(0x00001234, 4, ^uint64(0))).To(Equal(uint64(0x1234)))
		Expect(extendLoad(0x00001234, 4, 0)).To(Equal(uint64(0x1234)))
	})
})
