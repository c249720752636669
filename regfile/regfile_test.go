package regfile_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vr4300sim/regfile"
)

func TestRegfile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Regfile Suite")
}

var _ = Describe("File", func() {
	var f *regfile.File

	BeforeEach(func() {
		f = regfile.New()
	})

	It("starts zeroed", func() {
		for i := uint32(0); i < 32; i++ {
			Expect(f.Read(i)).To(Equal(uint64(0)))
		}
	})

	It("reads back a written value", func() {
		f.Write(5, 0xdeadbeef)
		Expect(f.Read(5)).To(Equal(uint64(0xdeadbeef)))
	})

	It("hard-wires register 0 to zero on write", func() {
		f.Write(0, 0xffffffff)
		Expect(f.Read(0)).To(Equal(uint64(0)))
	})

	It("hard-wires register 0 to zero even after other writes", func() {
		f.Write(1, 42)
		f.Write(0, 99)
		Expect(f.Read(0)).To(Equal(uint64(0)))
		Expect(f.Read(1)).To(Equal(uint64(42)))
	})

	It("masks out-of-range indices into 0-31", func() {
		f.Write(32+3, 7)
		Expect(f.Read(3)).To(Equal(uint64(7)))
	})

	It("resets all registers to zero", func() {
		f.Write(10, 123)
		f.Reset()
		Expect(f.Read(10)).To(Equal(uint64(0)))
	})
})
