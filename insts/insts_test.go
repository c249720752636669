package insts_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vr4300sim/insts"
)

func TestInsts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Insts Suite")
}

var _ = Describe("MIPSIII decoder", func() {
	var d insts.MIPSIII

	BeforeEach(func() {
		d = insts.NewMIPSIII()
	})

	It("decodes an all-zero word as NOP", func() {
		op := d.Decode(0)
		Expect(op.Op).To(Equal(insts.OpNop))
	})

	It("decodes an R-type ADDU", func() {
		// addu $t0($8), $t1($9), $t2($10)
		word := uint32(0)<<26 | uint32(9)<<21 | uint32(10)<<16 | uint32(8)<<11 | uint32(0x21)
		op := d.Decode(word)
		Expect(op.Op).To(Equal(insts.OpAddu))
		Expect(op.Rs).To(Equal(uint32(9)))
		Expect(op.Rt).To(Equal(uint32(10)))
		Expect(op.Rd).To(Equal(uint32(8)))
	})

	It("decodes ADDIU with a sign-extended immediate", func() {
		word := uint32(0x09)<<26 | uint32(8)<<21 | uint32(9)<<16 | uint32(0xffff)
		op := d.Decode(word)
		Expect(op.Op).To(Equal(insts.OpAddiu))
		Expect(op.Imm).To(Equal(int32(-1)))
	})

	It("decodes LW as a load", func() {
		word := uint32(0x23)<<26 | uint32(8)<<21 | uint32(9)<<16 | uint32(4)
		op := d.Decode(word)
		Expect(op.Op).To(Equal(insts.OpLw))
		Expect(op.IsLoad()).To(BeTrue())
	})

	It("decodes BEQ as a branch", func() {
		word := uint32(0x04) << 26
		op := d.Decode(word)
		Expect(op.IsBranch()).To(BeTrue())
	})

	It("decodes an unrecognized opcode as invalid", func() {
		word := uint32(0x3f) << 26
		op := d.Decode(word)
		Expect(op.Op).To(Equal(insts.OpInvalid))
	})
})
