package pipeline_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vr4300sim/bus"
	"github.com/sarchlab/vr4300sim/cp0"
	"github.com/sarchlab/vr4300sim/pipeline"
	"github.com/sarchlab/vr4300sim/segment"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

const (
	opAddiu = 0x09
	opLw    = 0x23
	opBeq   = 0x04
)

func rtype(funcCode, rs, rt, rd uint32) uint32 {
	return rs<<21 | rt<<16 | rd<<11 | funcCode
}

func itype(opcode, rs, rt uint32, imm int16) uint32 {
	return opcode<<26 | rs<<21 | rt<<16 | uint32(uint16(imm))
}

func tick(p *pipeline.Pipeline, n int) {
	for i := 0; i < n; i++ {
		p.Tick()
	}
}

var _ = Describe("Pipeline", func() {
	const base = 0x1000

	It("executes a register-immediate ALU instruction to completion", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opAddiu, 0, 1, 5)))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 10)

		Expect(p.Regs().Read(1)).To(Equal(uint64(5)))
	})

	It("makes a committed result visible to a back-to-back dependent instruction via the LDI interlock", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opAddiu, 0, 1, 5)))
		mem.Load(base+4, u32le(rtype(0x21, 1, 0, 2))) // addu $2, $1, $0 -- needs $1 the very next cycle
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 12)

		Expect(p.Regs().Read(2)).To(Equal(uint64(5)))
		Expect(p.Stats().Faults).To(BeNumerically(">=", uint64(1)))
	})

	It("resolves a load-use hazard end to end through the LDI replay (scenario 2)", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opLw, 0, 5, 0x0200)))   // lw $5, 0x200($0)
		mem.Load(base+4, u32le(rtype(0x21, 5, 0, 6)))      // addu $6, $5, $0 -- needs $5 immediately
		mem.Load(0x0200, u32le(0x0000dead))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 30)

		Expect(p.Regs().Read(5)).To(Equal(uint64(0xdead)))
		Expect(p.Regs().Read(6)).To(Equal(uint64(0xdead)))
	})

	It("services a load through the DCB defer and ex_fixdc sign-extension path", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opLw, 0, 2, 0x0100)))
		mem.Load(0x0100, u32le(0xdeadbeef))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 20)

		Expect(p.Regs().Read(2)).To(Equal(uint64(0xffffffffdeadbeef)))
		Expect(p.Stats().StallCycles).To(BeNumerically(">", 0))
	})

	It("counts only genuinely retired instructions, not NOP bubbles", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opAddiu, 0, 1, 5)))
		mem.Load(base+4, u32le(0)) // nop
		mem.Load(base+8, u32le(0)) // nop
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 12)

		Expect(p.Stats().Instructions).To(Equal(uint64(1)))
	})

	It("takes a branch and squashes the fall-through instruction", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opBeq, 0, 0, 1)))      // beq $0,$0,+1 -> base+8
		mem.Load(base+4, u32le(itype(opAddiu, 0, 3, 99)))  // squashed
		mem.Load(base+8, u32le(itype(opAddiu, 0, 4, 7)))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 20)

		Expect(p.Regs().Read(4)).To(Equal(uint64(7)))
		Expect(p.Regs().Read(3)).To(Equal(uint64(0)))
	})

	It("keeps retrying IC on a persistent instruction address fault", func() {
		p := pipeline.New(pipeline.WithSegmentMap(alwaysMiss{}))

		tick(p, 5)

		Expect(p.FaultPresent()).To(BeTrue())
		Expect(p.Stats().Faults).To(BeNumerically(">=", uint64(5)))
	})

	It("resumes at the reset vector after Reset", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opAddiu, 0, 1, 5)))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))
		tick(p, 6)

		p.Reset()
		tick(p, 1)

		Expect(p.SkipStages()).To(Equal(0))
		Expect(p.FaultPresent()).To(BeFalse())
		Expect(p.PC()).To(Equal(uint64(base + 4)))
	})

	It("defers a requested reset until a pending DCB stall finishes draining", func() {
		mem := bus.NewFlatMemory(1 << 16)
		mem.Load(base, u32le(itype(opLw, 0, 2, 0x0100)))
		mem.Load(0x0100, u32le(0xdeadbeef))
		p := pipeline.New(pipeline.WithBus(mem), pipeline.WithResetVector(base))

		tick(p, 5)
		Expect(p.Stats().StallCycles).To(BeNumerically(">", 0))
		Expect(p.SkipStages()).To(Equal(5)) // still mid-DCB-replay, stall in flight

		p.Reset()
		// The stall is still draining: Reset must not have preempted it.
		Expect(p.SkipStages()).To(Equal(5))

		tick(p, 15)
		Expect(p.FaultPresent()).To(BeFalse())
		Expect(p.SkipStages()).To(Equal(0))
	})
})

type alwaysMiss struct{}

func (alwaysMiss) Lookup(uint64, cp0.Status) (segment.Segment, bool) {
	return segment.Segment{}, false
}

func u32le(word uint32) []byte {
	return []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
}
