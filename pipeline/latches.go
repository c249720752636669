package pipeline

import (
	"github.com/sarchlab/vr4300sim/fault"
	"github.com/sarchlab/vr4300sim/handlers"
	"github.com/sarchlab/vr4300sim/insts"
)

// Common carries the fields every pipeline latch shares: the PC the
// instruction in that stage is associated with, and a Fault field. A
// stage whose upstream latch carries a non-None Fault copies it forward
// instead of running; enterFault does not write Fault into any latch,
// so a raised fault is tracked only by the Pipeline's replay state
// (skipStages, lastFault, faultPresent), not in the latches.
type Common struct {
	PC    uint64
	Fault fault.Kind
}

// ICRFLatch sits between IC and RF. IW is the raw instruction word IC
// fetched (and masked) for the PC in Common; RF decodes it into the
// RFEX latch one tick later, since IC runs after RF within the same
// tick's reverse stage order (SPEC_FULL.md section 4 decision 1).
type ICRFLatch struct {
	Common
	IW       uint32
	Uncached bool
}

// RFEXLatch sits between RF and EX, holding the finalized opcode.
type RFEXLatch struct {
	Common
	Opcode insts.Opcode
}

// EXDCLatch sits between EX and DC, holding EX's computed result and
// any memory request it produced.
type EXDCLatch struct {
	Common
	Opcode insts.Opcode
	Result handlers.Result
	Dest   uint32
}

// DCWBLatch sits between DC and WB, holding the value to commit. IsNop
// marks a decoded NOP (an encoded one, or a fall-through instruction
// squashed by a taken branch zeroing the latched ICRF word) so WB can skip counting it as a retired instruction
// without needing to special-case Dest == 0, which real non-writing
// instructions (stores, branches) also have.
type DCWBLatch struct {
	Common
	Dest   uint32
	Result uint64
	Valid  bool
	IsNop  bool
}
