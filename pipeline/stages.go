package pipeline

import (
	"github.com/sarchlab/vr4300sim/fault"
	"github.com/sarchlab/vr4300sim/handlers"
	"github.com/sarchlab/vr4300sim/insts"
)

// doWriteback is stage index 0: it commits whatever DC handed it last
// tick to the register file.
func (p *Pipeline) doWriteback() {
	if p.dcwb.Fault != fault.None {
		return
	}
	if p.dcwb.PC == 0 && !p.dcwb.Valid {
		return
	}
	if p.dcwb.Valid && p.dcwb.Dest != 0 {
		p.regs.Write(p.dcwb.Dest, p.dcwb.Result)
	}
	if !p.dcwb.IsNop {
		p.stats.Instructions++
	}
}

// doDataCache is stage index 1. Stores complete synchronously through
// WriteWord; loads never call ReadWord here and always defer to the
// ex_fixdc replay entry point via a DCB fault (SPEC_FULL.md open
// question 1 and spec.md's memory-latency Non-goal).
func (p *Pipeline) doDataCache() {
	if p.exdc.Fault != fault.None {
		p.dcwb = DCWBLatch{Common: p.exdc.Common}
		return
	}

	res := p.exdc.Result
	switch {
	case res.IsStore:
		seg, ok := p.segMap.Lookup(res.MemAddress, p.status)
		if !ok {
			p.enterFault(fault.DADE)
			return
		}
		phys := seg.Translate(res.MemAddress)
		p.bus.WriteWord(phys, res.StoreData, res.DQM)
		p.dcwb = DCWBLatch{Common: p.exdc.Common}
	case res.IsLoad:
		if _, ok := p.segMap.Lookup(res.MemAddress, p.status); !ok {
			p.enterFault(fault.DADE)
			return
		}
		p.enterFault(fault.DCB)
	default:
		p.dcwb = DCWBLatch{
			Common: p.exdc.Common,
			Dest:   p.exdc.Dest,
			Result: p.exdc.Result.Value,
			Valid:  p.exdc.Dest != 0,
			IsNop:  p.exdc.Opcode.Op == insts.OpNop,
		}
	}
}

// doExFixdc is the skip_stages=5 replay entry point: it performs the
// deferred load's actual bus read, now that the DCB stall has drained,
// and sign/zero-extends the result per spec.md 4.6.
func (p *Pipeline) doExFixdc() {
	if p.exdc.Fault != fault.None {
		p.dcwb = DCWBLatch{Common: p.exdc.Common}
		return
	}

	res := p.exdc.Result
	seg, ok := p.segMap.Lookup(res.MemAddress, p.status)
	if !ok {
		p.enterFault(fault.DADE)
		return
	}
	phys := seg.Translate(res.MemAddress)
	raw, ok := p.bus.ReadWord(phys, res.MemSize)
	if !ok {
		p.enterFault(fault.DCB)
		return
	}

	value := extendLoad(raw, res.MemSize, p.exdc.Result.Value)
	p.dcwb = DCWBLatch{
		Common: Common{PC: p.exdc.PC},
		Dest:   p.exdc.Dest,
		Result: value,
		Valid:  p.exdc.Dest != 0,
		IsNop:  p.exdc.Opcode.Op == insts.OpNop,
	}
}

// extendLoad sign- or zero-extends a size-byte value read from memory
// to a full 64-bit register value, per spec.md 4.6: maskshift/datashift
// round-trip the raw value through a left shift and a logical or
// arithmetic right shift to produce zero- and sign-extended candidates,
// then mask picks which one a given load wants kept. mask is the
// handler-set exdc_latch.result value — all-ones for a signed load,
// zero for an unsigned one — not a derived signedness bit, so a
// handler decides extension purely by how it populates its Result.
func extendLoad(raw uint64, size int, mask uint64) uint64 {
	maskshift := uint(size * 8)
	datashift := uint(64) - maskshift

	data := (raw << datashift) >> datashift
	sdata := uint64(int64(raw<<datashift) >> datashift)

	return (sdata & mask) | data
}

// doExecute is stage index 2: dispatches into the handler table after
// resolving the load-use interlock and WB-forwarded operand reads.
//
// ldiAcked plays the same one-shot-ack role here that uncAcked plays in
// doRegisterFetch: the first time RFEX's needed source matches DCWB's
// pending destination, EX raises LDI instead of running the handler.
// Tick's replay dispatch then re-enters EX (not RF — see Tick's
// skip_stages==3 special case) against the very same RFEX content, and
// this second pass, with ldiAcked already set, proceeds to forward the
// now-available value instead of re-raising the fault.
func (p *Pipeline) doExecute() {
	if p.rfex.Fault != fault.None {
		p.exdc = EXDCLatch{Common: p.rfex.Common}
		return
	}

	op := p.rfex.Opcode
	hazard := p.dcwb.Valid && p.dcwb.Dest != 0 &&
		((op.NeedsRs() && op.Rs == p.dcwb.Dest) || (op.NeedsRt() && op.Rt == p.dcwb.Dest))
	if hazard && !p.ldiAcked {
		p.ldiAcked = true
		p.enterFault(fault.LDI)
		return
	}
	p.ldiAcked = false

	rs := p.regs.Read(op.Rs)
	rt := p.regs.Read(op.Rt)
	if op.NeedsRs() {
		rs = p.readForwarded(op.Rs)
	}
	if op.NeedsRt() {
		rt = p.readForwarded(op.Rt)
	}

	var res handlers.Result
	if h, ok := p.table.Handler(op.Op); ok {
		res = h(handlers.Input{Op: op, RsValue: rs, RtValue: rt, PC: p.rfex.PC})
	}

	p.exdc = EXDCLatch{Common: p.rfex.Common, Opcode: op, Result: res, Dest: destRegister(op)}

	if res.BranchTaken {
		p.pc = res.BranchPC
		p.icrf.IW = 0
	}
}

func destRegister(op insts.Opcode) uint32 {
	switch {
	case op.Op == insts.OpJal:
		return 31
	case op.IsBranch():
		return 0
	case op.IsLoad():
		return op.Rt
	default:
		switch op.Op {
		case insts.OpAdd, insts.OpAddu, insts.OpSub, insts.OpSubu,
			insts.OpAnd, insts.OpOr, insts.OpXor, insts.OpSlt, insts.OpSltu:
			return op.Rd
		case insts.OpAddi, insts.OpAddiu:
			return op.Rt
		default:
			return 0
		}
	}
}

// doRegisterFetch is stage index 3: decode the raw word IC latched last
// tick and check the uncached bit. No ALU work happens here.
//
// An uncached fetch raises UNC exactly once per instruction: the UNC
// replay (skip_stages=3) re-runs RF against the very same ICRF latch IC
// left behind, so without uncAcked the same Uncached bit would fault
// forever instead of letting the replay's RF pass decode through.
func (p *Pipeline) doRegisterFetch() {
	if p.icrf.Fault != fault.None {
		p.rfex = RFEXLatch{Common: p.icrf.Common}
		return
	}
	if p.icrf.Uncached && !p.uncAcked {
		p.uncAcked = true
		p.enterFault(fault.UNC)
		return
	}
	p.uncAcked = false
	op := p.decoder.Decode(p.icrf.IW)
	p.rfex = RFEXLatch{Common: p.icrf.Common, Opcode: op}
}

// doInstructionCache is stage index 4: translate the PC, fetch the raw
// word, and latch it (masked) for RF to decode next tick.
func (p *Pipeline) doInstructionCache() {
	seg, ok := p.segMap.Lookup(p.pc, p.status)
	if !ok {
		p.enterFault(fault.IADE)
		return
	}
	phys := seg.Translate(p.pc)
	word, ok := p.bus.ReadWord(phys, 4)
	if !ok {
		p.enterFault(fault.IADE)
		return
	}

	p.icrf = ICRFLatch{
		Common:   Common{PC: p.pc, Fault: fault.None},
		IW:       uint32(word) & p.iwMask,
		Uncached: !seg.Cached,
	}
	p.iwMask = 0xffffffff
	p.pc += 4
}
