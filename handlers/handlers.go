// Package handlers implements the opcode handler table EX dispatches
// into. Each handler computes an ALU-style result and, for memory and
// branch opcodes, the request information DC/IC need.
package handlers

import "github.com/sarchlab/vr4300sim/insts"

// Input is what a handler needs from the already-forwarded register
// values and decoded opcode to compute its result.
type Input struct {
	Op       insts.Opcode
	RsValue  uint64
	RtValue  uint64
	PC       uint64
}

// Result is what EX produces: the ALU/address result, whether the
// instruction is a load/store (and the size/dqm to use), and whether it
// redirects the PC (taken branch/jump). For a load, Value instead
// carries the ex_fixdc keep-mask (spec section 4.6): all-ones to
// sign-extend the eventual read, zero to zero-extend it.
type Result struct {
	Value       uint64
	MemAddress  uint64
	MemSize     int
	IsLoad      bool
	IsStore     bool
	StoreData   uint64
	DQM         uint64
	BranchTaken bool
	BranchPC    uint64
}

// Handler computes a Result for one decoded opcode.
type Handler func(in Input) Result

// Table maps an Op to its Handler.
type Table interface {
	Handler(op insts.Op) (Handler, bool)
}

// Default is the reference Table covering the MIPS III subset insts.MIPSIII
// decodes.
type Default struct {
	handlers map[insts.Op]Handler
}

// NewDefault builds the reference handler table.
func NewDefault() Default {
	d := Default{handlers: make(map[insts.Op]Handler)}
	d.handlers[insts.OpNop] = handleNop
	d.handlers[insts.OpAdd] = handleAdd
	d.handlers[insts.OpAddu] = handleAddu
	d.handlers[insts.OpSub] = handleSub
	d.handlers[insts.OpSubu] = handleSubu
	d.handlers[insts.OpAnd] = handleAnd
	d.handlers[insts.OpOr] = handleOr
	d.handlers[insts.OpXor] = handleXor
	d.handlers[insts.OpSlt] = handleSlt
	d.handlers[insts.OpSltu] = handleSltu
	d.handlers[insts.OpAddi] = handleAddi
	d.handlers[insts.OpAddiu] = handleAddiu
	d.handlers[insts.OpLw] = handleLw
	d.handlers[insts.OpLh] = handleLh
	d.handlers[insts.OpLbu] = handleLbu
	d.handlers[insts.OpSw] = handleSw
	d.handlers[insts.OpBeq] = handleBeq
	d.handlers[insts.OpBne] = handleBne
	d.handlers[insts.OpJ] = handleJ
	d.handlers[insts.OpJal] = handleJal
	return d
}

// Handler implements Table.
func (d Default) Handler(op insts.Op) (Handler, bool) {
	h, ok := d.handlers[op]
	return h, ok
}

func handleNop(Input) Result { return Result{} }

func handleAdd(in Input) Result  { return Result{Value: in.RsValue + in.RtValue} }
func handleAddu(in Input) Result { return Result{Value: in.RsValue + in.RtValue} }
func handleSub(in Input) Result  { return Result{Value: in.RsValue - in.RtValue} }
func handleSubu(in Input) Result { return Result{Value: in.RsValue - in.RtValue} }
func handleAnd(in Input) Result  { return Result{Value: in.RsValue & in.RtValue} }
func handleOr(in Input) Result   { return Result{Value: in.RsValue | in.RtValue} }
func handleXor(in Input) Result  { return Result{Value: in.RsValue ^ in.RtValue} }

func handleSlt(in Input) Result {
	if int64(in.RsValue) < int64(in.RtValue) {
		return Result{Value: 1}
	}
	return Result{Value: 0}
}

func handleSltu(in Input) Result {
	if in.RsValue < in.RtValue {
		return Result{Value: 1}
	}
	return Result{Value: 0}
}

func handleAddi(in Input) Result {
	return Result{Value: in.RsValue + uint64(int64(in.Op.Imm))}
}

func handleAddiu(in Input) Result {
	return Result{Value: in.RsValue + uint64(int64(in.Op.Imm))}
}

func handleLw(in Input) Result {
	addr := in.RsValue + uint64(int64(in.Op.Imm))
	return Result{MemAddress: addr, MemSize: 4, IsLoad: true, Value: ^uint64(0)}
}

func handleLh(in Input) Result {
	addr := in.RsValue + uint64(int64(in.Op.Imm))
	return Result{MemAddress: addr, MemSize: 2, IsLoad: true, Value: ^uint64(0)}
}

func handleLbu(in Input) Result {
	addr := in.RsValue + uint64(int64(in.Op.Imm))
	return Result{MemAddress: addr, MemSize: 1, IsLoad: true}
}

func handleSw(in Input) Result {
	addr := in.RsValue + uint64(int64(in.Op.Imm))
	return Result{MemAddress: addr, MemSize: 4, IsStore: true, StoreData: in.RtValue}
}

func handleBeq(in Input) Result {
	taken := in.RsValue == in.RtValue
	return Result{BranchTaken: taken, BranchPC: branchTarget(in)}
}

func handleBne(in Input) Result {
	taken := in.RsValue != in.RtValue
	return Result{BranchTaken: taken, BranchPC: branchTarget(in)}
}

func branchTarget(in Input) uint64 {
	return in.PC + 4 + uint64(int64(in.Op.Imm)<<2)
}

func handleJ(in Input) Result {
	return Result{BranchTaken: true, BranchPC: jumpTarget(in)}
}

func handleJal(in Input) Result {
	return Result{BranchTaken: true, BranchPC: jumpTarget(in), Value: in.PC + 8}
}

func jumpTarget(in Input) uint64 {
	return (in.PC+4)&0xfffffffff0000000 | uint64(in.Op.Target)<<2
}
