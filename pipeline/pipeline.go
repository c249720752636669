// Package pipeline implements the VR4300 five-stage in-order execution
// core: the four pipeline latches, the IC/RF/EX/DC/WB stage functions,
// the skip_stages fault-replay scheduler, and WB-to-EX forwarding.
package pipeline

import (
	"github.com/sarchlab/vr4300sim/bus"
	"github.com/sarchlab/vr4300sim/cp0"
	"github.com/sarchlab/vr4300sim/fault"
	"github.com/sarchlab/vr4300sim/handlers"
	"github.com/sarchlab/vr4300sim/insts"
	"github.com/sarchlab/vr4300sim/regfile"
	"github.com/sarchlab/vr4300sim/segment"
)

// resetVector is where PC lands after an RST fault clears the latches.
const resetVector uint64 = 0xffffffffbfc00000

// Stats tracks basic performance counters, in the shape of the
// teacher's Pipeline.Stats().
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Faults       uint64
	StallCycles  uint64
}

// Pipeline is the VR4300 pipeline core.
type Pipeline struct {
	regs    *regfile.File
	bus     bus.Bus
	segMap  segment.Map
	decoder insts.Decoder
	table   handlers.Table
	faults  fault.Injector
	status  cp0.Status

	pc      uint64
	resetPC uint64
	icrf    ICRFLatch
	rfex    RFEXLatch
	exdc    EXDCLatch
	dcwb    DCWBLatch
	iwMask  uint32

	skipStages        int
	lastFault         fault.Kind
	faultPresent      bool
	exceptionHistory  int
	cooldownThreshold int
	cyclesToStall     int
	faultRaisedTick   bool
	uncAcked          bool
	ldiAcked          bool
	coldReset         bool

	stats Stats
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithBus overrides the memory bus.
func WithBus(b bus.Bus) Option {
	return func(p *Pipeline) { p.bus = b }
}

// WithSegmentMap overrides the segment map.
func WithSegmentMap(m segment.Map) Option {
	return func(p *Pipeline) { p.segMap = m }
}

// WithDecoder overrides the instruction decoder.
func WithDecoder(d insts.Decoder) Option {
	return func(p *Pipeline) { p.decoder = d }
}

// WithHandlerTable overrides the opcode handler table.
func WithHandlerTable(t handlers.Table) Option {
	return func(p *Pipeline) { p.table = t }
}

// WithFaultInjector overrides the fault injector.
func WithFaultInjector(inj fault.Injector) Option {
	return func(p *Pipeline) { p.faults = inj }
}

// WithCooldownThreshold overrides the exception_history cooldown length.
func WithCooldownThreshold(n int) Option {
	return func(p *Pipeline) { p.cooldownThreshold = n }
}

// WithResetVector overrides the PC the pipeline starts (and RST-resets)
// at.
func WithResetVector(pc uint64) Option {
	return func(p *Pipeline) { p.pc = pc; p.resetPC = pc }
}

// New constructs a Pipeline with default reference collaborators,
// overridable via Option.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		regs:              regfile.New(),
		bus:               bus.NewFlatMemory(1 << 20),
		segMap:            segment.NewDefault(),
		decoder:           insts.NewMIPSIII(),
		table:             handlers.NewDefault(),
		faults:            fault.NewDefault(3),
		pc:                resetVector,
		resetPC:           resetVector,
		iwMask:            0xffffffff,
		cooldownThreshold: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Regs exposes the register file for setup and inspection.
func (p *Pipeline) Regs() *regfile.File { return p.regs }

// PC returns the current program counter.
func (p *Pipeline) PC() uint64 { return p.pc }

// Stats returns a snapshot of the pipeline's performance counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// SkipStages exposes the current replay state, mainly for tests.
func (p *Pipeline) SkipStages() int { return p.skipStages }

// FaultPresent exposes the cooldown flag, mainly for tests.
func (p *Pipeline) FaultPresent() bool { return p.faultPresent }

// Reset requests a cold reset. Per spec.md 4.7/section 9's open
// question, the driver only honors this after a pending stall has
// finished draining, so it is latched here and consumed inside Tick
// rather than applied immediately — Reset must not reorder ahead of a
// stall already in progress.
func (p *Pipeline) Reset() {
	p.coldReset = true
}

// Tick advances the pipeline by one cycle, dispatching to the correct
// stage subset per skip_stages (SPEC_FULL.md section 4 decision 2).
func (p *Pipeline) Tick() {
	p.stats.Cycles++

	if p.cyclesToStall > 0 {
		p.cyclesToStall--
		p.stats.StallCycles++
		return
	}

	if p.coldReset {
		p.coldReset = false
		p.enterFault(fault.RST)
	}

	p.faultRaisedTick = false

	switch {
	case p.skipStages == 0 && !p.faultPresent:
		p.runStages(0, 4)
	case p.skipStages == 0 && p.faultPresent:
		p.runStages(0, 4)
		if !p.faultRaisedTick {
			p.exceptionHistory++
			if p.exceptionHistory >= p.cooldownThreshold {
				p.faultPresent = false
				p.exceptionHistory = 0
			}
		}
	case p.skipStages == 5:
		p.doExFixdc()
		if !p.faultRaisedTick {
			p.runStages(2, 4)
		}
		if !p.faultRaisedTick {
			p.clearReplay()
		}
	default:
		// LDI's skip_stages is pinned to 3 ("from RF") by spec.md's
		// testable property 2, but the instruction that hit the hazard
		// is sitting in RFEX, not derivable from ICRF — re-decoding from
		// RF here would drop it (see DESIGN.md). So for an LDI replay
		// specifically, the stage actually re-entered is EX: doExecute's
		// ldiAcked bypass lets the same RFEX content through on this
		// second attempt, this time forwarding from DCWB instead of
		// re-raising the fault. skip_stages itself still reads 3.
		from := p.skipStages
		if p.lastFault == fault.LDI && from == 3 {
			from = 2
		}
		p.runStages(from, 4)
		if !p.faultRaisedTick {
			p.clearReplay()
		}
	}
}

// runStages runs stage indices from..to in the order WB, DC, EX, RF, IC
// (indices 0..4). A stage that raises a
// fault stops the rest of this tick's subsequence: the stages after it
// must not touch latches the replay scheduler still needs intact.
func (p *Pipeline) runStages(from, to int) {
	for i := from; i <= to; i++ {
		switch i {
		case 0:
			p.doWriteback()
		case 1:
			p.doDataCache()
		case 2:
			p.doExecute()
		case 3:
			p.doRegisterFetch()
		case 4:
			p.doInstructionCache()
		}
		if p.faultRaisedTick {
			return
		}
	}
}

// enterFault records a fault and applies its recovery.
func (p *Pipeline) enterFault(k fault.Kind) {
	p.stats.Faults++
	p.lastFault = k
	p.faultPresent = true
	p.faultRaisedTick = true
	p.exceptionHistory = 0
	rec := p.faults.Raise(k)
	p.skipStages = rec.SkipStages
	p.cyclesToStall = rec.Stall

	if k == fault.RST {
		p.icrf = ICRFLatch{}
		p.rfex = RFEXLatch{}
		p.exdc = EXDCLatch{}
		p.dcwb = DCWBLatch{}
		p.iwMask = 0xffffffff
		p.pc = p.resetPC
		p.faultPresent = false
		p.uncAcked = false
		p.ldiAcked = false
	}
}

// clearReplay returns to the fast path after a replay variant completes
// without raising a further fault.
func (p *Pipeline) clearReplay() {
	p.skipStages = 0
}
