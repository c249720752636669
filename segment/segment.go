// Package segment models VR4300 address-space windows and the lookup
// contract the pipeline's IC and DC stages use to translate a virtual
// address and determine cacheability, without implementing a real TLB.
package segment

import "github.com/sarchlab/vr4300sim/cp0"

// Segment describes one fixed address-space window.
type Segment struct {
	// Start is the first virtual address in the window.
	Start uint64
	// Length is the offset of the window's last address from Start:
	// Contains treats Start+Length as inside, so the window spans
	// Length+1 addresses.
	Length uint64
	// Offset is added to a virtual address to produce the physical
	// address (0 for mapped-identity windows).
	Offset uint64
	// Cached reports whether accesses in this window go through the
	// data/instruction cache or bypass it (uncached).
	Cached bool
}

// Contains reports whether addr falls inside the segment. The
// subtraction is unsigned on purpose: if addr is below Start the
// subtraction wraps to a huge value, which is still correctly caught
// by the length comparison without a separate underflow branch.
func (s Segment) Contains(addr uint64) bool {
	return addr-s.Start <= s.Length
}

// Translate converts a virtual address known to be inside the segment
// into a physical address.
func (s Segment) Translate(addr uint64) uint64 {
	return addr + s.Offset
}

// Map resolves a virtual address to the segment that contains it. The
// current CP0 status word is supplied because which windows are valid
// (and how KUSEG behaves) depends on the processor's operating mode.
type Map interface {
	Lookup(addr uint64, status cp0.Status) (Segment, bool)
}

// Fixed windows of the VR4300 32-bit virtual address map that matter to
// the pipeline core: KUSEG (mapped, cached), KSEG0 (unmapped, cached),
// KSEG1 (unmapped, uncached). KSEG2/KSSEG (mapped, supervisor/kernel
// only) are omitted: nothing in the pipeline core's test scenarios
// touches them, and a real TLB is out of scope.
const (
	kuseg0Start uint64 = 0x0000000000000000
	kuseg0Len   uint64 = 0x000000007fffffff
	kseg0Start  uint64 = 0xffffffff80000000
	kseg0Len    uint64 = 0x000000001fffffff
	kseg1Start  uint64 = 0xffffffffa0000000
	kseg1Len    uint64 = 0x000000001fffffff
)

// Default is the reference Map implementation: the fixed unmapped
// kernel windows plus a flat, always-cached KUSEG. It is sufficient to
// drive the IC/DC segment-hit/miss paths and the RF uncached check
// without a TLB.
type Default struct{}

// NewDefault returns the reference segment map.
func NewDefault() Default {
	return Default{}
}

// Lookup implements Map. KSEG0 and KSEG1 both alias the same low 512MB
// of physical memory; Offset is the two's-complement of Start so that
// Translate's addr+Offset addition yields addr-Start without a signed
// subtraction. KSEG0/KSEG1 are kernel-only windows: a non-kernel-mode
// access to either is a miss (DADE/IADE at the caller), matching the
// VR4300 architecture manual. KUSEG is reachable from every mode.
func (Default) Lookup(addr uint64, status cp0.Status) (Segment, bool) {
	switch {
	case (Segment{Start: kseg1Start, Length: kseg1Len}).Contains(addr):
		if status.Mode() != cp0.ModeKernel {
			return Segment{}, false
		}
		return Segment{Start: kseg1Start, Length: kseg1Len, Offset: -kseg1Start, Cached: false}, true
	case (Segment{Start: kseg0Start, Length: kseg0Len}).Contains(addr):
		if status.Mode() != cp0.ModeKernel {
			return Segment{}, false
		}
		return Segment{Start: kseg0Start, Length: kseg0Len, Offset: -kseg0Start, Cached: true}, true
	case (Segment{Start: kuseg0Start, Length: kuseg0Len}).Contains(addr):
		return Segment{Start: kuseg0Start, Length: kuseg0Len, Offset: 0, Cached: true}, true
	default:
		return Segment{}, false
	}
}
