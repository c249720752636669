package pipeline

// readForwarded reads register idx the way EX does: by temporarily
// overwriting it with the pending DCWB result if idx is that result's
// destination, reading, then restoring the prior value. This is the
// pipeline's WB-to-EX forwarding idiom — kept as a symmetric
// save/overwrite/read/restore sequence rather than a data-dependent
// branch around the read itself (spec.md design notes call this out as
// deliberate).
func (p *Pipeline) readForwarded(idx uint32) uint64 {
	forward := p.dcwb.Valid && p.dcwb.Dest == idx && idx != 0

	var saved uint64
	if forward {
		saved = p.regs.Read(idx)
		p.regs.Write(idx, p.dcwb.Result)
	}

	value := p.regs.Read(idx)

	if forward {
		p.regs.Write(idx, saved)
	}

	return value
}
