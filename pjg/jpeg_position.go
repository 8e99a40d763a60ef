package pjg

// positionState tracks the current block position while encoding or
// decoding a scan.
type positionState struct {
	cmp  int // current component
	csc  int // index of component within scan
	mcu  int // current MCU
	sub  int // block offset within MCU
	dpos int // block position in component
	rstw int // blocks left until restart interval
}

// newPositionState initializes the position for the start of a scan.
func (c *Codec) newPositionState() positionState {
	return positionState{
		cmp:  c.scan.cmp[0],
		rstw: c.rsti,
	}
}

// resetRstw restarts the restart interval counter.
func (s *positionState) resetRstw(c *Codec) {
	s.rstw = c.rsti
}

// nextMCUPos advances the position for interleaved scans: first within the
// MCU, then through the scan component list, then to the next MCU.
func (c *Codec) nextMCUPos(s *positionState) CodingStatus {
	sta := CodingOkay

	// increment all counts where needed
	s.sub++
	if s.sub >= c.cmpnfo[s.cmp].Mbs {
		s.sub = 0

		s.csc++
		if s.csc >= c.scan.cmpc {
			s.csc = 0
			s.cmp = c.scan.cmp[0]
			s.mcu++
			if s.mcu >= c.mcuc {
				sta = CodingDone
			} else if c.rsti > 0 {
				s.rstw--
				if s.rstw == 0 {
					sta = CodingRestart
				}
			}
		} else {
			s.cmp = c.scan.cmp[s.csc]
		}
	}

	// get correct position in image ( x & y )
	ci := &c.cmpnfo[s.cmp]
	if ci.Sfh > 1 {
		// to fix mcu order
		s.dpos = (s.mcu/c.mcuh)*ci.Sfh + s.sub/ci.Sfv
		s.dpos *= ci.Bch
		s.dpos += (s.mcu%c.mcuh)*ci.Sfv + s.sub%ci.Sfv
	} else if ci.Sfv > 1 {
		// simple calculation to speed up things if simple fixing is enough
		s.dpos = s.mcu*ci.Mbs + s.sub
	} else {
		// no calculations needed without subsampling
		s.dpos = s.mcu
	}

	return sta
}

// nextMCUPosN advances the position for non-interleaved scans, skipping the
// padding region of components whose natural size is smaller than the
// interleaved grid.
func (c *Codec) nextMCUPosN(s *positionState) CodingStatus {
	ci := &c.cmpnfo[s.cmp]

	s.dpos++

	// fix for non interleaved mcu - horizontal
	if ci.Bch != ci.Nch && s.dpos%ci.Bch == ci.Nch {
		s.dpos += ci.Bch - ci.Nch
	}

	// fix for non interleaved mcu - vertical
	if ci.Bcv != ci.Ncv && s.dpos/ci.Bch == ci.Ncv {
		s.dpos = ci.Bc
	}

	if s.dpos >= ci.Bc {
		return CodingDone
	} else if c.rsti > 0 {
		s.rstw--
		if s.rstw == 0 {
			return CodingRestart
		}
	}

	return CodingOkay
}

// skipEobrun skips over an end-of-band run and advances the position.
func (c *Codec) skipEobrun(s *positionState, eobrun *int) (CodingStatus, error) {
	if *eobrun <= 0 {
		return CodingOkay, nil
	}

	// compare rst wait counter if needed
	if c.rsti > 0 {
		if *eobrun > s.rstw {
			return CodingOkay, NewError(ExitCodeDecodeError, "eob run extends passed end of reset interval")
		}
		s.rstw -= *eobrun
	}

	ci := &c.cmpnfo[s.cmp]

	// fix for non interleaved mcu - horizontal
	if ci.Bch != ci.Nch {
		s.dpos += ((s.dpos%ci.Bch + *eobrun) / ci.Nch) * (ci.Bch - ci.Nch)
	}

	// fix for non interleaved mcu - vertical
	if ci.Bcv != ci.Ncv && s.dpos/ci.Bch >= ci.Ncv {
		s.dpos += (ci.Bcv - ci.Ncv) * ci.Bch
	}

	// skip blocks
	s.dpos += *eobrun
	*eobrun = 0

	if s.dpos == ci.Bc {
		return CodingDone, nil
	} else if s.dpos > ci.Bc {
		return CodingOkay, NewError(ExitCodeDecodeError, "eob run position extended passed block count")
	} else if c.rsti > 0 && s.rstw == 0 {
		return CodingRestart, nil
	}

	return CodingOkay, nil
}
