package pjg

import "bytes"

// pjgDecode reads a PJG container and rebuilds all per-file state: header
// data, padbit, restart errors, coefficient collections and garbage. The
// reader must be positioned directly after the magic bytes.
func (c *Codec) pjgDecode(str *ByteReader) error {
	// check header codes
	for {
		hcode, ok := str.ReadByte()
		if !ok {
			return NewError(ExitCodeBadPjgFile, "unexpected end of data encountered")
		}
		if hcode == 0x00 {
			// retrieve compression settings from file
			var set [8]byte
			if str.ReadN(set[:], 8) != 8 {
				return NewError(ExitCodeBadPjgFile, "unexpected end of data encountered")
			}
			c.cmpnfo[0].NoisTrs = set[0]
			c.cmpnfo[1].NoisTrs = set[1]
			c.cmpnfo[2].NoisTrs = set[2]
			c.cmpnfo[3].NoisTrs = set[3]
			c.cmpnfo[0].SegmCnt = set[4]
			c.cmpnfo[1].SegmCnt = set[5]
			c.cmpnfo[2].SegmCnt = set[6]
			c.cmpnfo[3].SegmCnt = set[7]
			for cmp := 0; cmp < MaxComponents; cmp++ {
				if c.cmpnfo[cmp].NoisTrs > 10 || c.cmpnfo[cmp].SegmCnt < 1 || c.cmpnfo[cmp].SegmCnt > 49 {
					return NewError(ExitCodeBadPjgFile, "compression settings out of range")
				}
			}
			c.autoSet = false
		} else if hcode >= 0x14 {
			// compare version number
			if hcode != AppVersion {
				return Errorf(ExitCodeVersionMismatch, "incompatible file, use %s v%d.%d",
					AppName, hcode/10, hcode%10)
			}
			break
		} else {
			return Errorf(ExitCodeVersionMismatch, "unknown header code, use newer version of %s", AppName)
		}
	}

	// init arithmetic decompression
	dec := NewArithmeticDecoder(str)

	// decode JPG header
	c.hdrdata = c.decodeGeneric(dec)
	// retrieve padbit from stream
	c.padbit = int8(c.decodeBit(dec))
	// decode one bit that signals false/correct use of RST markers
	if c.decodeBit(dec) == 1 {
		c.rstErr = c.decodeGeneric(dec)
	}

	// undo header optimizations
	c.deoptimizeHeader()
	// discard meta information from header if option set
	if c.opts.DiscardMeta {
		c.rebuildHeader()
	}
	// parse header for image info
	if err := c.setupImageInfo(); err != nil {
		return err
	}

	// decode the actual component data
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		c.decodeZstscan(dec, ci)
		c.decodeZdstHigh(dec, ci)
		if err := c.decodeACHigh(dec, ci); err != nil {
			return err
		}
		c.decodeZdstLow(dec, ci)
		if err := c.decodeACLow(dec, ci); err != nil {
			return err
		}
		if err := c.decodeDC(dec, ci); err != nil {
			return err
		}
	}

	// retrieve checkbit for garbage
	if c.decodeBit(dec) == 1 {
		c.grbgdata = c.decodeGeneric(dec)
	}

	return nil
}

// decodeZstscan mirrors encodeZstscan.
func (c *Codec) decodeZstscan(dec *ArithmeticDecoder, ci *Component) {
	var zsrtScan [64]uint8
	zsrtScan[0] = 0

	// preset freqlist
	freqlist := stdScan

	model := NewUniversalModel(64, 64, 1)

	for i := 1; i < 64; i++ {
		// reduce range of model
		model.ExcludeSymbolsAbove(64 - i)

		// decode symbol
		cpos := dec.Decode(model) // coded position
		model.ShiftContext(cpos)

		if cpos == 0 {
			// remaining list is identical to scan
			// fill the scan & make a quick exit
			tpos := 0
			for ; i < 64; i++ {
				tpos++
				for freqlist[tpos] == 0 {
					tpos++
				}
				zsrtScan[i] = freqlist[tpos]
			}
			break
		}

		// decode position from list
		tpos := 0
		for ; tpos < 64; tpos++ {
			if freqlist[tpos] != 0 {
				cpos--
			}
			if cpos == 0 {
				break
			}
		}

		// write decoded position to zero sort scan
		zsrtScan[i] = freqlist[tpos]
		// remove from list
		freqlist[tpos] = 0
	}

	ci.FreqScan = zsrtScan
}

// decodeZdstHigh mirrors encodeZdstHigh.
func (c *Codec) decodeZdstHigh(dec *ArithmeticDecoder, ci *Component) {
	model := NewUniversalModel(49+1, 25+1, 1)
	zdstls := ci.ZdstData
	w := ci.Bch

	for dpos := 0; dpos < len(zdstls); dpos++ {
		above, left := contextNNB(dpos, w)
		a, l := 0, 0
		if above >= 0 {
			a = int(zdstls[above])
		}
		if left >= 0 {
			l = int(zdstls[left])
		}
		model.ShiftContext((a + l + 2) / 4)
		zdstls[dpos] = uint8(dec.Decode(model))
	}
}

// decodeZdstLow mirrors encodeZdstLow.
func (c *Codec) decodeZdstLow(dec *ArithmeticDecoder, ci *Component) {
	model := NewUniversalModel(8, 8, 2)

	// first row
	for dpos := 0; dpos < ci.Bc; dpos++ {
		model.ShiftContext((int(ci.ZdstData[dpos]) + 3) / 7)
		model.ShiftContext(int(ci.EobXHigh[dpos]))
		ci.ZdstXLow[dpos] = uint8(dec.Decode(model))
	}
	// first column
	for dpos := 0; dpos < ci.Bc; dpos++ {
		model.ShiftContext((int(ci.ZdstData[dpos]) + 3) / 7)
		model.ShiftContext(int(ci.EobYHigh[dpos]))
		ci.ZdstYLow[dpos] = uint8(dec.Decode(model))
	}
}

// decodeDC mirrors encodeDC.
func (c *Codec) decodeDC(dec *ArithmeticDecoder, ci *Component) error {
	segmTab := &segmTables[ci.SegmCnt-1]

	maxVal := ci.MaxV(0)
	maxLen := int(bitLen1024P[maxVal])

	modLen := NewUniversalModel(maxLen+1, max(int(ci.SegmCnt), maxLen+1), 2)
	modRes := NewBinaryModel(max(int(ci.SegmCnt), 16), 2)
	modSgn := NewBinaryModel(1, 0)

	bc := ci.Bc
	w := ci.Bch

	absvStore := make([]uint16, bc)

	coeffs := ci.CollData[0]
	zdstls := ci.ZdstData

	for dpos := 0; dpos < bc; dpos++ {
		pY := dpos / w
		pX := dpos % w
		rX := w - (pX + 1)

		snum := int(segmTab[zdstls[dpos]])
		ctxAvr := aavrgContext(absvStore, w, dpos, pY, pX, rX)
		ctxLen := int(bitLen1024P[ctxAvr])
		modLen.ShiftModel(ctxLen, snum)

		// decode bit length of current coefficient
		clen := dec.Decode(modLen)

		if clen == 0 {
			continue
		}
		// decoding of residual
		absv := 1
		// first set bit must be 1, so we start at clen - 2
		for bp := clen - 2; bp >= 0; bp-- {
			modRes.ShiftModel(snum, bp)
			bt := dec.Decode(modRes)
			absv <<= 1
			absv |= bt
		}
		// decode sign
		sgn := dec.Decode(modSgn)
		if absv > maxVal {
			return NewError(ExitCodeBadPjgFile, "decoded dc coefficient out of range")
		}
		if sgn == 0 {
			coeffs[dpos] = int16(absv)
		} else {
			coeffs[dpos] = int16(-absv)
		}
		absvStore[dpos] = uint16(absv)
	}

	return nil
}

// decodeACHigh mirrors encodeACHigh.
func (c *Codec) decodeACHigh(dec *ArithmeticDecoder, ci *Component) error {
	segmTab := &segmTables[ci.SegmCnt-1]

	modLen := NewUniversalModel(11, max(11, int(ci.SegmCnt)), 2)
	modRes := NewBinaryModel(max(int(ci.SegmCnt), 16), 2)
	modSgn := NewBinaryModel(9, 1)

	bc := ci.Bc
	w := ci.Bch

	absvStore := make([]uint16, bc)
	sgnStore := make([]uint8, bc)
	zdstls := make([]uint8, bc)
	copy(zdstls, ci.ZdstData)

	eobX := ci.EobXHigh
	eobY := ci.EobYHigh
	for i := range eobX {
		eobX[i] = 0
		eobY[i] = 0
	}

	for i := 1; i < 64; i++ {
		bpos := int(ci.FreqScan[i])
		bX := int(ZigzagToRaster[bpos]) % 8
		bY := int(ZigzagToRaster[bpos]) / 8

		if bX == 0 || bY == 0 {
			continue // process remaining coefficients elsewhere
		}

		for j := range absvStore {
			absvStore[j] = 0
			sgnStore[j] = 0
		}

		coeffs := ci.CollData[bpos]

		maxVal := ci.MaxV(bpos)
		maxLen := int(bitLen1024P[maxVal])

		for dpos := 0; dpos < bc; dpos++ {
			// skip if beyond eob
			if zdstls[dpos] == 0 {
				continue
			}

			pY := dpos / w
			pX := dpos % w
			rX := w - (pX + 1)

			snum := int(segmTab[zdstls[dpos]])
			ctxAvr := aavrgContext(absvStore, w, dpos, pY, pX, rX)
			ctxLen := int(bitLen1024P[ctxAvr])
			modLen.ShiftModel(ctxLen, snum)
			modLen.ExcludeSymbolsAbove(maxLen)

			clen := dec.Decode(modLen)
			if clen == 0 {
				continue
			}
			// decoding of residual
			absv := 1
			// first set bit must be 1, so we start at clen - 2
			for bp := clen - 2; bp >= 0; bp-- {
				modRes.ShiftModel(snum, bp)
				bt := dec.Decode(modRes)
				absv <<= 1
				absv |= bt
			}
			// decode sign
			ctxSgn := 0
			if pX > 0 {
				ctxSgn = int(sgnStore[dpos-1])
			}
			if pY > 0 {
				ctxSgn += 3 * int(sgnStore[dpos-w])
			}
			modSgn.ShiftContext(ctxSgn)
			sgn := dec.Decode(modSgn)
			if absv > maxVal {
				return NewError(ExitCodeBadPjgFile, "decoded ac coefficient out of range")
			}
			if sgn == 0 {
				coeffs[dpos] = int16(absv)
			} else {
				coeffs[dpos] = int16(-absv)
			}
			absvStore[dpos] = uint16(absv)
			sgnStore[dpos] = uint8(sgn + 1)
			zdstls[dpos]--
			if uint8(bX) > eobX[dpos] {
				eobX[dpos] = uint8(bX)
			}
			if uint8(bY) > eobY[dpos] {
				eobY[dpos] = uint8(bY)
			}
		}
		modLen.Flush()
		modRes.Flush()
		modSgn.Flush()
	}

	return nil
}

// decodeACLow mirrors encodeACLow.
func (c *Codec) decodeACLow(dec *ArithmeticDecoder, ci *Component) error {
	var coeffs [8][]int16
	var predCf [8]int

	modLen := NewUniversalModel(11, max(int(ci.SegmCnt), 11), 2)
	modRes := NewBinaryModel(1<<4, 2)
	modTop := NewBinaryModel(1<<max(4, int(ci.NoisTrs)), 3)
	modSgn := NewBinaryModel(11, 1)

	bc := ci.Bc
	w := ci.Bch

	for i := 2; i < 16; i++ {
		// alternate between first row and first column
		bX, bY := 0, 0
		if i%2 == 0 {
			bX = i / 2
		} else {
			bY = i / 2
		}
		bpos := int(RasterToZigzag[bX+8*bY])

		band := ci.CollData[bpos]

		var zdstls []uint8
		var nbOff int
		edgeIsX := bX == 0
		if edgeIsX {
			zdstls = ci.ZdstYLow
			for j := 0; j < 8; j++ {
				idx := int(RasterToZigzag[j+8*bY])
				coeffs[j] = ci.CollData[idx]
				predCf[j] = icosBase8x8[j*8] * ci.Quant(idx)
			}
			nbOff = -1
		} else {
			zdstls = ci.ZdstXLow
			for j := 0; j < 8; j++ {
				idx := int(RasterToZigzag[bX+8*j])
				coeffs[j] = ci.CollData[idx]
				predCf[j] = icosBase8x8[j*8] * ci.Quant(idx)
			}
			nbOff = -w
		}

		maxValP := ci.MaxV(bpos)
		maxValN := -maxValP
		maxLen := int(bitLen1024P[maxValP])
		thrsBp := 0
		if maxLen > int(ci.NoisTrs) {
			thrsBp = maxLen - int(ci.NoisTrs)
		}

		for dpos := 0; dpos < bc; dpos++ {
			// skip if beyond eob
			if zdstls[dpos] == 0 {
				continue
			}

			pY := dpos / w
			pX := dpos % w

			edge := pY
			if edgeIsX {
				edge = pX
			}
			ctxLak := 0
			if edge > 0 && predCf[0] != 0 {
				ctxLak = lakhContext(&coeffs, &predCf, dpos, nbOff)
			}
			ctxLak = clamp(ctxLak, maxValN, maxValP)
			ctxLen := int(bitLen2048N[ctxLak+2048])

			modLen.ShiftModel(ctxLen, int(zdstls[dpos]))
			modLen.ExcludeSymbolsAbove(maxLen)

			clen := dec.Decode(modLen)
			if clen == 0 {
				continue
			}
			// decoding of residual
			bp := clen - 2 // first set bit must be 1, so we start at clen - 2
			ctxRes := 0
			if bp >= thrsBp {
				ctxRes = 1
			}
			ctxAbs := ctxLak
			if ctxAbs < 0 {
				ctxAbs = -ctxAbs
			}
			ctxSgn := 0
			if ctxLak > 0 {
				ctxSgn = 1
			} else if ctxLak < 0 {
				ctxSgn = 2
			}
			for ; bp >= thrsBp; bp-- {
				modTop.ShiftModel(ctxAbs>>thrsBp, ctxRes, clen-thrsBp)
				bt := dec.Decode(modTop)
				ctxRes <<= 1
				ctxRes |= bt
			}
			absv := ctxRes
			if absv == 0 {
				absv = 1
			}
			for ; bp >= 0; bp-- {
				modRes.ShiftModel(int(zdstls[dpos]), bp)
				bt := dec.Decode(modRes)
				absv <<= 1
				absv |= bt
			}
			// decode sign
			modSgn.ShiftModel(ctxLen, ctxSgn)
			sgn := dec.Decode(modSgn)
			if absv > maxValP {
				return NewError(ExitCodeBadPjgFile, "decoded ac coefficient out of range")
			}
			if sgn == 0 {
				band[dpos] = int16(absv)
			} else {
				band[dpos] = int16(-absv)
			}
			zdstls[dpos]--
		}
		modLen.Flush()
		modRes.Flush()
		modTop.Flush()
		modSgn.Flush()
	}

	return nil
}

// decodeGeneric mirrors encodeGeneric.
func (c *Codec) decodeGeneric(dec *ArithmeticDecoder) []byte {
	bwrt := &bytes.Buffer{}
	model := NewUniversalModel(256+1, 256, 1)
	for {
		b := dec.Decode(model)
		if b == 256 {
			break
		}
		bwrt.WriteByte(byte(b))
		model.ShiftContext(b)
	}
	return bwrt.Bytes()
}

// decodeBit mirrors encodeBit.
func (c *Codec) decodeBit(dec *ArithmeticDecoder) uint8 {
	model := NewBinaryModel(1, -1)
	return uint8(dec.Decode(model))
}
