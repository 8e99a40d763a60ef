package pjg

import (
	"bytes"
	"io"
	"sort"
)

// pjgEncode arithmetic-codes the whole file into the PJG container:
// magic, optional settings, version byte, then the coded header, padbit,
// restart errors, per-component data and garbage.
func (c *Codec) pjgEncode(out io.Writer) error {
	buf := &bytes.Buffer{}

	// PJG-Header
	buf.Write(PjgMagic[:])

	// store settings if not auto
	if !c.autoSet {
		buf.WriteByte(0x00)
		buf.WriteByte(c.cmpnfo[0].NoisTrs)
		buf.WriteByte(c.cmpnfo[1].NoisTrs)
		buf.WriteByte(c.cmpnfo[2].NoisTrs)
		buf.WriteByte(c.cmpnfo[3].NoisTrs)
		buf.WriteByte(c.cmpnfo[0].SegmCnt)
		buf.WriteByte(c.cmpnfo[1].SegmCnt)
		buf.WriteByte(c.cmpnfo[2].SegmCnt)
		buf.WriteByte(c.cmpnfo[3].SegmCnt)
	}

	// store version number
	buf.WriteByte(AppVersion)

	// init arithmetic compression
	enc := NewArithmeticEncoder()

	// discard meta information from header if option set
	if c.opts.DiscardMeta {
		c.rebuildHeader()
	}
	// optimize header for compression
	c.optimizeHeader()
	// set padbit to 1 if previously unset
	if c.padbit == -1 {
		c.padbit = 1
	}

	// encode JPG header
	c.encodeGeneric(enc, c.hdrdata)
	// store padbit (it cannot be retrieved from the header)
	c.encodeBit(enc, uint8(c.padbit))
	// also encode one bit to signal false/correct use of RST markers
	if len(c.rstErr) == 0 {
		c.encodeBit(enc, 0)
	} else {
		c.encodeBit(enc, 1)
		// encode # of falsely set RST markers per scan
		for len(c.rstErr) < c.scanCount {
			c.rstErr = append(c.rstErr, 0)
		}
		c.encodeGeneric(enc, c.rstErr[:c.scanCount])
	}

	// encode the actual component data
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		// encode frequency scan ('zero-sort-scan')
		c.encodeZstscan(enc, ci)
		// encode zero-distribution-lists for higher (7x7) ACs
		c.encodeZdstHigh(enc, ci)
		// encode coefficients for higher (7x7) ACs
		c.encodeACHigh(enc, ci)
		// encode zero-distribution-lists for lower ACs
		c.encodeZdstLow(enc, ci)
		// encode coefficients for first row / column ACs
		c.encodeACLow(enc, ci)
		// encode coefficients for DC
		c.encodeDC(enc, ci)
	}

	// encode checkbit for garbage
	if len(c.grbgdata) == 0 {
		c.encodeBit(enc, 0)
	} else {
		c.encodeBit(enc, 1)
		c.encodeGeneric(enc, c.grbgdata)
	}

	// finalize arithmetic compression
	if err := enc.Finish(buf); err != nil {
		return err
	}

	if _, err := out.Write(buf.Bytes()); err != nil {
		return NewError(ExitCodeIOError, err.Error())
	}
	return nil
}

// getZerosortScan returns the bands of the component ordered by ascending
// zero count, with the DC band fixed in slot 0.
func getZerosortScan(ci *Component) [64]uint8 {
	var index [64]uint8
	for i := range index {
		index[i] = uint8(i)
	}

	var zeroDist [64]int
	for bpos := 0; bpos < 64; bpos++ {
		for _, v := range ci.CollData[bpos] {
			if v == 0 {
				zeroDist[bpos]++
			}
		}
	}

	sort.SliceStable(index[1:], func(a, b int) bool {
		return zeroDist[index[1+a]] < zeroDist[index[1+b]]
	})

	return index
}

// encodeZstscan codes the zero-sort scan as a sequence of positions in
// the shrinking standard scan list; a zero means the remainder already is
// in standard order.
func (c *Codec) encodeZstscan(enc *ArithmeticEncoder, ci *Component) {
	zsrtScan := getZerosortScan(ci)

	// preset freqlist
	freqlist := stdScan

	model := NewUniversalModel(64, 64, 1)

	// encode scanorder
	for i := 1; i < 64; i++ {
		// reduce range of model
		model.ExcludeSymbolsAbove(64 - i)

		// compare remaining list to remaining scan
		tpos := 0 // true position
		cp := i
		for ; cp < 64; cp++ {
			// search next val != 0 in list
			tpos++
			for freqlist[tpos] == 0 {
				tpos++
			}
			// get out if not a match
			if freqlist[tpos] != zsrtScan[cp] {
				break
			}
		}
		if cp == 64 {
			// remaining list is in sorted scanorder
			// encode zero and make a quick exit
			enc.Encode(model, 0)
			break
		}

		// list is not in sorted order -> next pos has to be encoded
		cpos := 1 // coded position
		for tpos = 0; freqlist[tpos] != zsrtScan[i]; tpos++ {
			if freqlist[tpos] != 0 {
				cpos++
			}
		}
		// remove from list
		freqlist[tpos] = 0

		// encode coded position in list
		enc.Encode(model, cpos)
		model.ShiftContext(cpos)
	}

	ci.FreqScan = zsrtScan
}

// encodeZdstHigh codes the 7x7 zero-distribution list, conditioned on the
// average of the upper and left neighbors.
func (c *Codec) encodeZdstHigh(enc *ArithmeticEncoder, ci *Component) {
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
		enc.Encode(model, int(zdstls[dpos]))
	}
}

// encodeZdstLow codes the first-row and first-column zero counts,
// conditioned on the binned 7x7 count and the matching eob extent.
func (c *Codec) encodeZdstLow(enc *ArithmeticEncoder, ci *Component) {
	model := NewUniversalModel(8, 8, 2)

	// first row
	for dpos := 0; dpos < ci.Bc; dpos++ {
		model.ShiftContext((int(ci.ZdstData[dpos]) + 3) / 7)
		model.ShiftContext(int(ci.EobXHigh[dpos]))
		enc.Encode(model, int(ci.ZdstXLow[dpos]))
	}
	// first column
	for dpos := 0; dpos < ci.Bc; dpos++ {
		model.ShiftContext((int(ci.ZdstData[dpos]) + 3) / 7)
		model.ShiftContext(int(ci.EobYHigh[dpos]))
		enc.Encode(model, int(ci.ZdstYLow[dpos]))
	}
}

// encodeDC codes the DC plane: bit length with segmentation and average
// context, magnitude bits, then the sign.
func (c *Codec) encodeDC(enc *ArithmeticEncoder, ci *Component) {
	// decide segmentation setting
	segmTab := &segmTables[ci.SegmCnt-1]

	// get max absolute value/bit length
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
		// calculate x/y positions in band
		pY := dpos / w
		pX := dpos % w
		rX := w - (pX + 1)

		// get segment-number from zero distribution list and segmentation set
		snum := int(segmTab[zdstls[dpos]])
		// calculate contexts (for bit length)
		ctxAvr := aavrgContext(absvStore, w, dpos, pY, pX, rX)
		ctxLen := int(bitLen1024P[ctxAvr])
		// shift context / do context modelling (segmentation is done per context)
		modLen.ShiftModel(ctxLen, snum)

		if coeffs[dpos] == 0 {
			enc.Encode(modLen, 0)
		} else {
			// get absolute val, sign & bit length for current coefficient
			absv := int(coeffs[dpos])
			sgn := 0
			if absv < 0 {
				absv = -absv
				sgn = 1
			}
			clen := int(bitLen1024P[absv])
			// encode bit length of current coefficient
			enc.Encode(modLen, clen)
			// encoding of residual
			// first set bit must be 1, so we start at clen - 2
			for bp := clen - 2; bp >= 0; bp-- {
				modRes.ShiftModel(snum, bp)
				enc.Encode(modRes, (absv>>bp)&1)
			}
			// encode sign
			enc.Encode(modSgn, sgn)
			// store absolute value
			absvStore[dpos] = uint16(absv)
		}
	}
}

// encodeACHigh codes the 7x7 AC bands in zero-sort order, maintaining the
// residual zero counts and the eob extents used by the low coders.
func (c *Codec) encodeACHigh(enc *ArithmeticEncoder, ci *Component) {
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

	// work through the 7x7 bands in freqscan order
	for i := 1; i < 64; i++ {
		bpos := int(ci.FreqScan[i])
		bX := int(ZigzagToRaster[bpos]) % 8
		bY := int(ZigzagToRaster[bpos]) / 8

		if bX == 0 || bY == 0 {
			continue // process remaining coefficients elsewhere
		}

		// preset absolute values/sign storage
		for j := range absvStore {
			absvStore[j] = 0
			sgnStore[j] = 0
		}

		coeffs := ci.CollData[bpos]

		// get max bit length
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

			if coeffs[dpos] == 0 {
				enc.Encode(modLen, 0)
			} else {
				absv := int(coeffs[dpos])
				sgn := 0
				if absv < 0 {
					absv = -absv
					sgn = 1
				}
				clen := int(bitLen1024P[absv])
				enc.Encode(modLen, clen)
				// encoding of residual
				// first set bit must be 1, so we start at clen - 2
				for bp := clen - 2; bp >= 0; bp-- {
					modRes.ShiftModel(snum, bp)
					enc.Encode(modRes, (absv>>bp)&1)
				}
				// encode sign
				ctxSgn := 0
				if pX > 0 {
					ctxSgn = int(sgnStore[dpos-1])
				}
				if pY > 0 {
					ctxSgn += 3 * int(sgnStore[dpos-w])
				}
				modSgn.ShiftContext(ctxSgn)
				enc.Encode(modSgn, sgn)
				// store absolute value/sign, decrement zdst
				absvStore[dpos] = uint16(absv)
				sgnStore[dpos] = uint8(sgn + 1)
				zdstls[dpos]--
				// recalculate x/y eob
				if uint8(bX) > eobX[dpos] {
					eobX[dpos] = uint8(bX)
				}
				if uint8(bY) > eobY[dpos] {
					eobY[dpos] = uint8(bY)
				}
			}
		}
		// flush models
		modLen.Flush()
		modRes.Flush()
		modSgn.Flush()
	}
}

// encodeACLow codes the first-row and first-column AC bands, alternating
// between them and conditioning on the LAKHANI prediction context.
func (c *Codec) encodeACLow(enc *ArithmeticEncoder, ci *Component) {
	var coeffs [8][]int16
	var predCf [8]int

	modLen := NewUniversalModel(11, max(int(ci.SegmCnt), 11), 2)
	modRes := NewBinaryModel(1<<4, 2)
	modTop := NewBinaryModel(1<<max(4, int(ci.NoisTrs)), 3)
	modSgn := NewBinaryModel(11, 1)

	bc := ci.Bc
	w := ci.Bch

	// work through each first row / first column band
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
			// first column band: predict from the left neighbor
			zdstls = ci.ZdstYLow
			for j := 0; j < 8; j++ {
				idx := int(RasterToZigzag[j+8*bY])
				coeffs[j] = ci.CollData[idx]
				predCf[j] = icosBase8x8[j*8] * ci.Quant(idx)
			}
			nbOff = -1
		} else {
			// first row band: predict from the upper neighbor
			zdstls = ci.ZdstXLow
			for j := 0; j < 8; j++ {
				idx := int(RasterToZigzag[bX+8*j])
				coeffs[j] = ci.CollData[idx]
				predCf[j] = icosBase8x8[j*8] * ci.Quant(idx)
			}
			nbOff = -w
		}

		// get max bit length / other info
		maxValP := ci.MaxV(bpos)
		maxValN := -maxValP
		maxLen := int(bitLen1024P[maxValP])
		thrsBp := 0 // residual threshold bitplane
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

			// edge treatment / calculate LAKHANI context
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

			if band[dpos] == 0 {
				enc.Encode(modLen, 0)
			} else {
				absv := int(band[dpos])
				sgn := 0
				if absv < 0 {
					absv = -absv
					sgn = 1
				}
				clen := int(bitLen2048N[absv+2048])
				enc.Encode(modLen, clen)
				// encoding of residual
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
					bt := (absv >> bp) & 1
					enc.Encode(modTop, bt)
					ctxRes <<= 1
					ctxRes |= bt
				}
				for ; bp >= 0; bp-- {
					modRes.ShiftModel(int(zdstls[dpos]), bp)
					enc.Encode(modRes, (absv>>bp)&1)
				}
				// encode sign
				modSgn.ShiftModel(ctxLen, ctxSgn)
				enc.Encode(modSgn, sgn)
				// decrement # of non zeroes
				zdstls[dpos]--
			}
		}
		// flush models
		modLen.Flush()
		modRes.Flush()
		modTop.Flush()
		modSgn.Flush()
	}
}

// encodeGeneric codes a byte stream with the previous byte as context,
// terminated by the symbol 256.
func (c *Codec) encodeGeneric(enc *ArithmeticEncoder, data []byte) {
	model := NewUniversalModel(256+1, 256, 1)

	for _, b := range data {
		enc.Encode(model, int(b))
		model.ShiftContext(int(b))
	}
	// encode end-of-data symbol (256)
	enc.Encode(model, 256)
}

// encodeBit codes a single bit with a plain binary model.
func (c *Codec) encodeBit(enc *ArithmeticEncoder, bit uint8) {
	model := NewBinaryModel(1, -1)
	enc.Encode(model, int(bit))
}
