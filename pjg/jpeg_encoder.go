package pjg

import "bytes"

// envli encodes a variable length integer of the given size.
func envli(s, v int) int {
	if v > 0 {
		return v
	}
	return v - 1 + (1 << s)
}

// eEnvli encodes an end-of-band run length.
func eEnvli(s, v int) int {
	return v - (1 << s)
}

// fdiv2 divides by a power of two, rounding towards zero.
func fdiv2(v int16, p int) int16 {
	if v < 0 {
		return -((-v) >> p)
	}
	return v >> p
}

// jpgRecode regenerates the Huffman-coded entropy data of all scans from
// the coefficient collections, recording scan and restart positions.
func (c *Codec) jpgRecode() error {
	hpos := 0
	var block [64]int16

	huffw := NewBitWriter(len(c.huffdata) + 1024)
	huffw.SetFillBit(uint8(c.padbit))

	// storage writer for correction bits
	storw := &bytes.Buffer{}

	c.scanCount = 0
	c.scnp = c.scnp[:0]
	c.rstp = c.rstp[:0]

	// JPEG recoding loop
	for {
		// seek till start-of-scan, parse only DHT, DRI and SOS
		var t uint8
		for t != MarkerSOS {
			if hpos+4 > len(c.hdrdata) {
				break
			}
			t = c.hdrdata[hpos+1]
			length := 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
			if t == MarkerDHT || t == MarkerSOS || t == MarkerDRI {
				if err := c.parseSegment(t, c.hdrdata[hpos:hpos+length]); err != nil {
					return err
				}
			}
			hpos += length
		}

		// get out if last marker segment type was not SOS
		if t != MarkerSOS {
			break
		}

		if err := c.checkScanTables(); err != nil {
			return err
		}

		st := c.newPositionState()

		// store scan position
		c.scnp = append(c.scnp, uint32(huffw.Pos()))

		// JPEG imagedata encoding routines
		for {
			// (re)set last DCs for diff coding
			lastdc := [4]int16{}

			sta := CodingOkay

			// (re)set eobrun
			eobrun := 0

			st.resetRstw(c)

			if c.scan.cmpc > 1 {
				// encoding for interleaved data
				switch {
				case c.jpegtype == JpegTypeSequential:
					// ---> sequential interleaved encoding <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						for bpos := 0; bpos < 64; bpos++ {
							block[bpos] = ci.CollData[bpos][st.dpos]
						}

						// diff coding for dc
						block[0] -= lastdc[st.cmp]
						lastdc[st.cmp] = ci.CollData[0][st.dpos]

						c.encodeBlockSeq(huffw, c.hcodes[0][ci.HuffDC], c.hcodes[1][ci.HuffAC], &block)

						sta = c.nextMCUPos(&st)
					}
				case c.scan.to != 0:
					return NewError(ExitCodeFormatError, "interleaved progressive AC scan is not allowed")
				case c.scan.sah == 0:
					// ---> progressive interleaved DC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						// diff coding & bitshifting for dc
						tmp := ci.CollData[0][st.dpos] >> c.scan.sal
						block[0] = tmp - lastdc[st.cmp]
						lastdc[st.cmp] = tmp

						c.encodeDCPrgFS(huffw, c.hcodes[0][ci.HuffDC], &block)

						sta = c.nextMCUPos(&st)
					}
				default:
					// ---> progressive interleaved DC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						// fetch bit from current bitplane
						huffw.WriteBit(int(ci.CollData[0][st.dpos]>>c.scan.sal) & 1)

						sta = c.nextMCUPos(&st)
					}
				}
			} else {
				// encoding for non interleaved data
				switch {
				case c.jpegtype == JpegTypeSequential:
					// ---> sequential non interleaved encoding <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						for bpos := 0; bpos < 64; bpos++ {
							block[bpos] = ci.CollData[bpos][st.dpos]
						}

						block[0] -= lastdc[st.cmp]
						lastdc[st.cmp] = ci.CollData[0][st.dpos]

						c.encodeBlockSeq(huffw, c.hcodes[0][ci.HuffDC], c.hcodes[1][ci.HuffAC], &block)

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.to == 0 && c.scan.sah == 0:
					// ---> progressive non interleaved DC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						tmp := ci.CollData[0][st.dpos] >> c.scan.sal
						block[0] = tmp - lastdc[st.cmp]
						lastdc[st.cmp] = tmp

						c.encodeDCPrgFS(huffw, c.hcodes[0][ci.HuffDC], &block)

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.to == 0:
					// ---> progressive non interleaved DC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						huffw.WriteBit(int(ci.CollData[0][st.dpos]>>c.scan.sal) & 1)

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.sah == 0:
					// ---> progressive non interleaved AC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						for bpos := c.scan.from; bpos <= c.scan.to; bpos++ {
							block[bpos] = fdiv2(ci.CollData[bpos][st.dpos], c.scan.sal)
						}

						c.encodeACPrgFS(huffw, c.hcodes[1][ci.HuffAC], &block, &eobrun, c.scan.from, c.scan.to)

						sta = c.nextMCUPosN(&st)
					}

					// encode remaining eobrun
					c.encodeEobrun(huffw, c.hcodes[1][c.cmpnfo[st.cmp].HuffAC], &eobrun)
				default:
					// ---> progressive non interleaved AC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						for bpos := c.scan.from; bpos <= c.scan.to; bpos++ {
							block[bpos] = fdiv2(ci.CollData[bpos][st.dpos], c.scan.sal)
						}

						c.encodeACPrgSA(huffw, storw, c.hcodes[1][ci.HuffAC], &block, &eobrun, c.scan.from, c.scan.to)

						sta = c.nextMCUPosN(&st)
					}

					// encode remaining eobrun and correction bits
					c.encodeEobrun(huffw, c.hcodes[1][c.cmpnfo[st.cmp].HuffAC], &eobrun)
					c.encodeCrbits(huffw, storw)
				}
			}

			// pad huffman writer
			huffw.Pad()

			if sta == CodingDone {
				c.scanCount++
				break // leave encoding loop, everything is done here
			} else if sta == CodingRestart {
				if c.rsti > 0 { // store rstp & stay in the loop
					c.rstp = append(c.rstp, uint32(huffw.Pos())-1)
				}
			}
		}
	}

	// get data into huffdata
	c.huffdata = huffw.GetData()

	// store last scan & restart positions
	c.scnp = append(c.scnp, uint32(len(c.huffdata)))
	if len(c.rstp) > 0 {
		c.rstp = append(c.rstp, uint32(len(c.huffdata)))
	}

	return nil
}

// encodeBlockSeq encodes one sequentially coded block and returns the
// position of its end of block.
func (c *Codec) encodeBlockSeq(huffw *BitWriter, dctbl, actbl *HuffCodes, block *[64]int16) int {
	// encode DC
	c.encodeDCPrgFS(huffw, dctbl, block)

	// encode AC
	z := 0
	for bpos := 1; bpos < 64; bpos++ {
		if block[bpos] != 0 {
			// write remaining zeroes
			for z >= 16 {
				huffw.Write(int(actbl.CVal[0xF0]), int(actbl.CLen[0xF0]))
				z -= 16
			}
			// vli encode
			s := int(bitLen2048N[int(block[bpos])+2048])
			n := envli(s, int(block[bpos]))
			hc := (z << 4) + s
			huffw.Write(int(actbl.CVal[hc]), int(actbl.CLen[hc]))
			huffw.Write(n, s)
			z = 0
		} else {
			z++
		}
	}
	// write eob if needed
	if z > 0 {
		huffw.Write(int(actbl.CVal[0x00]), int(actbl.CLen[0x00]))
	}

	return 64 - z
}

// encodeDCPrgFS encodes the first stage of a DC coefficient.
func (c *Codec) encodeDCPrgFS(huffw *BitWriter, dctbl *HuffCodes, block *[64]int16) {
	s := int(bitLen2048N[int(block[0])+2048])
	n := envli(s, int(block[0]))
	huffw.Write(int(dctbl.CVal[s]), int(dctbl.CLen[s]))
	huffw.Write(n, s)
}

// encodeACPrgFS encodes the first stage of AC coefficients within the
// spectral band [from, to], buffering end-of-band runs.
func (c *Codec) encodeACPrgFS(huffw *BitWriter, actbl *HuffCodes, block *[64]int16, eobrun *int, from, to int) int {
	z := 0
	for bpos := from; bpos <= to; bpos++ {
		if block[bpos] != 0 {
			// encode eobrun
			c.encodeEobrun(huffw, actbl, eobrun)
			// write remaining zeroes
			for z >= 16 {
				huffw.Write(int(actbl.CVal[0xF0]), int(actbl.CLen[0xF0]))
				z -= 16
			}
			// vli encode
			s := int(bitLen2048N[int(block[bpos])+2048])
			n := envli(s, int(block[bpos]))
			hc := (z << 4) + s
			huffw.Write(int(actbl.CVal[hc]), int(actbl.CLen[hc]))
			huffw.Write(n, s)
			z = 0
		} else {
			z++
		}
	}

	// check eob, increment eobrun if needed
	if z > 0 {
		*eobrun++
		// check eobrun, encode if needed
		if *eobrun == int(actbl.MaxEOBRun) {
			c.encodeEobrun(huffw, actbl, eobrun)
		}
		return 1 + to - z
	}
	return 1 + to
}

// encodeACPrgSA encodes the refinement stage of AC coefficients. Newly
// nonzero coefficients are coded as run/level combinations; correction
// bits of already nonzero coefficients go through the storage writer and
// are flushed after each coded symbol.
func (c *Codec) encodeACPrgSA(huffw *BitWriter, storw *bytes.Buffer, actbl *HuffCodes, block *[64]int16, eobrun *int, from, to int) int {
	eob := from

	// check if block contains any newly nonzero coefficients and find out
	// position of eob
	for bpos := to; bpos >= from; bpos-- {
		if block[bpos] == 1 || block[bpos] == -1 {
			eob = bpos + 1
			break
		}
	}

	// encode eobrun if needed
	if eob > from && *eobrun > 0 {
		c.encodeEobrun(huffw, actbl, eobrun)
		c.encodeCrbits(huffw, storw)
	}

	// encode AC
	z := 0
	bpos := from
	for ; bpos < eob; bpos++ {
		if block[bpos] == 0 {
			z++
			if z == 16 { // write zeroes if needed
				huffw.Write(int(actbl.CVal[0xF0]), int(actbl.CLen[0xF0]))
				c.encodeCrbits(huffw, storw)
				z = 0
			}
		} else if block[bpos] == 1 || block[bpos] == -1 {
			// vli encode
			s := int(bitLen2048N[int(block[bpos])+2048])
			n := envli(s, int(block[bpos]))
			hc := (z << 4) + s
			huffw.Write(int(actbl.CVal[hc]), int(actbl.CLen[hc]))
			huffw.Write(n, s)
			// write correction bits
			c.encodeCrbits(huffw, storw)
			z = 0
		} else { // store correction bits
			storw.WriteByte(byte(block[bpos] & 0x1))
		}
	}

	// fast processing after eob
	for ; bpos <= to; bpos++ {
		if block[bpos] != 0 { // store correction bits
			storw.WriteByte(byte(block[bpos] & 0x1))
		}
	}

	// check eob, increment eobrun if needed
	if eob <= to {
		*eobrun++
		// check eobrun, encode if needed
		if *eobrun == int(actbl.MaxEOBRun) {
			c.encodeEobrun(huffw, actbl, eobrun)
			c.encodeCrbits(huffw, storw)
		}
	}

	return eob
}

// encodeEobrun flushes a pending end-of-band run.
func (c *Codec) encodeEobrun(huffw *BitWriter, actbl *HuffCodes, eobrun *int) {
	if *eobrun > 0 {
		for *eobrun > int(actbl.MaxEOBRun) {
			huffw.Write(int(actbl.CVal[0xE0]), int(actbl.CLen[0xE0]))
			huffw.Write(eEnvli(14, 32767), 14)
			*eobrun -= int(actbl.MaxEOBRun)
		}
		s := bitlen(*eobrun) - 1
		n := eEnvli(s, *eobrun)
		hc := s << 4
		huffw.Write(int(actbl.CVal[hc]), int(actbl.CLen[hc]))
		huffw.Write(n, s)
		*eobrun = 0
	}
}

// encodeCrbits flushes the buffered correction bits.
func (c *Codec) encodeCrbits(huffw *BitWriter, storw *bytes.Buffer) {
	for _, bit := range storw.Bytes() {
		huffw.WriteBit(int(bit))
	}
	storw.Reset()
}

// jpgMerge reassembles the output JPEG from header data, entropy data and
// garbage, restoring byte stuffing and restart markers.
func (c *Codec) jpgMerge(out *bytes.Buffer) error {
	hpos := 0 // current position in header
	rpos := 0 // current restart marker position
	scan := 1 // number of current scan

	// write SOI
	out.Write([]byte{0xFF, MarkerSOI})

	// JPEG writing loop
	for {
		// store current header position
		tmp := hpos

		// seek till start-of-scan
		var t uint8
		for t != MarkerSOS {
			if hpos+4 > len(c.hdrdata) {
				break
			}
			t = c.hdrdata[hpos+1]
			hpos += 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
		}

		// write header data to file
		out.Write(c.hdrdata[tmp:hpos])

		// get out if last marker segment type was not SOS
		if t != MarkerSOS {
			break
		}

		if scan >= len(c.scnp) {
			return NewError(ExitCodeEncodeError, "scan position list too short")
		}

		// (re)set corrected rst pos
		cpos := 0

		// write & expand huffman coded image data
		for ipos := c.scnp[scan-1]; ipos < c.scnp[scan]; ipos++ {
			// write current byte
			out.WriteByte(c.huffdata[ipos])
			// check current byte, stuff if needed
			if c.huffdata[ipos] == 0xFF {
				out.WriteByte(0x00)
			}
			// insert restart markers if needed
			if len(c.rstp) > 0 && rpos < len(c.rstp) && ipos == c.rstp[rpos] {
				out.Write([]byte{0xFF, MarkerRST0 + uint8(cpos%8)})
				rpos++
				cpos++
			}
		}
		// insert false rst markers at end if needed
		if len(c.rstErr) >= scan {
			for c.rstErr[scan-1] > 0 {
				out.Write([]byte{0xFF, MarkerRST0 + uint8(cpos%8)})
				cpos++
				c.rstErr[scan-1]--
			}
		}

		// proceed with next scan
		scan++
	}

	// write EOI
	out.Write([]byte{0xFF, MarkerEOI})

	// write garbage if needed
	if len(c.grbgdata) > 0 {
		out.Write(c.grbgdata)
	}

	return nil
}
