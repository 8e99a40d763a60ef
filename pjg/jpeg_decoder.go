package pjg

import "bytes"

// devli decodes a variable length integer of the given size.
func devli(s, n int) int {
	if s == 0 {
		return 0
	}
	if n >= 1<<(s-1) {
		return n
	}
	return n + 1 - (1 << s)
}

// eDevli decodes an end-of-band run length.
func eDevli(s, n int) int {
	return n + (1 << s)
}

// jpgRead splits the JPEG input into header data, unstuffed entropy data
// and trailing garbage. The reader must be positioned directly after the
// SOI marker. Restart markers are stripped and miscounted ones tallied
// into rstErr per scan.
func (c *Codec) jpgRead(str *ByteReader) error {
	var seg [4]byte
	var t uint8

	c.scanCount = 0

	hdrw := &bytes.Buffer{}
	huffw := &bytes.Buffer{}

	// JPEG reader loop
	for {
		if t == MarkerSOS { // if last marker was sos
			// switch to huffman data reading mode
			cpos := 0
			crst := 0
		huffLoop:
			for {
				tmp, ok := str.ReadByte()
				if !ok {
					break
				}

				// non-0xFF loop
				if tmp != 0xFF {
					crst = 0
					for tmp != 0xFF {
						huffw.WriteByte(tmp)
						tmp, ok = str.ReadByte()
						if !ok {
							break huffLoop
						}
					}
				}

				// treatment of 0xFF
				tmp, ok = str.ReadByte()
				if !ok {
					break
				}
				if tmp == 0x00 {
					crst = 0
					// no zeroes needed -> ignore 0x00, write 0xFF
					huffw.WriteByte(0xFF)
				} else if tmp == MarkerRST0+uint8(cpos%8) { // restart marker
					cpos++
					crst++
				} else { // in all other cases leave it to the segment parser
					// store number of wrongly set rst markers
					if crst > 0 && len(c.rstErr) == 0 {
						c.rstErr = make([]uint8, c.scanCount+1)
					}
					if len(c.rstErr) > 0 {
						for len(c.rstErr) < c.scanCount+1 {
							c.rstErr = append(c.rstErr, 0)
						}
						if crst > 255 {
							c.warnf("severe false use of RST markers (%d)", crst)
							crst = 255
						}
						if crst > 0 {
							c.warnf("%d ill-placed RST marker(s) in scan%d", crst, c.scanCount)
						}
						c.rstErr[c.scanCount] = uint8(crst)
					}
					// end of current scan
					c.scanCount++
					seg[0] = 0xFF
					seg[1] = tmp
					break
				}
			}
		} else {
			// read in next marker
			if str.ReadN(seg[:2], 2) != 2 {
				break
			}
			if seg[0] != 0xFF {
				// ugly fix for incorrect marker segment sizes
				fatal := true
				if t == MarkerCOM { // if last marker was COM try again
					if str.ReadN(seg[:2], 2) == 2 && seg[0] == 0xFF {
						fatal = false
					}
				}
				if fatal {
					return Errorf(ExitCodeFormatError, "size mismatch in marker segment FF %02X", t)
				}
				c.warnf("size mismatch in marker segment FF %02X", t)
			}
		}

		// read segment type
		t = seg[1]

		// if EOI is encountered make a quick exit
		if t == MarkerEOI {
			c.hdrdata = hdrw.Bytes()
			c.huffdata = huffw.Bytes()
			break
		}

		// read in next segments' length and check it
		if str.ReadN(seg[2:4], 2) != 2 {
			break
		}
		length := 2 + pack(seg[2], seg[3])
		if length < 4 {
			break
		}

		// read rest of segment, store back in header writer
		segment := make([]byte, length)
		copy(segment[:4], seg[:4])
		if str.ReadN(segment[4:], length-4) != length-4 {
			break
		}
		hdrw.Write(segment)
	}

	// check if everything went OK
	if len(c.hdrdata) == 0 || len(c.huffdata) == 0 {
		return NewError(ExitCodeFormatError, "unexpected end of data encountered")
	}

	// store garbage after EOI if needed
	if tmp, ok := str.ReadByte(); ok {
		grbgw := &bytes.Buffer{}
		grbgw.WriteByte(tmp)
		rest := make([]byte, str.Size()-str.Pos())
		n := str.ReadN(rest, len(rest))
		grbgw.Write(rest[:n])
		c.grbgdata = grbgw.Bytes()
	}

	return c.setupImageInfo()
}

// jpgDecode entropy-decodes all scans into the per-component coefficient
// collections.
func (c *Codec) jpgDecode() error {
	hpos := 0
	var block [64]int16

	huffr := NewBitReader(c.huffdata)

	c.scanCount = 0

	// JPEG decompression loop
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

		// JPEG imagedata decoding routines
		for {
			// (re)set last DCs for diff coding
			lastdc := [4]int16{}

			eob := 0
			sta := CodingOkay
			var err error

			// (re)set eobrun
			eobrun := 0
			peobrun := 0

			st.resetRstw(c)

			if c.scan.cmpc > 1 {
				// decoding for interleaved data
				switch {
				case c.jpegtype == JpegTypeSequential:
					// ---> sequential interleaved decoding <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						eob, err = c.decodeBlockSeq(huffr, c.htrees[0][ci.HuffDC], c.htrees[1][ci.HuffAC], &block)
						if err != nil {
							break
						}

						// check for non optimal coding
						if eob > 1 && block[eob-1] == 0 {
							c.warnf("reconstruction of inefficient coding not supported")
						}

						// fix dc
						block[0] += lastdc[st.cmp]
						lastdc[st.cmp] = block[0]

						// copy to colldata
						for bpos := 0; bpos < eob; bpos++ {
							ci.CollData[bpos][st.dpos] = block[bpos]
						}

						sta = c.nextMCUPos(&st)
					}
				case c.scan.to != 0:
					return NewError(ExitCodeFormatError, "interleaved progressive AC scan is not allowed")
				case c.scan.sah == 0:
					// ---> progressive interleaved DC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						if err = c.decodeDCPrgFS(huffr, c.htrees[0][ci.HuffDC], &block); err != nil {
							break
						}

						// fix dc for diff coding
						ci.CollData[0][st.dpos] = block[0] + lastdc[st.cmp]
						lastdc[st.cmp] = ci.CollData[0][st.dpos]

						// bitshift for successive approximation
						ci.CollData[0][st.dpos] <<= c.scan.sal

						sta = c.nextMCUPos(&st)
					}
				default:
					// ---> progressive interleaved DC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						// shift in next bit
						ci.CollData[0][st.dpos] += int16(huffr.ReadBit()) << c.scan.sal

						sta = c.nextMCUPos(&st)
					}
				}
			} else {
				// decoding for non interleaved data
				switch {
				case c.jpegtype == JpegTypeSequential:
					// ---> sequential non interleaved decoding <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						eob, err = c.decodeBlockSeq(huffr, c.htrees[0][ci.HuffDC], c.htrees[1][ci.HuffAC], &block)
						if err != nil {
							break
						}

						if eob > 1 && block[eob-1] == 0 {
							c.warnf("reconstruction of inefficient coding not supported")
						}

						block[0] += lastdc[st.cmp]
						lastdc[st.cmp] = block[0]

						for bpos := 0; bpos < eob; bpos++ {
							ci.CollData[bpos][st.dpos] = block[bpos]
						}

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.to == 0 && c.scan.sah == 0:
					// ---> progressive non interleaved DC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						if err = c.decodeDCPrgFS(huffr, c.htrees[0][ci.HuffDC], &block); err != nil {
							break
						}

						ci.CollData[0][st.dpos] = block[0] + lastdc[st.cmp]
						lastdc[st.cmp] = ci.CollData[0][st.dpos]

						ci.CollData[0][st.dpos] <<= c.scan.sal

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.to == 0:
					// ---> progressive non interleaved DC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						ci.CollData[0][st.dpos] += int16(huffr.ReadBit()) << c.scan.sal

						sta = c.nextMCUPosN(&st)
					}
				case c.scan.sah == 0:
					// ---> progressive non interleaved AC, first stage <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						if eobrun == 0 {
							eob, err = c.decodeACPrgFS(huffr, c.htrees[1][ci.HuffAC], &block, &eobrun, c.scan.from, c.scan.to)
							if err != nil {
								break
							}

							if eobrun > 0 {
								// check for non optimal coding
								if eob == c.scan.from && peobrun > 0 &&
									peobrun < int(c.hcodes[1][ci.HuffAC].MaxEOBRun)-1 {
									c.warnf("reconstruction of inefficient coding not supported")
								}
								peobrun = eobrun
								eobrun--
							} else {
								peobrun = 0
							}

							for bpos := c.scan.from; bpos < eob; bpos++ {
								ci.CollData[bpos][st.dpos] = block[bpos] << c.scan.sal
							}
						} else {
							eobrun--
						}

						sta, err = c.skipEobrun(&st, &eobrun)
						if err != nil {
							break
						}
						if sta == CodingOkay {
							sta = c.nextMCUPosN(&st)
						}
					}
				default:
					// ---> progressive non interleaved AC, refinement <---
					for sta == CodingOkay {
						ci := &c.cmpnfo[st.cmp]
						// copy from colldata
						for bpos := c.scan.from; bpos <= c.scan.to; bpos++ {
							block[bpos] = ci.CollData[bpos][st.dpos]
						}

						if eobrun == 0 {
							eob, err = c.decodeACPrgSA(huffr, c.htrees[1][ci.HuffAC], &block, &eobrun, c.scan.from, c.scan.to)
							if err != nil {
								break
							}

							if eobrun > 0 {
								if eob == c.scan.from && peobrun > 0 &&
									peobrun < int(c.hcodes[1][ci.HuffAC].MaxEOBRun)-1 {
									c.warnf("reconstruction of inefficient coding not supported")
								}
								peobrun = eobrun
								eobrun--
							} else {
								peobrun = 0
							}
						} else {
							// correction bits for an all-zero run of blocks
							c.decodeEobrunSA(huffr, &block, c.scan.from, c.scan.to)
							eobrun--
						}

						// copy back to colldata
						for bpos := c.scan.from; bpos <= c.scan.to; bpos++ {
							ci.CollData[bpos][st.dpos] += block[bpos] << c.scan.sal
						}

						sta = c.nextMCUPosN(&st)
					}
				}
			}

			// unpad huffman reader / check padbit
			if c.padbit != -1 {
				if c.padbit != huffr.Unpad(c.padbit) {
					c.warnf("inconsistent use of padbits")
					c.padbit = 1
				}
			} else {
				c.padbit = huffr.Unpad(c.padbit)
			}

			if err != nil {
				return err
			}
			if sta == CodingDone {
				c.scanCount++
				break // leave decoding loop, everything is done here
			}
		}
	}

	// check for missing data
	if huffr.Overread() > 0 {
		c.warnf("coded image data truncated / too short")
	}

	// check for surplus data
	if !huffr.EOF() {
		c.warnf("surplus data found after coded image data")
	}

	return nil
}

// checkScanTables verifies that the Huffman tables needed for the current
// scan were defined.
func (c *Codec) checkScanTables() error {
	for csc := 0; csc < c.scan.cmpc; csc++ {
		cmp := c.scan.cmp[csc]
		needDC := c.jpegtype == JpegTypeSequential || (c.scan.to == 0 && c.scan.sah == 0)
		needAC := c.jpegtype == JpegTypeSequential || c.scan.to > 0
		if needDC && c.htrees[0][c.cmpnfo[cmp].HuffDC] == nil {
			return Errorf(ExitCodeFormatError, "huffman table missing in scan%d", c.scanCount)
		}
		if needAC && (c.htrees[1][c.cmpnfo[cmp].HuffAC] == nil || c.hcodes[1][c.cmpnfo[cmp].HuffAC] == nil) {
			return Errorf(ExitCodeFormatError, "huffman table missing in scan%d", c.scanCount)
		}
	}
	return nil
}

// decodeBlockSeq decodes one sequentially coded block and returns the
// position of its end of block.
func (c *Codec) decodeBlockSeq(huffr *BitReader, dctree, actree *HuffTree, block *[64]int16) (int, error) {
	eob := 64

	// decode dc
	if err := c.decodeDCPrgFS(huffr, dctree, block); err != nil {
		return -1, err
	}

	// decode ac
	for bpos := 1; bpos < 64; {
		hc := actree.NextHuffCode(huffr)
		if hc > 0 {
			z := hc >> 4
			s := hc & 0x0F
			n := huffr.Read(s)
			if z+bpos >= 64 {
				return -1, NewError(ExitCodeDecodeError, "run is too long")
			}
			for ; z > 0; z-- { // write zeroes
				block[bpos] = 0
				bpos++
			}
			block[bpos] = int16(devli(s, n))
			bpos++
		} else if hc == 0 { // EOB
			eob = bpos
			break
		} else {
			return -1, NewError(ExitCodeDecodeError, "invalid huffman code")
		}
	}

	return eob, nil
}

// decodeDCPrgFS decodes the first stage of a DC coefficient.
func (c *Codec) decodeDCPrgFS(huffr *BitReader, dctree *HuffTree, block *[64]int16) error {
	hc := dctree.NextHuffCode(huffr)
	if hc < 0 {
		return NewError(ExitCodeDecodeError, "invalid huffman code")
	}
	s := hc
	n := huffr.Read(s)
	block[0] = int16(devli(s, n))
	return nil
}

// decodeACPrgFS decodes the first stage of AC coefficients within the
// spectral band [from, to]. An end-of-band run updates eobrun.
func (c *Codec) decodeACPrgFS(huffr *BitReader, actree *HuffTree, block *[64]int16, eobrun *int, from, to int) (int, error) {
	eob := to + 1

	for bpos := from; bpos <= to; {
		hc := actree.NextHuffCode(huffr)
		if hc < 0 {
			return -1, NewError(ExitCodeDecodeError, "invalid huffman code")
		}
		l := hc >> 4
		r := hc & 0x0F
		if l == 15 || r > 0 { // decode run/level combination
			z := l
			s := r
			n := huffr.Read(s)
			if z+bpos > to {
				return -1, NewError(ExitCodeDecodeError, "run is too long")
			}
			for ; z > 0; z-- { // write zeroes
				block[bpos] = 0
				bpos++
			}
			block[bpos] = int16(devli(s, n))
			bpos++
		} else { // decode eobrun
			eob = bpos
			s := l
			n := huffr.Read(s)
			*eobrun = eDevli(s, n)
			break
		}
	}

	return eob, nil
}

// decodeACPrgSA decodes the refinement stage of AC coefficients. The block
// must hold the current coefficient values of the band; on return it holds
// the refinement deltas.
func (c *Codec) decodeACPrgSA(huffr *BitReader, actree *HuffTree, block *[64]int16, eobrun *int, from, to int) (int, error) {
	bpos := from
	eob := to

	if *eobrun == 0 {
		for bpos <= to {
			hc := actree.NextHuffCode(huffr)
			if hc < 0 {
				return -1, NewError(ExitCodeDecodeError, "invalid huffman code")
			}
			l := hc >> 4
			r := hc & 0x0F
			if l == 15 || r > 0 { // decode run/level combination
				z := l
				var v int16
				switch r {
				case 0:
					v = 0
				case 1:
					if huffr.ReadBit() == 0 {
						v = -1
					} else {
						v = 1
					}
				default:
					return -1, NewError(ExitCodeDecodeError, "invalid coefficient size in refinement scan")
				}
				// write zeroes / write correction bits
				for {
					if block[bpos] == 0 { // skip zeroes / write value
						if z > 0 {
							z--
						} else {
							block[bpos] = v
							bpos++
							break
						}
					} else { // read correction bit
						n := int16(huffr.ReadBit())
						if block[bpos] > 0 {
							block[bpos] = n
						} else {
							block[bpos] = -n
						}
					}
					if bpos >= to {
						return -1, NewError(ExitCodeDecodeError, "run is too long")
					}
					bpos++
				}
			} else { // decode eobrun
				eob = bpos
				s := l
				n := huffr.Read(s)
				*eobrun = eDevli(s, n)
				break
			}
		}
	}

	// read after eob correction bits
	if *eobrun > 0 {
		for ; bpos <= to; bpos++ {
			if block[bpos] != 0 {
				n := int16(huffr.ReadBit())
				if block[bpos] > 0 {
					block[bpos] = n
				} else {
					block[bpos] = -n
				}
			}
		}
	}

	return eob, nil
}

// decodeEobrunSA reads the correction bits of an all-zero run block.
func (c *Codec) decodeEobrunSA(huffr *BitReader, block *[64]int16, from, to int) {
	for bpos := from; bpos <= to; bpos++ {
		if block[bpos] != 0 {
			n := int16(huffr.ReadBit())
			if block[bpos] > 0 {
				block[bpos] = n
			} else {
				block[bpos] = -n
			}
		}
	}
}

// checkValueRange verifies that all decoded coefficients are within the
// quantizer implied bounds. Out of range should never happen with
// unmodified JPEGs.
func (c *Codec) checkValueRange() error {
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		for bpos := 0; bpos < 64; bpos++ {
			absmax := int16(ci.MaxV(bpos))
			for dpos := 0; dpos < ci.Bc; dpos++ {
				v := ci.CollData[bpos][dpos]
				if v > absmax || v < -absmax {
					return Errorf(ExitCodeCoefficientOutOfRange,
						"value out of range error: cmp%d, frq%d, val %d, max %d",
						cmp, bpos, v, absmax)
				}
			}
		}
	}
	return nil
}
