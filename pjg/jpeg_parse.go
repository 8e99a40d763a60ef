package pjg

// parseSegment validates and parses a single marker segment. The segment
// slice includes the four marker and length bytes.
func (c *Codec) parseSegment(t uint8, segment []byte) error {
	switch t {
	case MarkerDHT:
		return c.parseDHT(segment)
	case MarkerDQT:
		return c.parseDQT(segment)
	case MarkerDRI:
		c.parseDRI(segment)
		return nil
	case MarkerSOS:
		return c.parseSOS(segment)
	case MarkerSOF0, MarkerSOF1, MarkerSOF2:
		return c.parseSOF(t, segment)
	case 0xC3:
		return NewError(ExitCodeUnsupportedJpeg, "sof3 marker found, image is coded lossless")
	case 0xC5:
		return NewError(ExitCodeUnsupportedJpeg, "sof5 marker found, image is coded diff. sequential")
	case 0xC6:
		return NewError(ExitCodeUnsupportedJpeg, "sof6 marker found, image is coded diff. progressive")
	case 0xC7:
		return NewError(ExitCodeUnsupportedJpeg, "sof7 marker found, image is coded diff. lossless")
	case 0xC9:
		return NewError(ExitCodeUnsupportedJpeg, "sof9 marker found, image is coded arithm. sequential")
	case 0xCA:
		return NewError(ExitCodeUnsupportedJpeg, "sof10 marker found, image is coded arithm. progressive")
	case 0xCB:
		return NewError(ExitCodeUnsupportedJpeg, "sof11 marker found, image is coded arithm. lossless")
	case 0xCD:
		return NewError(ExitCodeUnsupportedJpeg, "sof13 marker found, image is coded arithm. diff. sequential")
	case 0xCE:
		return NewError(ExitCodeUnsupportedJpeg, "sof14 marker found, image is coded arithm. diff. progressive")
	case 0xCF:
		return NewError(ExitCodeUnsupportedJpeg, "sof15 marker found, image is coded arithm. diff. lossless")
	case MarkerSOI:
		return NewError(ExitCodeFormatError, "soi marker found out of place")
	case MarkerEOI:
		return NewError(ExitCodeFormatError, "eoi marker found out of place")
	case MarkerCOM:
		return nil
	default:
		if t >= MarkerRST0 && t <= MarkerRST7 {
			return NewError(ExitCodeFormatError, "rst marker found out of place")
		}
		if t >= MarkerAPP0 && t <= 0xEF {
			// APPn segments are preserved verbatim
			return nil
		}
		c.warnf("unknown marker found: FF %02X", t)
		return nil
	}
}

// parseDHT builds Huffman codes and decode trees from a DHT segment.
func (c *Codec) parseDHT(segment []byte) error {
	hpos := 4
	for hpos < len(segment) {
		lval := int(segment[hpos] >> 4)
		rval := int(segment[hpos] & 0x0F)
		if lval >= 2 || rval >= 4 {
			break
		}

		hpos++
		if hpos+16 > len(segment) {
			break
		}
		skip := 16
		for i := 0; i < 16; i++ {
			skip += int(segment[hpos+i])
		}
		if hpos+skip > len(segment) {
			break
		}

		c.hcodes[lval][rval] = NewHuffCodes(segment[hpos:hpos+16], segment[hpos+16:hpos+skip])
		c.htrees[lval][rval] = NewHuffTree(c.hcodes[lval][rval])

		hpos += skip
	}

	if hpos != len(segment) {
		return NewError(ExitCodeFormatError, "size mismatch in dht marker")
	}
	return nil
}

// parseDQT copies quantization tables to internal memory. Entries are kept
// in zigzag order as stored in the file; a zero entry terminates the table.
func (c *Codec) parseDQT(segment []byte) error {
	hpos := 4
	for hpos < len(segment) {
		lval := int(segment[hpos] >> 4)
		rval := int(segment[hpos] & 0x0F)
		if lval >= 2 || rval >= 4 {
			break
		}
		hpos++
		if lval == 0 { // 8 bit precision
			if hpos+64 > len(segment) {
				break
			}
			for i := 0; i < 64; i++ {
				c.qtables[rval][i] = uint16(segment[hpos+i])
				if c.qtables[rval][i] == 0 {
					break
				}
			}
			hpos += 64
		} else { // 16 bit precision
			if hpos+128 > len(segment) {
				break
			}
			for i := 0; i < 64; i++ {
				c.qtables[rval][i] = uint16(pack(segment[hpos+2*i], segment[hpos+2*i+1]))
				if c.qtables[rval][i] == 0 {
					break
				}
			}
			hpos += 128
		}
	}

	if hpos != len(segment) {
		return NewError(ExitCodeFormatError, "size mismatch in dqt marker")
	}
	return nil
}

// parseDRI stores the restart interval.
func (c *Codec) parseDRI(segment []byte) {
	c.rsti = pack(segment[4], segment[5])
}

// parseSOF reads frame geometry and the component list. Note the sampling
// nibble assignment: the high nibble lands in Sfv, the low one in Sfh.
func (c *Codec) parseSOF(t uint8, segment []byte) error {
	hpos := 4

	if t == MarkerSOF2 {
		c.jpegtype = JpegTypeProgressive
	} else {
		c.jpegtype = JpegTypeSequential
	}

	// check data precision, only 8 bit is allowed
	if segment[hpos] != 8 {
		return Errorf(ExitCodeUnsupportedJpeg, "%d bit data precision is not supported", segment[hpos])
	}

	c.imgHeight = pack(segment[hpos+1], segment[hpos+2])
	c.imgWidth = pack(segment[hpos+3], segment[hpos+4])
	c.cmpc = int(segment[hpos+5])
	if c.imgWidth == 0 || c.imgHeight == 0 {
		return Errorf(ExitCodeFormatError, "resolution is %dx%d, possible malformed JPEG", c.imgWidth, c.imgHeight)
	}
	if c.cmpc > MaxComponents {
		return Errorf(ExitCodeUnsupportedJpeg, "image has %d components, max 4 are supported", c.cmpc)
	}

	hpos += 6
	for cmp := 0; cmp < c.cmpc; cmp++ {
		c.cmpnfo[cmp].Jid = int(segment[hpos])
		c.cmpnfo[cmp].Sfv = int(segment[hpos+1] >> 4)
		c.cmpnfo[cmp].Sfh = int(segment[hpos+1] & 0x0F)
		qtd := int(segment[hpos+2])
		if qtd >= 4 {
			return NewError(ExitCodeFormatError, "quantization table destination out of range")
		}
		c.cmpnfo[cmp].QTable = c.qtables[qtd]
		hpos += 3
	}

	return nil
}

// parseSOS reads the scan component selectors and the spectral and
// successive approximation parameters.
func (c *Codec) parseSOS(segment []byte) error {
	hpos := 4
	c.scan.cmpc = int(segment[hpos])
	if c.scan.cmpc > c.cmpc {
		return Errorf(ExitCodeFormatError, "%d components in scan, only %d are allowed", c.scan.cmpc, c.cmpc)
	}
	hpos++
	for i := 0; i < c.scan.cmpc; i++ {
		cmp := 0
		for cmp < c.cmpc && int(segment[hpos]) != c.cmpnfo[cmp].Jid {
			cmp++
		}
		if cmp == c.cmpc {
			return NewError(ExitCodeFormatError, "component id mismatch in start-of-scan")
		}
		c.scan.cmp[i] = cmp
		c.cmpnfo[cmp].HuffDC = int(segment[hpos+1] >> 4)
		c.cmpnfo[cmp].HuffAC = int(segment[hpos+1] & 0x0F)
		if c.cmpnfo[cmp].HuffDC >= 4 || c.cmpnfo[cmp].HuffAC >= 4 {
			return NewError(ExitCodeFormatError, "huffman table number mismatch")
		}
		hpos += 2
	}
	c.scan.from = int(segment[hpos+0])
	c.scan.to = int(segment[hpos+1])
	c.scan.sah = int(segment[hpos+2] >> 4)
	c.scan.sal = int(segment[hpos+2] & 0x0F)
	if c.scan.from > c.scan.to || c.scan.from > 63 || c.scan.to > 63 {
		return NewError(ExitCodeFormatError, "spectral selection parameter out of range")
	}
	if c.scan.sah >= 12 || c.scan.sal >= 12 {
		return NewError(ExitCodeFormatError, "successive approximation parameter out of range")
	}
	return nil
}
