package pjg

// Header optimization: DQT tables are replaced by their forward
// differences and DHT tables matching one of the standard tables are
// folded into a short sentinel. Both transforms are exactly inverted on
// decode; all other segments pass through untouched.

// optimizeHeader rewrites DHT and DQT segments of hdrdata in place.
func (c *Codec) optimizeHeader() {
	hpos := 0
	for hpos+4 <= len(c.hdrdata) {
		t := c.hdrdata[hpos+1]
		length := 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
		if t == MarkerDHT {
			c.optimizeDHT(hpos, length)
		} else if t == MarkerDQT {
			c.optimizeDQT(hpos, length)
		}
		hpos += length
	}
}

// optimizeDQT diff-codes the 64 entries of every 8 bit precision table.
func (c *Codec) optimizeDQT(hpos, segmentLength int) {
	fpos := hpos + segmentLength
	hpos += 4 // skip marker and segment length data
	for hpos < fpos {
		i := c.hdrdata[hpos] >> 4
		hpos++
		if i == 1 { // get out for 16 bit precision
			hpos += 128
			continue
		}
		// do diff coding for 8 bit precision
		for subPos := 63; subPos > 0; subPos-- {
			c.hdrdata[hpos+subPos] -= c.hdrdata[hpos+subPos-1]
		}
		hpos += 64
	}
}

// optimizeDHT folds tables matching a standard Huffman table into a
// three-byte sentinel, zero-padded to the table length.
func (c *Codec) optimizeDHT(hpos, segmentLength int) {
	fpos := hpos + segmentLength
	hpos += 4 // skip marker and segment length data
	for hpos < fpos {
		hpos++
		// table found - compare with each of the four standard tables
		for i := 0; i < 4; i++ {
			subPos := 0
			for ; subPos < stdHuffLengths[i]; subPos++ {
				if c.hdrdata[hpos+subPos] != stdHuffTables[i][subPos] {
					break
				}
			}
			if subPos != stdHuffLengths[i] {
				continue
			}

			// the table matches standard table number i, so replace it
			c.hdrdata[hpos+0] = uint8(stdHuffLengths[i] - 16 - i)
			c.hdrdata[hpos+1] = uint8(i)
			for subPos = 2; subPos < stdHuffLengths[i]; subPos++ {
				c.hdrdata[hpos+subPos] = 0x00
			}
			break
		}

		skip := 16
		for i := 0; i < 16; i++ {
			skip += int(c.hdrdata[hpos+i])
		}
		hpos += skip
	}
}

// deoptimizeHeader undoes the DHT and DQT optimizations.
func (c *Codec) deoptimizeHeader() {
	hpos := 0
	for hpos+4 <= len(c.hdrdata) {
		t := c.hdrdata[hpos+1]
		length := 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
		if t == MarkerDHT {
			c.deoptimizeDHT(hpos, length)
		} else if t == MarkerDQT {
			c.deoptimizeDQT(hpos, length)
		}
		hpos += length
	}
}

// deoptimizeDQT undoes the differential coding of 8 bit precision tables.
func (c *Codec) deoptimizeDQT(hpos, segmentLength int) {
	fpos := hpos + segmentLength
	hpos += 4
	for hpos < fpos {
		i := c.hdrdata[hpos] >> 4
		hpos++
		if i == 1 { // get out for 16 bit precision
			hpos += 128
			continue
		}
		// undo diff coding for 8 bit precision
		for subPos := 1; subPos < 64; subPos++ {
			c.hdrdata[hpos+subPos] += c.hdrdata[hpos+subPos-1]
		}
		hpos += 64
	}
}

// deoptimizeDHT reinserts standard tables where the sentinel is found.
func (c *Codec) deoptimizeDHT(hpos, segmentLength int) {
	fpos := hpos + segmentLength
	hpos += 4
	for hpos < fpos {
		hpos++
		// table found - check if modified
		if c.hdrdata[hpos] > 2 {
			// reinsert the standard table
			i := int(c.hdrdata[hpos+1])
			for subPos := 0; subPos < stdHuffLengths[i]; subPos++ {
				c.hdrdata[hpos+subPos] = stdHuffTables[i][subPos]
			}
		}

		skip := 16
		for i := 0; i < 16; i++ {
			skip += int(c.hdrdata[hpos+i])
		}
		hpos += skip
	}
}
