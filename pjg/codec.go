package pjg

// scanInfo holds the parameters of the current SOS.
type scanInfo struct {
	cmpc int    // component count in current scan
	cmp  [4]int // component numbers in current scan
	from int    // spectral band start (inclusive)
	to   int    // spectral band end (inclusive)
	sah  int    // successive approximation bit high
	sal  int    // successive approximation bit low
}

// Codec carries all per-file state of the recompression pipeline. A Codec
// is used for exactly one file and reset between uses.
type Codec struct {
	opts Options

	// data storage
	qtables  [4][64]uint16
	hdrdata  []byte // header segments, without SOI and EOI
	huffdata []byte // entropy data of all scans, unstuffed, RSTn stripped
	grbgdata []byte // trailing bytes after EOI

	// image info
	cmpnfo    [MaxComponents]Component
	cmpc      int
	imgWidth  int
	imgHeight int
	sfhm      int // max of the second (low) sampling nibble, Sfh
	sfvm      int // max of the first (high) sampling nibble, Sfv
	mcuv      int
	mcuh      int
	mcuc      int

	// huffman tables
	hcodes [2][4]*HuffCodes
	htrees [2][4]*HuffTree

	jpegtype  JpegType
	scan      scanInfo
	padbit    int8 // -1 until the first padded scan fixes it
	scanCount int
	rsti      int // restart interval

	scnp   []uint32 // scan start positions in huffdata
	rstp   []uint32 // restart marker positions in huffdata
	rstErr []uint8  // count of wrongly set RST markers per scan

	autoSet bool

	warnings []string
}

// newCodec creates a Codec for a single file.
func newCodec(opts Options) *Codec {
	c := &Codec{opts: opts}
	c.reset()
	return c
}

// reset clears all per-file state.
func (c *Codec) reset() {
	c.hdrdata = nil
	c.huffdata = nil
	c.grbgdata = nil
	c.rstErr = nil
	c.rstp = nil
	c.scnp = nil

	for cmp := range c.cmpnfo {
		c.cmpnfo[cmp] = NewComponent()
	}

	c.cmpc = 0
	c.imgWidth = 0
	c.imgHeight = 0
	c.sfhm = 0
	c.sfvm = 0
	c.mcuc = 0
	c.mcuh = 0
	c.mcuv = 0
	c.rsti = 0
	c.scanCount = 0
	c.scan = scanInfo{}

	for i := 0; i < 4; i++ {
		c.hcodes[0][i] = nil
		c.hcodes[1][i] = nil
		c.htrees[0][i] = nil
		c.htrees[1][i] = nil
		for j := range c.qtables[i] {
			c.qtables[i][j] = 0
		}
	}

	c.jpegtype = JpegTypeUnknown
	c.padbit = -1

	c.autoSet = c.opts.Settings == nil
	if !c.autoSet {
		for cmp := 0; cmp < MaxComponents; cmp++ {
			c.cmpnfo[cmp].NoisTrs = uint8(clamp(int(c.opts.Settings.NoiseThreshold[cmp]), 0, 10))
			c.cmpnfo[cmp].SegmCnt = uint8(clamp(int(c.opts.Settings.SegmentCount[cmp]), 1, 49))
		}
	}

	c.warnings = nil
}

// warnf records a recoverable problem. Warnings abort the pipeline unless
// Options.Force is set.
func (c *Codec) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, Errorf(ExitCodeWarningAsError, format, args...).Message)
}

// Warnings returns the warnings collected so far.
func (c *Codec) Warnings() []string {
	return c.warnings
}

// setupImageInfo parses the stored header for image geometry and derives
// all per-component block counts and coder settings.
func (c *Codec) setupImageInfo() error {
	hpos := 0
	for hpos+4 <= len(c.hdrdata) {
		t := c.hdrdata[hpos+1]
		length := 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
		// DHT, DRI and SOS are handled during entropy coding
		if t != MarkerSOS && t != MarkerDHT && t != MarkerDRI {
			if err := c.parseSegment(t, c.hdrdata[hpos:hpos+length]); err != nil {
				return err
			}
		}
		hpos += length
	}

	if c.cmpc == 0 {
		return NewError(ExitCodeFormatError, "header contains incomplete information")
	}
	for cmp := 0; cmp < c.cmpc; cmp++ {
		if c.cmpnfo[cmp].Sfv <= 0 || c.cmpnfo[cmp].Sfh <= 0 ||
			c.cmpnfo[cmp].QTable[0] == 0 || c.jpegtype == JpegTypeUnknown {
			return NewError(ExitCodeFormatError, "header information is incomplete")
		}
	}

	for cmp := 0; cmp < c.cmpc; cmp++ {
		if c.cmpnfo[cmp].Sfh > c.sfhm {
			c.sfhm = c.cmpnfo[cmp].Sfh
		}
		if c.cmpnfo[cmp].Sfv > c.sfvm {
			c.sfvm = c.cmpnfo[cmp].Sfv
		}
	}
	c.mcuv = (c.imgHeight + 8*c.sfhm - 1) / (8 * c.sfhm)
	c.mcuh = (c.imgWidth + 8*c.sfvm - 1) / (8 * c.sfvm)
	c.mcuc = c.mcuv * c.mcuh

	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		ci.Mbs = ci.Sfv * ci.Sfh
		ci.Bcv = c.mcuv * ci.Sfh
		ci.Bch = c.mcuh * ci.Sfv
		ci.Bc = ci.Bcv * ci.Bch
		ci.Ncv = (c.imgHeight*ci.Sfh + 8*c.sfhm - 1) / (8 * c.sfhm)
		ci.Nch = (c.imgWidth*ci.Sfv + 8*c.sfvm - 1) / (8 * c.sfvm)
		ci.Nc = ci.Ncv * ci.Nch
	}

	// decide components' statistical ids
	if c.cmpc <= 3 {
		for cmp := 0; cmp < c.cmpc; cmp++ {
			c.cmpnfo[cmp].Sid = cmp
		}
	} else {
		for cmp := 0; cmp < c.cmpc; cmp++ {
			c.cmpnfo[cmp].Sid = 0
		}
	}

	for cmp := 0; cmp < c.cmpc; cmp++ {
		c.cmpnfo[cmp].allocate()
	}

	// also decide automatic settings here
	if c.autoSet {
		for cmp := 0; cmp < c.cmpc; cmp++ {
			ci := &c.cmpnfo[cmp]
			i := 0
			for confSets[i][ci.Sid] > uint32(ci.Bc) {
				i++
			}
			ci.SegmCnt = confSegm
			ci.NoisTrs = confNtrs[i][ci.Sid]
		}
	}

	return nil
}

// rebuildHeader strips all meta segments from the header, keeping only the
// segments needed to rebuild the image.
func (c *Codec) rebuildHeader() {
	hdrw := make([]byte, 0, len(c.hdrdata))

	hpos := 0
	for hpos+4 <= len(c.hdrdata) {
		t := c.hdrdata[hpos+1]
		length := 2 + pack(c.hdrdata[hpos+2], c.hdrdata[hpos+3])
		switch t {
		case MarkerSOS, MarkerDHT, MarkerDQT, MarkerSOF0, MarkerSOF1, MarkerSOF2, MarkerDRI:
			hdrw = append(hdrw, c.hdrdata[hpos:hpos+length]...)
		}
		hpos += length
	}

	c.hdrdata = hdrw
}
