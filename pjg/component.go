package pjg

// Component holds all per-plane state: geometry, quantization, the
// per-frequency coefficient collections, zero-distribution lists and the
// quantizer-adapted IDCT tables.
//
// Field naming follows the original bitstream convention, which reverses the
// JPEG names: the high SOF sampling nibble (horizontal in JPEG terms) is
// stored in Sfv and the low nibble (vertical) in Sfh, and the block-count
// geometry uses Sfv horizontally and Sfh vertically. The PJG layout depends
// on this assignment; do not swap it.
type Component struct {
	QTable [64]uint16 // quantization table, zigzag order

	HuffDC int // DC Huffman table destination
	HuffAC int // AC Huffman table destination

	Sfv int // first (high) sampling nibble (horizontal per SOF)
	Sfh int // second (low) sampling nibble (vertical per SOF)

	Mbs int // blocks per MCU
	Bcv int // block count vertical (interleaved)
	Bch int // block count horizontal (interleaved)
	Bc  int // block count total (interleaved)
	Ncv int // block count vertical (non-interleaved)
	Nch int // block count horizontal (non-interleaved)
	Nc  int // block count total (non-interleaved)

	Sid int // statistical identity
	Jid int // component id from SOF

	SegmCnt uint8 // segment count, 1..49
	NoisTrs uint8 // noise threshold, 0..10

	// FreqScan is the coding order of the 64 bands; slot 0 is always the
	// DC band. Set to the zero-sort scan before the AC coders run.
	FreqScan [64]uint8

	// CollData holds one coefficient plane per band (zigzag index),
	// indexed by block position in raster order.
	CollData [64][]int16

	ZdstData []uint8 // nonzero count per block, 7x7 region
	EobXHigh []uint8 // maximum nonzero x extent per block, 7x7 region
	EobYHigh []uint8 // maximum nonzero y extent per block, 7x7 region
	ZdstXLow []uint8 // nonzero count per block, first row
	ZdstYLow []uint8 // nonzero count per block, first column

	AdptIdct8x8 [8 * 8 * 8 * 8]int // adapted IDCT table 8x8
	AdptIdct1x8 [1 * 1 * 8 * 8]int // adapted IDCT table 1x8
	AdptIdct8x1 [8 * 8 * 1 * 1]int // adapted IDCT table 8x1
}

// NewComponent creates a Component with unset table references and the
// default coder settings.
func NewComponent() Component {
	c := Component{
		HuffDC:  -1,
		HuffAC:  -1,
		Sfv:     -1,
		Sfh:     -1,
		Mbs:     -1,
		Bcv:     -1,
		Bch:     -1,
		Bc:      -1,
		Ncv:     -1,
		Nch:     -1,
		Nc:      -1,
		Sid:     -1,
		Jid:     -1,
		SegmCnt: 10,
		NoisTrs: 6,
	}
	for i := range c.FreqScan {
		c.FreqScan[i] = uint8(i)
	}
	return c
}

// Quant returns the quantizer for band bp (zigzag index).
func (c *Component) Quant(bp int) int {
	return int(c.QTable[bp])
}

// MaxV returns the maximum absolute coefficient value for band bp, derived
// from the frequency maximum and the quantizer.
func (c *Component) MaxV(bp int) int {
	q := c.Quant(bp)
	if q > 0 {
		return (int(freqMax[bp]) + q - 1) / q
	}
	return 0
}

// allocate sizes the collections and block lists for the computed block
// count.
func (c *Component) allocate() {
	for bpos := 0; bpos < 64; bpos++ {
		c.CollData[bpos] = make([]int16, c.Bc)
	}
	c.ZdstData = make([]uint8, c.Bc)
	c.EobXHigh = make([]uint8, c.Bc)
	c.EobYHigh = make([]uint8, c.Bc)
	c.ZdstXLow = make([]uint8, c.Bc)
	c.ZdstYLow = make([]uint8, c.Bc)
}
