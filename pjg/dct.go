package pjg

import "math"

// Fixed point IDCT basis tables, scaled by 8192. The DC entry keeps the
// orthonormalization factor so that icosBase8x8[0] is nonzero; AC rows
// carry the sqrt(2) factor of the 1D transform.
const idctScale = 8192

// dctRscFactor is the combined scale of a DC prediction computed from the
// adapted tables, relative to dequantized coefficient units.
const dctRscFactor = 8 * idctScale

var (
	// icosBase8x8 holds the 1D basis by [frequency*8 + position].
	icosBase8x8 [64]int
	// icosIdct1x8 holds the 1D basis by [position*8 + frequency], used
	// for both the 1x8 and 8x1 adapted tables.
	icosIdct1x8 [64]int
	// icosIdct8x8 holds the 2D basis by [pixel*64 + frequency], both in
	// raster order.
	icosIdct8x8 [4096]int
)

func init() {
	basis := func(f, p int) float64 {
		cf := math.Sqrt2
		if f == 0 {
			cf = 1.0
		}
		return cf * math.Cos(float64(2*p+1)*float64(f)*math.Pi/16.0)
	}
	for f := 0; f < 8; f++ {
		for p := 0; p < 8; p++ {
			icosBase8x8[f*8+p] = int(math.Round(idctScale * basis(f, p)))
			icosIdct1x8[p*8+f] = int(math.Round(idctScale * basis(f, p)))
		}
	}
	for py := 0; py < 8; py++ {
		for px := 0; px < 8; px++ {
			for v := 0; v < 8; v++ {
				for u := 0; u < 8; u++ {
					val := idctScale * basis(v, py) * basis(u, px) / 8.0
					icosIdct8x8[(py*8+px)*64+v*8+u] = int(math.Round(val))
				}
			}
		}
	}
}

// adaptIcos multiplies the IDCT basis tables by the quantizers of each
// component. A quantizer of 2048 or more implies all coefficients of that
// band are zero for 8 bit data, so the entry is cleared.
func (c *Codec) adaptIcos() {
	var quant [64]uint16

	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		// make a local copy of the quantization values in raster order
		for ipos := 0; ipos < 64; ipos++ {
			quant[ipos] = uint16(ci.Quant(int(RasterToZigzag[ipos])))
			if quant[ipos] >= 2048 {
				quant[ipos] = 0
			}
		}
		// adapt idct 8x8 table
		for ipos := 0; ipos < 64*64; ipos++ {
			ci.AdptIdct8x8[ipos] = icosIdct8x8[ipos] * int(quant[ipos%64])
		}
		// adapt idct 1x8 table
		for ipos := 0; ipos < 8*8; ipos++ {
			ci.AdptIdct1x8[ipos] = icosIdct1x8[ipos] * int(quant[(ipos%8)*8])
		}
		// adapt idct 8x1 table
		for ipos := 0; ipos < 8*8; ipos++ {
			ci.AdptIdct8x1[ipos] = icosIdct1x8[ipos] * int(quant[ipos%8])
		}
	}
}

// idct8x1 evaluates the first-row 1D inverse transform of the block at
// dpos for pixel column ix.
func (ci *Component) idct8x1(dpos, ix int) int {
	ixy := ix << 3

	idct := 0
	idct += int(ci.CollData[0][dpos]) * ci.AdptIdct8x1[ixy+0]
	idct += int(ci.CollData[1][dpos]) * ci.AdptIdct8x1[ixy+1]
	idct += int(ci.CollData[5][dpos]) * ci.AdptIdct8x1[ixy+2]
	idct += int(ci.CollData[6][dpos]) * ci.AdptIdct8x1[ixy+3]
	idct += int(ci.CollData[14][dpos]) * ci.AdptIdct8x1[ixy+4]
	idct += int(ci.CollData[15][dpos]) * ci.AdptIdct8x1[ixy+5]
	idct += int(ci.CollData[27][dpos]) * ci.AdptIdct8x1[ixy+6]
	idct += int(ci.CollData[28][dpos]) * ci.AdptIdct8x1[ixy+7]

	return idct
}

// idct1x8 evaluates the first-column 1D inverse transform of the block at
// dpos for pixel row iy.
func (ci *Component) idct1x8(dpos, iy int) int {
	ixy := iy << 3

	idct := 0
	idct += int(ci.CollData[0][dpos]) * ci.AdptIdct1x8[ixy+0]
	idct += int(ci.CollData[2][dpos]) * ci.AdptIdct1x8[ixy+1]
	idct += int(ci.CollData[3][dpos]) * ci.AdptIdct1x8[ixy+2]
	idct += int(ci.CollData[9][dpos]) * ci.AdptIdct1x8[ixy+3]
	idct += int(ci.CollData[10][dpos]) * ci.AdptIdct1x8[ixy+4]
	idct += int(ci.CollData[20][dpos]) * ci.AdptIdct1x8[ixy+5]
	idct += int(ci.CollData[21][dpos]) * ci.AdptIdct1x8[ixy+6]
	idct += int(ci.CollData[35][dpos]) * ci.AdptIdct1x8[ixy+7]

	return idct
}
