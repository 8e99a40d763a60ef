package pjg

// Predictor selects the DC prediction scheme. The choice affects the PJG
// bitstream and must match between compression and decompression.
type Predictor int

const (
	// Predictor1DDCT predicts the DC coefficient from the reconstructed
	// edge rows and columns of the left and upper neighbor blocks.
	Predictor1DDCT Predictor = iota
	// PredictorLOCOI uses the LOCO-I median predictor on raw DC values.
	PredictorLOCOI
)

// predictDC replaces each DC coefficient with its prediction error,
// wrapped into the coefficient range. Blocks are walked backwards so every
// prediction sees unmodified neighbors.
func (c *Codec) predictDC() {
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		absmaxp := ci.MaxV(0)
		corr := 2*absmaxp + 1

		for dpos := ci.Bc - 1; dpos > 0; dpos-- {
			coef := int(ci.CollData[0][dpos])
			coef -= c.dcPredictor(ci, dpos)
			// fix range
			if coef > absmaxp {
				coef -= corr
			} else if coef < -absmaxp {
				coef += corr
			}
			ci.CollData[0][dpos] = int16(coef)
		}
	}
}

// unpredictDC restores DC coefficients from prediction errors.
func (c *Codec) unpredictDC() {
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		absmaxp := ci.MaxV(0)
		corr := 2*absmaxp + 1

		for dpos := 1; dpos < ci.Bc; dpos++ {
			coef := int(ci.CollData[0][dpos])
			coef += c.dcPredictor(ci, dpos)
			// fix range
			if coef > absmaxp {
				coef -= corr
			} else if coef < -absmaxp {
				coef += corr
			}
			ci.CollData[0][dpos] = int16(coef)
		}
	}
}

func (c *Codec) dcPredictor(ci *Component, dpos int) int {
	if c.opts.Predictor == PredictorLOCOI {
		return dcCollPredictor(ci, dpos)
	}
	return dc1DDctPredictor(ci, dpos)
}

// dcCollPredictor gathers the LOCO-I neighborhood for the block at dpos.
func dcCollPredictor(ci *Component, dpos int) int {
	coeffs := ci.CollData[0]
	w := ci.Bch
	a := 0
	b := 0
	cc := 0

	if dpos < w {
		a = int(coeffs[dpos-1])
	} else if dpos%w == 0 {
		b = int(coeffs[dpos-w])
	} else {
		a = int(coeffs[dpos-1])
		b = int(coeffs[dpos-w])
		cc = int(coeffs[dpos-1-w])
	}

	return plocoi(a, b, cc)
}

// plocoi is the LOCO-I predictor: a is the left neighbor, b the one above,
// c the one above-left.
func plocoi(a, b, c int) int {
	mn := min(a, b)
	mx := max(a, b)

	if c >= mx {
		return mn
	}
	if c <= mn {
		return mx
	}

	return a + b - c
}

// dc1DDctPredictor predicts the DC coefficient of the block at dpos by
// matching the reconstructed boundary rows and columns of the left and
// upper neighbors against this block's own edges, with the DC share
// removed.
func dc1DDctPredictor(ci *Component, dpos int) int {
	w := ci.Bch
	px := dpos % w
	py := dpos / w

	// store current block DC coefficient
	swap := ci.CollData[0][dpos]
	ci.CollData[0][dpos] = 0

	pred := 0
	if px > 0 && py > 0 {
		pa := ci.idct8x1(dpos-1, 7)
		xa := ci.idct8x1(dpos, 0)

		pb := ci.idct1x8(dpos-w, 7)
		xb := ci.idct1x8(dpos, 0)

		pred = ((pa - xa) + (pb - xb)) * 4
	} else if px > 0 {
		pa := ci.idct8x1(dpos-1, 7)
		xa := ci.idct8x1(dpos, 0)

		pred = (pa - xa) * 8
	} else if py > 0 {
		pb := ci.idct1x8(dpos-w, 7)
		xb := ci.idct1x8(dpos, 0)

		pred = (pb - xb) * 8
	}

	// write back current DC coefficient
	ci.CollData[0][dpos] = swap

	// clamp and quantize predictor
	pred = clamp(pred, -(1024 * dctRscFactor), 1016*dctRscFactor)
	pred = pred / ci.Quant(0)
	pred = dctRescale(pred)

	return pred
}

// dctRescale rescales a prediction back into coefficient units, rounding
// half away from zero.
func dctRescale(v int) int {
	if v >= 0 {
		return (v + dctRscFactor/2) / dctRscFactor
	}
	return -((-v + dctRscFactor/2) / dctRscFactor)
}
