package pjg

// Context computations shared by the PJG coefficient coders. Neighbour
// taps are bounds-checked through the block position instead of offset
// pointers.

// aavrgContext computes the weighted average of the absolute values of up
// to six previously coded neighbours: top-top, top-left, top, top-right,
// left-left and left.
func aavrgContext(absv []uint16, w, pos, pY, pX, rX int) int {
	ctxAvr := 0 // average context
	wCtx := 0   // accumulated weight of context

	tap := func(i, off int) {
		ctxAvr += int(absv[pos+off]) * absCtxWeights[i]
		wCtx += absCtxWeights[i]
	}

	// different cases due to edge treatment
	if pY >= 2 {
		tap(0, -2*w)
		tap(2, -w)
		if pX >= 2 {
			tap(1, -w-1)
			tap(4, -2)
			tap(5, -1)
		} else if pX == 1 {
			tap(1, -w-1)
			tap(5, -1)
		}
		if rX >= 1 {
			tap(3, -w+1)
		}
	} else if pY == 1 {
		tap(2, -w)
		if pX >= 2 {
			tap(1, -w-1)
			tap(4, -2)
			tap(5, -1)
		} else if pX == 1 {
			tap(1, -w-1)
			tap(5, -1)
		}
		if rX >= 1 {
			tap(3, -w+1)
		}
	} else {
		if pX >= 2 {
			tap(4, -2)
			tap(5, -1)
		} else if pX == 1 {
			tap(5, -1)
		}
	}

	if wCtx == 0 {
		return 0
	}
	return (ctxAvr + wCtx/2) / wCtx
}

// lakhContext predicts a first-row or first-column AC coefficient from the
// corresponding band coefficients of the current block and its neighbour.
// coeffs holds the eight band planes, nbOff is the block offset of the
// neighbour (-1 for the left one, -width for the upper one) and predCf
// holds the basis multipliers of the bands.
func lakhContext(coeffs *[8][]int16, predCf *[8]int, pos, nbOff int) int {
	pred := 0

	// calculate partial prediction
	npos := pos + nbOff
	pred -= (int(coeffs[1][pos]) + int(coeffs[1][npos])) * predCf[1]
	pred -= (int(coeffs[2][pos]) - int(coeffs[2][npos])) * predCf[2]
	pred -= (int(coeffs[3][pos]) + int(coeffs[3][npos])) * predCf[3]
	pred -= (int(coeffs[4][pos]) - int(coeffs[4][npos])) * predCf[4]
	pred -= (int(coeffs[5][pos]) + int(coeffs[5][npos])) * predCf[5]
	pred -= (int(coeffs[6][pos]) - int(coeffs[6][npos])) * predCf[6]
	pred -= (int(coeffs[7][pos]) + int(coeffs[7][npos])) * predCf[7]

	// normalize / quantize partial prediction
	if pred > 0 {
		pred = (pred + predCf[0]/2) / predCf[0]
	} else {
		pred = (pred - predCf[0]/2) / predCf[0]
	}

	// complete prediction
	pred += int(coeffs[0][npos])

	return pred
}

// contextNNB returns the block positions of the left and upper neighbours
// used as a simple 2D context, or -1 where none exists. Edge rows and
// columns substitute the nearest preceding blocks.
func contextNNB(pos, w int) (int, int) {
	switch {
	case pos == 0:
		return -1, -1
	case pos%w == 0:
		if pos >= w<<1 {
			return pos - (w << 1), pos - w
		}
		return pos - w, pos - w
	case pos < w:
		if pos >= 2 {
			return pos - 1, pos - 2
		}
		return pos - 1, pos - 1
	default:
		return pos - 1, pos - w
	}
}
