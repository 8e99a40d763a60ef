package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVliRoundtrip(t *testing.T) {
	for v := -2047; v <= 2047; v++ {
		if v == 0 {
			continue
		}
		s := int(bitLen2048N[v+2048])
		assert.Equal(t, v, devli(s, envli(s, v)), "value %d", v)
	}
}

func TestEobrunVliRoundtrip(t *testing.T) {
	for s := 0; s <= 14; s++ {
		for _, v := range []int{1 << s, (1 << s) + 1, (2 << s) - 1} {
			if s == 0 && v != 1 {
				continue
			}
			assert.Equal(t, v, eDevli(s, eEnvli(s, v)), "s=%d v=%d", s, v)
		}
	}
}

func TestPlocoiMedianProperty(t *testing.T) {
	vals := []int{-100, -3, 0, 1, 7, 250}
	for _, a := range vals {
		for _, b := range vals {
			mn, mx := min(a, b), max(a, b)
			for _, c := range vals {
				p := plocoi(a, b, c)
				if c >= mn && c <= mx {
					assert.GreaterOrEqual(t, p, mn)
					assert.LessOrEqual(t, p, mx)
				}
			}
			// an above-left value outside [min,max] selects min or max
			assert.Equal(t, mn, plocoi(a, b, mx+1))
			assert.Equal(t, mx, plocoi(a, b, mn-1))
		}
	}
}

func TestContextNNB(t *testing.T) {
	w := 4
	a, l := contextNNB(0, w)
	assert.Equal(t, -1, a)
	assert.Equal(t, -1, l)

	// first row uses the two preceding blocks
	a, l = contextNNB(1, w)
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, l)
	a, l = contextNNB(3, w)
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, l)

	// first column substitutes the blocks above
	a, l = contextNNB(4, w)
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, l)
	a, l = contextNNB(8, w)
	assert.Equal(t, 0, a)
	assert.Equal(t, 4, l)

	// interior: left and above
	a, l = contextNNB(6, w)
	assert.Equal(t, 5, a)
	assert.Equal(t, 2, l)
}

func TestSegmentationTables(t *testing.T) {
	for n := 1; n <= 49; n++ {
		tab := &segmTables[n-1]
		prev := uint8(0)
		for z := 0; z < 50; z++ {
			require.Less(t, int(tab[z]), n)
			require.GreaterOrEqual(t, tab[z], prev)
			prev = tab[z]
		}
	}
	// one segment maps everything to zero
	for z := 0; z < 50; z++ {
		assert.Equal(t, uint8(0), segmTables[0][z])
	}
}

func TestAutoSettingTables(t *testing.T) {
	// the threshold walk must terminate for any block count
	for _, bc := range []int{1, 100, 4096, 1 << 20} {
		for sid := 0; sid < 4; sid++ {
			i := 0
			for confSets[i][sid] > uint32(bc) {
				i++
			}
			require.Less(t, i, len(confNtrs))
			assert.LessOrEqual(t, confNtrs[i][sid], uint8(10))
		}
	}
}

func TestZigzagTablesAreInverse(t *testing.T) {
	for n := 0; n < 64; n++ {
		assert.Equal(t, uint8(n), ZigzagToRaster[RasterToZigzag[n]])
	}
}

func TestFreqMaxMatchesDCBound(t *testing.T) {
	assert.Equal(t, uint16(1024), freqMax[0])
	ci := NewComponent()
	for i := range ci.QTable {
		ci.QTable[i] = 16
	}
	assert.Equal(t, 64, ci.MaxV(0))
	ci.QTable[5] = 0
	assert.Equal(t, 0, ci.MaxV(5))
}

func TestAavrgContextEdges(t *testing.T) {
	w := 4
	absv := []uint16{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}

	// top-left corner has no context
	assert.Equal(t, 0, aavrgContext(absv, w, 0, 0, 0, 3))

	// second block in the first row sees only the left neighbor
	assert.Equal(t, 1, aavrgContext(absv, w, 1, 0, 1, 2))

	// block at row 2, column 1 sees five weighted taps
	got := aavrgContext(absv, w, 9, 2, 1, 2)
	num := 2*1 + 6*2 + 5*2 + 9*2 + 7*2 // top-top, top, top-left, left, top-right
	den := 1 + 2 + 2 + 2 + 2
	assert.Equal(t, (num+den/2)/den, got)
}

func TestZeroSortScanIsPermutation(t *testing.T) {
	ci := NewComponent()
	ci.Bc = 4
	for bpos := 0; bpos < 64; bpos++ {
		ci.CollData[bpos] = make([]int16, ci.Bc)
	}
	// band 63 densest, band 1 empty
	ci.CollData[63][0], ci.CollData[63][1], ci.CollData[63][2] = 5, -3, 2
	ci.CollData[17][0] = 1

	scan := getZerosortScan(&ci)
	assert.Equal(t, uint8(0), scan[0])

	var seen [64]bool
	for _, f := range scan {
		assert.False(t, seen[f])
		seen[f] = true
	}
	// densest bands come first after DC
	assert.Equal(t, uint8(63), scan[1])
	assert.Equal(t, uint8(17), scan[2])
}
