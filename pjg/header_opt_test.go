package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeDQTSelfInverse(t *testing.T) {
	var table [64]byte
	for i := range table {
		table[i] = byte(16 + (i*7)%40)
	}
	hdr := markerSegment(MarkerDQT, append([]byte{0x00}, table[:]...))

	c := newCodec(Options{})
	c.hdrdata = append([]byte{}, hdr...)

	c.optimizeHeader()
	assert.NotEqual(t, hdr, c.hdrdata)
	// first entry untouched, the rest diff coded
	assert.Equal(t, table[0], c.hdrdata[5])
	assert.Equal(t, table[1]-table[0], c.hdrdata[6])

	c.deoptimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
}

func TestOptimizeDQT16BitUntouched(t *testing.T) {
	payload := make([]byte, 1+128)
	payload[0] = 0x10 // 16 bit precision
	for i := 1; i < len(payload); i++ {
		payload[i] = byte(i)
	}
	hdr := markerSegment(MarkerDQT, payload)

	c := newCodec(Options{})
	c.hdrdata = append([]byte{}, hdr...)
	c.optimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
}

func TestOptimizeDHTFoldsStandardTable(t *testing.T) {
	payload := append([]byte{0x10}, stdHuffTables[2]...) // AC luminance, dest 0
	hdr := markerSegment(MarkerDHT, payload)

	c := newCodec(Options{})
	c.hdrdata = append([]byte{}, hdr...)

	c.optimizeHeader()
	// sentinel: length-16-index, index, zero padding
	require.Equal(t, byte(178-16-2), c.hdrdata[5])
	require.Equal(t, byte(2), c.hdrdata[6])
	for i := 7; i < 5+178; i++ {
		require.Equal(t, byte(0), c.hdrdata[i], "offset %d", i)
	}

	c.deoptimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
}

func TestOptimizeDHTKeepsCustomTable(t *testing.T) {
	counts, values := allSymbolTable()
	payload := append([]byte{0x11}, counts...)
	payload = append(payload, values...)
	hdr := markerSegment(MarkerDHT, payload)

	c := newCodec(Options{})
	c.hdrdata = append([]byte{}, hdr...)
	c.optimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
	c.deoptimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
}

func TestOptimizeHeaderSkipsOtherSegments(t *testing.T) {
	app0 := markerSegment(MarkerAPP0, []byte("JFIF\x00\x01\x02"))
	com := markerSegment(MarkerCOM, []byte("a comment"))
	hdr := append(append([]byte{}, app0...), com...)

	c := newCodec(Options{})
	c.hdrdata = append([]byte{}, hdr...)
	c.optimizeHeader()
	assert.Equal(t, hdr, c.hdrdata)
}
