package pjg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markerSegment assembles a marker segment with its length prefix.
func markerSegment(marker byte, payload []byte) []byte {
	l := len(payload) + 2
	out := []byte{0xFF, marker, byte(l >> 8), byte(l)}
	return append(out, payload...)
}

func dqtSegment(precAndDest byte, table []byte) []byte {
	return markerSegment(MarkerDQT, append([]byte{precAndDest}, table...))
}

func dhtSegment(classDest byte, counts, values []byte) []byte {
	payload := append([]byte{classDest}, counts...)
	payload = append(payload, values...)
	return markerSegment(MarkerDHT, payload)
}

func sofSegment(marker byte, width, height int, comps [][3]byte) []byte {
	payload := []byte{8, byte(height >> 8), byte(height), byte(width >> 8), byte(width), byte(len(comps))}
	for _, c := range comps {
		payload = append(payload, c[0], c[1], c[2])
	}
	return markerSegment(marker, payload)
}

func sosSegment(comps [][2]byte, ss, se, ahal byte) []byte {
	payload := []byte{byte(len(comps))}
	for _, c := range comps {
		payload = append(payload, c[0], c[1])
	}
	payload = append(payload, ss, se, ahal)
	return markerSegment(MarkerSOS, payload)
}

func driSegment(rsti int) []byte {
	return markerSegment(MarkerDRI, []byte{byte(rsti >> 8), byte(rsti)})
}

// allSymbolTable returns an incomplete but valid Huffman table holding
// every symbol, so run and size combinations of any kind are codable.
func allSymbolTable() ([]byte, []byte) {
	counts := make([]byte, 16)
	counts[7] = 254 // 254 codes of length 8
	counts[8] = 2   // 2 codes of length 9
	values := make([]byte, 256)
	for i := range values {
		values[i] = byte(i)
	}
	return counts, values
}

func testQuantTable(base byte) []byte {
	table := make([]byte, 64)
	for i := range table {
		table[i] = base + byte((i*3)%24)
	}
	return table
}

// fillCollections seeds the coefficient collections with bounded values.
func fillCollections(c *Codec, seed uint32) {
	rnd := seed
	next := func() uint32 {
		rnd = rnd*1664525 + 1013904223
		return rnd >> 16
	}
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]
		for bpos := 0; bpos < 64; bpos++ {
			m := ci.MaxV(bpos)
			if m > 12 {
				m = 12
			}
			if m == 0 {
				continue
			}
			for dpos := 0; dpos < ci.Bc; dpos++ {
				if next()%4 == 0 {
					ci.CollData[bpos][dpos] = int16(int(next()%uint32(2*m+1)) - m)
				}
			}
		}
	}
}

// buildJpeg assembles a complete JPEG file from header segments and the
// seeded coefficient collections.
func buildJpeg(t *testing.T, hdr []byte, seed uint32) []byte {
	t.Helper()
	c := newCodec(Options{})
	c.hdrdata = hdr
	require.NoError(t, c.setupImageInfo())
	fillCollections(c, seed)
	c.padbit = 1
	require.NoError(t, c.jpgRecode())
	out := &bytes.Buffer{}
	require.NoError(t, c.jpgMerge(out))
	return out.Bytes()
}

func grayscaleSequentialHeader(width, height int) []byte {
	hdr := dqtSegment(0x00, testQuantTable(8))
	hdr = append(hdr, dhtSegment(0x00, stdHuffTables[0][:16], stdHuffTables[0][16:])...)
	hdr = append(hdr, dhtSegment(0x10, stdHuffTables[2][:16], stdHuffTables[2][16:])...)
	hdr = append(hdr, sofSegment(MarkerSOF0, width, height, [][3]byte{{1, 0x11, 0}})...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}}, 0, 63, 0)...)
	return hdr
}

func colorSequentialHeader(width, height int) []byte {
	hdr := dqtSegment(0x00, testQuantTable(8))
	hdr = append(hdr, dqtSegment(0x01, testQuantTable(12))...)
	hdr = append(hdr, dhtSegment(0x00, stdHuffTables[0][:16], stdHuffTables[0][16:])...)
	hdr = append(hdr, dhtSegment(0x01, stdHuffTables[1][:16], stdHuffTables[1][16:])...)
	hdr = append(hdr, dhtSegment(0x10, stdHuffTables[2][:16], stdHuffTables[2][16:])...)
	hdr = append(hdr, dhtSegment(0x11, stdHuffTables[3][:16], stdHuffTables[3][16:])...)
	hdr = append(hdr, sofSegment(MarkerSOF0, width, height,
		[][3]byte{{1, 0x22, 0}, {2, 0x11, 1}, {3, 0x11, 1}})...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}, {2, 0x11}, {3, 0x11}}, 0, 63, 0)...)
	return hdr
}

func progressiveColorHeader(width, height int) []byte {
	acCounts, acValues := allSymbolTable()
	hdr := dqtSegment(0x00, testQuantTable(8))
	hdr = append(hdr, dqtSegment(0x01, testQuantTable(12))...)
	hdr = append(hdr, dhtSegment(0x00, stdHuffTables[0][:16], stdHuffTables[0][16:])...)
	hdr = append(hdr, dhtSegment(0x10, acCounts, acValues)...)
	hdr = append(hdr, sofSegment(MarkerSOF2, width, height,
		[][3]byte{{1, 0x22, 0}, {2, 0x11, 1}, {3, 0x11, 1}})...)
	// four scans: DC first, DC refinement, AC first and AC refinement
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}, {2, 0x00}, {3, 0x00}}, 0, 0, 0x01)...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}, {2, 0x00}, {3, 0x00}}, 0, 0, 0x10)...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}}, 1, 63, 0x01)...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}}, 1, 63, 0x10)...)
	return hdr
}

func roundtrip(t *testing.T, jpeg []byte, opts *Options) []byte {
	t.Helper()
	pjgData, res, err := CompressBytes(jpeg, opts)
	require.NoError(t, err)
	require.Equal(t, FileTypeJpeg, res.FileType)
	require.Equal(t, PjgMagic[0], pjgData[0])
	require.Equal(t, PjgMagic[1], pjgData[1])

	decoded, res, err := DecompressBytes(pjgData, opts)
	require.NoError(t, err)
	require.Equal(t, FileTypePjg, res.FileType)

	if idx := firstDifference(jpeg, decoded); idx >= 0 {
		t.Fatalf("roundtrip mismatch at offset %d (in %d bytes, out %d bytes)",
			idx, len(jpeg), len(decoded))
	}
	return pjgData
}

func TestRoundtripMinimalGrayscale(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(8, 8), 1)
	roundtrip(t, jpeg, nil)
}

func TestRoundtripGrayscaleLarger(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(64, 48), 7)
	roundtrip(t, jpeg, nil)
}

func TestRoundtripColorSequential(t *testing.T) {
	jpeg := buildJpeg(t, colorSequentialHeader(32, 32), 3)
	roundtrip(t, jpeg, nil)
}

func TestRoundtripColorSequentialPartialMcu(t *testing.T) {
	// 24x24 with 2x2 luma sampling leaves padding blocks in the grid
	jpeg := buildJpeg(t, colorSequentialHeader(24, 24), 11)
	roundtrip(t, jpeg, nil)
}

func TestRoundtripProgressive(t *testing.T) {
	jpeg := buildJpeg(t, progressiveColorHeader(32, 32), 5)

	// four scans in the stream
	c := newCodec(Options{})
	str := NewByteReader(jpeg)
	str.Seek(2)
	require.NoError(t, c.jpgRead(str))
	require.NoError(t, c.jpgDecode())
	assert.Equal(t, 4, c.scanCount)
	assert.Contains(t, []int8{-1, 0, 1}, c.padbit)
	require.NoError(t, c.checkValueRange())

	roundtrip(t, jpeg, nil)
}

func TestRoundtripProgressivePartialMcu(t *testing.T) {
	jpeg := buildJpeg(t, progressiveColorHeader(24, 24), 13)
	roundtrip(t, jpeg, nil)
}

func TestRoundtripBothPredictors(t *testing.T) {
	jpeg := buildJpeg(t, colorSequentialHeader(32, 32), 9)
	roundtrip(t, jpeg, &Options{Predictor: Predictor1DDCT})
	roundtrip(t, jpeg, &Options{Predictor: PredictorLOCOI})
}

func TestRoundtripWithGarbage(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(16, 16), 2)
	jpeg = append(jpeg, []byte{0x13, 0x37, 0x00, 0xFF, 0x42, 0x99, 0x01, 0x02}...)

	c := newCodec(Options{})
	str := NewByteReader(jpeg)
	str.Seek(2)
	require.NoError(t, c.jpgRead(str))
	assert.Len(t, c.grbgdata, 8)

	pjgData := roundtrip(t, jpeg, nil)
	out, _, err := DecompressBytes(pjgData, nil)
	require.NoError(t, err)
	assert.Equal(t, jpeg[len(jpeg)-8:], out[len(out)-8:])
}

func TestRoundtripRestartMarkers(t *testing.T) {
	hdr := dqtSegment(0x00, testQuantTable(8))
	hdr = append(hdr, dhtSegment(0x00, stdHuffTables[0][:16], stdHuffTables[0][16:])...)
	hdr = append(hdr, dhtSegment(0x10, stdHuffTables[2][:16], stdHuffTables[2][16:])...)
	hdr = append(hdr, driSegment(1)...)
	hdr = append(hdr, sofSegment(MarkerSOF0, 16, 16, [][3]byte{{1, 0x11, 0}})...)
	hdr = append(hdr, sosSegment([][2]byte{{1, 0x00}}, 0, 63, 0)...)
	jpeg := buildJpeg(t, hdr, 4)

	c := newCodec(Options{})
	str := NewByteReader(jpeg)
	str.Seek(2)
	require.NoError(t, c.jpgRead(str))
	assert.Empty(t, c.rstErr)
	require.NoError(t, c.jpgDecode())
	require.NoError(t, c.jpgRecode())
	assert.NotEmpty(t, c.rstp)
	assert.Equal(t, uint32(len(c.huffdata)), c.rstp[len(c.rstp)-1])
	assert.Equal(t, uint32(0), c.scnp[0])
	assert.Equal(t, uint32(len(c.huffdata)), c.scnp[len(c.scnp)-1])

	roundtrip(t, jpeg, nil)
}

func TestRoundtripExtraneousRestart(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(8, 8), 6)
	// splice one stray RST0 between scan data and EOI
	require.Equal(t, []byte{0xFF, MarkerEOI}, jpeg[len(jpeg)-2:])
	tampered := append([]byte{}, jpeg[:len(jpeg)-2]...)
	tampered = append(tampered, 0xFF, MarkerRST0, 0xFF, MarkerEOI)

	c := newCodec(Options{Force: true})
	str := NewByteReader(tampered)
	str.Seek(2)
	require.NoError(t, c.jpgRead(str))
	require.Len(t, c.rstErr, 1)
	assert.Equal(t, uint8(1), c.rstErr[0])
	assert.NotEmpty(t, c.Warnings())

	roundtrip(t, tampered, &Options{Force: true})
}

func TestExtraneousRestartAbortsWithoutForce(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(8, 8), 6)
	tampered := append([]byte{}, jpeg[:len(jpeg)-2]...)
	tampered = append(tampered, 0xFF, MarkerRST0, 0xFF, MarkerEOI)

	_, _, err := CompressBytes(tampered, nil)
	require.Error(t, err)
	perr, ok := IsError(err)
	require.True(t, ok)
	assert.Equal(t, ExitCodeWarningAsError, perr.Code)
}

func TestRoundtripStandardTableFolding(t *testing.T) {
	// grayscale header built entirely from standard tables folds to the
	// sentinel and unfolds to the identical bytes
	jpeg := buildJpeg(t, grayscaleSequentialHeader(16, 8), 8)

	c := newCodec(Options{})
	str := NewByteReader(jpeg)
	str.Seek(2)
	require.NoError(t, c.jpgRead(str))
	orig := append([]byte{}, c.hdrdata...)

	c.optimizeHeader()
	assert.NotEqual(t, orig, c.hdrdata)
	c.deoptimizeHeader()
	assert.Equal(t, orig, c.hdrdata)

	roundtrip(t, jpeg, nil)
}

func TestRoundtripWithMetaSegments(t *testing.T) {
	hdr := markerSegment(MarkerAPP0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))
	hdr = append(hdr, markerSegment(MarkerCOM, []byte("roundtrip comment"))...)
	hdr = append(hdr, grayscaleSequentialHeader(8, 8)...)
	jpeg := buildJpeg(t, hdr, 10)
	roundtrip(t, jpeg, nil)
}

func TestDiscardMetaStripsSegments(t *testing.T) {
	hdr := markerSegment(MarkerAPP0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))
	hdr = append(hdr, grayscaleSequentialHeader(8, 8)...)
	jpeg := buildJpeg(t, hdr, 10)

	opts := &Options{DiscardMeta: true}
	pjgData, _, err := CompressBytes(jpeg, opts)
	require.NoError(t, err)
	out, _, err := DecompressBytes(pjgData, opts)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "JFIF")
	assert.Less(t, len(out), len(jpeg))

	// the stripped JPEG still decodes to the same coefficients
	plain := buildJpeg(t, grayscaleSequentialHeader(8, 8), 10)
	assert.Equal(t, plain, out)
}

func TestRoundtripExplicitSettings(t *testing.T) {
	jpeg := buildJpeg(t, colorSequentialHeader(32, 32), 14)
	opts := &Options{Settings: &Settings{
		NoiseThreshold: [4]uint8{5, 4, 4, 6},
		SegmentCount:   [4]uint8{12, 8, 8, 10},
	}}

	pjgData, _, err := CompressBytes(jpeg, opts)
	require.NoError(t, err)
	// settings block is present
	assert.Equal(t, byte(0x00), pjgData[2])
	assert.Equal(t, byte(5), pjgData[3])
	assert.Equal(t, byte(12), pjgData[7])
	assert.Equal(t, AppVersion, pjgData[11])

	// settings travel in the container, decode needs no options
	out, _, err := DecompressBytes(pjgData, nil)
	require.NoError(t, err)
	assert.Equal(t, jpeg, out)
}

func TestVerifyOption(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(16, 16), 15)
	pjgData, _, err := CompressBytes(jpeg, &Options{Verify: true})
	require.NoError(t, err)
	_, _, err = DecompressBytes(pjgData, &Options{Verify: true})
	require.NoError(t, err)
}

func TestVersionMismatch(t *testing.T) {
	_, _, err := DecompressBytes([]byte{'J', 'S', 0x18, 0x00}, nil)
	require.Error(t, err)
	perr, ok := IsError(err)
	require.True(t, ok)
	assert.Equal(t, ExitCodeVersionMismatch, perr.Code)

	// codes below the version range come from a newer format
	_, _, err = DecompressBytes([]byte{'J', 'S', 0x05, 0x00}, nil)
	require.Error(t, err)
	perr, _ = IsError(err)
	assert.Equal(t, ExitCodeVersionMismatch, perr.Code)
}

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, FileTypeJpeg, DetectFileType([]byte{0xFF, 0xD8, 0xFF}))
	assert.Equal(t, FileTypePjg, DetectFileType([]byte{'J', 'S', 25}))
	assert.Equal(t, FileTypeUnknown, DetectFileType([]byte{'P', 'K'}))
	assert.Equal(t, FileTypeUnknown, DetectFileType(nil))
}

func TestConvertBytesDispatch(t *testing.T) {
	jpeg := buildJpeg(t, grayscaleSequentialHeader(8, 8), 21)

	pjgData, res, err := ConvertBytes(jpeg, nil)
	require.NoError(t, err)
	assert.Equal(t, FileTypeJpeg, res.FileType)

	back, res, err := ConvertBytes(pjgData, nil)
	require.NoError(t, err)
	assert.Equal(t, FileTypePjg, res.FileType)
	assert.Equal(t, jpeg, back)

	_, _, err = ConvertBytes([]byte{0x00, 0x01}, nil)
	require.Error(t, err)
}

func TestCompressRejectsNonJpeg(t *testing.T) {
	_, _, err := CompressBytes([]byte("definitely not a jpeg"), nil)
	require.Error(t, err)
	perr, ok := IsError(err)
	require.True(t, ok)
	assert.Equal(t, ExitCodeUnsupportedJpeg, perr.Code)
}

func TestPredictUnpredictInverse(t *testing.T) {
	for _, pred := range []Predictor{Predictor1DDCT, PredictorLOCOI} {
		c := newCodec(Options{Predictor: pred})
		c.hdrdata = colorSequentialHeader(32, 32)
		require.NoError(t, c.setupImageInfo())
		fillCollections(c, 23)
		c.adaptIcos()

		want := make([][]int16, c.cmpc)
		for cmp := 0; cmp < c.cmpc; cmp++ {
			want[cmp] = append([]int16{}, c.cmpnfo[cmp].CollData[0]...)
		}

		c.predictDC()
		c.unpredictDC()

		for cmp := 0; cmp < c.cmpc; cmp++ {
			assert.Equal(t, want[cmp], c.cmpnfo[cmp].CollData[0], "predictor %d cmp %d", pred, cmp)
		}
	}
}
