// Package pjg losslessly recompresses Huffman-coded JPEG files into the
// compact PJG container and reconstructs the original JPEG bit-exactly.
package pjg

// Program identity. The version byte is stored in every PJG file and must
// match on decode.
const (
	AppVersion uint8 = 25
	AppName          = "pjg"
	SubVersion       = "k"
)

// PjgMagic identifies a PJG container.
var PjgMagic = [2]byte{'J', 'S'}

// JpegType indicates the JPEG coding process.
type JpegType int

const (
	JpegTypeUnknown JpegType = iota
	JpegTypeSequential
	JpegTypeProgressive
)

// FileType is the detected type of an input file.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeJpeg
	FileTypePjg
)

// CodingStatus is the result of advancing the block position during
// entropy coding.
type CodingStatus int

const (
	CodingOkay CodingStatus = iota
	CodingRestart
	CodingDone
)

// JPEG marker codes
const (
	MarkerSOF0 = 0xC0 // Baseline DCT
	MarkerSOF1 = 0xC1 // Extended Sequential DCT
	MarkerSOF2 = 0xC2 // Progressive DCT
	MarkerDHT  = 0xC4 // Define Huffman Table
	MarkerRST0 = 0xD0 // Restart marker 0
	MarkerRST7 = 0xD7 // Restart marker 7
	MarkerSOI  = 0xD8 // Start Of Image
	MarkerEOI  = 0xD9 // End Of Image
	MarkerSOS  = 0xDA // Start Of Scan
	MarkerDQT  = 0xDB // Define Quantization Table
	MarkerDRI  = 0xDD // Define Restart Interval
	MarkerAPP0 = 0xE0 // Application Segment 0
	MarkerCOM  = 0xFE // Comment
)

// MaxComponents is the maximum number of color components.
const MaxComponents = 4

// RasterToZigzag maps natural (raster) position to zigzag scan index.
var RasterToZigzag = [64]uint8{
	0, 1, 5, 6, 14, 15, 27, 28, 2, 4, 7, 13, 16, 26, 29, 42,
	3, 8, 12, 17, 25, 30, 41, 43, 9, 11, 18, 24, 31, 40, 44, 53,
	10, 19, 23, 32, 39, 45, 52, 54, 20, 22, 33, 38, 46, 51, 55, 60,
	21, 34, 37, 47, 50, 56, 59, 61, 35, 36, 48, 49, 57, 58, 62, 63,
}

// ZigzagToRaster maps zigzag scan index to natural (raster) position.
var ZigzagToRaster = [64]uint8{
	0, 1, 8, 16, 9, 2, 3, 10, 17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34, 27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36, 29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46, 53, 60, 61, 54, 47, 55, 62, 63,
}

// stdScan is the standard frequency scan: bands in ascending zigzag order.
// The zero-sort scan coder consumes its entries as candidates.
var stdScan = [64]uint8{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
	32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47,
	48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63,
}

// freqMax holds the maximum absolute DCT coefficient value reachable by an
// 8-bit image, per band in zigzag order. Divided by the quantizer it bounds
// the coded coefficient range.
var freqMax = [64]uint16{
	1024, 931, 932, 985, 858, 985, 968, 884, 884, 967,
	1020, 841, 871, 841, 1020, 968, 932, 875, 876, 932,
	969, 1020, 838, 985, 844, 985, 838, 1020, 1020, 854,
	878, 967, 967, 878, 854, 1020, 854, 871, 886, 870,
	871, 854, 854, 870, 969, 969, 870, 854, 838, 1010,
	838, 1020, 837, 1020, 969, 969, 1020, 837, 1020, 838,
	1010, 838, 1020, 1020,
}

// bitLen1024P is a bit-length lookup for values 0..1024.
var bitLen1024P [1025]uint8

// bitLen2048N is a bit-length lookup for values -2048..2047, indexed by
// value+2048 (the bit length of the absolute value).
var bitLen2048N [4096]uint8

func init() {
	for i := range bitLen1024P {
		bitLen1024P[i] = uint8(bitlen(i))
	}
	for i := range bitLen2048N {
		v := i - 2048
		if v < 0 {
			v = -v
		}
		bitLen2048N[i] = uint8(bitlen(v))
	}
}

// bitlen returns the number of bits needed to represent v (0 for 0).
func bitlen(v int) int {
	length := 0
	for (v >> length) != 0 {
		length++
	}
	return length
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func pack(left, right byte) int {
	return (int(left) << 8) + int(right)
}

// Automatic settings: the first row whose threshold drops to or below the
// component block count selects the noise threshold for that component's
// statistical id. The segment count is fixed in auto mode.
var confSets = [5][4]uint32{
	{50000, 25000, 25000, 50000},
	{12500, 6250, 6250, 12500},
	{5000, 2500, 2500, 5000},
	{1000, 500, 500, 1000},
	{0, 0, 0, 0},
}

var confNtrs = [5][4]uint8{
	{7, 7, 7, 7},
	{7, 6, 6, 7},
	{6, 6, 6, 6},
	{5, 5, 5, 5},
	{4, 4, 4, 4},
}

const confSegm uint8 = 10

// segmTables[n-1] maps a zero-distribution count (0..49) to a segment
// number in [0, n) for a segment count of n.
var segmTables [49][50]uint8

func init() {
	for n := 1; n <= 49; n++ {
		for z := 0; z < 50; z++ {
			s := z * n / 50
			if s > n-1 {
				s = n - 1
			}
			segmTables[n-1][z] = uint8(s)
		}
	}
}

// absCtxWeights holds the weighting of the six neighbour taps used by the
// weighted-average magnitude context: top-top, top-left, top, top-right,
// left-left, left.
var absCtxWeights = [6]int{1, 2, 2, 2, 1, 2}

// stdHuffLengths are the payload lengths of the four standard Huffman
// tables (16 count bytes plus the symbol values).
var stdHuffLengths = [4]int{28, 28, 178, 178}

// stdHuffTables holds the standard Huffman table payloads from the JPEG
// specification, in the order DC luminance, DC chrominance, AC luminance,
// AC chrominance. A DHT segment matching one of these byte-for-byte is
// folded into a short sentinel by the header optimizer.
var stdHuffTables = [4][]uint8{
	{ // DC luminance
		0x00, 0x01, 0x05, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B,
	},
	{ // DC chrominance
		0x00, 0x03, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B,
	},
	{ // AC luminance
		0x00, 0x02, 0x01, 0x03, 0x03, 0x02, 0x04, 0x03,
		0x05, 0x05, 0x04, 0x04, 0x00, 0x00, 0x01, 0x7D,
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
		0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
		0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xA1, 0x08,
		0x23, 0x42, 0xB1, 0xC1, 0x15, 0x52, 0xD1, 0xF0,
		0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0A, 0x16,
		0x17, 0x18, 0x19, 0x1A, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2A, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
		0x3A, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
		0x4A, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
		0x5A, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
		0x6A, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
		0x7A, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8A, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
		0x99, 0x9A, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7,
		0xA8, 0xA9, 0xAA, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6,
		0xB7, 0xB8, 0xB9, 0xBA, 0xC2, 0xC3, 0xC4, 0xC5,
		0xC6, 0xC7, 0xC8, 0xC9, 0xCA, 0xD2, 0xD3, 0xD4,
		0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0xDA, 0xE1, 0xE2,
		0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, 0xEA,
		0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7, 0xF8,
		0xF9, 0xFA,
	},
	{ // AC chrominance
		0x00, 0x02, 0x01, 0x02, 0x04, 0x04, 0x03, 0x04,
		0x07, 0x05, 0x04, 0x04, 0x00, 0x01, 0x02, 0x77,
		0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21,
		0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
		0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91,
		0xA1, 0xB1, 0xC1, 0x09, 0x23, 0x33, 0x52, 0xF0,
		0x15, 0x62, 0x72, 0xD1, 0x0A, 0x16, 0x24, 0x34,
		0xE1, 0x25, 0xF1, 0x17, 0x18, 0x19, 0x1A, 0x26,
		0x27, 0x28, 0x29, 0x2A, 0x35, 0x36, 0x37, 0x38,
		0x39, 0x3A, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
		0x49, 0x4A, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58,
		0x59, 0x5A, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
		0x69, 0x6A, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78,
		0x79, 0x7A, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8A, 0x92, 0x93, 0x94, 0x95, 0x96,
		0x97, 0x98, 0x99, 0x9A, 0xA2, 0xA3, 0xA4, 0xA5,
		0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xB2, 0xB3, 0xB4,
		0xB5, 0xB6, 0xB7, 0xB8, 0xB9, 0xBA, 0xC2, 0xC3,
		0xC4, 0xC5, 0xC6, 0xC7, 0xC8, 0xC9, 0xCA, 0xD2,
		0xD3, 0xD4, 0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0xDA,
		0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9,
		0xEA, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7, 0xF8,
		0xF9, 0xFA,
	},
}
