package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuffCodesCanonical(t *testing.T) {
	// standard DC luminance table: 12 symbols, lengths 2..9
	counts := stdHuffTables[0][:16]
	values := stdHuffTables[0][16:]
	hc := NewHuffCodes(counts, values)

	// symbol 0 gets the first 2-bit code
	assert.Equal(t, uint16(2), hc.CLen[0])
	assert.Equal(t, uint16(0), hc.CVal[0])
	// symbols 1..5 get 3-bit codes 010..110
	for i := 1; i <= 5; i++ {
		assert.Equal(t, uint16(3), hc.CLen[i])
		assert.Equal(t, uint16(i+1), hc.CVal[i])
	}
	// symbol 11 gets the longest code, all ones except the last bit
	assert.Equal(t, uint16(9), hc.CLen[11])
	assert.Equal(t, uint16(0x1FE), hc.CVal[11])
}

func TestHuffCodesMaxEOBRun(t *testing.T) {
	// the sequential AC luminance table has no run symbols beyond EOB
	hc := NewHuffCodes(stdHuffTables[2][:16], stdHuffTables[2][16:])
	assert.Equal(t, uint16(1), hc.MaxEOBRun)

	// a table holding every symbol reaches the longest run
	counts, values := allSymbolTable()
	hc = NewHuffCodes(counts, values)
	assert.Equal(t, uint16((2<<14)-1), hc.MaxEOBRun)
}

func TestHuffTreeDecode(t *testing.T) {
	hc := NewHuffCodes(stdHuffTables[0][:16], stdHuffTables[0][16:])
	tree := NewHuffTree(hc)

	// encode a few symbols, then decode them back through the tree
	syms := []int{0, 5, 11, 3, 0, 7}
	w := NewBitWriter(16)
	for _, s := range syms {
		w.Write(int(hc.CVal[s]), int(hc.CLen[s]))
	}
	w.SetFillBit(1)
	r := NewBitReader(w.GetData())

	for _, want := range syms {
		got := tree.NextHuffCode(r)
		require.Equal(t, want, got)
	}
}

func TestHuffTreeInvalidCode(t *testing.T) {
	// a single 3-bit code (000): everything starting with a 1 bit is invalid
	counts := make([]uint8, 16)
	counts[2] = 1
	hc := NewHuffCodes(counts, []uint8{0x07})
	tree := NewHuffTree(hc)

	r := NewBitReader([]byte{0xFF})
	assert.Negative(t, tree.NextHuffCode(r))
}
