package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitWriterReaderRoundtrip(t *testing.T) {
	w := NewBitWriter(4)
	w.Write(0x5, 3)
	w.Write(0x1FF, 9)
	w.WriteBit(1)
	w.WriteBit(0)
	w.Write(0xABCD, 16)
	w.SetFillBit(0)
	data := w.GetData()

	r := NewBitReader(data)
	assert.Equal(t, 0x5, r.Read(3))
	assert.Equal(t, 0x1FF, r.Read(9))
	assert.Equal(t, 1, r.ReadBit())
	assert.Equal(t, 0, r.ReadBit())
	assert.Equal(t, 0xABCD, r.Read(16))
}

func TestBitWriterPadsWithFillBit(t *testing.T) {
	w := NewBitWriter(4)
	w.SetFillBit(1)
	w.WriteBit(0)
	data := w.GetData()
	require.Len(t, data, 1)
	// first bit zero, remaining seven bits set
	assert.Equal(t, byte(0x7F), data[0])

	w = NewBitWriter(4)
	w.SetFillBit(0)
	w.WriteBit(1)
	data = w.GetData()
	require.Len(t, data, 1)
	assert.Equal(t, byte(0x80), data[0])
}

func TestBitWriterGrowth(t *testing.T) {
	w := NewBitWriter(1)
	for i := 0; i < 1000; i++ {
		w.Write(i&0xFF, 8)
	}
	data := w.GetData()
	require.Len(t, data, 1000)
	assert.Equal(t, byte(999&0xFF), data[999])
}

func TestBitReaderOverread(t *testing.T) {
	r := NewBitReader([]byte{0xF0})
	assert.Equal(t, 0xF, r.Read(4))
	assert.Equal(t, 0x0, r.Read(4))
	assert.True(t, r.EOF())
	assert.Equal(t, 0, r.Read(5))
	assert.Equal(t, 5, r.Overread())
	assert.Equal(t, 0, r.ReadBit())
	assert.Equal(t, 6, r.Overread())
}

func TestBitReaderUnpad(t *testing.T) {
	// aligned: fill value passes through untouched
	r := NewBitReader([]byte{0xAA, 0xFF})
	assert.Equal(t, int8(-1), r.Unpad(-1))

	// mid-byte: first pad bit is returned, rest consumed
	r.Read(3) // 0b101
	assert.Equal(t, int8(0), r.Unpad(-1))
	assert.Equal(t, 0xFF, r.Read(8))

	// at eof the fill value passes through
	assert.Equal(t, int8(1), r.Unpad(1))
}

func TestByteReaderSeekClamps(t *testing.T) {
	r := NewByteReader([]byte{1, 2, 3})
	r.Seek(-5)
	assert.Equal(t, 0, r.Pos())
	r.Seek(100)
	assert.Equal(t, 3, r.Pos())
	assert.True(t, r.EOF())
	r.Seek(1)
	b, ok := r.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte(2), b)

	buf := make([]byte, 8)
	assert.Equal(t, 1, r.ReadN(buf, 8))
	assert.Equal(t, byte(3), buf[0])
	assert.Equal(t, 0, r.ReadN(buf, 8))
}
