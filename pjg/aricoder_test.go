package pjg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticUniversalRoundtrip(t *testing.T) {
	syms := []int{0, 1, 1, 2, 7, 7, 7, 0, 3, 1, 7, 6, 5, 4, 3, 2, 1, 0, 0, 0, 7}

	enc := NewArithmeticEncoder()
	m := NewUniversalModel(8, 8, 1)
	prev := 0
	for _, s := range syms {
		m.ShiftContext(prev)
		enc.Encode(m, s)
		prev = s
	}
	var buf bytes.Buffer
	require.NoError(t, enc.Finish(&buf))

	dec := NewArithmeticDecoder(NewByteReader(buf.Bytes()))
	md := NewUniversalModel(8, 8, 1)
	prev = 0
	for i, want := range syms {
		md.ShiftContext(prev)
		got := dec.Decode(md)
		require.Equal(t, want, got, "symbol %d", i)
		prev = got
	}
}

func TestArithmeticExclusionRoundtrip(t *testing.T) {
	// shrinking alphabet, as used by the zero-sort scan coder
	syms := []int{10, 0, 5, 3, 3, 2, 1, 1, 0}

	enc := NewArithmeticEncoder()
	m := NewUniversalModel(64, 64, 1)
	for i, s := range syms {
		m.ExcludeSymbolsAbove(63 - i)
		enc.Encode(m, s)
		m.ShiftContext(s)
	}
	var buf bytes.Buffer
	require.NoError(t, enc.Finish(&buf))

	dec := NewArithmeticDecoder(NewByteReader(buf.Bytes()))
	md := NewUniversalModel(64, 64, 1)
	for i, want := range syms {
		md.ExcludeSymbolsAbove(63 - i)
		got := dec.Decode(md)
		require.Equal(t, want, got, "symbol %d", i)
		md.ShiftContext(got)
	}
}

func TestArithmeticBinaryRoundtrip(t *testing.T) {
	bits := []int{0, 1, 1, 1, 0, 0, 1, 0, 1, 1, 1, 1, 1, 1, 0, 0, 0, 1}

	enc := NewArithmeticEncoder()
	m := NewBinaryModel(4, 2)
	ctx := 0
	for _, b := range bits {
		m.ShiftModel(ctx&3, (ctx>>1)&3)
		enc.Encode(m, b)
		ctx = ctx<<1 | b
	}
	var buf bytes.Buffer
	require.NoError(t, enc.Finish(&buf))

	dec := NewArithmeticDecoder(NewByteReader(buf.Bytes()))
	md := NewBinaryModel(4, 2)
	ctx = 0
	for i, want := range bits {
		md.ShiftModel(ctx&3, (ctx>>1)&3)
		got := dec.Decode(md)
		require.Equal(t, want, got, "bit %d", i)
		ctx = ctx<<1 | got
	}
}

func TestArithmeticFlushKeepsSync(t *testing.T) {
	enc := NewArithmeticEncoder()
	m := NewUniversalModel(11, 11, 2)
	for round := 0; round < 3; round++ {
		for s := 0; s < 11; s++ {
			m.ShiftModel(s, round)
			enc.Encode(m, s)
		}
		m.Flush()
	}
	var buf bytes.Buffer
	require.NoError(t, enc.Finish(&buf))

	dec := NewArithmeticDecoder(NewByteReader(buf.Bytes()))
	md := NewUniversalModel(11, 11, 2)
	for round := 0; round < 3; round++ {
		for s := 0; s < 11; s++ {
			md.ShiftModel(s, round)
			assert.Equal(t, s, dec.Decode(md))
		}
		md.Flush()
	}
}

func TestGenericCoderRoundtrip(t *testing.T) {
	payload := []byte("some header bytes \x00\xff\xff\x00 with repetitions repetitions repetitions")

	c := newCodec(Options{})
	enc := NewArithmeticEncoder()
	c.encodeGeneric(enc, payload)
	c.encodeBit(enc, 1)
	c.encodeBit(enc, 0)
	c.encodeGeneric(enc, nil)
	var buf bytes.Buffer
	require.NoError(t, enc.Finish(&buf))

	dec := NewArithmeticDecoder(NewByteReader(buf.Bytes()))
	assert.Equal(t, payload, c.decodeGeneric(dec))
	assert.Equal(t, uint8(1), c.decodeBit(dec))
	assert.Equal(t, uint8(0), c.decodeBit(dec))
	assert.Empty(t, c.decodeGeneric(dec))
}
