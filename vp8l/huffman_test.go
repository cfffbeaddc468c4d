package vp8l

import (
	"testing"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/internal/vp8lbits"
	"github.com/stretchr/testify/require"
)

func TestSingleSymbolTreeDecodesWithoutConsumingBits(t *testing.T) {
	tree := SingleSymbolTree(42)
	r := vp8lbits.NewReader(stream.NewByteReader(nil), 16, "TEST")
	sym, err := tree.Decode(r)
	require.NoError(t, err)
	require.Equal(t, uint16(42), sym)
}

func TestBuildTreeRejectsEmptyLengths(t *testing.T) {
	_, err := BuildTree(make([]uint8, 4))
	require.True(t, errs.Is(err, errs.KindInvalidVp8lPrefixCode))
}

func TestBuildTreeSingleNonZeroLengthIsDegenerate(t *testing.T) {
	lengths := make([]uint8, 4)
	lengths[2] = 3
	tree, err := BuildTree(lengths)
	require.NoError(t, err)
	require.Equal(t, 0, tree.LongestCodeLen())

	r := vp8lbits.NewReader(stream.NewByteReader(nil), 16, "TEST")
	sym, err := tree.Decode(r)
	require.NoError(t, err)
	require.Equal(t, uint16(2), sym)
}

func TestBuildTreeRejectsOversubscribedCode(t *testing.T) {
	// Two symbols both claiming the single 1-bit code space is fine (codes
	// 0 and 1); three symbols at length 1 overflow it.
	lengths := []uint8{1, 1, 1}
	_, err := BuildTree(lengths)
	require.True(t, errs.Is(err, errs.KindInvalidVp8lPrefixCode))
}

func TestBuildTreeAndDecodeRoundTrip(t *testing.T) {
	// Canonical code for lengths [2,1,3,3]: symbol1(len1)=0, symbol0(len2)=10,
	// symbol2(len3)=110, symbol3(len3)=111.
	lengths := []uint8{2, 1, 3, 3}
	tree, err := BuildTree(lengths)
	require.NoError(t, err)
	require.Equal(t, 3, tree.LongestCodeLen())

	// Bitstream bits, LSB-first per byte: symbol1 (0), symbol0 (10),
	// symbol2 (110), symbol3 (111).
	// Concatenated code-bit sequence (MSB-first per code, as written to the
	// tree): 0 | 1 0 | 1 1 0 | 1 1 1  =>  0 10 110 111
	// Pack LSB-first into bytes for the reader: bit order written above,
	// left to right, each bit is the next bit read.
	bitSeq := []bool{false, true, false, true, true, false, true, true, true}
	var buf []byte
	var cur byte
	var n int
	for _, b := range bitSeq {
		if b {
			cur |= 1 << uint(n)
		}
		n++
		if n == 8 {
			buf = append(buf, cur)
			cur, n = 0, 0
		}
	}
	if n > 0 {
		buf = append(buf, cur)
	}

	r := vp8lbits.NewReader(stream.NewByteReader(buf), 16, "TEST")
	for _, want := range []uint16{1, 0, 2, 3} {
		got, err := tree.Decode(r)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	lengths := []uint8{1, 1}
	tree, err := BuildTree(lengths)
	require.NoError(t, err)

	// Both 1-bit codes are assigned (0 and 1); decoding from an empty
	// bitstream fails because no bit can be read.
	r := vp8lbits.NewReader(stream.NewByteReader(nil), 16, "TEST")
	_, err = tree.Decode(r)
	require.Error(t, err)
}
