package vp8l

import (
	"testing"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/internal/vp8lbits"
	"github.com/stretchr/testify/require"
)

func TestReadColorCacheAbsent(t *testing.T) {
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0x00}), 16, "TEST")
	c, err := ReadColorCache(r)
	require.NoError(t, err)
	require.Equal(t, uint16(0), c.Len())
}

func TestReadColorCachePresent(t *testing.T) {
	// bit0=1 (present), then 4-bit order=1 (LSB-first: bits 1,0,0,0 -> value 1),
	// so the cache holds 1<<1 = 2 entries.
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0b00000011}), 16, "TEST")
	c, err := ReadColorCache(r)
	require.NoError(t, err)
	require.Equal(t, uint16(2), c.Len())
}

func TestReadColorCacheRejectsOrderZero(t *testing.T) {
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0b00000001}), 16, "TEST")
	_, err := ReadColorCache(r)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestReadColorCacheRejectsOrderAboveEleven(t *testing.T) {
	// bit0=1 present, then order bits = 12 (1100 LSB-first -> 0,0,1,1 = 12)
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0b00011001}), 16, "TEST")
	_, err := ReadColorCache(r)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}
