package webp

import (
	"testing"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestParseVp8xChunkRoundTrip(t *testing.T) {
	raw := []byte{
		byte(FlagHasICCP | FlagAnimated), 0, 0, 0,
		9, 0, 0, // width-1 = 9 -> width 10
		4, 0, 0, // height-1 = 4 -> height 5
	}
	chunk, err := ParseVp8xChunk(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(10), chunk.CanvasWidth)
	require.Equal(t, uint32(5), chunk.CanvasHeight)
	require.True(t, chunk.Flags.HasICCP())
	require.True(t, chunk.Flags.IsAnimated())
	require.False(t, chunk.Flags.HasALPH())
}

func TestParseVp8xChunkRejectsReservedFlags(t *testing.T) {
	raw := make([]byte, Vp8xChunkLen)
	raw[0] = 1 << 0 // reserved bit
	_, err := ParseVp8xChunk(raw)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestParseVp8xChunkRejectsWrongLength(t *testing.T) {
	_, err := ParseVp8xChunk(make([]byte, Vp8xChunkLen-1))
	require.True(t, errs.Is(err, errs.KindTruncatedChunk))
}

func TestParseAnimChunkRoundTrip(t *testing.T) {
	raw := []byte{0x11, 0x22, 0x33, 0x44, 0x05, 0x00}
	anim, err := ParseAnimChunk(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(0x44332211), anim.BackgroundColor)
	require.Equal(t, uint16(5), anim.LoopCount)
}

func TestParseAnmfChunkRoundTrip(t *testing.T) {
	raw := []byte{
		2, 0, 0, // x = 2
		4, 0, 0, // y = 4
		9, 0, 0, // width-1 = 9 -> 10
		19, 0, 0, // height-1 = 19 -> 20
		100, 0, 0, // duration
		byte(AnmfFlagAlphaBlending | AnmfFlagDisposeBackground),
	}
	anmf, err := ParseAnmfChunk(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(2), anmf.X)
	require.Equal(t, uint32(4), anmf.Y)
	require.Equal(t, uint32(10), anmf.Width)
	require.Equal(t, uint32(20), anmf.Height)
	require.Equal(t, uint32(100), anmf.Duration)
	require.True(t, anmf.Flags.AlphaBlending())
	require.True(t, anmf.Flags.DisposeBackground())
}

func TestParseAnmfChunkRejectsReservedFlags(t *testing.T) {
	raw := make([]byte, AnmfChunkLen)
	raw[15] = 1 << 7
	_, err := ParseAnmfChunk(raw)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestParseAlphChunkRoundTrip(t *testing.T) {
	alph, err := ParseAlphChunk([]byte{byte(AlphFlagCompressLossless | AlphFlagFilterHorizontal)})
	require.NoError(t, err)
	require.True(t, alph.Flags.CompressLossless())
}

func TestParseAlphChunkRejectsReservedFlags(t *testing.T) {
	_, err := ParseAlphChunk([]byte{1 << 5})
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}
