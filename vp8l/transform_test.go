package vp8l

import (
	"testing"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/internal/vp8lbits"
	"github.com/stretchr/testify/require"
)

func TestReadTransformsNoneDeclared(t *testing.T) {
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0x00}), 16, "TEST")
	width, err := readTransforms(r, 7, 9)
	require.NoError(t, err)
	require.Equal(t, uint32(7), width)
}

func TestReadTransformsSubtractGreenHasNoPayload(t *testing.T) {
	// bit0=1 (another transform follows), bits1-2 = SubtractGreen (2),
	// bit3=0 (no further transform).
	r := vp8lbits.NewReader(stream.NewByteReader([]byte{0b00000101}), 16, "TEST")
	width, err := readTransforms(r, 7, 9)
	require.NoError(t, err)
	require.Equal(t, uint32(7), width)
}

func TestColorIndexingBlockSize(t *testing.T) {
	require.Equal(t, uint32(8), colorIndexingBlockSize(2))
	require.Equal(t, uint32(4), colorIndexingBlockSize(4))
	require.Equal(t, uint32(2), colorIndexingBlockSize(16))
	require.Equal(t, uint32(1), colorIndexingBlockSize(17))
}

func TestLenInBlocks(t *testing.T) {
	require.Equal(t, uint32(3), lenInBlocks(9, 4))
	require.Equal(t, uint32(2), lenInBlocks(8, 4))
	require.Equal(t, uint32(1), lenInBlocks(1, 4))
}

func TestValidatePredictorPixelRejectsOutOfRange(t *testing.T) {
	require.NoError(t, validatePredictorPixel(13))
	err := validatePredictorPixel(14)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}
