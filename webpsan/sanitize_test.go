package webpsan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/webpsan"
)

// chunk builds one RIFF chunk: a 4-byte name, a little-endian length, the
// body, and a pad byte if the body length is odd.
func chunk(name string, body []byte) []byte {
	out := make([]byte, 0, 8+len(body)+1)
	out = append(out, []byte(name)...)
	n := uint32(len(body))
	out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

// riffFile wraps chunks in a top-level RIFF/WEBP container.
func riffFile(chunks ...[]byte) []byte {
	var body []byte
	body = append(body, []byte("WEBP")...)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk("RIFF", body)
}

func sanitizeBytes(t *testing.T, data []byte) error {
	t.Helper()
	return webpsan.Sanitize(stream.NewByteReader(data))
}

// lossless1x1 is spec.md §8 scenario 1's exact fixture: a 1×1 lossless
// image with no transforms, single-symbol trees throughout.
var lossless1x1VP8LBody = []byte{0x2f, 0x00, 0x00, 0x00, 0x00, 0x88, 0x88, 0x08}

func TestSanitizeAcceptsLosslessMinimalImage(t *testing.T) {
	data := riffFile(chunk("VP8L", lossless1x1VP8LBody))
	err := sanitizeBytes(t, data)
	require.NoError(t, err)
}

func TestSanitizeRejectsNonRiffInput(t *testing.T) {
	err := sanitizeBytes(t, []byte("not a riff file at all!!"))
	require.Error(t, err)
}

func TestSanitizeRejectsWrongFormTag(t *testing.T) {
	body := append([]byte("JUNK"), lossless1x1VP8LBody...)
	data := chunk("RIFF", body)
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestSanitizeRejectsTrailingExtraData(t *testing.T) {
	data := riffFile(chunk("VP8L", lossless1x1VP8LBody))
	data = append(data, []byte("junk")...)
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestSanitizeAcceptsLossyStillImage(t *testing.T) {
	data := riffFile(chunk("VP8 ", []byte{1, 2, 3, 4}))
	err := sanitizeBytes(t, data)
	require.NoError(t, err)
}

func TestSanitizeRejectsUnknownFirstChunk(t *testing.T) {
	data := riffFile(chunk("JUNK", []byte{1, 2}))
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidChunkLayout))
}

func vp8xBody(flags byte, width, height uint32) []byte {
	w, h := width-1, height-1
	return []byte{
		flags, 0, 0, 0,
		byte(w), byte(w >> 8), byte(w >> 16),
		byte(h), byte(h >> 8), byte(h >> 16),
	}
}

func TestSanitizeVp8xLossyStillImage(t *testing.T) {
	data := riffFile(chunk("VP8X", vp8xBody(0, 4, 4)), chunk("VP8 ", []byte{1, 2}))
	err := sanitizeBytes(t, data)
	require.NoError(t, err)
}

func TestSanitizeVp8xAnimatedEmptyIsMissingAnmf(t *testing.T) {
	const flagAnimated = 1 << 1
	data := riffFile(
		chunk("VP8X", vp8xBody(flagAnimated, 4, 4)),
		chunk("ANIM", []byte{0, 0, 0, 0, 0, 0}),
	)
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindMissingRequiredChunk))
}

func TestSanitizeVp8xAnimatedWithOneFrame(t *testing.T) {
	const flagAnimated = 1 << 1
	anmfBody := []byte{
		0, 0, 0, // x
		0, 0, 0, // y
		3, 0, 0, // width-1 = 3 -> 4
		3, 0, 0, // height-1 = 3 -> 4
		0, 0, 0, // duration
		0, // flags
	}
	anmfBody = append(anmfBody, chunk("VP8 ", []byte{1, 2})...)
	data := riffFile(
		chunk("VP8X", vp8xBody(flagAnimated, 4, 4)),
		chunk("ANIM", []byte{0, 0, 0, 0, 0, 0}),
		chunk("ANMF", anmfBody),
	)
	err := sanitizeBytes(t, data)
	require.NoError(t, err)
}

func TestSanitizeVp8xWrongOrderRejected(t *testing.T) {
	const flagICCP = 1 << 5
	data := riffFile(
		chunk("VP8X", vp8xBody(flagICCP, 4, 4)),
		chunk("VP8 ", []byte{1, 2}), // ICCP must come before image data
		chunk("ICCP", []byte{9, 9}),
	)
	err := sanitizeBytes(t, data)
	require.Error(t, err)
}

func TestSanitizeVp8xLosslessAlphaRejected(t *testing.T) {
	const flagALPH = 1 << 4
	data := riffFile(
		chunk("VP8X", vp8xBody(flagALPH, 1, 1)),
		chunk("ALPH", []byte{0}),
		chunk("VP8L", lossless1x1VP8LBody),
	)
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidChunkLayout))
}

func TestSanitizeRejectsMultipleImageDataChunks(t *testing.T) {
	data := riffFile(chunk("VP8 ", []byte{1, 2}), chunk("VP8 ", []byte{1, 2}))
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidChunkLayout))
}

func TestSanitizeRejectsXmpAfterSimpleFormatImage(t *testing.T) {
	data := riffFile(chunk("VP8L", lossless1x1VP8LBody), chunk("XMP ", []byte{1, 2}))
	err := sanitizeBytes(t, data)
	require.True(t, errs.Is(err, errs.KindInvalidChunkLayout))
}

func TestSanitizeRejectsDeclaredLengthTooLarge(t *testing.T) {
	data := riffFile(chunk("VP8 ", []byte{1, 2}))
	// Corrupt the RIFF length field to exceed maxFileLen.
	data[4] = 0xfe
	data[5] = 0xff
	data[6] = 0xff
	data[7] = 0xff
	err := sanitizeBytes(t, data)
	require.Error(t, err)
}
