package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func wrapBox(name string, body []byte) []byte {
	size := 8 + len(body)
	out := make([]byte, 0, size)
	out = append(out, byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	out = append(out, []byte(name)...)
	out = append(out, body...)
	return out
}

func buildFtyp() []byte {
	return []byte{
		0, 0, 0, 20, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0, 0, 0, 0,
		'i', 's', 'o', 'm',
	}
}

func buildMoov(target uint32) []byte {
	stco := []byte{0, 0, 0, 20, 's', 't', 'c', 'o', 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}
	stco[16] = byte(target >> 24)
	stco[17] = byte(target >> 16)
	stco[18] = byte(target >> 8)
	stco[19] = byte(target)
	body := wrapBox("stbl", stco)
	body = wrapBox("minf", body)
	body = wrapBox("mdia", body)
	body = wrapBox("trak", body)
	return wrapBox("moov", body)
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunRewritesNonCanonicalLayout(t *testing.T) {
	ftyp := buildFtyp()
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	mdat := wrapBox("mdat", payload)
	mdatHeaderLen := uint32(8)
	moov := buildMoov(uint32(len(ftyp)) + mdatHeaderLen)
	input := append(append(append([]byte{}, ftyp...), mdat...), moov...)

	inPath := writeTemp(t, input)
	outPath := filepath.Join(t.TempDir(), "out.mp4")

	require.NoError(t, run(inPath, outPath, false))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, len(out) > 0)
	// The rewritten file must still carry the mdat payload verbatim.
	require.Contains(t, string(out), string(payload))
}

func TestRunReportsMissingInput(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "missing.mp4"), "-", false)
	require.Error(t, err)
}

func TestRunRejectsFtypMissing(t *testing.T) {
	moov := buildMoov(8)
	inPath := writeTemp(t, moov)
	err := run(inPath, "-", false)
	require.Error(t, err)
}
