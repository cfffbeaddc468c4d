package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var minimalLosslessWebP = []byte{
	'R', 'I', 'F', 'F', 0x14, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P',
	'V', 'P', '8', 'L', 0x08, 0x00, 0x00, 0x00,
	0x2f, 0x00, 0x00, 0x00, 0x00, 0x88, 0x88, 0x08,
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.webp")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunAcceptsValidWebP(t *testing.T) {
	path := writeTemp(t, minimalLosslessWebP)
	require.NoError(t, run(path, false, false))
}

func TestRunRejectsInvalidWebP(t *testing.T) {
	path := writeTemp(t, []byte("not a webp file"))
	require.Error(t, run(path, false, false))
}

func TestRunReportsMissingFile(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "missing.webp"), false, false)
	require.Error(t, err)
}
