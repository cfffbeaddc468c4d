package mp4san_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/mp4san"
)

// buildFtyp returns a minimal ftyp box with major_brand=isom and
// compatible_brands=[isom].
func buildFtyp() []byte {
	return []byte{
		0, 0, 0, 20, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0, 0, 0, 0,
		'i', 's', 'o', 'm',
	}
}

// buildMoov wraps a single trak/mdia/minf/stbl/stco around one chunk-offset
// entry, pointing at target.
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

func wrapBox(name string, body []byte) []byte {
	size := 8 + len(body)
	out := make([]byte, 0, size)
	out = append(out, byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	out = append(out, []byte(name)...)
	out = append(out, body...)
	return out
}

func buildMdat(payload []byte) []byte {
	return wrapBox("mdat", payload)
}

func TestSanitizeRewritesNonCanonicalLayout(t *testing.T) {
	ftyp := buildFtyp()
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	mdat := buildMdat(payload)
	// moov's stco[0] originally pointed at mdat's body start in this
	// (non-canonical: moov-after-mdat) layout.
	mdatHeaderLen := uint32(8)
	moov := buildMoov(uint32(len(ftyp)) + mdatHeaderLen)

	input := append(append(append([]byte{}, ftyp...), mdat...), moov...)

	out, err := mp4san.Sanitize(stream.NewByteReader(input))
	require.NoError(t, err)
	require.NotNil(t, out.Metadata)

	// stco[0] must equal len(metadata) + mdat_header_size (spec.md §8 #2).
	want := uint32(len(out.Metadata)) + mdatHeaderLen
	got := parseStco0(t, out.Metadata)
	require.Equal(t, want, got)

	require.Equal(t, uint64(len(ftyp)), out.Data.Offset)
	require.Equal(t, uint64(len(mdat)), out.Data.Len)
}

func TestSanitizeCanonicalLayoutIsNoOp(t *testing.T) {
	ftyp := buildFtyp()
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	mdat := buildMdat(payload)
	mdatHeaderLen := uint32(8)
	moov := buildMoov(uint32(len(ftyp)) + uint32(0) /* placeholder */)
	// moov must sit immediately before mdat and its stco[0] must already
	// equal len(ftyp)+len(moov)+mdat_header_size.
	target := uint32(len(ftyp)) + uint32(len(moov)) + mdatHeaderLen
	moov = buildMoov(target)
	target = uint32(len(ftyp)) + uint32(len(moov)) + mdatHeaderLen
	moov = buildMoov(target) // fixed point: moov length doesn't change across rebuilds here

	input := append(append(append([]byte{}, ftyp...), moov...), mdat...)

	out, err := mp4san.Sanitize(stream.NewByteReader(input))
	require.NoError(t, err)
	require.Nil(t, out.Metadata)
	require.Equal(t, uint64(len(ftyp)+len(moov)), out.Data.Offset)
	require.Equal(t, uint64(len(mdat)), out.Data.Len)
}

func TestSanitizeMissingFtypFails(t *testing.T) {
	moov := buildMoov(0)
	mdat := buildMdat([]byte{0, 1, 2, 3})
	input := append(append([]byte{}, moov...), mdat...)

	_, err := mp4san.Sanitize(stream.NewByteReader(input))
	require.Error(t, err)
}

func TestSanitizeDuplicateCoTableFails(t *testing.T) {
	ftyp := buildFtyp()
	stco := []byte{0, 0, 0, 20, 's', 't', 'c', 'o', 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1}
	co64 := []byte{0, 0, 0, 24, 'c', 'o', '6', '4', 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	stbl := wrapBox("stbl", append(append([]byte{}, stco...), co64...))
	body := wrapBox("minf", wrapBox("mdia", wrapBox("trak", stbl)))
	moov := wrapBox("moov", body)
	mdat := buildMdat([]byte{0, 1, 2, 3})

	input := append(append(append([]byte{}, ftyp...), moov...), mdat...)

	_, err := mp4san.Sanitize(stream.NewByteReader(input))
	require.Error(t, err)
}

func TestSanitizeWidensStcoToCo64WhenOffsetOverflows(t *testing.T) {
	ftyp := buildFtyp()
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	mdat := buildMdat(payload)
	mdatHeaderLen := uint32(8)
	moov := buildMoov(uint32(len(ftyp)) + mdatHeaderLen)

	input := append(append(append([]byte{}, ftyp...), mdat...), moov...)

	cfg := mp4san.DefaultConfig()
	// Pushes every rewritten offset past 32 bits without needing an actual
	// multi-gigabyte payload, forcing the stco->co64 widening path.
	cfg.CumulativeMdatBoxSize = 1 << 33

	out, err := mp4san.SanitizeWithConfig(stream.NewByteReader(input), cfg)
	require.NoError(t, err)
	require.NotNil(t, out.Metadata)

	idx := indexOf(out.Metadata, []byte("co64"))
	require.GreaterOrEqual(t, idx, 0, "widened table must be re-typed as co64")
	require.Equal(t, -1, indexOf(out.Metadata, []byte("stco")), "no stco box should remain")
}

func parseStco0(t *testing.T, metadata []byte) uint32 {
	t.Helper()
	idx := indexOf(metadata, []byte("stco"))
	require.GreaterOrEqual(t, idx, 0)
	// stco body: 4 type-preceding bytes already matched; entries start at
	// idx+4 (version/flags) +4 (entry_count) +4 bytes in.
	entryOff := idx + 4 + 4 + 4
	return uint32(metadata[entryOff])<<24 | uint32(metadata[entryOff+1])<<16 | uint32(metadata[entryOff+2])<<8 | uint32(metadata[entryOff+3])
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
