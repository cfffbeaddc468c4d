package riff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/riff"
)

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

func newReader(data []byte) *riff.Reader {
	br := stream.NewBufReader(stream.NewByteReader(data))
	return riff.NewReader(br, fourcc.Riff)
}

func TestReaderReadsSequentialChunks(t *testing.T) {
	data := append(chunk("fmt ", []byte{1, 2, 3}), chunk("data", []byte{4, 5, 6, 7})...)
	r := newReader(data)

	name, span, err := r.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("fmt "), name)
	require.Equal(t, uint64(0), span.Offset)

	body, err := r.ReadData(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, body)

	has, err := r.HasRemaining()
	require.NoError(t, err)
	require.True(t, has)

	name, _, err = r.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("data"), name)

	body, err = r.ReadData(4)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5, 6, 7}, body)

	has, err = r.HasRemaining()
	require.NoError(t, err)
	require.False(t, has)
}

func TestReaderPeekThenReadReturnsSameHeader(t *testing.T) {
	data := chunk("fmt ", []byte{9, 9})
	r := newReader(data)

	name, ok, err := r.PeekHeader()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fourcc.FromString("fmt "), name)

	readName, span, err := r.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, name, readName)
	require.Equal(t, uint64(10), span.Len)
}

func TestReaderRejectsPeekWhileBodyUnconsumed(t *testing.T) {
	data := chunk("fmt ", []byte{1, 2})
	r := newReader(data)

	_, _, err := r.ReadAnyHeader()
	require.NoError(t, err)

	_, _, err = r.PeekHeader()
	require.Error(t, err)
}

func TestReaderSkipDataAdvancesPastPadding(t *testing.T) {
	data := append(chunk("fmt ", []byte{1, 2, 3}), chunk("data", []byte{9})...)
	r := newReader(data)

	_, _, err := r.ReadAnyHeader()
	require.NoError(t, err)
	require.NoError(t, r.SkipData())

	name, _, err := r.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("data"), name)
}

func TestReaderRejectsNonZeroPadByte(t *testing.T) {
	data := chunk("fmt ", []byte{1, 2, 3})
	data[len(data)-1] = 1 // corrupt the pad byte

	r := newReader(data)
	_, _, err := r.ReadAnyHeader()
	require.NoError(t, err)
	_, err = r.ReadData(3)
	require.NoError(t, err)

	_, err = r.HasRemaining()
	require.Error(t, err)
}

func TestReaderHeaderMismatchIsInvalidChunkLayout(t *testing.T) {
	data := chunk("fmt ", []byte{1})
	r := newReader(data)

	_, err := r.ReadHeader(fourcc.FromString("data"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidChunkLayout))
}

func TestReaderMissingRequiredChunkAtEOF(t *testing.T) {
	r := newReader(nil)
	_, err := r.ReadHeader(fourcc.FromString("data"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindMissingRequiredChunk))
}

func TestChildReaderBoundsToChunkBody(t *testing.T) {
	inner := chunk("sub1", []byte{1, 2})
	data := chunk("LIST", inner)
	r := newReader(data)

	name, _, err := r.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("LIST"), name)

	child := r.ChildReader()
	subName, _, err := child.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("sub1"), subName)

	body, err := child.ReadData(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, body)

	has, err := child.HasRemaining()
	require.NoError(t, err)
	require.False(t, has)

	has, err = r.HasRemaining()
	require.NoError(t, err)
	require.False(t, has)
}

func TestChildReaderSkipDataUsesParentSkip(t *testing.T) {
	inner := append(chunk("sub1", []byte{1, 2, 3}), chunk("sub2", []byte{4})...)
	data := chunk("LIST", inner)
	r := newReader(data)

	_, _, err := r.ReadAnyHeader()
	require.NoError(t, err)
	child := r.ChildReader()

	_, _, err = child.ReadAnyHeader()
	require.NoError(t, err)
	require.NoError(t, child.SkipData())

	name, _, err := child.ReadAnyHeader()
	require.NoError(t, err)
	require.Equal(t, fourcc.FromString("sub2"), name)
}
