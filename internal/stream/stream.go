// Package stream implements the read-and-skip-forward input abstraction
// both sanitizers are built on (spec.md §4.1 / §5). The contract is
// deliberately weaker than general seeking: sequential read, forward skip
// of N bytes, query of current position, and query of total length. This
// allows piping an MP4 or WebP from a network stream as long as the
// producer cooperates, without requiring random-access seek.
package stream

import (
	"io"

	"github.com/deepteams/mediasan/internal/errs"
)

// Reader is the capability set every sanitizer input must provide.
//
// General backward seeking is not required. Read follows the normal
// io.Reader contract: it may return n > 0 and err == io.EOF together, or
// n == 0 and err == io.EOF at a clean boundary. The end of input is
// reported as the plain io.EOF value, not a wrapped error.
type Reader interface {
	io.Reader

	// SkipForward advances the stream by n bytes without retaining them.
	// It returns an error wrapping io.ErrUnexpectedEOF if fewer than n
	// bytes remain.
	SkipForward(n uint64) error

	// Position returns the current stream offset from the start of input.
	Position() uint64

	// Length returns the total length of the input, if known.
	Length() uint64
}

// Span is a half-open byte range inside the original input: (offset, len).
// It is immutable once produced (spec.md §3 InputSpan).
type Span struct {
	Offset uint64
	Len    uint64
}

// End returns the exclusive end offset of the span.
func (s Span) End() uint64 {
	return s.Offset + s.Len
}

// SeekReader adapts an io.ReadSeeker (or io.ReaderAt-backed cursor) to the
// Reader interface for synchronous callers with genuinely seekable input.
// It never seeks backward itself; SkipForward is implemented as a forward
// Seek, satisfying the weaker forward-only contract even though the
// underlying source happens to support more.
type SeekReader struct {
	rs     io.ReadSeeker
	pos    uint64
	length uint64
}

// NewSeekReader constructs a SeekReader, determining the total length via
// one Seek(0, io.SeekEnd) / Seek(0, io.SeekStart) round trip.
func NewSeekReader(rs io.ReadSeeker) (*SeekReader, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return nil, err
	}
	return &SeekReader{rs: rs, pos: uint64(cur), length: uint64(end)}, nil
}

// Read implements Reader.
func (r *SeekReader) Read(p []byte) (int, error) {
	n, err := r.rs.Read(p)
	r.pos += uint64(n)
	return n, err
}

// SkipForward implements Reader.
func (r *SeekReader) SkipForward(n uint64) error {
	if n == 0 {
		return nil
	}
	newPos := r.pos + n
	if newPos > r.length {
		return errs.FromIo(io.ErrUnexpectedEOF)
	}
	if _, err := r.rs.Seek(int64(n), io.SeekCurrent); err != nil {
		return errs.FromIo(err)
	}
	r.pos = newPos
	return nil
}

// Position implements Reader.
func (r *SeekReader) Position() uint64 {
	return r.pos
}

// Length implements Reader.
func (r *SeekReader) Length() uint64 {
	return r.length
}

// ByteReader adapts an in-memory byte slice to Reader, for tests and small
// inputs. Length is the slice length; skip/read never exceed it.
type ByteReader struct {
	data []byte
	pos  int
}

// NewByteReader constructs a ByteReader over data.
func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{data: data}
}

// Read implements Reader.
func (r *ByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// SkipForward implements Reader.
func (r *ByteReader) SkipForward(n uint64) error {
	if n == 0 {
		return nil
	}
	newPos := uint64(r.pos) + n
	if newPos > uint64(len(r.data)) {
		return errs.FromIo(io.ErrUnexpectedEOF)
	}
	r.pos = int(newPos)
	return nil
}

// Position implements Reader.
func (r *ByteReader) Position() uint64 {
	return uint64(r.pos)
}

// Length implements Reader.
func (r *ByteReader) Length() uint64 {
	return uint64(len(r.data))
}
