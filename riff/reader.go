package riff

import (
	"io"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
)

// readerState discriminates Reader's state machine (spec.md §4.5: "a small
// state machine over { Idle(last_name), PeekedHeader, ReadingBody{remaining},
// ReadingPadding }").
type readerState int

const (
	stateIdle readerState = iota
	statePeekedHeader
	stateReadingBody
	stateReadingPadding
)

// Reader is a RIFF chunk-sequence reader over a bounded region (the whole
// file, or a chunk's body via ChildReader). It enforces the peek/read
// protocol described in spec.md §4.5: peek_header caches the next header so
// read_header consumes it; peeking or reading another header while a body
// is unconsumed fails with a KindInvalidInput error ("extra unparsed chunk
// data").
type Reader struct {
	br    *stream.BufReader
	state readerState

	lastName     fourcc.Code // valid in stateIdle
	header       ChunkHeader // valid in statePeekedHeader, stateReadingBody, stateReadingPadding
	headerOffset uint64      // stream offset where the cached header started
	remaining    uint32      // valid in stateReadingBody
}

// NewReader constructs a Reader. rootName is used only as the "last chunk"
// label for diagnostics before anything has been read.
func NewReader(br *stream.BufReader, rootName fourcc.Code) *Reader {
	return &Reader{br: br, state: stateIdle, lastName: rootName}
}

// drainPadding consumes any unread pad byte left over from a fully-read or
// fully-skipped chunk body, transitioning back to Idle.
func (r *Reader) drainPadding() error {
	if r.state != stateReadingPadding {
		return nil
	}
	if r.header.Padded() {
		var pad [1]byte
		if err := r.br.ReadFull(pad[:]); err != nil {
			return errs.Attach(errs.New(errs.KindTruncatedChunk, r.header.Name.String()), "reading pad byte")
		}
		if pad[0] != 0 {
			return errs.Attachf(errs.New(errs.KindInvalidInput, "non-zero pad byte"), "chunk %s", r.header.Name)
		}
	}
	r.lastName = r.header.Name
	r.state = stateIdle
	return nil
}

// HasRemaining reports whether any more bytes (a further chunk, or a
// not-yet-consumed peeked/in-progress chunk) remain in this reader's
// region.
func (r *Reader) HasRemaining() (bool, error) {
	if err := r.drainPadding(); err != nil {
		return false, err
	}
	switch r.state {
	case statePeekedHeader, stateReadingBody:
		return true, nil
	}
	atEOF, err := r.br.AtEOF()
	if err != nil {
		return false, err
	}
	return !atEOF, nil
}

// PeekHeader reads the next chunk header without consuming it from the
// caller's perspective: a following ReadHeader/ReadAnyHeader call returns
// the same header without re-reading it. Returns ok=false at a clean region
// boundary.
func (r *Reader) PeekHeader() (name fourcc.Code, ok bool, err error) {
	if err := r.drainPadding(); err != nil {
		return fourcc.Code{}, false, err
	}
	switch r.state {
	case statePeekedHeader:
		return r.header.Name, true, nil
	case stateReadingBody:
		return fourcc.Code{}, false, errs.Attach(errs.New(errs.KindInvalidInput, "extra unparsed chunk data"), r.header.Name.String())
	}

	has, err := r.HasRemaining()
	if err != nil {
		return fourcc.Code{}, false, err
	}
	if !has {
		return fourcc.Code{}, false, nil
	}
	offset := r.br.PositionAccountingForBuffer()
	h, err := ReadChunkHeader(r.br)
	if err != nil {
		return fourcc.Code{}, false, err
	}
	r.header = h
	r.headerOffset = offset
	r.state = statePeekedHeader
	return h.Name, true, nil
}

// ReadHeader reads the next chunk header and requires it to equal name,
// failing with KindMissingRequiredChunk if the region is exhausted or
// KindInvalidChunkLayout if a different chunk is found.
func (r *Reader) ReadHeader(name fourcc.Code) (stream.Span, error) {
	if err := r.drainPadding(); err != nil {
		return stream.Span{}, err
	}
	if r.state == stateIdle {
		has, err := r.HasRemaining()
		if err != nil {
			return stream.Span{}, err
		}
		if !has {
			return stream.Span{}, errs.Attachf(errs.New(errs.KindMissingRequiredChunk, name.String()), "expected %s", name)
		}
	}
	readName, span, err := r.ReadAnyHeader()
	if err != nil {
		return stream.Span{}, err
	}
	if readName != name {
		return stream.Span{}, errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "unexpected chunk"), "expected %s, found %s", name, readName)
	}
	return span, nil
}

// ReadAnyHeader reads the next chunk header, whatever its name, and returns
// the InputSpan the header+body occupy in the underlying stream.
func (r *Reader) ReadAnyHeader() (fourcc.Code, stream.Span, error) {
	if err := r.drainPadding(); err != nil {
		return fourcc.Code{}, stream.Span{}, err
	}

	var h ChunkHeader
	var offset uint64
	switch r.state {
	case statePeekedHeader:
		h = r.header
		offset = r.headerOffset
	case stateReadingBody:
		return fourcc.Code{}, stream.Span{}, errs.Attach(errs.New(errs.KindInvalidInput, "extra unparsed chunk data"), r.header.Name.String())
	default:
		offset = r.br.PositionAccountingForBuffer()
		var err error
		h, err = ReadChunkHeader(r.br)
		if err != nil {
			return fourcc.Code{}, stream.Span{}, err
		}
	}

	span := stream.Span{Offset: offset, Len: uint64(ChunkHeaderLen) + uint64(h.Len)}

	r.header = h
	r.headerOffset = offset
	if h.Len == 0 {
		r.state = stateReadingPadding
	} else {
		r.state = stateReadingBody
		r.remaining = h.Len
	}
	return h.Name, span, nil
}

// ReadData reads up to n bytes of the current chunk's body, assuming its
// header has already been read via ReadHeader/ReadAnyHeader.
func (r *Reader) ReadData(n uint32) ([]byte, error) {
	if r.state == statePeekedHeader {
		panic("riff: ReadHeader must be called after PeekHeader before reading data")
	}
	if r.state != stateReadingBody {
		return nil, errs.Attach(errs.New(errs.KindTruncatedChunk, r.lastName.String()), "no chunk body to read")
	}
	if n > r.remaining {
		return nil, errs.Attachf(errs.New(errs.KindTruncatedChunk, r.header.Name.String()), "requested %d of %d remaining", n, r.remaining)
	}
	buf := make([]byte, n)
	if err := r.br.ReadFull(buf); err != nil {
		return nil, errs.Attach(errs.New(errs.KindTruncatedChunk, r.header.Name.String()), "reading body")
	}
	r.remaining -= n
	if r.remaining == 0 {
		r.state = stateReadingPadding
	}
	return buf, nil
}

// SkipData skips the remainder of the current chunk's body.
func (r *Reader) SkipData() error {
	switch r.state {
	case stateIdle:
		return nil
	case statePeekedHeader:
		panic("riff: ReadHeader must be called after PeekHeader before skipping data")
	}
	if err := box_SkipIncludingBuffer(r.br, uint64(r.remaining), r.header.Name); err != nil {
		return err
	}
	r.remaining = 0
	r.state = stateReadingPadding
	return nil
}

func box_SkipIncludingBuffer(br *stream.BufReader, n uint64, name fourcc.Code) error {
	if err := br.SkipIncludingBuffer(n); err != nil {
		return errs.Attach(errs.New(errs.KindTruncatedChunk, name.String()), "skipping chunk body")
	}
	return nil
}

// ChildReader returns a Reader over the current chunk's body, assuming its
// header has already been read. The child's EOF lands exactly at the
// parent chunk's boundary.
func (r *Reader) ChildReader() *Reader {
	return NewReader(stream.NewBufReaderSize(r.DataReader(), ChunkHeaderLen), r.header.Name)
}

// DataReader returns the current chunk's body as a plain stream.Reader,
// bounded to the chunk boundary, for callers that need to decode an
// embedded bitstream (VP8L, ALPH) rather than a nested chunk sequence.
func (r *Reader) DataReader() stream.Reader {
	if r.state != stateReadingBody {
		panic("riff: DataReader requires an in-progress chunk body")
	}
	return &dataReader{parent: r, length: uint64(r.remaining)}
}

// dataReader adapts the remainder of the parent Reader's current chunk body
// to stream.Reader, bounding reads to the chunk boundary.
type dataReader struct {
	parent *Reader
	length uint64
	read   uint64
}

func (d *dataReader) Read(p []byte) (int, error) {
	remaining := d.length - d.read
	if remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}
	buf, err := d.parent.ReadData(uint32(len(p)))
	if err != nil {
		return 0, err
	}
	copy(p, buf)
	d.read += uint64(len(buf))
	return len(buf), nil
}

func (d *dataReader) SkipForward(n uint64) error {
	remaining := d.length - d.read
	if n > remaining {
		return errs.FromIo(io.ErrUnexpectedEOF)
	}
	if n == uint64(d.parent.remaining) {
		if err := d.parent.SkipData(); err != nil {
			return err
		}
	} else {
		if err := box_SkipIncludingBuffer(d.parent.br, n, d.parent.header.Name); err != nil {
			return err
		}
		d.parent.remaining -= uint32(n)
	}
	d.read += n
	return nil
}

func (d *dataReader) Position() uint64 {
	return d.read
}

func (d *dataReader) Length() uint64 {
	return d.length
}
