package stream

import (
	"io"

	"github.com/deepteams/mediasan/internal/errs"
)

// minBufSize is large enough for one MP4 box header (4 size + 4 type + 8
// largesize + 16 uuid = 32 bytes).
const minBufSize = 32

// BufReader is a small buffered reader sitting above a Reader, per spec.md
// §4.1. It adds two operations beyond plain buffering: SkipIncludingBuffer
// (consume from the buffer first, then forward-skip the underlying Reader
// for the remainder) and PositionAccountingForBuffer (the true stream
// position, i.e. Reader.Position() minus unread buffered bytes).
type BufReader struct {
	r    Reader
	buf  []byte
	off  int // read offset into buf
	size int // number of valid bytes in buf (from index 0)
}

// NewBufReader wraps r with a buffer of at least minBufSize bytes.
func NewBufReader(r Reader) *BufReader {
	return NewBufReaderSize(r, 4096)
}

// NewBufReaderSize wraps r with a buffer of the given size, raised to
// minBufSize if smaller.
func NewBufReaderSize(r Reader, size int) *BufReader {
	if size < minBufSize {
		size = minBufSize
	}
	return &BufReader{r: r, buf: make([]byte, size)}
}

// Underlying returns the wrapped Reader.
func (b *BufReader) Underlying() Reader {
	return b.r
}

// buffered returns how many unread bytes remain in the buffer.
func (b *BufReader) buffered() int {
	return b.size - b.off
}

// fill reads as much as it can into the buffer, compacting first.
func (b *BufReader) fill() error {
	if b.off > 0 {
		copy(b.buf, b.buf[b.off:b.size])
		b.size -= b.off
		b.off = 0
	}
	for b.size < len(b.buf) {
		n, err := b.r.Read(b.buf[b.size:])
		b.size += n
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errs.FromIo(err)
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

// ReadFull reads exactly len(p) bytes, returning a *errs.Error wrapping
// io.ErrUnexpectedEOF (translated by callers into TruncatedBox/TruncatedChunk
// as appropriate) if fewer are available.
func (b *BufReader) ReadFull(p []byte) error {
	n := 0
	for n < len(p) {
		if b.buffered() == 0 {
			if err := b.fill(); err != nil {
				return err
			}
			if b.buffered() == 0 {
				return errs.FromIo(io.ErrUnexpectedEOF)
			}
		}
		copied := copy(p[n:], b.buf[b.off:b.size])
		b.off += copied
		n += copied
	}
	return nil
}

// PeekByte returns the next unread byte without consuming it, filling the
// buffer if necessary.
func (b *BufReader) PeekByte() (byte, error) {
	if b.buffered() == 0 {
		if err := b.fill(); err != nil {
			return 0, err
		}
		if b.buffered() == 0 {
			return 0, errs.FromIo(io.EOF)
		}
	}
	return b.buf[b.off], nil
}

// AtEOF reports whether no more bytes are available from the buffer or the
// underlying Reader.
func (b *BufReader) AtEOF() (bool, error) {
	if b.buffered() > 0 {
		return false, nil
	}
	if err := b.fill(); err != nil {
		return false, err
	}
	return b.buffered() == 0, nil
}

// SkipIncludingBuffer consumes up to n bytes from the buffer first, then
// calls SkipForward on the underlying Reader for the remainder.
func (b *BufReader) SkipIncludingBuffer(n uint64) error {
	fromBuf := uint64(b.buffered())
	if fromBuf > n {
		fromBuf = n
	}
	b.off += int(fromBuf)
	remaining := n - fromBuf
	if remaining == 0 {
		return nil
	}
	return b.r.SkipForward(remaining)
}

// PositionAccountingForBuffer returns the true stream position: the
// underlying Reader's position minus any buffered-but-unread bytes.
func (b *BufReader) PositionAccountingForBuffer() uint64 {
	return b.r.Position() - uint64(b.buffered())
}

// Length returns the underlying Reader's total length.
func (b *BufReader) Length() uint64 {
	return b.r.Length()
}
