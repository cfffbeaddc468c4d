// Package vp8lbits implements the little-endian, bit-packed reader the
// VP8L lossless bitstream validator is built on (spec.md §4.8
// "Validation discipline": "every read<u_n> must check bit availability
// before consuming. The bit reader pre-fetches enough bits (ensure_bits)
// for the longest possible compound symbol at each decision point").
//
// Adapted from the teacher's internal/bitio.LosslessReader (a 64-bit
// prefetch window over an in-memory buffer) to read from a buffered
// stream.Reader instead, so refills can fail with a classified
// TruncatedChunk error rather than silently reporting end-of-stream.
package vp8lbits

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/stream"
)

// maxReadBits bounds a single ReadBits call, matching the teacher's
// vp8lMaxNumBitRead: callers needing more split into multiple reads.
const maxReadBits = 24

var bitMask = func() [maxReadBits + 1]uint32 {
	var m [maxReadBits + 1]uint32
	for n := 1; n <= maxReadBits; n++ {
		m[n] = 1<<uint(n) - 1
	}
	return m
}()

// Reader is a little-endian bit-packed reader over a stream.BufReader, per
// spec.md §4.1's "VP8L bit-reader wraps a buffered reader with its own
// window (default 4096 bytes) and a bit cursor".
type Reader struct {
	br    *stream.BufReader
	bits  uint64 // next unread bit is the LSB
	nbits int    // number of valid bits currently held in bits
	name  string // chunk name, for truncation diagnostics
}

// NewReader wraps br. windowSize is the BufReader's buffer size and should
// be at least 4096 per spec.md §4.1's default VP8L bit-buffer window; name
// identifies the owning chunk in truncation errors.
func NewReader(r stream.Reader, windowSize int, name string) *Reader {
	return &Reader{br: stream.NewBufReaderSize(r, windowSize), name: name}
}

// ensureBits refills bits until at least n are available, per spec.md's
// ensure_bits; fails with KindTruncatedChunk if the stream runs out first.
func (r *Reader) ensureBits(n int) error {
	for r.nbits < n {
		var b [1]byte
		if err := r.br.ReadFull(b[:]); err != nil {
			return errs.Attach(errs.New(errs.KindTruncatedChunk, r.name), "reading VP8L bitstream")
		}
		r.bits |= uint64(b[0]) << uint(r.nbits)
		r.nbits += 8
	}
	return nil
}

// ReadBits reads n (0..=24) bits and returns them as an unsigned value,
// least-significant bit first within each byte (spec.md §4.7/§4.8
// "little-endian bit order").
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > maxReadBits {
		panic("vp8lbits: ReadBits n out of range")
	}
	if n == 0 {
		return 0, nil
	}
	if err := r.ensureBits(n); err != nil {
		return 0, err
	}
	val := uint32(r.bits) & bitMask[n]
	r.bits >>= uint(n)
	r.nbits -= n
	return val, nil
}

// ReadBit reads a single bit as a bool.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.ReadBits(1)
	return v != 0, err
}

