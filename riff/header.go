// Package riff implements the WebP RIFF chunk reader: the chunk header
// codec and a small peek/read/skip state machine over a stream.Reader
// (spec.md §4.5).
//
// Grounded on the teacher's internal/container package for Go-idiom naming
// and on webpsan/src/parse/header.rs / webpsan/src/reader.rs (original Rust
// source) for the exact chunk-header layout and reader state transitions.
package riff

import (
	"encoding/binary"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
)

// ChunkHeaderLen is the on-wire length of a chunk header: 4-byte FourCC
// name plus a 4-byte little-endian length.
const ChunkHeaderLen = 8

// ChunkHeader is a parsed RIFF chunk header (spec.md §4.5).
type ChunkHeader struct {
	Name fourcc.Code
	Len  uint32
}

// Padded reports whether this chunk's body is followed by a single zero
// pad byte (RIFF chunks are padded to an even length).
func (h ChunkHeader) Padded() bool {
	return h.Len%2 == 1
}

// ReadChunkHeader reads an 8-byte chunk header from br.
func ReadChunkHeader(br *stream.BufReader) (ChunkHeader, error) {
	var buf [ChunkHeaderLen]byte
	if err := br.ReadFull(buf[:]); err != nil {
		return ChunkHeader{}, errs.Attach(errs.New(errs.KindTruncatedChunk, "chunk header"), "reading chunk header")
	}
	var name fourcc.Code
	copy(name[:], buf[0:4])
	return ChunkHeader{Name: name, Len: binary.LittleEndian.Uint32(buf[4:8])}, nil
}
