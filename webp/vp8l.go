package webp

import (
	"encoding/binary"

	"github.com/deepteams/mediasan/internal/errs"
)

// Vp8lSignature is the fixed first byte of every VP8L chunk (spec.md §4.7).
const Vp8lSignature = 0x2F

// Vp8lHeaderLen is the on-wire length of the VP8L chunk header: the
// signature byte plus 4 bytes packing width-1 (u14), height-1 (u14),
// alpha_is_used (u1), and version (u3), little-endian bit order.
const Vp8lHeaderLen = 5

// Vp8lHeader is the parsed fixed-size header that precedes the VP8L
// lossless bitstream of a VP8L chunk, whether top-level or inside an ANMF
// frame. An ALPH chunk's lossless-compressed alpha plane carries no such
// header.
type Vp8lHeader struct {
	Width, Height uint32 // 1-based: decoded value + 1
	AlphaIsUsed   bool
}

// ParseVp8lHeader parses the 5-byte VP8L header from raw.
func ParseVp8lHeader(raw []byte) (*Vp8lHeader, error) {
	if len(raw) < Vp8lHeaderLen {
		return nil, errs.New(errs.KindTruncatedChunk, "VP8L")
	}
	if raw[0] != Vp8lSignature {
		return nil, errs.New(errs.KindInvalidInput, "invalid VP8L signature")
	}
	bits := binary.LittleEndian.Uint32(raw[1:5])
	width := bits&0x3fff + 1
	height := (bits>>14)&0x3fff + 1
	alphaIsUsed := bits>>28&0x1 != 0
	version := bits >> 29 & 0x7
	if version != 0 {
		return nil, errs.New(errs.KindUnsupportedVp8lVersion, "VP8L version must be 0")
	}
	return &Vp8lHeader{Width: width, Height: height, AlphaIsUsed: alphaIsUsed}, nil
}
