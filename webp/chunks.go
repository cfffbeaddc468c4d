// Package webp implements the typed WebP chunk bodies the sanitizer
// inspects: VP8X, ANIM, ANMF, ALPH, and the VP8L chunk header (spec.md
// §3 "WebP chunk entities", §4.7).
//
// Grounded on webpsan/src/parse/{vp8x,anim,anmf,alph,vp8l}.rs
// (original_source) for field layout and encoded lengths, and on the
// teacher's internal/container package for Go naming conventions.
package webp

import (
	"encoding/binary"

	"github.com/deepteams/mediasan/internal/errs"
)

// Vp8xFlags is the VP8X chunk's feature bitset (spec.md §3 Vp8xFlags).
// Bits outside this set must be zero.
type Vp8xFlags uint8

const (
	FlagHasICCP Vp8xFlags = 1 << 5
	FlagHasALPH Vp8xFlags = 1 << 4
	FlagHasEXIF Vp8xFlags = 1 << 3
	FlagHasXMP  Vp8xFlags = 1 << 2
	FlagAnimated Vp8xFlags = 1 << 1

	vp8xKnownFlags = FlagHasICCP | FlagHasALPH | FlagHasEXIF | FlagHasXMP | FlagAnimated
)

func (f Vp8xFlags) HasICCP() bool    { return f&FlagHasICCP != 0 }
func (f Vp8xFlags) HasALPH() bool    { return f&FlagHasALPH != 0 }
func (f Vp8xFlags) HasEXIF() bool    { return f&FlagHasEXIF != 0 }
func (f Vp8xFlags) HasXMP() bool     { return f&FlagHasXMP != 0 }
func (f Vp8xFlags) IsAnimated() bool { return f&FlagAnimated != 0 }

// Vp8xChunkLen is the encoded length of a VP8X chunk body: 1 flags byte,
// 3 reserved bytes, two 1-based 24-bit little-endian canvas dimensions.
const Vp8xChunkLen = 1 + 3 + 3 + 3

// Vp8xChunk is the parsed VP8X (extended format) chunk body.
type Vp8xChunk struct {
	Flags        Vp8xFlags
	CanvasWidth  uint32 // 1-based: decoded value + 1
	CanvasHeight uint32
}

// ParseVp8xChunk parses a VP8X chunk body, already read in full.
func ParseVp8xChunk(raw []byte) (*Vp8xChunk, error) {
	if len(raw) != Vp8xChunkLen {
		return nil, errs.New(errs.KindTruncatedChunk, "VP8X")
	}
	flags := Vp8xFlags(raw[0])
	if flags&^vp8xKnownFlags != 0 {
		return nil, errs.New(errs.KindInvalidInput, "VP8X reserved flag bits set")
	}
	// raw[1:4] is reserved and ignored.
	width := readU24LE(raw[4:7]) + 1
	height := readU24LE(raw[7:10]) + 1
	if width == 0 || height == 0 {
		return nil, errs.New(errs.KindInvalidInput, "VP8X canvas dimension overflow")
	}
	if _, overflow := mulOverflowsU32(width, height); overflow {
		return nil, errs.New(errs.KindInvalidInput, "VP8X canvas pixel count overflow")
	}
	return &Vp8xChunk{Flags: flags, CanvasWidth: width, CanvasHeight: height}, nil
}

// AnimChunkLen is the encoded length of an ANIM chunk body.
const AnimChunkLen = 4 + 2

// AnimChunk is the parsed ANIM (animation parameters) chunk body.
type AnimChunk struct {
	BackgroundColor uint32
	LoopCount       uint16
}

// ParseAnimChunk parses an ANIM chunk body, already read in full.
func ParseAnimChunk(raw []byte) (*AnimChunk, error) {
	if len(raw) != AnimChunkLen {
		return nil, errs.New(errs.KindTruncatedChunk, "ANIM")
	}
	return &AnimChunk{
		BackgroundColor: binary.LittleEndian.Uint32(raw[0:4]),
		LoopCount:       binary.LittleEndian.Uint16(raw[4:6]),
	}, nil
}

// AnmfFlags is the ANMF chunk's per-frame bitset.
type AnmfFlags uint8

const (
	AnmfFlagAlphaBlending     AnmfFlags = 1 << 1
	AnmfFlagDisposeBackground AnmfFlags = 1 << 0

	anmfKnownFlags = AnmfFlagAlphaBlending | AnmfFlagDisposeBackground
)

func (f AnmfFlags) AlphaBlending() bool     { return f&AnmfFlagAlphaBlending != 0 }
func (f AnmfFlags) DisposeBackground() bool { return f&AnmfFlagDisposeBackground != 0 }

// AnmfChunkLen is the encoded length of the fixed ANMF frame header that
// precedes the frame's own chunk sequence.
const AnmfChunkLen = 3 + 3 + 3 + 3 + 3 + 1

// AnmfChunk is the parsed ANMF (animation frame) chunk header.
type AnmfChunk struct {
	X, Y          uint32 // raw 24-bit field; the pixel offset is twice this value
	Width, Height uint32 // 1-based: decoded value + 1
	Duration      uint32 // 0-based, in 1ms units
	Flags         AnmfFlags
}

// ParseAnmfChunk parses an ANMF frame header, already read in full.
func ParseAnmfChunk(raw []byte) (*AnmfChunk, error) {
	if len(raw) != AnmfChunkLen {
		return nil, errs.New(errs.KindTruncatedChunk, "ANMF")
	}
	flags := AnmfFlags(raw[15])
	if flags&^anmfKnownFlags != 0 {
		return nil, errs.New(errs.KindInvalidInput, "ANMF reserved flag bits set")
	}
	width := readU24LE(raw[6:9]) + 1
	height := readU24LE(raw[9:12]) + 1
	if width == 0 || height == 0 {
		return nil, errs.New(errs.KindInvalidInput, "ANMF frame dimension overflow")
	}
	return &AnmfChunk{
		X:        readU24LE(raw[0:3]),
		Y:        readU24LE(raw[3:6]),
		Width:    width,
		Height:   height,
		Duration: readU24LE(raw[12:15]),
		Flags:    flags,
	}, nil
}

// AlphFlags is the ALPH chunk's compression/filtering bitset.
type AlphFlags uint8

const (
	AlphFlagLevelReduction  AlphFlags = 1 << 4
	AlphFlagFilterVertical  AlphFlags = 1 << 3
	AlphFlagFilterHorizontal AlphFlags = 1 << 2
	AlphFlagCompressLossless AlphFlags = 1 << 0

	alphKnownFlags = AlphFlagLevelReduction | AlphFlagFilterVertical | AlphFlagFilterHorizontal | AlphFlagCompressLossless
)

func (f AlphFlags) LevelReduction() bool   { return f&AlphFlagLevelReduction != 0 }
func (f AlphFlags) CompressLossless() bool { return f&AlphFlagCompressLossless != 0 }

// AlphChunkHeaderLen is the length of the ALPH chunk's flags byte; the
// remainder of the chunk body is the (optionally VP8L-compressed) alpha
// plane data.
const AlphChunkHeaderLen = 1

// AlphChunk is the parsed ALPH (alpha channel) chunk header.
type AlphChunk struct {
	Flags AlphFlags
}

// ParseAlphChunk parses an ALPH chunk's leading flags byte.
func ParseAlphChunk(raw []byte) (*AlphChunk, error) {
	if len(raw) < AlphChunkHeaderLen {
		return nil, errs.New(errs.KindTruncatedChunk, "ALPH")
	}
	flags := AlphFlags(raw[0])
	if flags&^alphKnownFlags != 0 {
		return nil, errs.New(errs.KindInvalidInput, "ALPH reserved flag bits set")
	}
	return &AlphChunk{Flags: flags}, nil
}

func readU24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func mulOverflowsU32(a, b uint32) (uint32, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	p := uint64(a) * uint64(b)
	if p > 0xffffffff {
		return 0, true
	}
	return uint32(p), false
}
