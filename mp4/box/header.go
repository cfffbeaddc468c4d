// Package box implements the ISO/IEC 14496-12 box-layer substrate shared by
// the MP4 sanitizer: box headers (spec.md §3 BoxSize/BoxType), primitive
// codecs, and the lazily-parsed box tree (spec.md §4.3).
//
// Grounded on parser/src/lib.rs (read_header / BoxSize) and
// mp4san/src/parse/header.rs (BoxHeader) from the original Rust mp4san
// source, adapted to the teacher's (deepteams/webp) plain-struct Go idiom.
package box

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
)

// SizeKind discriminates the three BoxSize forms (spec.md §3).
type SizeKind int

const (
	// SizeUntilEof means the on-wire size field was 0: the box extends to
	// the end of the stream. Only valid for the last box.
	SizeUntilEof SizeKind = iota
	// SizeCompact means the size fits in the 32-bit on-wire field (>= 8).
	SizeCompact
	// SizeExtended means the size field was 1 and a 64-bit largesize
	// follows (>= 16).
	SizeExtended
)

// Size is the parsed box size field (spec.md §3 BoxSize).
type Size struct {
	Kind     SizeKind
	Compact  uint32
	Extended uint64
}

// Explicit returns the total box size (header + body) and true, or
// (0, false) if this is an until-EOF size.
func (s Size) Explicit() (uint64, bool) {
	switch s.Kind {
	case SizeCompact:
		return uint64(s.Compact), true
	case SizeExtended:
		return s.Extended, true
	default:
		return 0, false
	}
}

// reservedUUIDSuffix is the fixed 12-byte suffix
// (0011-0010-8000-00aa00389b71) ISO reserves to encode a compact type as an
// extended UUID box type. mp4san/src/parse/header.rs compares against this
// exact byte sequence; spec.md §3 disallows any UUID of this form.
var reservedUUIDSuffix = [12]byte{0x00, 0x11, 0x00, 0x10, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}

// Type is a box type identifier: either a compact FourCC or, when the
// compact type is "uuid", an extended 16-byte UUID (spec.md §3 BoxType).
type Type struct {
	FourCC fourcc.Code
	IsUUID bool
	UUID   uuid.UUID
}

// CompactType builds a Type from a FourCC.
func CompactType(code fourcc.Code) Type {
	return Type{FourCC: code}
}

// String renders the box type for diagnostics.
func (t Type) String() string {
	if t.IsUUID {
		return t.UUID.String()
	}
	return t.FourCC.String()
}

// Equal reports whether two Types refer to the same box type.
func (t Type) Equal(other Type) bool {
	if t.IsUUID != other.IsUUID {
		return false
	}
	if t.IsUUID {
		return t.UUID == other.UUID
	}
	return t.FourCC == other.FourCC
}

// isReservedUUID reports whether u encodes a compact FourCC per the ISO
// reserved-UUID convention (XXXXXXXX-0011-0010-8000-00aa00389b71), which
// spec.md §3 explicitly disallows.
func isReservedUUID(u uuid.UUID) bool {
	return [12]byte(u[4:16]) == reservedUUIDSuffix
}

// Header is a parsed MP4 box header: the type and size fields, including
// any extended-size or UUID extension (spec.md §4.3).
type Header struct {
	Type Type
	Size Size
}

// MaxHeaderLen is the largest on-wire header: 4 size + 4 type + 8 largesize
// + 16 uuid.
const MaxHeaderLen = 32

// EncodedLen returns the number of bytes this header occupies on the wire.
func (h Header) EncodedLen() uint64 {
	n := uint64(8)
	if h.Size.Kind == SizeExtended {
		n += 8
	}
	if h.Type.IsUUID {
		n += 16
	}
	return n
}

// ReadHeader reads a box header from br: 4 bytes size, 4 bytes type, an
// optional 8-byte largesize when size==1, and an optional 16-byte UUID when
// type=="uuid" (spec.md §4.3).
func ReadHeader(br *stream.BufReader) (Header, error) {
	var buf [8]byte
	if err := br.ReadFull(buf[:]); err != nil {
		return Header{}, errs.Attach(errs.New(errs.KindTruncatedBox, "box header"), "reading box size/type")
	}
	rawSize := binary.BigEndian.Uint32(buf[0:4])
	var typeCode fourcc.Code
	copy(typeCode[:], buf[4:8])

	var size Size
	switch rawSize {
	case 0:
		size = Size{Kind: SizeUntilEof}
	case 1:
		var ext [8]byte
		if err := br.ReadFull(ext[:]); err != nil {
			return Header{}, errs.Attach(errs.New(errs.KindTruncatedBox, "box header"), "reading box largesize")
		}
		largesize := binary.BigEndian.Uint64(ext[:])
		if largesize < 16 {
			return Header{}, errs.New(errs.KindInvalidInput, "extended box size smaller than minimal header")
		}
		size = Size{Kind: SizeExtended, Extended: largesize}
	case 2, 3, 4, 5, 6, 7:
		return Header{}, errs.Attachf(errs.New(errs.KindInvalidInput, "impossible box size"), "size=%d", rawSize)
	default:
		size = Size{Kind: SizeCompact, Compact: rawSize}
		if rawSize < 8 {
			return Header{}, errs.New(errs.KindInvalidInput, "compact box size smaller than minimal header")
		}
	}

	var boxType Type
	if typeCode == fourcc.Uuid {
		var raw [16]byte
		if err := br.ReadFull(raw[:]); err != nil {
			return Header{}, errs.Attach(errs.New(errs.KindTruncatedBox, "box header"), "reading uuid box type")
		}
		u, err := uuid.FromBytes(raw[:])
		if err != nil {
			return Header{}, errs.Attach(errs.New(errs.KindInvalidInput, "malformed uuid"), err.Error())
		}
		if isReservedUUID(u) {
			return Header{}, errs.New(errs.KindInvalidInput, "reserved uuid encoding a compact type")
		}
		boxType = Type{IsUUID: true, UUID: u}
	} else {
		boxType = CompactType(typeCode)
	}

	h := Header{Type: boxType, Size: size}
	if explicit, ok := size.Explicit(); ok && explicit < h.EncodedLen() {
		return Header{}, errs.New(errs.KindInvalidInput, "box size smaller than encoded header length")
	}
	return h, nil
}

// DataSize returns the box's body length, given the known current stream
// position and overall input length (used to resolve an until-EOF size).
func (h Header) DataSize(streamPos, inputLen uint64) (uint64, error) {
	if explicit, ok := h.Size.Explicit(); ok {
		return explicit - h.EncodedLen(), nil
	}
	if streamPos > inputLen {
		return 0, errs.New(errs.KindInvalidInput, "stream position beyond input length")
	}
	return inputLen - streamPos, nil
}

// WriteHeader serializes h to w.
func WriteHeader(w *Writer, h Header) {
	switch h.Size.Kind {
	case SizeUntilEof:
		w.PutUint32(0)
	case SizeExtended:
		w.PutUint32(1)
	default:
		w.PutUint32(h.Size.Compact)
	}

	if h.Type.IsUUID {
		w.PutBytes(fourcc.Uuid.Bytes())
	} else {
		w.PutBytes(h.Type.FourCC.Bytes())
	}

	if h.Size.Kind == SizeExtended {
		w.PutUint64(h.Size.Extended)
	}
	if h.Type.IsUUID {
		raw := [16]byte(h.Type.UUID)
		w.PutBytes(raw[:])
	}
}

// HeaderForDataSize computes the calculated header (spec.md §3 Mp4Box
// lifecycle: "re-serialized using a calculated header whose size reflects
// the (possibly modified) body length") for a compact FourCC box type,
// widening to an extended size only when the 32-bit compact size field
// would overflow.
func HeaderForDataSize(t fourcc.Code, dataSize uint64) Header {
	boxType := CompactType(t)
	compactHeaderLen := Header{Type: boxType, Size: Size{Kind: SizeCompact}}.EncodedLen()
	total := dataSize + compactHeaderLen
	if total <= 0xffffffff {
		return Header{Type: boxType, Size: Size{Kind: SizeCompact, Compact: uint32(total)}}
	}
	extHeaderLen := Header{Type: boxType, Size: Size{Kind: SizeExtended}}.EncodedLen()
	return Header{Type: boxType, Size: Size{Kind: SizeExtended, Extended: dataSize + extHeaderLen}}
}
