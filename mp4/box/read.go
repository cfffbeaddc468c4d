package box

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
)

// ReadHeaderFromBytes parses a box header from an in-memory buffer (used
// when recursively parsing a container box's children out of an
// already-fully-buffered moov, per spec.md §4.3's "parse the child tree
// lazily as needed"). It returns the header and the number of bytes
// consumed from buf.
func ReadHeaderFromBytes(buf []byte) (Header, int, error) {
	if len(buf) < 8 {
		return Header{}, 0, errs.New(errs.KindTruncatedBox, "box header")
	}
	rawSize := binary.BigEndian.Uint32(buf[0:4])
	var typeCode fourcc.Code
	copy(typeCode[:], buf[4:8])
	consumed := 8

	var size Size
	switch rawSize {
	case 0:
		size = Size{Kind: SizeUntilEof}
	case 1:
		if len(buf) < consumed+8 {
			return Header{}, 0, errs.New(errs.KindTruncatedBox, "box largesize")
		}
		largesize := binary.BigEndian.Uint64(buf[consumed : consumed+8])
		consumed += 8
		if largesize < 16 {
			return Header{}, 0, errs.New(errs.KindInvalidInput, "extended box size smaller than minimal header")
		}
		size = Size{Kind: SizeExtended, Extended: largesize}
	case 2, 3, 4, 5, 6, 7:
		return Header{}, 0, errs.New(errs.KindInvalidInput, "impossible box size")
	default:
		if rawSize < 8 {
			return Header{}, 0, errs.New(errs.KindInvalidInput, "compact box size smaller than minimal header")
		}
		size = Size{Kind: SizeCompact, Compact: rawSize}
	}

	var boxType Type
	if typeCode == fourcc.Uuid {
		if len(buf) < consumed+16 {
			return Header{}, 0, errs.New(errs.KindTruncatedBox, "uuid box type")
		}
		u, err := uuid.FromBytes(buf[consumed : consumed+16])
		if err != nil {
			return Header{}, 0, errs.New(errs.KindInvalidInput, "malformed uuid")
		}
		consumed += 16
		if isReservedUUID(u) {
			return Header{}, 0, errs.New(errs.KindInvalidInput, "reserved uuid encoding a compact type")
		}
		boxType = Type{IsUUID: true, UUID: u}
	} else {
		boxType = CompactType(typeCode)
	}

	h := Header{Type: boxType, Size: size}
	if explicit, ok := size.Explicit(); ok && explicit < h.EncodedLen() {
		return Header{}, 0, errs.New(errs.KindInvalidInput, "box size smaller than encoded header length")
	}
	return h, consumed, nil
}

// containerTypes is the set of box types modeled as an ordered child list
// rather than opaque bytes (spec.md §3 table).
var containerTypes = map[fourcc.Code]bool{
	fourcc.Moov: true,
	fourcc.Trak: true,
	fourcc.Mdia: true,
	fourcc.Minf: true,
	fourcc.Stbl: true,
}

// ParseChildren parses buf as a flat sequence of boxes, recursively
// descending into container box types and eagerly decoding stco/co64 (the
// sanitizer always needs to rewrite those), leaving every other box as
// lazy raw bytes.
func ParseChildren(buf []byte) ([]*Box, error) {
	var children []*Box
	for len(buf) > 0 {
		h, consumed, err := ReadHeaderFromBytes(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[consumed:]

		var dataLen uint64
		if explicit, ok := h.Size.Explicit(); ok {
			dataLen = explicit - h.EncodedLen()
		} else {
			dataLen = uint64(len(buf))
		}
		if dataLen > uint64(len(buf)) {
			return nil, errs.New(errs.KindTruncatedBox, h.Type.String())
		}
		raw := buf[:dataLen]
		buf = buf[dataLen:]

		child := &Box{Header: h}
		if !h.Type.IsUUID {
			switch {
			case containerTypes[h.Type.FourCC]:
				grandchildren, err := ParseChildren(raw)
				if err != nil {
					return nil, errs.Attach(err, "while parsing "+h.Type.String()+" children")
				}
				child.Body = &Container{Children: grandchildren}
			case h.Type.FourCC == fourcc.Stco, h.Type.FourCC == fourcc.Co64:
				table, err := ParseCoTable(raw, h.Type.FourCC)
				if err != nil {
					return nil, errs.Attach(err, "while parsing "+h.Type.String())
				}
				child.Body = table
			default:
				child.Raw = raw
			}
		} else {
			child.Raw = raw
		}
		children = append(children, child)
	}
	return children, nil
}

// ReadBodyBytes reads a box's full body into memory, up to maxLen bytes.
// It returns a *errs.Report classified KindInvalidInput if dataSize exceeds
// maxLen (the configured per-box cap, spec.md §5 Resource policy), and one
// classified KindTruncatedBox if the input ends before dataSize bytes.
func ReadBodyBytes(br *stream.BufReader, name fourcc.Code, dataSize uint64, maxLen uint64) ([]byte, error) {
	if dataSize > maxLen {
		return nil, errs.Attachf(errs.New(errs.KindInvalidInput, "box exceeds configured size cap"), "%s: %d > %d", name, dataSize, maxLen)
	}
	buf := make([]byte, dataSize)
	if err := br.ReadFull(buf); err != nil {
		return nil, errs.Attach(errs.New(errs.KindTruncatedBox, name.String()), "reading body")
	}
	return buf, nil
}

// SkipBody skips dataSize bytes of a box body using the buffered reader's
// SkipIncludingBuffer, translating EOF into KindTruncatedBox.
func SkipBody(br *stream.BufReader, name fourcc.Code, dataSize uint64) error {
	if err := br.SkipIncludingBuffer(dataSize); err != nil {
		return errs.Attach(errs.New(errs.KindTruncatedBox, name.String()), "skipping body")
	}
	return nil
}
