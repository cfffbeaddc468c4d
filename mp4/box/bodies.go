package box

import (
	"encoding/binary"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
)

// Box is a single parsed box: its header plus either raw (lazy, unparsed)
// body bytes or a typed Body value (spec.md §3 Mp4Box<T> / BoxData).
//
// ParseChildren decodes container boxes and stco/co64 into typed bodies as
// it reads them; every other box keeps its raw bytes. stco/co64 are always
// mutated via their raw byte slice (CoTable), never via a parallel decoded
// vector (spec.md §9).
type Box struct {
	Header Header
	Raw    []byte
	Body   any // *Ftyp, *Container, *CoTable, or nil for fully-opaque/raw
}

// Ftyp is the parsed ftyp box body (spec.md §3).
type Ftyp struct {
	MajorBrand       fourcc.Code
	MinorVersion     uint32
	CompatibleBrands []fourcc.Code
}

// HasCompatibleBrand reports whether brand appears in CompatibleBrands.
func (f *Ftyp) HasCompatibleBrand(brand fourcc.Code) bool {
	for _, b := range f.CompatibleBrands {
		if b == brand {
			return true
		}
	}
	return false
}

// ParseFtyp parses an ftyp body from raw bytes.
func ParseFtyp(raw []byte) (*Ftyp, error) {
	if len(raw) < 8 {
		return nil, errs.New(errs.KindTruncatedBox, "ftyp")
	}
	f := &Ftyp{}
	copy(f.MajorBrand[:], raw[0:4])
	f.MinorVersion = binary.BigEndian.Uint32(raw[4:8])
	rest := raw[8:]
	if len(rest)%4 != 0 {
		return nil, errs.New(errs.KindInvalidInput, "ftyp compatible_brands not a multiple of 4 bytes")
	}
	for i := 0; i < len(rest); i += 4 {
		var c fourcc.Code
		copy(c[:], rest[i:i+4])
		f.CompatibleBrands = append(f.CompatibleBrands, c)
	}
	return f, nil
}

// EncodedLen returns the encoded body length.
func (f *Ftyp) EncodedLen() uint64 {
	return 8 + uint64(len(f.CompatibleBrands))*4
}

// Encode serializes the ftyp body.
func (f *Ftyp) Encode(w *Writer) {
	w.PutBytes(f.MajorBrand.Bytes())
	w.PutUint32(f.MinorVersion)
	for _, b := range f.CompatibleBrands {
		w.PutBytes(b.Bytes())
	}
}

// Container is the parsed body of a box that is purely an ordered sequence
// of child boxes (moov, trak, mdia, minf, stbl), preserving relative order
// as spec.md §3 requires.
type Container struct {
	Children []*Box
}

// EncodedLen returns the sum of the children's encoded lengths.
func (c *Container) EncodedLen() uint64 {
	var n uint64
	for _, child := range c.Children {
		n += EncodedLen(child)
	}
	return n
}

// Encode serializes every child box in order.
func (c *Container) Encode(w *Writer) {
	for _, child := range c.Children {
		Encode(w, child)
	}
}

// Find returns the first direct child of type t, or nil.
func (c *Container) Find(t fourcc.Code) *Box {
	for _, child := range c.Children {
		if !child.Header.Type.IsUUID && child.Header.Type.FourCC == t {
			return child
		}
	}
	return nil
}

// FindAll returns every direct child of type t.
func (c *Container) FindAll(t fourcc.Code) []*Box {
	var out []*Box
	for _, child := range c.Children {
		if !child.Header.Type.IsUUID && child.Header.Type.FourCC == t {
			out = append(out, child)
		}
	}
	return out
}

// EncodedLen returns the total on-wire length (header + body) of b.
func EncodedLen(b *Box) uint64 {
	return b.Header.EncodedLen() + bodyEncodedLen(b)
}

func bodyEncodedLen(b *Box) uint64 {
	switch body := b.Body.(type) {
	case *Ftyp:
		return body.EncodedLen()
	case *Container:
		return body.EncodedLen()
	case *CoTable:
		return body.EncodedLen()
	default:
		return uint64(len(b.Raw))
	}
}

// Encode serializes b (header, recalculated from the current body length,
// plus body) into w.
func Encode(w *Writer, b *Box) {
	dataLen := bodyEncodedLen(b)
	header := b.Header
	if !header.Type.IsUUID {
		fourCC := header.Type.FourCC
		if coTable, ok := b.Body.(*CoTable); ok {
			fourCC = coTable.Name()
		}
		header = HeaderForDataSize(fourCC, dataLen)
	}
	WriteHeader(w, header)
	switch body := b.Body.(type) {
	case *Ftyp:
		body.Encode(w)
	case *Container:
		body.Encode(w)
	case *CoTable:
		body.Encode(w)
	default:
		w.PutBytes(b.Raw)
	}
}
