// Package fourcc implements the 4-byte type code shared by MP4 box types
// and WebP chunk types (spec.md §3 FourCC), grounded on the teacher's
// internal/container/constants.go FourCC helper.
package fourcc

import "fmt"

// Code is a 4-byte ASCII type code. Equality is byte-wise.
type Code [4]byte

// New builds a Code from four bytes.
func New(a, b, c, d byte) Code {
	return Code{a, b, c, d}
}

// FromString builds a Code from an exactly-4-byte string. It panics if s is
// not 4 bytes long, so it is only safe to use with compile-time constants.
func FromString(s string) Code {
	if len(s) != 4 {
		panic("fourcc: FromString requires exactly 4 bytes: " + s)
	}
	return Code{s[0], s[1], s[2], s[3]}
}

// String renders the code as ASCII when every byte is printable, or as
// 8-digit hex otherwise (spec.md §3).
func (c Code) String() string {
	for _, b := range c {
		if b < 0x20 || b > 0x7e {
			return fmt.Sprintf("0x%02x%02x%02x%02x", c[0], c[1], c[2], c[3])
		}
	}
	return string(c[:])
}

// Bytes returns the 4 raw bytes.
func (c Code) Bytes() []byte {
	return c[:]
}

var (
	Ftyp = FromString("ftyp")
	Free = FromString("free")
	Skip = FromString("skip")
	Mdat = FromString("mdat")
	Moov = FromString("moov")
	Trak = FromString("trak")
	Mdia = FromString("mdia")
	Minf = FromString("minf")
	Stbl = FromString("stbl")
	Stco = FromString("stco")
	Co64 = FromString("co64")
	Uuid = FromString("uuid")

	Riff = FromString("RIFF")
	Webp = FromString("WEBP")
	Vp8  = FromString("VP8 ")
	Vp8L = FromString("VP8L")
	Vp8X = FromString("VP8X")
	Alph = FromString("ALPH")
	Anim = FromString("ANIM")
	Anmf = FromString("ANMF")
	Iccp = FromString("ICCP")
	Exif = FromString("EXIF")
	Xmp  = FromString("XMP ")
)
