package box

import (
	"encoding/binary"

	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
)

// CoTable is the parsed body of an stco (32-bit) or co64 (64-bit)
// chunk-offset table. Per spec.md §9 and §5, entries are stored as a raw
// byte slice with a fixed entry stride and mutated in place by rewriting
// the big-endian bytes — never decoded into a parallel []uint64.
type CoTable struct {
	// Stride is 4 for stco, 8 for co64.
	Stride int
	// Entries is Stride*EntryCount() bytes of raw big-endian entries.
	Entries []byte
}

// fullBoxHeaderLen is the 4-byte version+flags prefix shared by stco/co64
// (both are "full boxes" with version=0, flags=0).
const fullBoxHeaderLen = 4

// ParseCoTable parses an stco or co64 body. name selects the entry width.
func ParseCoTable(raw []byte, name fourcc.Code) (*CoTable, error) {
	stride := 4
	if name == fourcc.Co64 {
		stride = 8
	}
	if len(raw) < fullBoxHeaderLen+4 {
		return nil, errs.New(errs.KindTruncatedBox, name.String()+" header")
	}
	version := raw[0]
	flags := raw[1:4]
	if version != 0 || flags[0] != 0 || flags[1] != 0 || flags[2] != 0 {
		return nil, errs.New(errs.KindInvalidInput, name.String()+" unsupported version/flags")
	}
	entryCount := binary.BigEndian.Uint32(raw[fullBoxHeaderLen : fullBoxHeaderLen+4])
	entriesLen := uint64(entryCount) * uint64(stride)
	body := raw[fullBoxHeaderLen+4:]
	if entriesLen > uint64(len(body)) {
		return nil, errs.New(errs.KindTruncatedBox, name.String()+" entries")
	}
	if entriesLen < uint64(len(body)) {
		return nil, errs.New(errs.KindInvalidInput, name.String()+" extra unparsed data")
	}
	entries := make([]byte, len(body))
	copy(entries, body)
	return &CoTable{Stride: stride, Entries: entries}, nil
}

// EntryCount returns the number of offset entries.
func (c *CoTable) EntryCount() int {
	return len(c.Entries) / c.Stride
}

// Get returns the offset entry at index i.
func (c *CoTable) Get(i int) uint64 {
	off := i * c.Stride
	if c.Stride == 4 {
		return uint64(binary.BigEndian.Uint32(c.Entries[off : off+4]))
	}
	return binary.BigEndian.Uint64(c.Entries[off : off+8])
}

// Set overwrites the offset entry at index i in place. The caller must
// already have confirmed value fits in the table's Stride (see Widen).
func (c *CoTable) Set(i int, value uint64) {
	off := i * c.Stride
	if c.Stride == 4 {
		binary.BigEndian.PutUint32(c.Entries[off:off+4], uint32(value))
		return
	}
	binary.BigEndian.PutUint64(c.Entries[off:off+8], value)
}

// Widen converts a 4-byte-stride table to 8-byte stride in place, by
// byte-interleaving zeros into each entry (mp4san/src/parse/co.rs's "the
// reverse is not needed" — stco never needs to shrink back from co64).
func (c *CoTable) Widen() {
	if c.Stride == 8 {
		return
	}
	n := c.EntryCount()
	widened := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint64(widened[i*8:i*8+8], c.Get(i))
	}
	c.Stride = 8
	c.Entries = widened
}

// Name returns the box type this table should be (re-)serialized as,
// based on its current Stride.
func (c *CoTable) Name() fourcc.Code {
	if c.Stride == 8 {
		return fourcc.Co64
	}
	return fourcc.Stco
}

// EncodedLen returns the encoded body length (version+flags, entry_count,
// entries).
func (c *CoTable) EncodedLen() uint64 {
	return fullBoxHeaderLen + 4 + uint64(len(c.Entries))
}

// Encode serializes the full-box header, entry_count, and entries.
func (c *CoTable) Encode(w *Writer) {
	w.PutUint32(0) // version 0, flags 0
	w.PutUint32(uint32(c.EntryCount()))
	w.PutBytes(c.Entries)
}
