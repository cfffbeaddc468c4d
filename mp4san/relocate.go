package mp4san

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/mp4/box"
)

// minFreeBoxLen is the smallest on-wire free box: a compact 8-byte header
// with an empty body.
const minFreeBoxLen = 8

// maxWidenIterations bounds the stco->co64 fixed-point loop (spec.md §4.4
// step 5): at most one widening pass is ever needed per table, since widening
// can only grow new_mdat_base, never shrink it back below a value that was
// already safe.
const maxWidenIterations = 2

// relocate implements spec.md §4.4's metadata-relocation algorithm: collapse
// the observed mdat run into one InputSpan, rewrite every stco/co64 entry
// found under moov against the new ftyp+moov+mdat-header prefix length, and
// report the original input as already canonical (Metadata == nil) when the
// rewrite changes nothing.
//
// The first mdat's header (copied verbatim, unchanged, as part of Data)
// always sits immediately after the metadata prefix in the output; spec.md
// §8's worked example (stco[0] == len(metadata) + mdat_header_size) is more
// precise than §4.4's own summary formula (which omits the header length)
// and is what this implementation follows.
func (st *run) relocate() (*Output, error) {
	mdatRun := st.mdatRuns[0]
	mdatHeaderLen := st.mdatHeaderLens[0]

	originalMdatBase := mdatRun.Offset + mdatHeaderLen
	originalMdatEnd := mdatRun.End()

	tableBoxes, tables, err := collectCoTables(st.moovBody)
	if err != nil {
		return nil, err
	}

	// Snapshot original entry values once so repeated rewrite passes (across
	// widen iterations) always compute from the true originals.
	originals := make([][]uint64, len(tables))
	for i, t := range tables {
		vals := make([]uint64, t.EntryCount())
		for j := range vals {
			vals[j] = t.Get(j)
		}
		originals[i] = vals
	}

	// spec.md §4.4 edge case: "moov that references a chunk offset outside
	// the union of observed mdat spans is a layout error." Validated
	// unconditionally, since the padding fast path below never runs the
	// general rewrite loop's own bounds check.
	for _, vals := range originals {
		for _, orig := range vals {
			if orig < originalMdatBase || orig >= originalMdatEnd {
				return nil, errs.New(errs.KindInvalidBoxLayout, "chunk offset outside observed mdat span")
			}
		}
	}

	// spec.md §4.4 step 5: when the naturally re-serialized ftyp+moov (at
	// its current, unwidened stride) would fit within the original prefix
	// length, pad it out with a free box and target the mdat's *original*
	// position exactly, leaving every chunk offset untouched. This is an
	// optimization, not a correctness requirement — when it doesn't apply
	// we fall through to the general widen/rewrite loop below.
	moovEncodedLen := func() uint64 {
		n := st.moovBody.EncodedLen()
		return box.HeaderForDataSize(fourcc.Moov, n).EncodedLen() + n
	}
	originalPrefixLen := mdatRun.Offset
	naturalLen := uint64(len(st.ftypBytes)) + moovEncodedLen()
	if st.cfg.CumulativeMdatBoxSize == 0 && naturalLen <= originalPrefixLen {
		gap := originalPrefixLen - naturalLen
		if gap == 0 || gap >= minFreeBoxLen {
			metadata := st.buildMetadata(tables)
			metadata = append(metadata, buildFreePad(gap)...)
			if st.isCanonicalNoOp(mdatRun, mdatHeaderLen, originalMdatBase, tables, originals) {
				return &Output{Metadata: nil, Data: mdatRun}, nil
			}
			return &Output{Metadata: metadata, Data: mdatRun}, nil
		}
	}

	var newMdatBase uint64
	for iter := 0; iter < maxWidenIterations; iter++ {
		moovLen := moovEncodedLen()
		newMdatBase = uint64(len(st.ftypBytes)) + moovLen + mdatHeaderLen

		widenedAny := false
		for ti, t := range tables {
			for j, orig := range originals[ti] {
				rewritten := orig - originalMdatBase + newMdatBase + st.cfg.CumulativeMdatBoxSize
				if t.Stride == 4 && rewritten > 0xffffffff {
					t.Widen()
					tableBoxes[ti].Header.Type.FourCC = t.Name()
					widenedAny = true
					break
				}
				t.Set(j, rewritten)
			}
		}
		if !widenedAny {
			break
		}
	}

	metadata := st.buildMetadata(tables)

	if st.isCanonicalNoOp(mdatRun, mdatHeaderLen, newMdatBase, tables, originals) {
		return &Output{Metadata: nil, Data: mdatRun}, nil
	}

	return &Output{Metadata: metadata, Data: mdatRun}, nil
}

// collectCoTables walks the moov tree and returns every stco/co64 table
// found under any trak/mdia/minf/stbl, per spec.md §4.4 "for every stco or
// co64 box found anywhere under moov", along with the owning *box.Box so its
// header type can be kept in sync when the table widens.
func collectCoTables(moov *box.Container) ([]*box.Box, []*box.CoTable, error) {
	var boxes []*box.Box
	var tables []*box.CoTable
	var walk func(c *box.Container) error
	walk = func(c *box.Container) error {
		var direct int
		for _, child := range c.Children {
			switch body := child.Body.(type) {
			case *box.CoTable:
				direct++
				if direct > 1 {
					return errs.New(errs.KindInvalidBoxLayout, "multiple stco/co64 in one stbl")
				}
				boxes = append(boxes, child)
				tables = append(tables, body)
			case *box.Container:
				if err := walk(body); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(moov); err != nil {
		return nil, nil, err
	}
	return boxes, tables, nil
}

// buildFreePad returns a single free box encoding exactly n bytes on the
// wire (n must be 0 or >= minFreeBoxLen).
func buildFreePad(n uint64) []byte {
	if n == 0 {
		return nil
	}
	w := box.NewWriter()
	h := box.HeaderForDataSize(fourcc.Free, n-minFreeBoxLen)
	if h.Size.Kind == box.SizeExtended {
		h.Size.Extended = n
	}
	box.WriteHeader(w, h)
	w.PutBytes(make([]byte, n-h.EncodedLen()))
	return w.Bytes()
}

// buildMetadata re-serializes ftyp followed by the (possibly rewritten)
// moov tree.
func (st *run) buildMetadata(_ []*box.CoTable) []byte {
	w := box.NewWriter()
	w.PutBytes(st.ftypBytes)
	moovBox := &box.Box{Header: st.moovHeader, Body: st.moovBody}
	box.Encode(w, moovBox)
	return w.Bytes()
}

// isCanonicalNoOp reports whether the computed rewrite changed nothing: the
// moov immediately preceded the mdat header in the original stream with no
// gap, ftyp was immediately followed by moov, no table needed widening, and
// no cumulative offset was configured. Under those conditions every
// rewritten entry equals its original value and the caller can copy the
// input unchanged (spec.md §4.4 Output: "metadata=None signals input is
// already canonical").
func (st *run) isCanonicalNoOp(mdatRun stream.Span, mdatHeaderLen uint64, newMdatBase uint64, tables []*box.CoTable, originals [][]uint64) bool {
	if st.cfg.CumulativeMdatBoxSize != 0 {
		return false
	}
	if st.moovOffset+st.moovHeader.EncodedLen()+st.moovBody.EncodedLen() != mdatRun.Offset {
		return false
	}
	originalMdatBase := mdatRun.Offset + mdatHeaderLen
	if newMdatBase != originalMdatBase {
		return false
	}
	for ti, t := range tables {
		if t.EntryCount() != len(originals[ti]) {
			return false
		}
		for j, orig := range originals[ti] {
			if t.Get(j) != orig {
				return false
			}
		}
	}
	return true
}
