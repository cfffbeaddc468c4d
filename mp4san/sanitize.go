package mp4san

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/mp4/box"
)

// Output is the result of a successful sanitization (spec.md §4.4). When
// Metadata is nil, the input was already canonical: the caller should copy
// the input unchanged rather than emit Metadata followed by Data.
type Output struct {
	// Metadata is the re-serialized ftyp+moov prefix, or nil if the input
	// needed no rewriting.
	Metadata []byte

	// Data is the span of the original input holding the mdat box
	// (header and body, copied verbatim).
	Data stream.Span
}

// run holds the state accumulated while scanning the top-level boxes
// (spec.md §4.4 "State variables").
type run struct {
	cfg Config

	ftypSeen  bool
	ftyp      *box.Ftyp
	ftypBytes []byte

	moovSeen   bool
	moovHeader box.Header
	moovBody   *box.Container
	moovOffset uint64 // stream offset of moov's header

	mdatRuns       []stream.Span // each span covers header+body of one contiguous mdat run
	mdatHeaderLens []uint64      // encoded length of each run's first mdat header

	anySignificantSeen bool
}

// Sanitize validates r against spec.md §4 and returns the relocation
// output using DefaultConfig.
func Sanitize(r stream.Reader) (*Output, error) {
	return SanitizeWithConfig(r, DefaultConfig())
}

// SanitizeWithConfig validates r and, if necessary, computes a rewritten
// [ftyp][moov] metadata prefix so that the overall layout becomes
// [ftyp][moov][mdat] with correctly adjusted stco/co64 chunk offsets.
func SanitizeWithConfig(r stream.Reader, cfg Config) (*Output, error) {
	br := stream.NewBufReader(r)
	st := &run{cfg: cfg}

	log := cfg.logger()

	for {
		atEOF, err := br.AtEOF()
		if err != nil {
			return nil, err
		}
		if atEOF {
			break
		}

		boxStart := br.PositionAccountingForBuffer()
		h, err := box.ReadHeader(br)
		if err != nil {
			return nil, err
		}
		dataSize, err := h.DataSize(br.PositionAccountingForBuffer(), br.Length())
		if err != nil {
			return nil, err
		}

		log.Debug().Str("box", h.Type.String()).Uint64("offset", boxStart).Uint64("size", dataSize).Msg("box")

		isPadding := !h.Type.IsUUID && (h.Type.FourCC == fourcc.Free || h.Type.FourCC == fourcc.Skip)
		isFtyp := !h.Type.IsUUID && h.Type.FourCC == fourcc.Ftyp
		isMoov := !h.Type.IsUUID && h.Type.FourCC == fourcc.Moov
		isMdat := !h.Type.IsUUID && h.Type.FourCC == fourcc.Mdat

		if !isPadding {
			if !st.ftypSeen && !isFtyp {
				return nil, errs.New(errs.KindInvalidBoxLayout, "box before ftyp")
			}
			if st.ftypSeen && isFtyp {
				return nil, errs.New(errs.KindInvalidBoxLayout, "duplicate ftyp")
			}
			st.anySignificantSeen = true
		}

		switch {
		case isFtyp:
			raw, err := box.ReadBodyBytes(br, h.Type.FourCC, dataSize, cfg.boxCap())
			if err != nil {
				return nil, err
			}
			ftyp, err := box.ParseFtyp(raw)
			if err != nil {
				return nil, err
			}
			if !ftyp.HasCompatibleBrand(fourcc.FromString("isom")) {
				return nil, errs.New(errs.KindUnsupportedFormat, "compatible_brands missing isom")
			}
			st.ftypSeen = true
			st.ftyp = ftyp
			w := box.NewWriter()
			box.WriteHeader(w, box.HeaderForDataSize(fourcc.Ftyp, ftyp.EncodedLen()))
			ftyp.Encode(w)
			st.ftypBytes = w.Bytes()

		case isMoov:
			if st.moovSeen {
				return nil, errs.New(errs.KindInvalidBoxLayout, "duplicate moov")
			}
			raw, err := box.ReadBodyBytes(br, h.Type.FourCC, dataSize, cfg.moovCap())
			if err != nil {
				return nil, err
			}
			children, err := box.ParseChildren(raw)
			if err != nil {
				return nil, errs.Attach(err, "parsing moov")
			}
			st.moovSeen = true
			st.moovHeader = h
			st.moovBody = &box.Container{Children: children}
			st.moovOffset = boxStart

		case isMdat:
			runStart := boxStart
			runEnd := boxStart + h.EncodedLen() + dataSize
			if err := box.SkipBody(br, h.Type.FourCC, dataSize); err != nil {
				return nil, err
			}
			if n := len(st.mdatRuns); n > 0 && st.mdatRuns[n-1].End() == runStart {
				st.mdatRuns[n-1].Len += runEnd - runStart
			} else {
				st.mdatRuns = append(st.mdatRuns, stream.Span{Offset: runStart, Len: runEnd - runStart})
				st.mdatHeaderLens = append(st.mdatHeaderLens, h.EncodedLen())
			}

		case isPadding:
			if err := box.SkipBody(br, h.Type.FourCC, dataSize); err != nil {
				return nil, err
			}
			// Padding between two mdat runs (or before the first) keeps a
			// prior run "open" so a following contiguous mdat still merges
			// with it (spec.md §4.4 "including only padding free/skip
			// between").
			if n := len(st.mdatRuns); n > 0 {
				runEnd := boxStart + h.EncodedLen() + dataSize
				if st.mdatRuns[n-1].End() == boxStart {
					st.mdatRuns[n-1].Len = runEnd - st.mdatRuns[n-1].Offset
				}
			}

		default:
			if err := box.SkipBody(br, h.Type.FourCC, dataSize); err != nil {
				return nil, err
			}
		}
	}

	if !st.anySignificantSeen || !st.ftypSeen {
		return nil, errs.New(errs.KindMissingRequiredBox, "ftyp")
	}
	if !st.moovSeen {
		return nil, errs.New(errs.KindMissingRequiredBox, "moov")
	}
	if len(st.mdatRuns) == 0 {
		return nil, errs.New(errs.KindMissingRequiredBox, "mdat")
	}
	if len(st.mdatRuns) > 1 {
		return nil, errs.New(errs.KindUnsupportedBoxLayout, "multiple non-contiguous mdat regions")
	}

	return st.relocate()
}
