package webpsan

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/fourcc"
	"github.com/deepteams/mediasan/internal/stream"
	"github.com/deepteams/mediasan/internal/vp8lbits"
	"github.com/deepteams/mediasan/riff"
	"github.com/deepteams/mediasan/vp8l"
	"github.com/deepteams/mediasan/webp"
)

// Sanitize validates r against spec.md §4.6 using DefaultConfig.
func Sanitize(r stream.Reader) error {
	return SanitizeWithConfig(r, DefaultConfig())
}

// SanitizeWithConfig validates r against spec.md §4.6, §4.7, §4.8, §4.9: the
// RIFF envelope, the simple-lossy/simple-lossless/extended dispatch, the
// VP8X extended chunk-ordering contract, and every VP8L/ALPH lossless
// bitstream embedded in the file. It returns no data — the sanitizer is
// validation-only for WebP (spec.md §6 "sanitize(input) -> ok | error").
func SanitizeWithConfig(r stream.Reader, cfg Config) error {
	log := cfg.logger()

	fileReader := riff.NewReader(stream.NewBufReader(r), fourcc.Riff)
	riffSpan, err := fileReader.ReadHeader(fourcc.Riff)
	if err != nil {
		return err
	}
	if riffSpan.Len-riff.ChunkHeaderLen > maxFileLen {
		return errs.Attach(errs.New(errs.KindInvalidInput, "RIFF length exceeds maximum"), "chunk RIFF")
	}

	form, err := fileReader.ReadData(4)
	if err != nil {
		return err
	}
	var formCode fourcc.Code
	copy(formCode[:], form)
	if formCode != fourcc.Webp {
		return errs.New(errs.KindInvalidInput, "not a WebP file")
	}

	reader := fileReader.ChildReader()

	name, span, err := reader.ReadAnyHeader()
	if err != nil {
		return errs.Attach(err, "parsing first chunk")
	}
	switch name {
	case fourcc.Vp8:
		if err := reader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", name.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")

	case fourcc.Vp8L:
		width, height, err := sanitizeVp8lChunk(reader)
		if err != nil {
			return err
		}
		log.Info().Str("chunk", name.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).
			Uint32("width", width).Uint32("height", height).Msg("chunk")

	case fourcc.Vp8X:
		raw, err := reader.ReadData(webp.Vp8xChunkLen)
		if err != nil {
			return err
		}
		vp8x, err := webp.ParseVp8xChunk(raw)
		if err != nil {
			return err
		}
		log.Info().Str("chunk", name.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).
			Uint32("width", vp8x.CanvasWidth).Uint32("height", vp8x.CanvasHeight).Msg("chunk")
		if err := sanitizeExtended(reader, vp8x, cfg); err != nil {
			return err
		}

	default:
		return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "expected image data or VP8X"), "chunk %s", name)
	}

	// The WebP spec does not clearly say whether unknown trailing chunks
	// are accepted in simple-format files, but many real-world test
	// vectors carry non-standard trailing informational chunks.
	for {
		has, err := reader.HasRemaining()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		tName, tSpan, err := reader.ReadAnyHeader()
		if err != nil {
			return errs.Attach(err, "parsing unknown chunks")
		}
		switch tName {
		case fourcc.Alph, fourcc.Anim, fourcc.Exif, fourcc.Iccp, fourcc.Vp8, fourcc.Vp8L, fourcc.Vp8X, fourcc.Xmp:
			return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "multiple chunks"), "chunk %s", tName)
		case fourcc.Anmf:
			return errs.New(errs.KindInvalidChunkLayout, "non-contiguous ANMF chunk")
		default:
			if !cfg.AllowUnknownChunks {
				return errs.New(errs.KindUnsupportedChunk, tName.String())
			}
		}
		if err := reader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", tName.String()).Uint64("offset", tSpan.Offset).Uint64("len", tSpan.Len).Msg("chunk")
	}

	hasRemaining, err := fileReader.HasRemaining()
	if err != nil {
		return err
	}
	if hasRemaining {
		return errs.New(errs.KindInvalidInput, "extra unparsed input")
	}
	return nil
}

// sanitizeVp8lChunk reads and validates a VP8L chunk's header and bitstream
// body, assuming the chunk header has already been read.
func sanitizeVp8lChunk(reader *riff.Reader) (width, height uint32, err error) {
	raw, err := reader.ReadData(webp.Vp8lHeaderLen)
	if err != nil {
		return 0, 0, err
	}
	hdr, err := webp.ParseVp8lHeader(raw)
	if err != nil {
		return 0, 0, err
	}
	if err := validateVp8lBitstream(reader, hdr.Width, hdr.Height); err != nil {
		return 0, 0, err
	}
	if err := reader.SkipData(); err != nil {
		return 0, 0, err
	}
	return hdr.Width, hdr.Height, nil
}

// validateVp8lBitstream runs the VP8L lossless bitstream validator over
// the remainder of the current chunk body.
func validateVp8lBitstream(reader *riff.Reader, width, height uint32) error {
	br := vp8lbits.NewReader(reader.DataReader(), vp8lWindowSize, "VP8L")
	return vp8l.ValidateLosslessImage(br, width, height)
}

// sanitizeExtended implements the VP8X extended-format ordering contract
// (spec.md §4.6 "Extended ordering contract").
func sanitizeExtended(reader *riff.Reader, vp8x *webp.Vp8xChunk, cfg Config) error {
	log := cfg.logger()

	if vp8x.Flags.HasICCP() {
		span, err := reader.ReadHeader(fourcc.Iccp)
		if err != nil {
			return err
		}
		if err := reader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", fourcc.Iccp.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")
	}

	if vp8x.Flags.IsAnimated() {
		if err := sanitizeAnimated(reader, vp8x, cfg); err != nil {
			return err
		}
	} else {
		if err := sanitizeStill(reader, vp8x); err != nil {
			return errs.Attach(err, "parsing still image data")
		}
	}

	if vp8x.Flags.HasEXIF() {
		span, err := reader.ReadHeader(fourcc.Exif)
		if err != nil {
			return err
		}
		if err := reader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", fourcc.Exif.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")
	}

	if vp8x.Flags.HasXMP() {
		span, err := reader.ReadHeader(fourcc.Xmp)
		if err != nil {
			return err
		}
		if err := reader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", fourcc.Xmp.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")
	}

	return nil
}

// sanitizeStill validates a non-animated VP8X still image: an optional
// ALPH chunk followed by VP8 or VP8L image data.
func sanitizeStill(reader *riff.Reader, vp8x *webp.Vp8xChunk) error {
	var alphSeen bool
	if vp8x.Flags.HasALPH() {
		if _, err := reader.ReadHeader(fourcc.Alph); err != nil {
			return err
		}
		if err := sanitizeAlphChunk(reader, vp8x.CanvasWidth, vp8x.CanvasHeight); err != nil {
			return err
		}
		alphSeen = true
	}

	has, err := reader.HasRemaining()
	if err != nil {
		return err
	}
	if !has {
		return errs.New(errs.KindMissingRequiredChunk, fourcc.Vp8.String())
	}

	name, _, err := reader.ReadAnyHeader()
	if err != nil {
		return err
	}
	switch name {
	case fourcc.Vp8:
		return reader.SkipData()

	case fourcc.Vp8L:
		if alphSeen {
			return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "VP8L with ALPH present"), "chunk %s", name)
		}
		raw, err := reader.ReadData(webp.Vp8lHeaderLen)
		if err != nil {
			return err
		}
		hdr, err := webp.ParseVp8lHeader(raw)
		if err != nil {
			return err
		}
		if hdr.Width != vp8x.CanvasWidth || hdr.Height != vp8x.CanvasHeight {
			return errs.Attachf(errs.New(errs.KindInvalidInput, "frame dimensions do not match canvas dimensions"),
				"%dx%d != %dx%d", hdr.Width, hdr.Height, vp8x.CanvasWidth, vp8x.CanvasHeight)
		}
		if err := validateVp8lBitstream(reader, hdr.Width, hdr.Height); err != nil {
			return err
		}
		return reader.SkipData()

	default:
		return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "expected image data"), "chunk %s", name)
	}
}

// sanitizeAnimated validates the ANIM chunk and every following ANMF frame
// (spec.md §4.6 "animation — ANIM ANMF+").
func sanitizeAnimated(reader *riff.Reader, vp8x *webp.Vp8xChunk, cfg Config) error {
	log := cfg.logger()

	span, err := reader.ReadHeader(fourcc.Anim)
	if err != nil {
		return err
	}
	if _, err := reader.ReadData(webp.AnimChunkLen); err != nil {
		return err
	}
	log.Info().Str("chunk", fourcc.Anim.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")

	first, ok, err := reader.PeekHeader()
	if err != nil {
		return err
	}
	if !ok || first != fourcc.Anmf {
		return errs.New(errs.KindMissingRequiredChunk, fourcc.Anmf.String())
	}

	for {
		name, ok, err := reader.PeekHeader()
		if err != nil {
			return err
		}
		if !ok || name != fourcc.Anmf {
			break
		}

		anmfSpan, err := reader.ReadHeader(fourcc.Anmf)
		if err != nil {
			return err
		}
		raw, err := reader.ReadData(webp.AnmfChunkLen)
		if err != nil {
			return err
		}
		anmf, err := webp.ParseAnmfChunk(raw)
		if err != nil {
			return err
		}
		log.Info().Str("chunk", fourcc.Anmf.String()).Uint64("offset", anmfSpan.Offset).Uint64("len", anmfSpan.Len).
			Uint32("width", anmf.Width).Uint32("height", anmf.Height).Uint32("x", anmf.X).Uint32("y", anmf.Y).Msg("chunk")

		anmfReader := reader.ChildReader()
		if err := sanitizeAnmfFrame(anmfReader, vp8x, anmf, cfg); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeAnmfFrame validates one animation frame's optional ALPH chunk
// and its VP8/VP8L image data, then rejects anything but a single known
// chunk sequence for the remainder of the frame body.
func sanitizeAnmfFrame(anmfReader *riff.Reader, vp8x *webp.Vp8xChunk, anmf *webp.AnmfChunk, cfg Config) error {
	log := cfg.logger()

	var alphSeen bool
	if vp8x.Flags.HasALPH() {
		name, ok, err := anmfReader.PeekHeader()
		if err != nil {
			return err
		}
		if ok && name == fourcc.Alph {
			if _, err := anmfReader.ReadHeader(fourcc.Alph); err != nil {
				return err
			}
			if err := sanitizeAlphChunk(anmfReader, anmf.Width, anmf.Height); err != nil {
				return err
			}
			alphSeen = true
		}
	}

	name, span, err := anmfReader.ReadAnyHeader()
	if err != nil {
		return errs.Attach(err, "parsing animated image frame")
	}
	switch name {
	case fourcc.Vp8:
		if err := anmfReader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", name.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")

	case fourcc.Vp8L:
		if alphSeen {
			return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "VP8L with ALPH present"), "chunk %s", name)
		}
		raw, err := anmfReader.ReadData(webp.Vp8lHeaderLen)
		if err != nil {
			return err
		}
		hdr, err := webp.ParseVp8lHeader(raw)
		if err != nil {
			return err
		}
		// Animation frames declare their own rectangle, independent of
		// the VP8X canvas (spec.md §4.6: "animated frame dimensions are
		// independent").
		if hdr.Width != anmf.Width || hdr.Height != anmf.Height {
			return errs.Attachf(errs.New(errs.KindInvalidInput, "frame dimensions do not match ANMF frame dimensions"),
				"%dx%d != %dx%d", hdr.Width, hdr.Height, anmf.Width, anmf.Height)
		}
		if err := validateVp8lBitstream(anmfReader, hdr.Width, hdr.Height); err != nil {
			return err
		}
		if err := anmfReader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", name.String()).Uint64("offset", span.Offset).Uint64("len", span.Len).Msg("chunk")

	default:
		return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "expected image data"), "chunk %s", name)
	}

	for {
		has, err := anmfReader.HasRemaining()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		tName, tSpan, err := anmfReader.ReadAnyHeader()
		if err != nil {
			return errs.Attach(err, "parsing unknown chunks")
		}
		switch tName {
		case fourcc.Alph, fourcc.Anmf, fourcc.Anim, fourcc.Exif, fourcc.Iccp, fourcc.Vp8, fourcc.Vp8L, fourcc.Vp8X:
			return errs.Attachf(errs.New(errs.KindInvalidChunkLayout, "multiple chunks"), "chunk %s within ANMF", tName)
		default:
			if !cfg.AllowUnknownChunks {
				return errs.Attachf(errs.New(errs.KindUnsupportedChunk, tName.String()), "within ANMF")
			}
		}
		if err := anmfReader.SkipData(); err != nil {
			return err
		}
		log.Info().Str("chunk", tName.String()).Uint64("offset", tSpan.Offset).Uint64("len", tSpan.Len).Msg("chunk")
	}
	return nil
}

// sanitizeAlphChunk reads an ALPH chunk's flags byte and, if the
// compression bit is set, validates its lossless alpha plane bitstream
// (spec.md §4.9).
func sanitizeAlphChunk(reader *riff.Reader, width, height uint32) error {
	raw, err := reader.ReadData(webp.AlphChunkHeaderLen)
	if err != nil {
		return err
	}
	alph, err := webp.ParseAlphChunk(raw)
	if err != nil {
		return err
	}
	if alph.Flags.CompressLossless() {
		if err := validateVp8lBitstream(reader, width, height); err != nil {
			return err
		}
	}
	return reader.SkipData()
}
