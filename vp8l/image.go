package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// readEntropyCodedImage walks an auxiliary tiling image (used by the
// Predictor/Color/ColorIndexing transforms) of width*height pixels,
// validating every decoded symbol but retaining none of the pixel data
// (spec.md §4.8's EntropyCodedImage, grounded on
// webpsan/src/parse/lossless.rs's EntropyCodedImage::read). validate, if
// non-nil, is called with each literal pixel's green channel value (used
// by the Predictor transform to reject predictor indices >= 14).
func readEntropyCodedImage(r *vp8lbits.Reader, width, height uint32, validate func(green uint8) error) error {
	return readEntropyCodedImageCollect(r, width, height, validate, nil)
}

// readEntropyCodedImageCollect is readEntropyCodedImage plus an optional
// collect callback invoked with (tileIndex, red, green) for every literal
// pixel, used by MetaPrefixCodes to build its per-tile code-group map.
func readEntropyCodedImageCollect(
	r *vp8lbits.Reader, width, height uint32,
	validate func(green uint8) error,
	collect func(idx int, red, green uint8),
) error {
	cache, err := ReadColorCache(r)
	if err != nil {
		return err
	}
	codes, err := ReadPrefixCodeGroup(r, cache)
	if err != nil {
		return err
	}
	length := uint64(width) * uint64(height)
	fixed := func(uint64) *PrefixCodeGroup { return codes }
	return walkPixels(r, fixed, cache, width, length, func(idx uint64, red, green uint8) error {
		if validate != nil {
			if err := validate(green); err != nil {
				return err
			}
		}
		if collect != nil {
			collect(int(idx), red, green)
		}
		return nil
	})
}

// walkPixels decodes the green/red/blue/alpha literal, backward-reference,
// or cache-reference symbol stream until length pixels have been
// accounted for (spec.md §4.8 step 4 "Pixel stream"), invoking onLiteral
// for every literal pixel decoded. width is the image's row width, used
// to resolve LZ77 near-neighbor distances into a linear pixel offset.
// selectGroup is called with the current pixel index before each symbol
// decode, so a caller walking a meta-prefix-tiled image can switch prefix
// code groups at tile boundaries (spec.md §4.8 "Spatially-coded image");
// a caller with a single fixed group just ignores the argument.
func walkPixels(r *vp8lbits.Reader, selectGroup func(pixelIdx uint64) *PrefixCodeGroup, cache ColorCache, width uint32, length uint64, onLiteral func(idx uint64, red, green uint8) error) error {
	var pixelIdx uint64
	for pixelIdx < length {
		codes := selectGroup(pixelIdx)
		green, err := codes.Green.Decode(r)
		if err != nil {
			return err
		}
		switch {
		case green <= 255:
			red, err := codes.Red.Decode(r)
			if err != nil {
				return err
			}
			if _, err := codes.Blue.Decode(r); err != nil {
				return err
			}
			if _, err := codes.Alpha.Decode(r); err != nil {
				return err
			}
			if onLiteral != nil {
				if err := onLiteral(pixelIdx, uint8(red), uint8(green)); err != nil {
					return err
				}
			}
			pixelIdx++

		case green <= 279:
			lenVal, err := ReadLZ77Value(r, green-256)
			if err != nil {
				return err
			}
			distSym, err := codes.Distance.Decode(r)
			if err != nil {
				return err
			}
			distCode, err := ReadLZ77Value(r, distSym)
			if err != nil {
				return err
			}
			dist, err := ResolveDistance(distCode, width)
			if err != nil {
				return err
			}
			if uint64(dist) > pixelIdx {
				return errs.New(errs.KindInvalidInput, "invalid back-reference distance")
			}
			if uint64(lenVal) > length-pixelIdx {
				return errs.New(errs.KindInvalidInput, "invalid back-reference length")
			}
			pixelIdx += uint64(lenVal)

		default:
			idx := green - 280
			if idx >= cache.Len() {
				return errs.New(errs.KindInvalidInput, "color cache index out of bounds")
			}
			pixelIdx++
		}
	}
	return nil
}
