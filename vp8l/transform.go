package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// TransformType identifies one of the four VP8L transform kinds
// (spec.md §4.8 "Transforms").
type TransformType uint8

const (
	TransformPredictor TransformType = iota
	TransformColor
	TransformSubtractGreen
	TransformColorIndexing
)

func readTransformType(r *vp8lbits.Reader) (TransformType, error) {
	v, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	return TransformType(v), nil
}

// readTransforms reads zero or more transforms, each preceded by a 1-bit
// "another transform follows" flag (spec.md §4.8), enforcing that each
// transform type appears at most once, and returns the final transformed
// image width for the subsequent SpatiallyCodedImage walk.
func readTransforms(r *vp8lbits.Reader, width, height uint32) (uint32, error) {
	var seen [4]bool
	transformedWidth := width
	for {
		more, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if !more {
			return transformedWidth, nil
		}
		tt, err := readTransformType(r)
		if err != nil {
			return 0, err
		}
		if seen[tt] {
			return 0, errs.New(errs.KindInvalidInput, "duplicate VP8L transform")
		}
		seen[tt] = true

		switch tt {
		case TransformPredictor:
			blockSize, err := readBlockTransform(r, transformedWidth, height, validatePredictorPixel)
			if err != nil {
				return 0, err
			}
			_ = blockSize
		case TransformColor:
			if _, err := readBlockTransform(r, transformedWidth, height, nil); err != nil {
				return 0, err
			}
		case TransformSubtractGreen:
			// no payload
		case TransformColorIndexing:
			lenMinusOne, err := r.ReadBits(8)
			if err != nil {
				return 0, err
			}
			paletteSize := lenMinusOne + 1
			if err := readEntropyCodedImage(r, paletteSize, 1, nil); err != nil {
				return 0, err
			}
			transformedWidth = lenInBlocks(transformedWidth, colorIndexingBlockSize(paletteSize))
		}
	}
}

// colorIndexingBlockSize returns how many pixels are packed per output
// byte for a given palette size (spec.md §4.8 ColorIndexing).
func colorIndexingBlockSize(paletteSize uint32) uint32 {
	switch {
	case paletteSize <= 2:
		return 8
	case paletteSize <= 4:
		return 4
	case paletteSize <= 16:
		return 2
	default:
		return 1
	}
}

// readBlockTransform reads a Predictor or Color transform's block_order
// field and its auxiliary tiling image.
func readBlockTransform(r *vp8lbits.Reader, width, height uint32, validate func(green uint8) error) (uint32, error) {
	blockOrder, err := r.ReadBits(3)
	if err != nil {
		return 0, err
	}
	blockSize := uint32(1) << (blockOrder + 2)
	widthInBlocks := lenInBlocks(width, blockSize)
	heightInBlocks := lenInBlocks(height, blockSize)
	if err := readEntropyCodedImage(r, widthInBlocks, heightInBlocks, validate); err != nil {
		return 0, err
	}
	return blockSize, nil
}

func validatePredictorPixel(green uint8) error {
	if green > 13 {
		return errs.New(errs.KindInvalidInput, "invalid predictor mode")
	}
	return nil
}

func lenInBlocks(length, blockSize uint32) uint32 {
	return (length + blockSize - 1) / blockSize
}
