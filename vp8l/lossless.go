package vp8l

import "github.com/deepteams/mediasan/internal/vp8lbits"

// ValidateLosslessImage fully walks a VP8L lossless bitstream of the given
// dimensions, consuming exactly the bits belonging to the image: zero or
// more transforms, then the spatially-coded pixel stream (spec.md §4.8).
// It returns no data — only an error when the bitstream is structurally
// invalid or truncated — per spec.md §4.8's "No pixels are reconstructed".
func ValidateLosslessImage(r *vp8lbits.Reader, width, height uint32) error {
	transformedWidth, err := readTransforms(r, width, height)
	if err != nil {
		return err
	}
	return readSpatiallyCodedImage(r, transformedWidth, height)
}

// readSpatiallyCodedImage reads the color cache, optional meta-prefix
// tiling, every referenced prefix-code group, and then the main pixel
// stream, selecting a prefix-code group per pixel via the meta-prefix
// tile map (spec.md §4.8 "Spatially-coded image").
func readSpatiallyCodedImage(r *vp8lbits.Reader, width, height uint32) error {
	cache, err := ReadColorCache(r)
	if err != nil {
		return err
	}
	meta, err := readMetaPrefixCodes(r, width, height)
	if err != nil {
		return err
	}

	groups := make([]*PrefixCodeGroup, int(meta.maxGroup)+1)
	for i := range groups {
		groups[i], err = ReadPrefixCodeGroup(r, cache)
		if err != nil {
			return err
		}
	}

	length := uint64(width) * uint64(height)
	selectGroup := func(pixelIdx uint64) *PrefixCodeGroup {
		x := uint32(pixelIdx % uint64(width))
		y := uint32(pixelIdx / uint64(width))
		return groups[meta.groupForPixel(x, y)]
	}
	return walkPixels(r, selectGroup, cache, width, length, nil)
}
