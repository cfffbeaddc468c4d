package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// MaxLZ77ExtraBits is the largest number of extra bits any length or
// distance prefix code can carry (spec.md §4.8: "each length/distance
// prefix encodes up to 15 extra bits").
const MaxLZ77ExtraBits = 15

// DistanceMapLen is the number of near-neighbor entries in the
// fixed distance-code table (spec.md §4.8).
const DistanceMapLen = 120

// distanceMap maps distance codes 1..=120 to (dx, dy) neighbor offsets,
// grounded on webpsan/src/parse/lossless.rs's BackReference::DISTANCE_MAP.
var distanceMap = [DistanceMapLen][2]int{
	{0, 1}, {1, 0}, {1, 1}, {-1, 1}, {0, 2}, {2, 0}, {1, 2},
	{-1, 2}, {2, 1}, {-2, 1}, {2, 2}, {-2, 2}, {0, 3}, {3, 0},
	{1, 3}, {-1, 3}, {3, 1}, {-3, 1}, {2, 3}, {-2, 3}, {3, 2},
	{-3, 2}, {0, 4}, {4, 0}, {1, 4}, {-1, 4}, {4, 1}, {-4, 1},
	{3, 3}, {-3, 3}, {2, 4}, {-2, 4}, {4, 2}, {-4, 2}, {0, 5},
	{3, 4}, {-3, 4}, {4, 3}, {-4, 3}, {5, 0}, {1, 5}, {-1, 5},
	{5, 1}, {-5, 1}, {2, 5}, {-2, 5}, {5, 2}, {-5, 2}, {4, 4},
	{-4, 4}, {3, 5}, {-3, 5}, {5, 3}, {-5, 3}, {0, 6}, {6, 0},
	{1, 6}, {-1, 6}, {6, 1}, {-6, 1}, {2, 6}, {-2, 6}, {6, 2},
	{-6, 2}, {4, 5}, {-4, 5}, {5, 4}, {-5, 4}, {3, 6}, {-3, 6},
	{6, 3}, {-6, 3}, {0, 7}, {7, 0}, {1, 7}, {-1, 7}, {5, 5},
	{-5, 5}, {7, 1}, {-7, 1}, {4, 6}, {-4, 6}, {6, 4}, {-6, 4},
	{2, 7}, {-2, 7}, {7, 2}, {-7, 2}, {3, 7}, {-3, 7}, {7, 3},
	{-7, 3}, {5, 6}, {-5, 6}, {6, 5}, {-6, 5}, {8, 0}, {4, 7},
	{-4, 7}, {7, 4}, {-7, 4}, {8, 1}, {8, 2}, {6, 6}, {-6, 6},
	{8, 3}, {5, 7}, {-5, 7}, {7, 5}, {-7, 5}, {8, 4}, {6, 7},
	{-6, 7}, {7, 6}, {-7, 6}, {8, 5}, {7, 7}, {-7, 7}, {8, 6},
	{8, 7},
}

// ReadLZ77Value decodes a length or distance prefix code into its actual
// value, per spec.md §4.8's read_lz77: codes 0..=3 map to 1..=4 directly;
// codes 4.. use (code-2)>>1 extra bits read from the stream.
func ReadLZ77Value(r *vp8lbits.Reader, prefixCode uint16) (uint32, error) {
	if prefixCode <= 3 {
		return uint32(prefixCode) + 1, nil
	}
	extraBits := (int(prefixCode) - 2) >> 1
	offset := (2 + uint32(prefixCode)&1) << uint(extraBits)
	extra, err := r.ReadBits(extraBits)
	if err != nil {
		return 0, err
	}
	return 1 + offset + extra, nil
}

// ResolveDistance converts a decoded LZ77 distance value into a pixel
// offset, mapping codes 1..=DistanceMapLen through the near-neighbor table
// and codes beyond that linearly (spec.md §4.8 "Backward reference").
func ResolveDistance(distCode uint32, width uint32) (uint32, error) {
	if distCode == 0 {
		return 0, errs.New(errs.KindInvalidInput, "zero lz77 distance code")
	}
	if distCode <= DistanceMapLen {
		dx, dy := distanceMap[distCode-1][0], distanceMap[distCode-1][1]
		d := int64(dy)*int64(width) + int64(dx)
		if d < 1 {
			d = 1
		}
		return uint32(d), nil
	}
	return distCode - DistanceMapLen, nil
}
