package vp8l

import "github.com/deepteams/mediasan/internal/vp8lbits"

// metaPrefixCodes is the optional tiling that assigns a distinct prefix-code
// group to each block of the main image (spec.md §4.8 step 2).
type metaPrefixCodes struct {
	single        bool
	blockSize     uint32
	widthInBlocks uint32
	tileGroup     []uint16
	maxGroup      uint16
}

func readMetaPrefixCodes(r *vp8lbits.Reader, width, height uint32) (*metaPrefixCodes, error) {
	has, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if !has {
		return &metaPrefixCodes{single: true}, nil
	}

	blockOrder, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	blockSize := uint32(1) << (blockOrder + 2)
	widthInBlocks := lenInBlocks(width, blockSize)
	heightInBlocks := lenInBlocks(height, blockSize)

	tileGroup := make([]uint16, widthInBlocks*heightInBlocks)
	var maxGroup uint16
	err = readEntropyCodedImageCollect(r, widthInBlocks, heightInBlocks, nil, func(idx int, red, green uint8) {
		group := uint16(red)<<8 | uint16(green)
		tileGroup[idx] = group
		if group > maxGroup {
			maxGroup = group
		}
	})
	if err != nil {
		return nil, err
	}
	return &metaPrefixCodes{blockSize: blockSize, widthInBlocks: widthInBlocks, tileGroup: tileGroup, maxGroup: maxGroup}, nil
}

// groupForPixel returns the code-group index for the tile containing
// pixel (x, y).
func (m *metaPrefixCodes) groupForPixel(x, y uint32) uint16 {
	if m.single {
		return 0
	}
	tx := x / m.blockSize
	ty := y / m.blockSize
	return m.tileGroup[int(ty)*int(m.widthInBlocks)+int(tx)]
}
