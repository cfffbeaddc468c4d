package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// codeLengthOrder is the fixed symbol order the 19-meta-symbol code-length
// code is read in (spec.md §4.8 "Normal" form).
var codeLengthOrder = [19]uint8{17, 18, 0, 1, 2, 3, 4, 5, 16, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// PrefixCodeGroup is the five canonical Huffman trees that decode one
// tile's worth of pixels (spec.md §4.8 step 3).
type PrefixCodeGroup struct {
	Green    *Tree // alphabet: 256 literal + 24 length codes + cache size
	Red      *Tree // alphabet: 256
	Blue     *Tree // alphabet: 256
	Alpha    *Tree // alphabet: 256
	Distance *Tree // alphabet: 40
}

const (
	arbAlphabetSize      = 256
	distanceAlphabetSize = 40
	greenLengthCodes     = 24
)

func greenAlphabetSize(cacheLen uint16) uint16 {
	return 256 + greenLengthCodes + cacheLen
}

// ReadPrefixCodeGroup reads the five trees of one prefix-code group, in
// green/red/blue/alpha/distance order (spec.md §4.8 step 3).
func ReadPrefixCodeGroup(r *vp8lbits.Reader, cache ColorCache) (*PrefixCodeGroup, error) {
	green, err := readPrefixCode(r, greenAlphabetSize(cache.Len()))
	if err != nil {
		return nil, err
	}
	red, err := readPrefixCode(r, arbAlphabetSize)
	if err != nil {
		return nil, err
	}
	blue, err := readPrefixCode(r, arbAlphabetSize)
	if err != nil {
		return nil, err
	}
	alpha, err := readPrefixCode(r, arbAlphabetSize)
	if err != nil {
		return nil, err
	}
	distance, err := readPrefixCode(r, distanceAlphabetSize)
	if err != nil {
		return nil, err
	}
	return &PrefixCodeGroup{Green: green, Red: red, Blue: blue, Alpha: alpha, Distance: distance}, nil
}

// readPrefixCode reads one canonical Huffman tree for an alphabet of the
// given size, per spec.md §4.8's "Simple"/"Normal" on-wire forms.
func readPrefixCode(r *vp8lbits.Reader, alphabetSize uint16) (*Tree, error) {
	isSimple, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if isSimple {
		return readSimplePrefixCode(r, alphabetSize)
	}
	return readNormalPrefixCode(r, alphabetSize)
}

func readSimplePrefixCode(r *vp8lbits.Reader, alphabetSize uint16) (*Tree, error) {
	hasSecond, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	is8Bits, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	var first uint32
	if is8Bits {
		first, err = r.ReadBits(8)
	} else {
		var bit bool
		bit, err = r.ReadBit()
		if bit {
			first = 1
		}
	}
	if err != nil {
		return nil, err
	}
	if uint16(first) >= alphabetSize {
		return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "simple code symbol out of alphabet")
	}

	if !hasSecond {
		return SingleSymbolTree(uint16(first)), nil
	}

	second, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if uint16(second) >= alphabetSize || uint32(second) == first {
		return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "simple code symbol out of alphabet")
	}
	lengths := make([]uint8, alphabetSize)
	lengths[first] = 1
	lengths[second] = 1
	return BuildTree(lengths)
}

func readNormalPrefixCode(r *vp8lbits.Reader, alphabetSize uint16) (*Tree, error) {
	codeLengthTree, err := readCodeLengthCode(r)
	if err != nil {
		return nil, err
	}

	maxSymbols := alphabetSize
	hasLimit, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if hasLimit {
		extraBitsCode, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		lengthBitLen := 2 + 2*int(extraBitsCode)
		lim, err := r.ReadBits(lengthBitLen)
		if err != nil {
			return nil, err
		}
		limit := 2 + lim
		if limit > uint32(alphabetSize) {
			limit = uint32(alphabetSize)
		}
		maxSymbols = uint16(limit)
	}
	if maxSymbols > alphabetSize {
		return nil, errs.New(errs.KindInvalidInput, "code-length symbol count exceeds alphabet")
	}

	lengths := make([]uint8, alphabetSize)
	lastNonZero := uint8(8)
	n := 0
	for n < int(maxSymbols) {
		sym, err := codeLengthTree.Decode(r)
		if err != nil {
			return nil, err
		}
		var length uint8
		var repeat int
		switch {
		case sym <= 15:
			length, repeat = uint8(sym), 1
		case sym == 16:
			extra, err := r.ReadBits(2)
			if err != nil {
				return nil, err
			}
			length, repeat = lastNonZero, 3+int(extra)
		case sym == 17:
			extra, err := r.ReadBits(3)
			if err != nil {
				return nil, err
			}
			length, repeat = 0, 3+int(extra)
		case sym == 18:
			extra, err := r.ReadBits(7)
			if err != nil {
				return nil, err
			}
			length, repeat = 0, 11+int(extra)
		default:
			return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "invalid code-length meta-symbol")
		}
		if length != 0 {
			lastNonZero = length
		}
		if n+repeat > int(maxSymbols) {
			return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "code length repetition overruns max symbols")
		}
		for i := 0; i < repeat; i++ {
			lengths[n+i] = length
		}
		n += repeat
	}
	return BuildTree(lengths)
}

func readCodeLengthCode(r *vp8lbits.Reader) (*Tree, error) {
	count, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}
	codeLengthCount := 4 + int(count)

	lengths := make([]uint8, 19)
	for i := 0; i < codeLengthCount; i++ {
		l, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		lengths[codeLengthOrder[i]] = uint8(l)
	}
	return BuildTree(lengths)
}
