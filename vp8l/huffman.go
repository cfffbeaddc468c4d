// Package vp8l implements the VP8L lossless bitstream structural
// validator: canonical Huffman tree construction, LZ77 length/distance
// decode, the four transform kinds, and the spatially-coded pixel walk
// (spec.md §4.8, the single most complex component of either sanitizer).
//
// Grounded on webpsan/src/parse/lossless.rs and bitstream.rs
// (original_source) for the exact algorithm; the teacher's
// internal/lossless package (encode-side canonical Huffman) is read for Go
// idiom but not reused directly, since this package builds trees from
// code-lengths read off the wire rather than from symbol frequencies.
package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// maxCodeLength bounds a canonical code's bit length; VP8L code-length
// values are read as 3- or 7-bit fields and never exceed 15.
const maxCodeLength = 15

// hnode is one node of the canonical Huffman decode tree. A leaf has
// leaf=true and holds symbol; an internal node indexes into tree.nodes for
// each of its two children (0 meaning "not yet created").
type hnode struct {
	leaf     bool
	symbol   uint16
	children [2]int32
}

// Tree is a canonical Huffman decode tree built directly from per-symbol
// code lengths (spec.md §4.8 "Canonical Huffman tree construction").
type Tree struct {
	nodes  []hnode
	single bool // true when exactly one symbol has a non-zero length: it
	// decodes without consuming any bits (spec.md's simple-code {0} case).
	singleSymbol uint16
	longestLen   int
}

// SingleSymbolTree builds a degenerate tree that always decodes to symbol
// without consuming any bits, for the simple-code "one symbol" form
// (spec.md §4.8: code length {0}).
func SingleSymbolTree(symbol uint16) *Tree {
	return &Tree{single: true, singleSymbol: symbol, longestLen: 0}
}

// BuildTree constructs a canonical Huffman tree from lengths, indexed by
// symbol value; lengths[i]==0 means symbol i is absent from the alphabet.
// Per spec.md: "symbols with shorter code lengths precede longer; among
// equal lengths, symbol value ascending" — codes are assigned to symbols
// in that order.
func BuildTree(lengths []uint8) (*Tree, error) {
	var blCount [maxCodeLength + 1]int
	var maxLen int
	nonZero := 0
	var onlySymbol uint16
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		if int(l) > maxCodeLength {
			return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "code length exceeds maximum")
		}
		blCount[l]++
		if l > uint8(maxLen) {
			maxLen = int(l)
		}
		nonZero++
		onlySymbol = uint16(sym)
	}

	if nonZero == 0 {
		return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "empty code-length set")
	}
	if nonZero == 1 {
		return &Tree{single: true, singleSymbol: onlySymbol, longestLen: 0}, nil
	}

	var nextCode [maxCodeLength + 2]int
	code := 0
	for bits := 1; bits <= maxLen; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}

	t := &Tree{nodes: []hnode{{}}, longestLen: maxLen} // nodes[0] is the root
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		if c >= 1<<uint(l) {
			return nil, errs.New(errs.KindInvalidVp8lPrefixCode, "over-subscribed canonical code")
		}
		if err := t.insert(c, int(l), uint16(sym)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// insert walks the tree from the root along the bits of code (MSB to LSB
// across depth bits), creating internal nodes as needed, and marks the
// final node as a leaf for symbol.
func (t *Tree) insert(code, depth int, symbol uint16) error {
	node := int32(0)
	for d := depth - 1; d >= 0; d-- {
		if t.nodes[node].leaf {
			return errs.New(errs.KindInvalidVp8lPrefixCode, "overlapping canonical codes")
		}
		bit := (code >> uint(d)) & 1
		child := t.nodes[node].children[bit]
		if child == 0 {
			t.nodes = append(t.nodes, hnode{})
			child = int32(len(t.nodes) - 1)
			t.nodes[node].children[bit] = child
		}
		node = child
	}
	if t.nodes[node].leaf || t.nodes[node].children[0] != 0 || t.nodes[node].children[1] != 0 {
		return errs.New(errs.KindInvalidVp8lPrefixCode, "overlapping canonical codes")
	}
	t.nodes[node].leaf = true
	t.nodes[node].symbol = symbol
	return nil
}

// LongestCodeLen returns the longest code length used by this tree, for
// the readahead-bits budget computations in spec.md §4.8.
func (t *Tree) LongestCodeLen() int {
	return t.longestLen
}

// Decode reads one symbol from r by walking the tree bit by bit.
func (t *Tree) Decode(r *vp8lbits.Reader) (uint16, error) {
	if t.single {
		return t.singleSymbol, nil
	}
	node := int32(0)
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		b := 0
		if bit {
			b = 1
		}
		child := t.nodes[node].children[b]
		if child == 0 {
			return 0, errs.New(errs.KindInvalidVp8lPrefixCode, "invalid canonical code")
		}
		if t.nodes[child].leaf {
			return t.nodes[child].symbol, nil
		}
		node = child
	}
}
