package vp8l

import (
	"github.com/deepteams/mediasan/internal/errs"
	"github.com/deepteams/mediasan/internal/vp8lbits"
)

// ColorCache is the optional recently-used-color cache described by
// spec.md §4.8 step 1: "1 bit present/absent; if present, u4 order with 1
// <= order <= 11; cache size = 2^order."
type ColorCache struct {
	order uint8 // 0 means absent
}

// ReadColorCache reads the color-cache presence flag and order.
func ReadColorCache(r *vp8lbits.Reader) (ColorCache, error) {
	present, err := r.ReadBit()
	if err != nil {
		return ColorCache{}, err
	}
	if !present {
		return ColorCache{}, nil
	}
	order, err := r.ReadBits(4)
	if err != nil {
		return ColorCache{}, err
	}
	if order < 1 || order > 11 {
		return ColorCache{}, errs.New(errs.KindInvalidInput, "invalid color cache order")
	}
	return ColorCache{order: uint8(order)}, nil
}

// Len returns the cache size (0 if the cache is absent).
func (c ColorCache) Len() uint16 {
	if c.order == 0 {
		return 0
	}
	return 1 << c.order
}
