// Package mp4san implements the MP4 sanitizer's streaming state machine and
// chunk-offset relocation algorithm (spec.md §4.4). It validates that an
// untrusted MP4 input can be safely handed to a downstream decoder and,
// when the input is not already canonical, emits a normalized
// [ftyp][moov][mdat] metadata prefix without rewriting the (potentially
// enormous) sample payload.
//
// Grounded on mp4san/src/buffer.rs and mp4san/src/lib.rs (original Rust
// source) for the skip/append buffer and box-dispatch state machine, and
// on spec.md §4.4 for the exact offset-relocation arithmetic, which is
// more detailed than the example file's simplified lib.rs.
package mp4san

import "github.com/rs/zerolog"

// defaultMaxBoxSize is the default cap for fully-buffered boxes other than
// moov (spec.md §4.3: "default 1 MiB").
const defaultMaxBoxSize = 1 << 20

// defaultMoovCapFactor multiplies MaxBoxSize to get moov's cap (spec.md
// §4.3: "the 1 MiB limit multiplied by a configurable factor"; see
// SPEC_FULL.md's supplemented-feature #1).
const defaultMoovCapFactor = 4

// Config configures a sanitization run.
type Config struct {
	// MaxBoxSize is the cap, in bytes, for fully-buffered boxes other than
	// moov. Default 1 MiB.
	MaxBoxSize uint64

	// MoovCapFactor multiplies MaxBoxSize to compute moov's cap. Default 4.
	MoovCapFactor uint64

	// CumulativeMdatBoxSize is added to every rewritten chunk offset, for
	// callers sanitizing one segment of a stream that will be
	// concatenated after prior segments (spec.md §4.4 step 4).
	CumulativeMdatBoxSize uint64

	// Logger receives diagnostic events at box boundaries. The zero value
	// is zerolog.Nop(), so the sanitizer never requires a process-wide
	// logger (spec.md §4.2 / §9 "Global state: None required").
	Logger zerolog.Logger
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{
		MaxBoxSize:    defaultMaxBoxSize,
		MoovCapFactor: defaultMoovCapFactor,
		Logger:        zerolog.Nop(),
	}
}

// moovCap returns the effective per-moov size cap.
func (c Config) moovCap() uint64 {
	max := c.MaxBoxSize
	if max == 0 {
		max = defaultMaxBoxSize
	}
	factor := c.MoovCapFactor
	if factor == 0 {
		factor = defaultMoovCapFactor
	}
	return max * factor
}

func (c Config) boxCap() uint64 {
	if c.MaxBoxSize == 0 {
		return defaultMaxBoxSize
	}
	return c.MaxBoxSize
}

func (c Config) logger() zerolog.Logger {
	return c.Logger
}
