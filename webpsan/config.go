// Package webpsan implements the WebP sanitizer: a RIFF chunk walk that
// validates a WebP input is safe to hand to an untrusted decoder, without
// ever reconstructing pixels (spec.md §4.6).
//
// Grounded on webpsan/src/lib.rs (original_source) for the exact dispatch
// control flow, adapted to the teacher's Go error/logging idiom.
package webpsan

import "github.com/rs/zerolog"

// maxFileLen is the largest RIFF declared length this sanitizer accepts,
// `u32::MAX - 2` per spec.md §4.6 step 1.
const maxFileLen = 1<<32 - 1 - 2

// vp8lWindowSize is the VP8L bit reader's default buffer window (spec.md
// §5 "the VP8L bit buffer (default 4 KiB)").
const vp8lWindowSize = 4096

// Config configures a sanitization run.
type Config struct {
	// AllowUnknownChunks permits chunk types this sanitizer does not
	// recognize to appear at the positions spec.md §4.6 allows trailing
	// or unknown chunks. Default false.
	AllowUnknownChunks bool

	// Logger receives diagnostic events at chunk boundaries. The zero
	// value is zerolog.Nop().
	Logger zerolog.Logger
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{Logger: zerolog.Nop()}
}

func (c Config) logger() zerolog.Logger {
	return c.Logger
}
