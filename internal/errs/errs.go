// Package errs implements the shared classified-error model used by both
// the mp4san and webpsan sanitizers.
//
// A Report pairs a Kind (the classification used for programmatic dispatch)
// with a stack of diagnostic frames attached by callers as the error
// propagates upward, mirroring the Rust error-stack crate's Report type the
// original sanitizers are built on. The frame stack is for diagnostics only
// and never affects Kind-based classification.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a sanitizer parse failure.
type Kind int

const (
	// KindInvalidInput means a field violated a numeric or structural
	// invariant: overflow, wrong magic byte, dimension product overflow.
	KindInvalidInput Kind = iota
	// KindInvalidBoxLayout means box/chunk fields were individually valid
	// but arranged illegally (e.g. two stco in one stbl).
	KindInvalidBoxLayout
	// KindInvalidChunkLayout is the WebP analogue of KindInvalidBoxLayout.
	KindInvalidChunkLayout
	// KindTruncatedBox means EOF was reached before a box's declared
	// length was fully consumed.
	KindTruncatedBox
	// KindTruncatedChunk is the WebP analogue of KindTruncatedBox.
	KindTruncatedChunk
	// KindMissingRequiredBox means a required box type was never seen.
	KindMissingRequiredBox
	// KindMissingRequiredChunk is the WebP analogue of KindMissingRequiredBox.
	KindMissingRequiredChunk
	// KindUnsupportedBox means a box was structurally valid but not
	// handled by this sanitizer.
	KindUnsupportedBox
	// KindUnsupportedChunk is the WebP analogue of KindUnsupportedBox.
	KindUnsupportedChunk
	// KindUnsupportedBoxLayout means a box arrangement was structurally
	// legal but this sanitizer does not support it (e.g. multiple
	// non-contiguous mdat regions).
	KindUnsupportedBoxLayout
	// KindUnsupportedFormat means ftyp.compatible_brands did not include a
	// brand this sanitizer accepts.
	KindUnsupportedFormat
	// KindInvalidVp8lPrefixCode means a VP8L canonical Huffman code-length
	// stream violated the canonical-tree construction rules.
	KindInvalidVp8lPrefixCode
	// KindUnsupportedVp8lVersion means the VP8L header's version field was
	// non-zero.
	KindUnsupportedVp8lVersion
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindInvalidBoxLayout:
		return "invalid box layout"
	case KindInvalidChunkLayout:
		return "invalid chunk layout"
	case KindTruncatedBox:
		return "truncated box"
	case KindTruncatedChunk:
		return "truncated chunk"
	case KindMissingRequiredBox:
		return "missing required box"
	case KindMissingRequiredChunk:
		return "missing required chunk"
	case KindUnsupportedBox:
		return "unsupported box"
	case KindUnsupportedChunk:
		return "unsupported chunk"
	case KindUnsupportedBoxLayout:
		return "unsupported box layout"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindInvalidVp8lPrefixCode:
		return "invalid vp8l prefix code"
	case KindUnsupportedVp8lVersion:
		return "unsupported vp8l version"
	default:
		return "unknown error"
	}
}

// Report is a classified parse error with an attached stack of context
// frames, pushed by callers via Attach as the error propagates upward.
type Report struct {
	kind    Kind
	subject string
	cause   error
}

// New creates a Report of the given Kind, with subject as the top-level
// description (e.g. "stco entry_count overflow").
func New(kind Kind, subject string) *Report {
	return &Report{kind: kind, subject: subject, cause: errors.New(subject)}
}

// Kind returns the classification of this Report.
func (r *Report) Kind() Kind {
	return r.kind
}

// Error implements the error interface, returning a single-line display
// form per spec.md's "display form is a single line" requirement.
func (r *Report) Error() string {
	return fmt.Sprintf("%s: %s", r.kind, r.subject)
}

// Frames renders the attached context-frame stack for diagnostics using
// pkg/errors' %+v form: the original error first, then each attached
// frame in the order it was attached, interleaved with stack traces.
func (r *Report) Frames() string {
	return fmt.Sprintf("%+v", r.cause)
}

// Attach pushes a new context frame describing what the caller was doing
// (type name, field name, or chunk context) onto an existing Report,
// returning a new Report value with the extended stack. If err is not a
// *Report, it is classified as KindInvalidInput and wrapped first, so
// Attach is safe to call on any error value returned from a lower layer.
func Attach(err error, context string) *Report {
	var r *Report
	if asReport(err, &r) {
		return &Report{kind: r.kind, subject: r.subject, cause: errors.Wrap(r.cause, context)}
	}
	return &Report{kind: KindInvalidInput, subject: err.Error(), cause: errors.Wrap(err, context)}
}

// Attachf is Attach with a formatted context frame.
func Attachf(err error, format string, args ...any) *Report {
	return Attach(err, fmt.Sprintf(format, args...))
}

func asReport(err error, out **Report) bool {
	if r, ok := err.(*Report); ok {
		*out = r
		return true
	}
	return false
}

// Is reports whether err is a *Report of the given Kind.
func Is(err error, kind Kind) bool {
	r, ok := err.(*Report)
	return ok && r.kind == kind
}
