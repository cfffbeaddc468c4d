package errs

import "fmt"

// Error is the public error type returned by the sanitizer entry points: a
// sum of an I/O error and a classified parse Report, matching spec.md §7's
// `{ Io(io_error), Parse(report) }`.
type Error struct {
	// Io is set when the failure was an I/O error from the input stream,
	// as opposed to a structural parse failure.
	Io error
	// Parse is set when the failure was a classified parse error.
	Parse *Report
}

// FromIo wraps an I/O error as an Error.
func FromIo(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Io: err}
}

// FromParse wraps a Report as an Error.
func FromParse(r *Report) *Error {
	if r == nil {
		return nil
	}
	return &Error{Parse: r}
}

// Error implements the error interface with a single-line display form.
func (e *Error) Error() string {
	if e.Io != nil {
		return fmt.Sprintf("io error: %s", e.Io)
	}
	return e.Parse.Error()
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	if e.Io != nil {
		return e.Io
	}
	return e.Parse
}

// Kind returns the parse error Kind, or false if this Error wraps an I/O
// error instead of a parse failure.
func (e *Error) Kind() (Kind, bool) {
	if e.Parse == nil {
		return 0, false
	}
	return e.Parse.Kind(), true
}
