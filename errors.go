// Package atomupd holds the shared value types and error taxonomy for the
// steamos-atomupd catalog: manifests, images, tracks, and the wire shapes
// the selector produces. Subpackages (scanner, catalog, selector, export)
// build the pipeline on top of these types.
package atomupd

import (
	"errors"
	"strings"
)

// Error is the atomupd error domain type.
//
// Errors coming from atomupd components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain.
//
// Implementers of atomupd components should create an Error at the system
// boundary (e.g. when reading a manifest file or writing to the diagnostics
// ledger) and intermediate layers should not wrap in another Error except to
// add additional context. That is to say, use [fmt.Errorf] with a "%w" verb
// in preference to constructing a second Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrConflict, ErrInternal, ErrInvalid, ErrPrecondition, ErrTransient, ErrPermanent:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error value.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
//
// If an error is unsure which kind to use, ErrInternal should be used.
type ErrorKind string

// Defined error kinds. See SPEC_FULL.md §7 for the meaning of each.
var (
	ErrInvalid      = ErrorKind("invalid")      // manifest or descriptor failed validation
	ErrConflict     = ErrorKind("conflict")     // checkpoint multiplicity violation
	ErrPrecondition = ErrorKind("precondition") // selector used before first build
	ErrInternal     = ErrorKind("internal")     // non-specific internal error
	ErrTransient    = ErrorKind("transient")    // may succeed on retry
	ErrPermanent    = ErrorKind("permanent")    // will never succeed; fatal at startup
)

// Error implements error.
func (k ErrorKind) Error() string {
	return string(k)
}
