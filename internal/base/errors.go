package base

import "github.com/cockroachdb/errors"

// ErrorKind classifies an engine error per spec.md §6's "Error surface" and
// §7's "Kinds and propagation".
type ErrorKind int

const (
	// KindInternal is an unclassified or programmer error.
	KindInternal ErrorKind = iota
	KindIO
	KindCorruption
	KindNotFound
	KindInvalidArgument
	KindAlreadyExists
	KindChecksumMismatch
	KindInvalidState
	KindSerialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindCorruption:
		return "Corruption"
	case KindNotFound:
		return "NotFound"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindInvalidState:
		return "InvalidState"
	case KindSerialization:
		return "Serialization"
	default:
		return "Internal"
	}
}

type kindError struct {
	kind ErrorKind
	error
}

func (e *kindError) Unwrap() error { return e.error }

// Kind recovers the ErrorKind attached by NewError/WrapError, defaulting to
// KindInternal when err was not produced by this package.
func Kind(err error) ErrorKind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	if err == nil {
		return KindInternal
	}
	return KindInternal
}

// NewError creates a new error tagged with kind.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return &kindError{kind: kind, error: errors.Newf(format, args...)}
}

// WrapError wraps err, tagging it with kind. Returns nil if err is nil.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, error: errors.Wrapf(err, format, args...)}
}

// ErrChecksumMismatch returns a KindChecksumMismatch error whose message
// carries the expected and actual checksum values.
func ErrChecksumMismatch(expected, actual uint32) error {
	return &kindError{
		kind:  KindChecksumMismatch,
		error: errors.Newf("checksum mismatch: expected %08x, actual %08x", expected, actual),
	}
}
