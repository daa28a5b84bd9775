package mp4

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a mp4tag error, mirroring the tagged error
// enum in the format this package implements.
type Kind int

const (
	// KindIO wraps an underlying byte-stream failure (read, write or seek).
	KindIO Kind = iota
	// KindNoTag is returned when no ftyp atom was found, or its major brand
	// is not one this package accepts.
	KindNoTag
	// KindAtomNotFound is returned when a required atom is absent.
	KindAtomNotFound
	// KindDescriptorNotFound is returned when a required descriptor inside
	// an esds atom is absent.
	KindDescriptorNotFound
	// KindParsing is returned for structural violations (e.g. a length < 8).
	KindParsing
	// KindSizeMismatch is returned when a declared size disagrees with the
	// content of a fixed-layout atom.
	KindSizeMismatch
	// KindUnknownVersion is returned when a full-atom version isn't 0 or 1.
	KindUnknownVersion
	// KindUnknownDataType is returned for an unrecognized typed-data code.
	KindUnknownDataType
	// KindUnknownMediaType is returned for an unrecognized handler media type.
	KindUnknownMediaType
	// KindUnknownChannelConfig is returned for an unrecognized esds channel
	// configuration.
	KindUnknownChannelConfig
	// KindUnknownSampleRate is returned for an unrecognized esds sample
	// rate index.
	KindUnknownSampleRate
	// KindUTF8Decoding is returned when a UTF-8 payload fails to decode.
	KindUTF8Decoding
	// KindUTF16Decoding is returned when a UTF-16BE payload fails to decode.
	KindUTF16Decoding
	// KindUnwritableData is returned when attempting to serialize a data
	// variant with no wire form.
	KindUnwritableData
	// KindInvalidFiletype is returned when a valid ftyp atom names a major
	// brand outside the accepted list.
	KindInvalidFiletype
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNoTag:
		return "no tag"
	case KindAtomNotFound:
		return "atom not found"
	case KindDescriptorNotFound:
		return "descriptor not found"
	case KindParsing:
		return "parsing"
	case KindSizeMismatch:
		return "size mismatch"
	case KindUnknownVersion:
		return "unknown version"
	case KindUnknownDataType:
		return "unknown data type"
	case KindUnknownMediaType:
		return "unknown media type"
	case KindUnknownChannelConfig:
		return "unknown channel config"
	case KindUnknownSampleRate:
		return "unknown sample rate"
	case KindUTF8Decoding:
		return "utf8 decoding"
	case KindUTF16Decoding:
		return "utf16 decoding"
	case KindUnwritableData:
		return "unwritable data"
	case KindInvalidFiletype:
		return "invalid filetype"
	default:
		return "unknown"
	}
}

// Error is the concrete error type this package returns. It carries a Kind
// so callers can distinguish failure categories with errors.As, plus a
// human-readable message and, where relevant, a wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind. A nil Message
// comparison is intentionally not performed: callers match on Kind alone.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ioErr wraps an I/O failure, adding a stack trace via pkg/errors so the
// failure can be traced back through nested readers/writers. Returns nil
// when cause is nil, so callers can pass a fallible call's error straight
// through without guarding every call site.
func ioErr(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(wrapErr(KindIO, cause, format, args...))
}
