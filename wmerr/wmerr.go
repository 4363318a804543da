// Package wmerr declares the closed set of domain error kinds shared
// across the receiver, and wraps them with github.com/pkg/errors so
// that fatal startup failures retain a stack trace on the way to the
// top-level log line.
package wmerr

import "github.com/pkg/errors"

// Kind is one of the error kinds spec'd for the receiver. An error's
// Kind is recovered with KindOf, which walks the wrap chain, rather than
// by a type assertion on the error itself, since a wrapped error's
// dynamic type is whatever pkg/errors produced.
type Kind int

const (
	ConfigInvalid Kind = iota
	DeviceNotFound
	DeviceUnsupported
	LinkModeUnsupported
	FrameCorrupt
	DecryptFailed
	DecodeFailed
	OutputFailed
	ChildProcessExited
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case DeviceNotFound:
		return "DeviceNotFound"
	case DeviceUnsupported:
		return "DeviceUnsupported"
	case LinkModeUnsupported:
		return "LinkModeUnsupported"
	case FrameCorrupt:
		return "FrameCorrupt"
	case DecryptFailed:
		return "DecryptFailed"
	case DecodeFailed:
		return "DecodeFailed"
	case OutputFailed:
		return "OutputFailed"
	case ChildProcessExited:
		return "ChildProcessExited"
	default:
		return "Unknown"
	}
}

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a Kind-tagged error from a format string, with a stack
// trace attached by pkg/errors.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving its cause chain.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(err, msg)}
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if we, ok := err.(*Error); ok {
			e = we
			break
		}
		err = errors.Unwrap(err)
	}
	if e == nil {
		return 0, false
	}
	return e.Kind, true
}

// Fatal reports whether errors of this kind should abort startup
// before the event loop runs, per the §7 error policy.
func (k Kind) Fatal() bool {
	switch k {
	case ConfigInvalid, DeviceNotFound, LinkModeUnsupported:
		return true
	default:
		return false
	}
}
