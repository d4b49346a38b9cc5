// Package ioerr classifies read failures into the small set of kinds the
// readers report. Every error returned by the input, stream and binding
// packages is either io.EOF or an *Error carrying one of these kinds.
package ioerr

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// Kind identifies the class of a read failure.
type Kind int

const (
	KindIO              Kind = iota // any other OS failure
	KindTypeMismatch                // argument has the wrong dynamic type
	KindNotFound                    // target file does not exist
	KindInvalidArgument             // negative length, too many arguments
	KindInvalidValue                // negative offset, rejected by positioning
	KindClosed                      // handle already released
)

// String returns the stable code for k, used in JSON output.
func (k Kind) String() string {
	switch k {
	case KindTypeMismatch:
		return "TYPE_MISMATCH"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindInvalidValue:
		return "INVALID_VALUE"
	case KindClosed:
		return "CLOSED"
	default:
		return "IO_ERROR"
	}
}

func (k Kind) describe() string {
	switch k {
	case KindTypeMismatch:
		return "type mismatch"
	case KindNotFound:
		return "no such file or directory"
	case KindInvalidArgument:
		return "invalid argument"
	case KindInvalidValue:
		return "invalid value"
	case KindClosed:
		return "closed stream"
	default:
		return "i/o error"
	}
}

// Error records a failed operation, the path it touched and its kind.
type Error struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

// Kind sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrTypeMismatch    = &Error{Kind: KindTypeMismatch}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrInvalidValue    = &Error{Kind: KindInvalidValue}
	ErrClosed          = &Error{Kind: KindClosed}
)

// New returns an *Error of the given kind.
func New(op, path string, kind Kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// Wrap classifies err with KindOf and attaches op and path.
// nil stays nil and an existing *Error is returned unchanged.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Path: path, Kind: KindOf(err), Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.describe()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op == "" && e.Path == "":
		return msg
	case e.Path == "":
		return e.Op + ": " + msg
	case e.Op == "":
		return e.Path + ": " + msg
	}
	return e.Op + " " + e.Path + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf classifies err. Raw errnos and io/fs sentinels are mapped so
// callers can classify errors that never passed through Wrap.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, unix.EINVAL):
		return KindInvalidValue
	case errors.Is(err, fs.ErrClosed):
		return KindClosed
	}
	return KindIO
}
