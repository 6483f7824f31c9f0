package droidusb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies bridge failures.
type ErrorKind int

// Error kinds.
const (
	// KindUnavailable: the bridge was never loaded, failed to resolve its
	// symbols, or has been unloaded. No managed call was attempted.
	KindUnavailable ErrorKind = iota + 1

	// KindAttachFailure: the calling thread could not get a JNI environment.
	KindAttachFailure

	// KindRemoteFailure: a managed call threw. The exception was logged and
	// cleared.
	KindRemoteFailure

	// KindDenied: the managed opener returned null without throwing.
	KindDenied
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	// ErrUnavailable indicates the Java bridge is not loaded or not usable.
	ErrUnavailable = errors.New("droidusb: Java bridge unavailable")

	// ErrAttachFailure indicates the thread could not attach to the VM.
	ErrAttachFailure = errors.New("droidusb: cannot attach thread to the Java VM")

	// ErrRemoteFailure indicates a Java exception was raised.
	ErrRemoteFailure = errors.New("droidusb: Java call failed")

	// ErrDenied indicates the device open was refused.
	ErrDenied = errors.New("droidusb: device open denied")

	// ErrClosed indicates the connection has already been closed.
	ErrClosed = errors.New("droidusb: connection is closed")
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindAttachFailure:
		return "attach failure"
	case KindRemoteFailure:
		return "remote failure"
	case KindDenied:
		return "denied"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnavailable:
		return ErrUnavailable
	case KindAttachFailure:
		return ErrAttachFailure
	case KindRemoteFailure:
		return ErrRemoteFailure
	case KindDenied:
		return ErrDenied
	default:
		return nil
	}
}

// Error is a failed bridge operation.
type Error struct {
	Kind        ErrorKind
	Op          string // "load", "open", "close"
	Path        string // device path, if any
	Description string // Java exception text or other detail
	Err         error  // underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "droidusb " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.String()
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Kind returns the kind of a bridge error, or 0 if err is not one.
func Kind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsUnavailable returns true if the bridge was not usable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsDenied returns true if the managed side refused to open the device.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}

// IsRemoteFailure returns true if a Java exception was raised.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteFailure)
}
