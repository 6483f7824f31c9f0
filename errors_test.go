package droidusb

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindUnavailable, Op: "open", Path: "/dev/bus/usb/001/002"},
			"droidusb open /dev/bus/usb/001/002: unavailable"},
		{&Error{Kind: KindRemoteFailure, Op: "open", Path: "/x", Description: "java.io.IOException: gone"},
			"droidusb open /x: remote failure: java.io.IOException: gone"},
		{&Error{Kind: KindAttachFailure, Op: "load", Err: errors.New("no memory")},
			"droidusb load: attach failure: no memory"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	sentinels := map[ErrorKind]error{
		KindUnavailable:   ErrUnavailable,
		KindAttachFailure: ErrAttachFailure,
		KindRemoteFailure: ErrRemoteFailure,
		KindDenied:        ErrDenied,
	}
	for kind, sentinel := range sentinels {
		err := fmt.Errorf("wrapped: %w", &Error{Kind: kind, Op: "open"})
		if !errors.Is(err, sentinel) {
			t.Errorf("%v: errors.Is(%v) = false", kind, sentinel)
		}
		if Kind(err) != kind {
			t.Errorf("Kind() = %v, want %v", Kind(err), kind)
		}
		for other, s := range sentinels {
			if other != kind && errors.Is(err, s) {
				t.Errorf("%v error matches %v", kind, other)
			}
		}
	}
	if errors.Is(&Error{Kind: KindDenied}, ErrClosed) {
		t.Error("no kind matches ErrClosed")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("thread limit")
	err := &Error{Kind: KindAttachFailure, Op: "open", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if Kind(cause) != 0 {
		t.Error("Kind of a foreign error should be 0")
	}
}
