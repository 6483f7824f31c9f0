// Package jni models the boundary between native Go code and a Java virtual
// machine (desktop HotSpot or Android ART).
//
// VM and Env mirror the JNI invocation and native interfaces closely enough
// that the purego-backed implementation in this package is a thin vtable
// dispatch, while package jnitest can provide an in-memory runtime for tests.
//
// References and IDs are opaque integers; zero is null. An Env is bound to
// the OS thread it was obtained on, so callers must keep their goroutine
// locked to that thread (runtime.LockOSThread) while using it.
package jni

import (
	"fmt"

	"github.com/pkg/errors"
)

// Version1_6 is the JNI version requested from GetEnv and returned from
// JNI_OnLoad.
const Version1_6 int32 = 0x00010006

// Status codes returned by the invocation interface.
const (
	OK        int32 = 0
	Err       int32 = -1
	EDetached int32 = -2
	EVersion  int32 = -3
	ENoMem    int32 = -4
	EExist    int32 = -5
	EInval    int32 = -6
)

// Object is a local or global reference to a managed object. Zero is null.
type Object uintptr

// Class is a reference to a managed class object. Zero is null.
type Class uintptr

// MethodID identifies a resolved method. Zero means "not found".
type MethodID uintptr

// Value is a jvalue: an 8-byte union holding one call argument.
type Value uint64

// ObjectValue packs an object reference as a call argument.
func ObjectValue(o Object) Value {
	return Value(o)
}

// IntValue packs a jint as a call argument.
func IntValue(i int32) Value {
	return Value(uint32(i))
}

// BoolValue packs a jboolean as a call argument.
func BoolValue(b bool) Value {
	if b {
		return 1
	}
	return 0
}

// Object returns the value as an object reference.
func (v Value) Object() Object {
	return Object(v)
}

// Int returns the value as a jint.
func (v Value) Int() int32 {
	return int32(uint32(v))
}

// VM is the invocation interface of a running Java virtual machine.
type VM interface {
	// GetEnv returns the environment of the calling thread. It returns
	// ErrDetached if the thread is not attached.
	GetEnv(version int32) (Env, error)

	// AttachCurrentThread attaches the calling thread and returns its
	// environment.
	AttachCurrentThread() (Env, error)

	// DetachCurrentThread detaches the calling thread.
	DetachCurrentThread() error
}

// Destroyer is implemented by VMs that this process created and may unload.
type Destroyer interface {
	Destroy() error
}

// Env is the per-thread native interface.
//
// Calls that can throw leave the exception pending; callers check with
// ExceptionOccurred or ExceptionCheck and must clear it before making any
// other call.
type Env interface {
	FindClass(name string) Class
	GetMethodID(cls Class, name, sig string) MethodID
	GetStaticMethodID(cls Class, name, sig string) MethodID

	NewGlobalRef(obj Object) Object
	DeleteGlobalRef(obj Object)
	DeleteLocalRef(obj Object)

	// NewStringUTF creates a java.lang.String from s.
	NewStringUTF(s string) Object
	// GetStringUTF copies the contents of a java.lang.String.
	GetStringUTF(str Object) string

	CallObjectMethod(obj Object, method MethodID, args ...Value) Object
	CallIntMethod(obj Object, method MethodID, args ...Value) int32
	CallVoidMethod(obj Object, method MethodID, args ...Value)
	CallStaticObjectMethod(cls Class, method MethodID, args ...Value) Object

	ExceptionOccurred() Object
	ExceptionCheck() bool
	ExceptionClear()

	// FatalError aborts the process. It does not return on a real VM.
	FatalError(msg string)
}

// ErrDetached is returned by GetEnv when the calling thread is not attached.
var ErrDetached = errors.New("jni: thread not attached to the VM")

// ErrVersion is returned by GetEnv when the requested version is unsupported.
var ErrVersion = errors.New("jni: JNI version not supported")

// StatusError is a failed invocation interface call.
type StatusError struct {
	Op     string
	Status int32
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("jni %s: %s (status %d)", e.Op, StatusText(e.Status), e.Status)
}

// StatusText returns a description of a JNI status code.
func StatusText(status int32) string {
	switch status {
	case OK:
		return "ok"
	case Err:
		return "unknown error"
	case EDetached:
		return "thread detached from the VM"
	case EVersion:
		return "JNI version error"
	case ENoMem:
		return "not enough memory"
	case EExist:
		return "VM already created"
	case EInval:
		return "invalid arguments"
	default:
		return "unrecognized status"
	}
}

// StatusErr converts an invocation interface status into an error.
// Returns nil for OK.
func StatusErr(op string, status int32) error {
	switch status {
	case OK:
		return nil
	case EDetached:
		return errors.WithStack(ErrDetached)
	case EVersion:
		return errors.Wrap(ErrVersion, op)
	default:
		return errors.WithStack(&StatusError{Op: op, Status: status})
	}
}
