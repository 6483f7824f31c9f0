//go:build !windows && (amd64 || arm64)

package jni

import (
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// JNIInvokeInterface slots.
const (
	vmDestroyJavaVM       = 3
	vmAttachCurrentThread = 4
	vmDetachCurrentThread = 5
	vmGetEnv              = 6
)

// JNINativeInterface slots. Only the non-variadic "A" call variants are
// used so every call has a fixed C signature.
const (
	envFindClass               = 6
	envExceptionOccurred       = 15
	envExceptionClear          = 17
	envFatalError              = 18
	envNewGlobalRef            = 21
	envDeleteGlobalRef         = 22
	envDeleteLocalRef          = 23
	envGetMethodID             = 33
	envCallObjectMethodA       = 36
	envCallIntMethodA          = 51
	envCallVoidMethodA         = 63
	envGetStaticMethodID       = 113
	envCallStaticObjectMethodA = 116
	envNewStringUTF            = 167
	envGetStringUTFChars       = 169
	envReleaseStringUTFChars   = 170
	envExceptionCheck          = 228
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// cPointer reinterprets an address owned by the VM as a pointer. The memory
// it points to is never managed by Go.
func cPointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// slot reads entry idx of the function table that iface points to.
// Both JavaVM* and JNIEnv* are pointers to a pointer to such a table.
func slot(iface uintptr, idx int) uintptr {
	table := *(*uintptr)(cPointer(iface))
	return *(*uintptr)(unsafe.Add(cPointer(table), uintptr(idx)*ptrSize))
}

type nativeVM struct {
	ptr uintptr // JavaVM*
}

// WrapVM returns a VM backed by the JavaVM* at ptr, as handed to JNI_OnLoad
// or returned by JNI_GetCreatedJavaVMs.
func WrapVM(ptr uintptr) (VM, error) {
	if ptr == 0 {
		return nil, errors.New("jni: nil JavaVM pointer")
	}
	return &nativeVM{ptr: ptr}, nil
}

func (vm *nativeVM) GetEnv(version int32) (Env, error) {
	env := new(uintptr)
	r, _, _ := purego.SyscallN(slot(vm.ptr, vmGetEnv), vm.ptr, uintptr(unsafe.Pointer(env)), uintptr(version))
	if err := StatusErr("GetEnv", int32(r)); err != nil {
		return nil, err
	}
	return &nativeEnv{ptr: *env}, nil
}

func (vm *nativeVM) AttachCurrentThread() (Env, error) {
	env := new(uintptr)
	r, _, _ := purego.SyscallN(slot(vm.ptr, vmAttachCurrentThread), vm.ptr, uintptr(unsafe.Pointer(env)), 0)
	if err := StatusErr("AttachCurrentThread", int32(r)); err != nil {
		return nil, err
	}
	return &nativeEnv{ptr: *env}, nil
}

func (vm *nativeVM) DetachCurrentThread() error {
	r, _, _ := purego.SyscallN(slot(vm.ptr, vmDetachCurrentThread), vm.ptr)
	return StatusErr("DetachCurrentThread", int32(r))
}

// Destroy unloads the VM. Only VMs created with CreateVM may be destroyed.
func (vm *nativeVM) Destroy() error {
	r, _, _ := purego.SyscallN(slot(vm.ptr, vmDestroyJavaVM), vm.ptr)
	return StatusErr("DestroyJavaVM", int32(r))
}

type nativeEnv struct {
	ptr uintptr // JNIEnv*
}

// fn returns the address of native interface function idx.
func (e *nativeEnv) fn(idx int) uintptr {
	return slot(e.ptr, idx)
}

// call invokes a native interface function whose arguments are all
// references, IDs or integers. Go pointers must not be passed through it:
// they are converted at the purego.SyscallN call site instead, where purego
// keeps them alive for the duration of the call.
func (e *nativeEnv) call(idx int, args ...uintptr) uintptr {
	r, _, _ := purego.SyscallN(e.fn(idx), append([]uintptr{e.ptr}, args...)...)
	return r
}

// callA invokes one of the Call<Type>MethodA entries with a jvalue array.
func (e *nativeEnv) callA(idx int, target, method uintptr, args []Value) uintptr {
	if len(args) == 0 {
		r, _, _ := purego.SyscallN(e.fn(idx), e.ptr, target, method, 0)
		return r
	}
	r, _, _ := purego.SyscallN(e.fn(idx), e.ptr, target, method, uintptr(unsafe.Pointer(&args[0])))
	return r
}

func (e *nativeEnv) FindClass(name string) Class {
	b := cString(name)
	r, _, _ := purego.SyscallN(e.fn(envFindClass), e.ptr, uintptr(unsafe.Pointer(&b[0])))
	return Class(r)
}

func (e *nativeEnv) GetMethodID(cls Class, name, sig string) MethodID {
	n, s := cString(name), cString(sig)
	r, _, _ := purego.SyscallN(e.fn(envGetMethodID), e.ptr, uintptr(cls),
		uintptr(unsafe.Pointer(&n[0])), uintptr(unsafe.Pointer(&s[0])))
	return MethodID(r)
}

func (e *nativeEnv) GetStaticMethodID(cls Class, name, sig string) MethodID {
	n, s := cString(name), cString(sig)
	r, _, _ := purego.SyscallN(e.fn(envGetStaticMethodID), e.ptr, uintptr(cls),
		uintptr(unsafe.Pointer(&n[0])), uintptr(unsafe.Pointer(&s[0])))
	return MethodID(r)
}

func (e *nativeEnv) NewGlobalRef(obj Object) Object {
	return Object(e.call(envNewGlobalRef, uintptr(obj)))
}

func (e *nativeEnv) DeleteGlobalRef(obj Object) {
	e.call(envDeleteGlobalRef, uintptr(obj))
}

func (e *nativeEnv) DeleteLocalRef(obj Object) {
	e.call(envDeleteLocalRef, uintptr(obj))
}

// NewStringUTF expects modified UTF-8. Device paths are ASCII, for which
// the two encodings agree. A string with an interior NUL cannot be passed
// as a C string and yields 0.
func (e *nativeEnv) NewStringUTF(s string) Object {
	if strings.IndexByte(s, 0) >= 0 {
		return 0
	}
	b := cString(s)
	r, _, _ := purego.SyscallN(e.fn(envNewStringUTF), e.ptr, uintptr(unsafe.Pointer(&b[0])))
	return Object(r)
}

func (e *nativeEnv) GetStringUTF(str Object) string {
	if str == 0 {
		return ""
	}
	chars := e.call(envGetStringUTFChars, uintptr(str), 0)
	if chars == 0 {
		return ""
	}
	s := goString((*byte)(cPointer(chars)))
	e.call(envReleaseStringUTFChars, uintptr(str), chars)
	return s
}

func (e *nativeEnv) CallObjectMethod(obj Object, method MethodID, args ...Value) Object {
	return Object(e.callA(envCallObjectMethodA, uintptr(obj), uintptr(method), args))
}

func (e *nativeEnv) CallIntMethod(obj Object, method MethodID, args ...Value) int32 {
	return int32(e.callA(envCallIntMethodA, uintptr(obj), uintptr(method), args))
}

func (e *nativeEnv) CallVoidMethod(obj Object, method MethodID, args ...Value) {
	e.callA(envCallVoidMethodA, uintptr(obj), uintptr(method), args)
}

func (e *nativeEnv) CallStaticObjectMethod(cls Class, method MethodID, args ...Value) Object {
	return Object(e.callA(envCallStaticObjectMethodA, uintptr(cls), uintptr(method), args))
}

func (e *nativeEnv) ExceptionOccurred() Object {
	return Object(e.call(envExceptionOccurred))
}

func (e *nativeEnv) ExceptionCheck() bool {
	return e.call(envExceptionCheck)&0xff != 0
}

func (e *nativeEnv) ExceptionClear() {
	e.call(envExceptionClear)
}

func (e *nativeEnv) FatalError(msg string) {
	b := cString(msg)
	purego.SyscallN(e.fn(envFatalError), e.ptr, uintptr(unsafe.Pointer(&b[0])))
}
