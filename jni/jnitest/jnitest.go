// Package jnitest provides an in-memory Java VM implementing jni.VM and
// jni.Env for tests.
//
// Classes and their methods are plain Go functions registered with
// DefineClass. Objects live in a handle table, so every local and global
// reference can be counted: GlobalRefs, LocalRefs and InvalidDeletes are the
// counters tests use to prove that references are neither leaked nor released
// twice. Exceptions are *Throwable values; a method "throws" by returning
// one as its error.
//
// The VM does not track real OS threads. A single "current thread" is
// either attached or detached (SetAttached), which is enough to exercise
// the attach/detach paths of the code under test.
package jnitest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/obinnaokechukwu/droidusb/internal/handles"
	"github.com/obinnaokechukwu/droidusb/jni"
)

// ThrowableClass is the name of the root exception class every VM defines.
const ThrowableClass = "java/lang/Throwable"

// Method is a managed method implemented in Go.
//
// Fn receives the receiver (nil for static methods) and the decoded
// arguments: object arguments are resolved to the Go value they reference
// (a string for java.lang.String), primitive arguments are passed as
// jni.Value. Fn returns the Go value to hand back (nil for null or void,
// int32 for int methods, anything else becomes a new local reference) or an
// error, which becomes a pending exception.
type Method struct {
	Name   string
	Sig    string
	Static bool
	Fn     func(this any, args []any) (any, error)
}

// Throwable is a managed exception.
type Throwable struct {
	// Text is what toString() returns.
	Text string
	// NullText makes toString() return null.
	NullText bool
	// DescribeErr, if set, is thrown by toString().
	DescribeErr *Throwable
}

func (t *Throwable) Error() string {
	if t.NullText {
		return "<null>"
	}
	return t.Text
}

// Throw returns a throwable whose toString() is "<class>: <msg>".
func Throw(class, msg string) *Throwable {
	return &Throwable{Text: class + ": " + msg}
}

// FatalError is the panic value raised by Env.FatalError.
type FatalError struct {
	Msg string
}

func (f FatalError) Error() string {
	return "jnitest: fatal error: " + f.Msg
}

type class struct {
	name    string
	methods map[string]jni.MethodID // name+sig -> id
}

type method struct {
	Method
	class *class
}

// reference is what a jni.Object handle points at.
type reference struct {
	global bool
	value  any
}

// VM is an in-memory Java VM. The zero value is not usable; use NewVM.
type VM struct {
	mu sync.Mutex

	classes map[string]*class
	methods []*method // MethodID n is methods[n-1]
	refs    *handles.Table

	pending any // *Throwable or nil

	attached       bool
	attachErr      error
	attaches       int
	detaches       int
	calls          int
	invalidDeletes int
	fatal          string
	env            *Env
}

// NewVM returns a VM with java/lang/Throwable and its toString() defined.
// The current thread starts attached.
func NewVM() *VM {
	vm := &VM{
		classes:  make(map[string]*class),
		refs:     handles.New(),
		attached: true,
	}
	vm.env = &Env{vm: vm}
	vm.DefineClass(ThrowableClass, Method{
		Name: "toString",
		Sig:  "()Ljava/lang/String;",
		Fn: func(this any, _ []any) (any, error) {
			t, ok := this.(*Throwable)
			if !ok {
				return fmt.Sprint(this), nil
			}
			if t.DescribeErr != nil {
				return nil, t.DescribeErr
			}
			if t.NullText {
				return nil, nil
			}
			return t.Text, nil
		},
	})
	return vm
}

// DefineClass adds (or extends) a class with the given methods.
func (vm *VM) DefineClass(name string, methods ...Method) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	c, ok := vm.classes[name]
	if !ok {
		c = &class{name: name, methods: make(map[string]jni.MethodID)}
		vm.classes[name] = c
	}
	for _, m := range methods {
		vm.methods = append(vm.methods, &method{Method: m, class: c})
		c.methods[m.Name+m.Sig] = jni.MethodID(len(vm.methods))
	}
}

// UndefineClass removes a class so FindClass fails for it.
func (vm *VM) UndefineClass(name string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	delete(vm.classes, name)
}

// SetAttached sets whether the current thread is attached.
func (vm *VM) SetAttached(attached bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.attached = attached
}

// SetAttachError makes AttachCurrentThread fail with err.
func (vm *VM) SetAttachError(err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.attachErr = err
}

// Attached reports whether the current thread is attached.
func (vm *VM) Attached() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.attached
}

// Attaches returns how many times AttachCurrentThread succeeded.
func (vm *VM) Attaches() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.attaches
}

// Detaches returns how many times DetachCurrentThread was called.
func (vm *VM) Detaches() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.detaches
}

// Calls returns the number of VM and Env calls made so far.
func (vm *VM) Calls() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.calls
}

// GlobalRefs returns the number of live global references, including
// global references to classes.
func (vm *VM) GlobalRefs() int {
	return vm.refs.CountFunc(func(v any) bool { return v.(*reference).global })
}

// ObjectGlobalRefs returns the number of live global references to
// objects other than classes.
func (vm *VM) ObjectGlobalRefs() int {
	return vm.refs.CountFunc(func(v any) bool {
		r := v.(*reference)
		_, isClass := r.value.(*class)
		return r.global && !isClass
	})
}

// LocalRefs returns the number of live local references.
func (vm *VM) LocalRefs() int {
	return vm.refs.CountFunc(func(v any) bool { return !v.(*reference).global })
}

// InvalidDeletes returns how many Delete{Global,Local}Ref calls named a
// reference that was not live (double release or wrong kind).
func (vm *VM) InvalidDeletes() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.invalidDeletes
}

// Pending returns the pending exception, or nil.
func (vm *VM) Pending() *Throwable {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	t, _ := vm.pending.(*Throwable)
	return t
}

// Fatal returns the message of the last FatalError call, or "".
func (vm *VM) Fatal() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.fatal
}

// Value returns the Go value behind a reference.
func (vm *VM) Value(obj jni.Object) (any, bool) {
	v, ok := vm.refs.Lookup(uintptr(obj))
	if !ok {
		return nil, false
	}
	return v.(*reference).value, true
}

func (vm *VM) count() {
	vm.mu.Lock()
	vm.calls++
	vm.mu.Unlock()
}

// GetEnv implements jni.VM.
func (vm *VM) GetEnv(version int32) (jni.Env, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.calls++
	if version > jni.Version1_6 {
		return nil, jni.StatusErr("GetEnv", jni.EVersion)
	}
	if !vm.attached {
		return nil, jni.StatusErr("GetEnv", jni.EDetached)
	}
	return vm.env, nil
}

// AttachCurrentThread implements jni.VM.
func (vm *VM) AttachCurrentThread() (jni.Env, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.calls++
	if vm.attachErr != nil {
		return nil, vm.attachErr
	}
	vm.attached = true
	vm.attaches++
	return vm.env, nil
}

// DetachCurrentThread implements jni.VM.
func (vm *VM) DetachCurrentThread() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.calls++
	vm.attached = false
	vm.detaches++
	return nil
}

// Env implements jni.Env on top of a VM.
type Env struct {
	vm *VM
}

var _ jni.Env = (*Env)(nil)

func (e *Env) newRef(v any, global bool) jni.Object {
	if v == nil {
		return 0
	}
	return jni.Object(e.vm.refs.Register(&reference{global: global, value: v}))
}

func (e *Env) deref(obj jni.Object) any {
	v, _ := e.vm.Value(obj)
	return v
}

func (e *Env) throw(t *Throwable) {
	e.vm.mu.Lock()
	e.vm.pending = t
	e.vm.mu.Unlock()
}

// FindClass implements jni.Env. A missing class throws
// NoClassDefFoundError.
func (e *Env) FindClass(name string) jni.Class {
	e.vm.count()
	e.vm.mu.Lock()
	c, ok := e.vm.classes[name]
	e.vm.mu.Unlock()
	if !ok {
		e.throw(Throw("java.lang.NoClassDefFoundError", name))
		return 0
	}
	return jni.Class(e.newRef(c, false))
}

func (e *Env) methodID(cls jni.Class, name, sig string, static bool) jni.MethodID {
	e.vm.count()
	c, ok := e.deref(jni.Object(cls)).(*class)
	if !ok {
		e.throw(Throw("java.lang.NoSuchMethodError", name))
		return 0
	}
	e.vm.mu.Lock()
	id, ok := c.methods[name+sig]
	if ok && e.vm.methods[id-1].Static != static {
		ok = false
	}
	e.vm.mu.Unlock()
	if !ok {
		e.throw(Throw("java.lang.NoSuchMethodError", c.name+"."+name+sig))
		return 0
	}
	return id
}

// GetMethodID implements jni.Env.
func (e *Env) GetMethodID(cls jni.Class, name, sig string) jni.MethodID {
	return e.methodID(cls, name, sig, false)
}

// GetStaticMethodID implements jni.Env.
func (e *Env) GetStaticMethodID(cls jni.Class, name, sig string) jni.MethodID {
	return e.methodID(cls, name, sig, true)
}

// NewGlobalRef implements jni.Env.
func (e *Env) NewGlobalRef(obj jni.Object) jni.Object {
	e.vm.count()
	return e.newRef(e.deref(obj), true)
}

func (e *Env) deleteRef(obj jni.Object, global bool) {
	e.vm.count()
	if obj == 0 {
		return
	}
	v, ok := e.vm.refs.Lookup(uintptr(obj))
	if !ok || v.(*reference).global != global {
		e.vm.mu.Lock()
		e.vm.invalidDeletes++
		e.vm.mu.Unlock()
		return
	}
	e.vm.refs.Unregister(uintptr(obj))
}

// DeleteGlobalRef implements jni.Env.
func (e *Env) DeleteGlobalRef(obj jni.Object) {
	e.deleteRef(obj, true)
}

// DeleteLocalRef implements jni.Env.
func (e *Env) DeleteLocalRef(obj jni.Object) {
	e.deleteRef(obj, false)
}

// NewStringUTF implements jni.Env.
func (e *Env) NewStringUTF(s string) jni.Object {
	e.vm.count()
	return e.newRef(s, false)
}

// GetStringUTF implements jni.Env.
func (e *Env) GetStringUTF(str jni.Object) string {
	e.vm.count()
	s, _ := e.deref(str).(string)
	return s
}

// invoke runs method id. this is nil for static calls.
func (e *Env) invoke(this any, id jni.MethodID, static bool, args []jni.Value) any {
	e.vm.count()

	e.vm.mu.Lock()
	if e.vm.pending != nil {
		e.vm.mu.Unlock()
		panic("jnitest: call made with an exception pending")
	}
	if id == 0 || int(id) > len(e.vm.methods) {
		e.vm.mu.Unlock()
		panic(fmt.Sprintf("jnitest: invalid method ID %d", id))
	}
	m := e.vm.methods[id-1]
	e.vm.mu.Unlock()

	if m.Static != static {
		panic(fmt.Sprintf("jnitest: %s.%s called with wrong static-ness", m.class.name, m.Name))
	}
	if !static && this == nil {
		e.throw(Throw("java.lang.NullPointerException", m.Name))
		return nil
	}

	kinds := argKinds(m.Sig)
	decoded := make([]any, len(args))
	for i, a := range args {
		if i < len(kinds) && kinds[i] {
			decoded[i] = e.deref(a.Object())
		} else {
			decoded[i] = a
		}
	}

	ret, err := m.Fn(this, decoded)
	if err != nil {
		t, ok := err.(*Throwable)
		if !ok {
			t = Throw("java.lang.RuntimeException", err.Error())
		}
		e.throw(t)
		return nil
	}
	return ret
}

// CallObjectMethod implements jni.Env.
func (e *Env) CallObjectMethod(obj jni.Object, id jni.MethodID, args ...jni.Value) jni.Object {
	ret := e.invoke(e.deref(obj), id, false, args)
	return e.newRef(ret, false)
}

// CallIntMethod implements jni.Env.
func (e *Env) CallIntMethod(obj jni.Object, id jni.MethodID, args ...jni.Value) int32 {
	ret := e.invoke(e.deref(obj), id, false, args)
	i, _ := ret.(int32)
	return i
}

// CallVoidMethod implements jni.Env.
func (e *Env) CallVoidMethod(obj jni.Object, id jni.MethodID, args ...jni.Value) {
	e.invoke(e.deref(obj), id, false, args)
}

// CallStaticObjectMethod implements jni.Env.
func (e *Env) CallStaticObjectMethod(cls jni.Class, id jni.MethodID, args ...jni.Value) jni.Object {
	ret := e.invoke(nil, id, true, args)
	return e.newRef(ret, false)
}

// ExceptionOccurred implements jni.Env. It returns a new local reference to
// the pending exception.
func (e *Env) ExceptionOccurred() jni.Object {
	e.vm.count()
	e.vm.mu.Lock()
	p := e.vm.pending
	e.vm.mu.Unlock()
	return e.newRef(p, false)
}

// ExceptionCheck implements jni.Env.
func (e *Env) ExceptionCheck() bool {
	e.vm.count()
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	return e.vm.pending != nil
}

// ExceptionClear implements jni.Env.
func (e *Env) ExceptionClear() {
	e.vm.count()
	e.vm.mu.Lock()
	e.vm.pending = nil
	e.vm.mu.Unlock()
}

// FatalError implements jni.Env by recording msg and panicking with
// FatalError, standing in for the process abort of a real VM.
func (e *Env) FatalError(msg string) {
	e.vm.count()
	e.vm.mu.Lock()
	e.vm.fatal = msg
	e.vm.mu.Unlock()
	panic(FatalError{Msg: msg})
}

// argKinds reports, for each parameter of a method descriptor, whether it
// is a reference type.
func argKinds(sig string) []bool {
	open, end := strings.IndexByte(sig, '('), strings.IndexByte(sig, ')')
	if open < 0 || end < open {
		return nil
	}
	params := sig[open+1 : end]
	var kinds []bool
	for i := 0; i < len(params); i++ {
		switch params[i] {
		case 'L':
			semi := strings.IndexByte(params[i:], ';')
			if semi < 0 {
				return kinds
			}
			i += semi
			kinds = append(kinds, true)
		case '[':
			for i < len(params) && params[i] == '[' {
				i++
			}
			if i < len(params) && params[i] == 'L' {
				semi := strings.IndexByte(params[i:], ';')
				if semi < 0 {
					return kinds
				}
				i += semi
			}
			kinds = append(kinds, true)
		default:
			kinds = append(kinds, false)
		}
	}
	return kinds
}
