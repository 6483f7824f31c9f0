//go:build !windows && (amd64 || arm64)

package jni

import (
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/ebitengine/purego"
)

func TestSlot(t *testing.T) {
	table := []uintptr{10, 20, 30, 40}
	head := &table[0]
	iface := uintptr(unsafe.Pointer(&head))

	for i, want := range table {
		if got := slot(iface, i); got != want {
			t.Errorf("slot(%d) = %d, want %d", i, got, want)
		}
	}
	runtime.KeepAlive(head)
}

// scriptedEnv is a JNIEnv whose function table entries are Go callbacks.
type scriptedEnv struct {
	table []uintptr
	head  *uintptr

	mu       sync.Mutex
	strings  []string
	lastArgs []Value
	nilArgs  bool
}

var (
	scriptedOnce sync.Once
	scripted     *scriptedEnv
)

// newScriptedEnv returns the shared scripted environment. purego callbacks
// cannot be freed, so the table is built once per test binary.
func newScriptedEnv() *scriptedEnv {
	scriptedOnce.Do(func() {
		s := &scriptedEnv{table: make([]uintptr, envExceptionCheck+1)}
		s.table[envNewStringUTF] = purego.NewCallback(func(_ uintptr, chars *byte) uintptr {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.strings = append(s.strings, goString(chars))
			return uintptr(len(s.strings))
		})
		s.table[envFindClass] = purego.NewCallback(func(_ uintptr, name *byte) uintptr {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.strings = append(s.strings, goString(name))
			return 0x100
		})
		s.table[envCallIntMethodA] = purego.NewCallback(func(_, obj, method uintptr, args *Value) uintptr {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.nilArgs = args == nil
			if args == nil {
				return obj + method
			}
			s.lastArgs = append([]Value(nil), unsafe.Slice(args, 2)...)
			return uintptr(uint32(args.Int() + unsafe.Slice(args, 2)[1].Int()))
		})
		s.head = &s.table[0]
		scripted = s
	})
	scripted.mu.Lock()
	scripted.strings, scripted.lastArgs, scripted.nilArgs = nil, nil, false
	scripted.mu.Unlock()
	return scripted
}

func (s *scriptedEnv) env() *nativeEnv {
	return &nativeEnv{ptr: uintptr(unsafe.Pointer(&s.head))}
}

func TestCallAPassesArguments(t *testing.T) {
	s := newScriptedEnv()
	e := s.env()

	for i := int32(0); i < 50; i++ {
		got := e.CallIntMethod(1, 2, IntValue(i), IntValue(-3))
		if got != i-3 {
			t.Fatalf("CallIntMethod(%d, -3) = %d", i, got)
		}
		runtime.GC()
	}
	if s.lastArgs[0].Int() != 49 || s.lastArgs[1].Int() != -3 {
		t.Errorf("last arguments = %v", s.lastArgs)
	}

	if got := e.CallIntMethod(5, 6); got != 11 || !s.nilArgs {
		t.Errorf("CallIntMethod without arguments = %d, nil array %v", got, s.nilArgs)
	}
}

func TestStringArguments(t *testing.T) {
	s := newScriptedEnv()
	e := s.env()

	if cls := e.FindClass("org/libusb/UsbHelper"); cls != 0x100 {
		t.Errorf("FindClass = %#x", cls)
	}
	if obj := e.NewStringUTF("/dev/bus/usb/001/002"); obj == 0 {
		t.Error("NewStringUTF returned null")
	}
	if obj := e.NewStringUTF("/dev/bus/usb/001/002\x00/../003"); obj != 0 {
		t.Error("NewStringUTF should refuse a string with a NUL byte")
	}

	want := []string{"org/libusb/UsbHelper", "/dev/bus/usb/001/002"}
	if len(s.strings) != len(want) {
		t.Fatalf("VM received %q, want %q", s.strings, want)
	}
	for i := range want {
		if s.strings[i] != want[i] {
			t.Errorf("string %d = %q, want %q", i, s.strings[i], want[i])
		}
	}
}
