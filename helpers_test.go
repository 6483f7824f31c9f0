package droidusb

import (
	"strings"
	"sync"
	"testing"

	"github.com/obinnaokechukwu/droidusb/jni/jnitest"
)

const (
	connectionClass = "android/hardware/usb/UsbDeviceConnection"
	helperClass     = "org/libusb/UsbHelper"
)

// fakeConnection stands in for android.hardware.usb.UsbDeviceConnection.
type fakeConnection struct {
	fd       int32
	fdErr    *jnitest.Throwable
	closeErr *jnitest.Throwable

	mu     sync.Mutex
	closes int
}

func (c *fakeConnection) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// fakeHost is a Java VM with the classes libusb's Android helper provides.
type fakeHost struct {
	vm *jnitest.VM

	mu      sync.Mutex
	devices map[string]*fakeConnection
	openErr *jnitest.Throwable
	opened  []string
}

func newFakeHost() *fakeHost {
	h := &fakeHost{
		vm:      jnitest.NewVM(),
		devices: make(map[string]*fakeConnection),
	}
	h.defineConnection(true)
	h.vm.DefineClass(helperClass, jnitest.Method{
		Name:   "openDevice",
		Sig:    "(Ljava/lang/String;)Landroid/hardware/usb/UsbDeviceConnection;",
		Static: true,
		Fn: func(_ any, args []any) (any, error) {
			path, _ := args[0].(string)
			h.mu.Lock()
			defer h.mu.Unlock()
			h.opened = append(h.opened, path)
			if h.openErr != nil {
				return nil, h.openErr
			}
			c, ok := h.devices[path]
			if !ok {
				return nil, nil
			}
			return c, nil
		},
	})
	return h
}

func (h *fakeHost) defineConnection(withClose bool) {
	methods := []jnitest.Method{{
		Name: "getFileDescriptor",
		Sig:  "()I",
		Fn: func(this any, _ []any) (any, error) {
			c := this.(*fakeConnection)
			if c.fdErr != nil {
				return nil, c.fdErr
			}
			return c.fd, nil
		},
	}}
	if withClose {
		methods = append(methods, jnitest.Method{
			Name: "close",
			Sig:  "()V",
			Fn: func(this any, _ []any) (any, error) {
				c := this.(*fakeConnection)
				c.mu.Lock()
				c.closes++
				c.mu.Unlock()
				if c.closeErr != nil {
					return nil, c.closeErr
				}
				return nil, nil
			},
		})
	}
	h.vm.DefineClass(connectionClass, methods...)
}

func (h *fakeHost) addDevice(path string, fd int32) *fakeConnection {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &fakeConnection{fd: fd}
	h.devices[path] = c
	return c
}

func (h *fakeHost) openedPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

// checkNoLeaks fails the test if any object reference is outstanding or was
// released twice.
func (h *fakeHost) checkNoLeaks(t *testing.T) {
	t.Helper()
	if n := h.vm.ObjectGlobalRefs(); n != 0 {
		t.Errorf("%d object global references leaked", n)
	}
	if n := h.vm.LocalRefs(); n != 0 {
		t.Errorf("%d local references leaked", n)
	}
	if n := h.vm.InvalidDeletes(); n != 0 {
		t.Errorf("%d invalid reference deletes", n)
	}
	if p := h.vm.Pending(); p != nil {
		t.Errorf("exception left pending: %v", p)
	}
}

type logEntry struct {
	level    LogLevel
	function string
	message  string
}

// logRecorder captures diagnostics.
type logRecorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *logRecorder) callback() LogCallback {
	return func(level LogLevel, function, message string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, logEntry{level, function, message})
	}
}

// find returns the first entry whose message contains substr.
func (r *logRecorder) find(substr string) (logEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if strings.Contains(e.message, substr) {
			return e, true
		}
	}
	return logEntry{}, false
}

func (r *logRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func debugConfig() Config {
	cfg := DefaultConfig()
	cfg.LogLevel = LogDebug
	return cfg
}

// loadBridge loads a ready bridge on h, logging to a new recorder.
func loadBridge(t *testing.T, h *fakeHost) (*Bridge, *logRecorder) {
	t.Helper()
	rec := &logRecorder{}
	b, err := Load(h.vm, WithConfig(debugConfig()), WithLogger(rec.callback()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !b.Ready() {
		t.Fatal("bridge should be ready")
	}
	return b, rec
}
