//go:build !windows && (amd64 || arm64)

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/obinnaokechukwu/droidusb"
	"github.com/obinnaokechukwu/droidusb/jni/jnitest"
)

type device struct {
	fd     int32
	closes int
}

func loadBridge(t *testing.T, devices map[string]*device) (*droidusb.Bridge, *jnitest.VM) {
	t.Helper()
	vm := jnitest.NewVM()
	vm.DefineClass("android/hardware/usb/UsbDeviceConnection",
		jnitest.Method{Name: "getFileDescriptor", Sig: "()I", Fn: func(this any, _ []any) (any, error) {
			return this.(*device).fd, nil
		}},
		jnitest.Method{Name: "close", Sig: "()V", Fn: func(this any, _ []any) (any, error) {
			this.(*device).closes++
			return nil, nil
		}},
	)
	vm.DefineClass("org/libusb/UsbHelper", jnitest.Method{
		Name:   "openDevice",
		Sig:    "(Ljava/lang/String;)Landroid/hardware/usb/UsbDeviceConnection;",
		Static: true,
		Fn: func(_ any, args []any) (any, error) {
			if d, ok := devices[args[0].(string)]; ok {
				return d, nil
			}
			return nil, nil
		},
	})
	b, err := droidusb.Load(vm)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(b.Unload)
	return b, vm
}

func TestOpenOneClosesOnce(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	dev := &device{fd: int32(r.Fd())}
	b, vm := loadBridge(t, map[string]*device{"/dev/bus/usb/001/002": dev})

	var out bytes.Buffer
	if err := openOne(&out, b, "/dev/bus/usb/001/002"); err != nil {
		t.Fatalf("openOne: %v", err)
	}
	if !strings.HasPrefix(out.String(), "/dev/bus/usb/001/002\tfd=") {
		t.Errorf("output = %q", out.String())
	}
	if dev.closes != 1 {
		t.Errorf("close() called %d times, want 1", dev.closes)
	}
	if vm.ObjectGlobalRefs() != 0 || vm.InvalidDeletes() != 0 {
		t.Error("connection reference not released exactly once")
	}
}

func TestOpenOneFstatFailureCloses(t *testing.T) {
	// Far above any descriptor the test process has open.
	dev := &device{fd: 1 << 20}
	b, vm := loadBridge(t, map[string]*device{"/dev/bus/usb/001/003": dev})

	var out bytes.Buffer
	err := openOne(&out, b, "/dev/bus/usb/001/003")
	if err == nil || !strings.Contains(err.Error(), "fstat") {
		t.Fatalf("openOne = %v, want fstat error", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
	if dev.closes != 1 || vm.ObjectGlobalRefs() != 0 {
		t.Error("the connection should be closed after a failed fstat")
	}
}

func TestOpenOneDenied(t *testing.T) {
	b, _ := loadBridge(t, nil)
	if err := openOne(&bytes.Buffer{}, b, "/no/such/device"); !droidusb.IsDenied(err) {
		t.Errorf("openOne = %v, want ErrDenied", err)
	}
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		in   droidusb.LogLevel
		want zapcore.Level
	}{
		{droidusb.LogNone, zapcore.ErrorLevel},
		{droidusb.LogError, zapcore.ErrorLevel},
		{droidusb.LogWarning, zapcore.WarnLevel},
		{droidusb.LogInfo, zapcore.InfoLevel},
		{droidusb.LogDebug, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := zapLevel(tt.in); got != tt.want {
			t.Errorf("zapLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
