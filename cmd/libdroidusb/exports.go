//go:build !windows && (amd64 || arm64)

// exports.go provides the C API of libdroidusb.
// Build with: go build -buildmode=c-shared -o libdroidusb.so .
//
// The library is loaded into a Java VM with System.loadLibrary, which runs
// JNI_OnLoad. Native code then opens devices with droidusb_open and closes
// them with droidusb_close.
package main

/*
#include <stdint.h>
#include <stdlib.h>

// Log callback: level uses libusb's numbering (1 error .. 4 debug).
typedef void (*droidusb_log_cb)(int level, const char *function, const char *message);

static inline void callLogCallback(droidusb_log_cb cb, int level,
                                   const char *function, const char *message) {
    cb(level, function, message);
}
*/
import "C"

import (
	"unsafe"

	"github.com/obinnaokechukwu/droidusb"
	"github.com/obinnaokechukwu/droidusb/jni"
)

// cLogSink returns a log sink calling cb.
func cLogSink(cb C.droidusb_log_cb) droidusb.LogCallback {
	return func(level droidusb.LogLevel, function, message string) {
		cFunction := C.CString(function)
		defer C.free(unsafe.Pointer(cFunction))
		cMessage := C.CString(message)
		defer C.free(unsafe.Pointer(cMessage))
		C.callLogCallback(cb, C.int(level), cFunction, cMessage)
	}
}

//export JNI_OnLoad
func JNI_OnLoad(vm unsafe.Pointer, reserved unsafe.Pointer) C.int32_t {
	jvm, err := jni.WrapVM(uintptr(vm))
	if err != nil {
		relay.log(droidusb.LogError, "JNI_OnLoad", err.Error())
		return C.int32_t(jni.Err)
	}
	if err := load(jvm, relay.log); err != nil {
		// An unusable bridge still loads; every open reports it.
		relay.log(droidusb.LogWarning, "JNI_OnLoad", err.Error())
	}
	return C.int32_t(jni.Version1_6)
}

//export JNI_OnUnload
func JNI_OnUnload(vm unsafe.Pointer, reserved unsafe.Pointer) {
	unload()
}

// droidusb_open opens the device at path. On success it returns the file
// descriptor and stores a handle for droidusb_close in *handle; on failure
// it returns -1 and stores 0.
//
//export droidusb_open
func droidusb_open(path *C.char, handle *C.uintptr_t) C.int {
	if path == nil || handle == nil {
		return C.int(droidusb.InvalidFD)
	}
	fd, id := openDevice(C.GoString(path))
	*handle = C.uintptr_t(id)
	return C.int(fd)
}

// droidusb_close closes a device opened with droidusb_open. Unknown
// handles are ignored.
//
//export droidusb_close
func droidusb_close(handle C.uintptr_t) {
	closeDevice(uintptr(handle))
}

// droidusb_set_log_callback installs the log callback. Messages logged
// before the first call, such as those from JNI_OnLoad, are replayed to
// it. NULL disables logging.
//
//export droidusb_set_log_callback
func droidusb_set_log_callback(cb C.droidusb_log_cb) {
	if cb == nil {
		relay.setSink(nil)
		return
	}
	relay.setSink(cLogSink(cb))
}

func main() {}
