package droidusb

import (
	"errors"
	"sync/atomic"

	"github.com/obinnaokechukwu/droidusb/jni"
)

// ErrAlreadyLoaded is returned by OnLoad when the default bridge exists.
var ErrAlreadyLoaded = errors.New("droidusb: already loaded into a Java VM")

var defaultBridge atomic.Pointer[Bridge]

// OnLoad creates the process-wide default bridge. It is meant to be called
// once, from JNI_OnLoad. If symbols are missing the default bridge is still
// installed, in its unusable state, so that OnUnload can release what was
// resolved.
func OnLoad(vm jni.VM, opts ...Option) error {
	if defaultBridge.Load() != nil {
		return ErrAlreadyLoaded
	}
	b, err := Load(vm, opts...)
	if b == nil {
		return err
	}
	if !defaultBridge.CompareAndSwap(nil, b) {
		b.Unload()
		return ErrAlreadyLoaded
	}
	return err
}

// OnUnload tears down the default bridge. Safe to call without OnLoad.
func OnUnload() {
	if b := defaultBridge.Swap(nil); b != nil {
		b.Unload()
	}
}

// Default returns the default bridge, or nil before OnLoad.
func Default() *Bridge {
	return defaultBridge.Load()
}

// Open opens path through the default bridge.
func Open(path string) (int, *Connection, error) {
	return Default().Open(path)
}
