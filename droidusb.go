// Package droidusb opens USB devices on Android through the Java side of
// the application.
//
// An unprivileged Android app cannot open /dev/bus/usb nodes itself; it has
// to ask android.hardware.usb.UsbManager, which hands back a
// UsbDeviceConnection owning the descriptor. A Bridge calls a Java helper
// (org.libusb.UsbHelper.openDevice by default) over JNI and returns the
// descriptor together with a Connection that keeps the Java object alive
// until Close.
//
// A Bridge is created once per process from the JavaVM, usually from
// JNI_OnLoad (see OnLoad), and may be used from any goroutine: each call
// attaches its OS thread to the VM for the duration of the call if needed.
// Java exceptions never escape; they are logged through the LogCallback and
// reported as *Error values.
package droidusb

import (
	"strings"
	"sync/atomic"

	"github.com/obinnaokechukwu/droidusb/jni"
)

// InvalidFD is the descriptor returned by every failed Open.
const InvalidFD = -1

const (
	stateUnready int32 = iota
	stateReady
	stateUnloaded
)

// Bridge is the process-wide link to the Java VM: the VM itself plus the
// classes and method IDs resolved at load. It is immutable after Load until
// Unload.
type Bridge struct {
	vm    jni.VM
	cfg   Config
	log   LogCallback
	state atomic.Int32

	sym     symbolTable
	missing []string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithConfig sets the classes, methods and log level the bridge uses.
func WithConfig(cfg Config) Option {
	return func(b *Bridge) {
		b.cfg = cfg
	}
}

// WithLogger sets the diagnostic sink. Pass nil to discard diagnostics.
func WithLogger(cb LogCallback) Option {
	return func(b *Bridge) {
		if cb == nil {
			cb = discardLog
		}
		b.log = cb
	}
}

// Load resolves the Java classes and methods the bridge needs.
//
// The returned Bridge is never nil when vm is non-nil. An invalid
// configuration is rejected before the VM is touched. If some symbols
// cannot be resolved the bridge is unusable: every operation fails with
// ErrUnavailable and Load returns an *Error listing what is missing. If
// java.lang.Throwable or its toString() cannot be resolved the VM is told
// to abort the process, since no failure could be reported without them.
func Load(vm jni.VM, opts ...Option) (*Bridge, error) {
	if vm == nil {
		return nil, &Error{Kind: KindUnavailable, Op: "load", Description: "nil Java VM"}
	}

	b := &Bridge{vm: vm, cfg: DefaultConfig(), log: discardLog}
	for _, opt := range opts {
		opt(b)
	}
	b.cfg.normalize()
	if err := b.cfg.Validate(); err != nil {
		b.logf(LogError, "Load", "%v", err)
		return b, &Error{Kind: KindUnavailable, Op: "load", Description: "invalid config", Err: err}
	}

	b.logf(LogDebug, "Load", "loaded into JVM")

	a, err := b.attach("load", "")
	if err != nil {
		return b, err
	}
	defer a.release()

	b.missing = b.resolveSymbols(a.env)
	if len(b.missing) > 0 {
		b.logf(LogWarning, "Load", "Java bridge disabled, missing: %s", strings.Join(b.missing, ", "))
		return b, &Error{
			Kind:        KindUnavailable,
			Op:          "load",
			Description: "missing " + strings.Join(b.missing, ", "),
		}
	}

	b.logf(LogDebug, "Load", "found all Java classes and IDs")
	b.state.Store(stateReady)
	return b, nil
}

// Ready reports whether the bridge can open devices.
func (b *Bridge) Ready() bool {
	return b != nil && b.state.Load() == stateReady
}

// Missing returns the classes and methods that could not be resolved.
func (b *Bridge) Missing() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.missing...)
}

// Config returns the configuration the bridge was loaded with.
func (b *Bridge) Config() Config {
	return b.cfg
}

// Unload releases the class references held by the bridge. Operations
// started afterwards fail with ErrUnavailable, and closing a connection
// becomes a no-op. It is safe to call on a bridge whose Load failed part
// way, and to call more than once.
func (b *Bridge) Unload() {
	if b == nil {
		return
	}
	b.state.Store(stateUnloaded)

	if !b.sym.holdsRefs() {
		b.logf(LogDebug, "Unload", "unloaded from JVM")
		return
	}

	a, err := b.attach("unload", "")
	if err != nil {
		b.logf(LogWarning, "Unload", "cannot release class references: %v", err)
		return
	}
	defer a.release()

	b.sym.release(a.env)
	b.logf(LogDebug, "Unload", "unloaded from JVM")
}

// unloaded reports whether there is no longer a VM to release against.
func (b *Bridge) unloaded() bool {
	return b == nil || b.vm == nil || b.state.Load() == stateUnloaded
}
