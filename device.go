package droidusb

import (
	"strings"
	"sync/atomic"

	"github.com/obinnaokechukwu/droidusb/jni"
)

// Connection is an open device: the descriptor plus the Java connection
// object that owns it. The descriptor stays valid until Close.
//
// A Connection is owned by the caller that received it from Open. Close
// must not race with other uses of the same Connection.
type Connection struct {
	bridge *Bridge
	ref    jni.Object // global reference to the Java connection
	fd     int
	path   string
	closed atomic.Bool
}

// FD returns the file descriptor, or InvalidFD once closed.
func (c *Connection) FD() int {
	if c == nil || c.closed.Load() {
		return InvalidFD
	}
	return c.fd
}

// Path returns the device path the connection was opened with.
func (c *Connection) Path() string {
	return c.path
}

// Closed reports whether Close has completed.
func (c *Connection) Closed() bool {
	return c == nil || c.closed.Load()
}

// release deletes the global reference. Safe to call twice.
func (c *Connection) release(env jni.Env) {
	ref := c.ref
	if ref == 0 {
		return
	}
	c.ref = 0
	env.DeleteGlobalRef(ref)
}

// closeRemote calls close() on the Java connection. A thrown exception is
// logged and otherwise ignored.
func (c *Connection) closeRemote(env jni.Env, function string) {
	env.CallVoidMethod(c.ref, c.bridge.sym.close)
	c.bridge.checkException(env, function)
}

func (b *Bridge) remoteFailure(op, path, desc string) error {
	return &Error{Kind: KindRemoteFailure, Op: op, Path: path, Description: desc}
}

// Open asks the Java side to open the device at path and returns its file
// descriptor and the connection owning it.
//
// On failure fd is InvalidFD, conn is nil and err is an *Error of kind
// KindUnavailable, KindAttachFailure, KindRemoteFailure or KindDenied. A
// path containing a NUL byte is denied without calling into the VM.
func (b *Bridge) Open(path string) (fd int, conn *Connection, err error) {
	const op = "open"

	if !b.Ready() {
		return InvalidFD, nil, &Error{Kind: KindUnavailable, Op: op, Path: path}
	}
	// The VM reads the path as a C string and would stop at the first NUL,
	// opening a different device than the one named.
	if strings.IndexByte(path, 0) >= 0 {
		b.logf(LogError, "Open", "device path %q contains a NUL byte", path)
		return InvalidFD, nil, &Error{Kind: KindDenied, Op: op, Path: path, Description: "path contains a NUL byte"}
	}

	a, err := b.attach(op, path)
	if err != nil {
		return InvalidFD, nil, err
	}
	defer a.release()
	env := a.env

	jpath := env.NewStringUTF(path)
	if jpath == 0 {
		desc, _ := b.checkException(env, "Open")
		return InvalidFD, nil, b.remoteFailure(op, path, desc)
	}
	defer env.DeleteLocalRef(jpath)

	local := env.CallStaticObjectMethod(b.sym.opener, b.sym.open, jni.ObjectValue(jpath))
	if desc, thrown := b.checkException(env, "Open"); thrown {
		return InvalidFD, nil, b.remoteFailure(op, path, desc)
	}
	if local == 0 {
		b.logf(LogError, "Open", "device open refused: %s", path)
		return InvalidFD, nil, &Error{Kind: KindDenied, Op: op, Path: path}
	}

	// The local reference dies with this call; keep a global one.
	global := env.NewGlobalRef(local)
	env.DeleteLocalRef(local)
	if global == 0 {
		desc, _ := b.checkException(env, "Open")
		return InvalidFD, nil, b.remoteFailure(op, path, desc)
	}

	owned := &Connection{bridge: b, ref: global, fd: InvalidFD, path: path}
	defer func() {
		if err != nil {
			owned.release(env)
		}
	}()

	n := env.CallIntMethod(owned.ref, b.sym.fileDescriptor)
	if desc, thrown := b.checkException(env, "Open"); thrown {
		return InvalidFD, nil, b.remoteFailure(op, path, desc)
	}
	if n < 0 {
		b.logf(LogError, "Open", "connection for %s has no file descriptor (%d)", path, n)
		owned.closeRemote(env, "Open")
		return InvalidFD, nil, b.remoteFailure(op, path, "invalid file descriptor")
	}

	owned.fd = int(n)
	return owned.fd, owned, nil
}

// Close closes the Java connection and releases it. A Java exception from
// close() is logged but does not stop the release. Closing twice returns
// ErrClosed; closing after the bridge was unloaded only marks the
// connection closed.
func (c *Connection) Close() error {
	const op = "close"

	if c == nil || c.closed.Load() {
		return ErrClosed
	}
	b := c.bridge
	if b.unloaded() {
		c.closed.Store(true)
		return nil
	}

	a, err := b.attach(op, c.path)
	if err != nil {
		return err
	}
	defer a.release()

	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.closeRemote(a.env, "Close")
	c.release(a.env)
	return nil
}
