package droidusb

import (
	"errors"
	"runtime"

	"github.com/obinnaokechukwu/droidusb/jni"
)

// attachment is a JNI environment held for one bridge operation.
// The goroutine stays locked to its OS thread until release, because a
// JNIEnv must only be used on the thread it belongs to.
type attachment struct {
	vm       jni.VM
	env      jni.Env
	attached bool // we attached the thread and must detach it
	released bool
}

// attach returns the calling thread's environment, attaching the thread if
// it is not attached yet. The result must be released.
func (b *Bridge) attach(op, path string) (*attachment, error) {
	runtime.LockOSThread()

	env, err := b.vm.GetEnv(jni.Version1_6)
	if err == nil {
		return &attachment{vm: b.vm, env: env}, nil
	}
	if !errors.Is(err, jni.ErrDetached) {
		runtime.UnlockOSThread()
		return nil, &Error{Kind: KindAttachFailure, Op: op, Path: path, Err: err}
	}

	env, err = b.vm.AttachCurrentThread()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, &Error{Kind: KindAttachFailure, Op: op, Path: path, Err: err}
	}
	return &attachment{vm: b.vm, env: env, attached: true}, nil
}

// release detaches the thread if attach attached it. Safe to call twice.
func (a *attachment) release() {
	if a == nil || a.released {
		return
	}
	a.released = true
	if a.attached {
		a.vm.DetachCurrentThread()
	}
	runtime.UnlockOSThread()
}
