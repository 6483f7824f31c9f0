package droidusb

import (
	"github.com/obinnaokechukwu/droidusb/jni"
)

// checkException clears a pending Java exception, if any, and logs its
// description attributed to function. It must run right after every JNI
// call that can throw. On return no exception is pending.
func (b *Bridge) checkException(env jni.Env, function string) (description string, thrown bool) {
	exc := env.ExceptionOccurred()
	if exc == 0 {
		return "", false
	}
	env.ExceptionClear()
	defer env.DeleteLocalRef(exc)

	str := env.CallObjectMethod(exc, b.sym.describe)
	switch {
	case env.ExceptionCheck():
		env.ExceptionClear()
		b.logf(LogError, function, "a Java exception occurred, but toString() failed")
	default:
		if str != 0 {
			description = env.GetStringUTF(str)
			env.DeleteLocalRef(str)
		}
		if description == "" {
			b.logf(LogError, function, "a Java exception occurred, but its description is empty")
		} else {
			b.logf(LogError, function, "a Java exception occurred: %s", description)
		}
	}
	return description, true
}
