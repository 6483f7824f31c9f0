package jni

import "unsafe"

// maxCStringLen bounds the scan for a terminating NUL in memory owned by the
// VM.
const maxCStringLen = 1 << 20

// cString returns s as a NUL-terminated byte buffer. Interior NULs are kept;
// the VM will read up to the first one.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// goString copies a NUL-terminated string out of memory at p.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for n < maxCStringLen && *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
