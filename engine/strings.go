package engine

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
)

// CString allocates a NUL-terminated copy of s in C memory.
// The caller must free it with FreeCString.
func CString(s string) (uintptr, error) {
	p, err := libc.CString(s)
	if err != nil {
		return 0, fmt.Errorf("alloc C string (%d bytes): %w", len(s)+1, err)
	}
	return p, nil
}

// FreeCString releases memory allocated by CString
func FreeCString(tls *libc.TLS, p uintptr) {
	Free(tls, p)
}

// Free releases C memory obtained from Malloc or CopyToC.
// A zero pointer is a no-op.
func Free(tls *libc.TLS, p uintptr) {
	if p != 0 {
		libc.Xfree(tls, p)
	}
}

// GoString copies a NUL-terminated C string into a Go string.
// A zero pointer yields the empty string.
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	return libc.GoString(p)
}

// GoStringN copies exactly n bytes at p into a Go string
func GoStringN(p uintptr, n int) string {
	if p == 0 || n <= 0 {
		return ""
	}
	return string(libc.GoBytes(p, n))
}

// GoBytes copies n bytes at p into a fresh Go slice
func GoBytes(p uintptr, n int) []byte {
	if p == 0 || n <= 0 {
		return nil
	}
	b := make([]byte, n)
	copy(b, libc.GoBytes(p, n))
	return b
}

// Malloc allocates n bytes of C memory. Release with Free.
func Malloc(tls *libc.TLS, n int) (uintptr, error) {
	if n <= 0 {
		return 0, fmt.Errorf("malloc: invalid size %d", n)
	}
	p := libc.Xmalloc(tls, types.Size_t(n))
	if p == 0 {
		return 0, fmt.Errorf("malloc: out of memory allocating %d bytes", n)
	}
	return p, nil
}

// CopyToC copies a Go byte slice into freshly allocated C memory
func CopyToC(tls *libc.TLS, b []byte) (uintptr, error) {
	p, err := Malloc(tls, len(b))
	if err != nil {
		return 0, err
	}
	copy((*libc.RawMem)(unsafe.Pointer(p))[:len(b):len(b)], b)
	return p, nil
}
