//go:build linux

package uapi

import "golang.org/x/sys/unix"

// SendfileSupported reports whether the sendfile fast path (§4.B) is
// available on this platform.
const SendfileSupported = true

// Sendfile copies up to count bytes from src at *offset directly into
// dst (a connected socket) using the kernel-resident copy, advancing
// *offset by the number of bytes copied.
func Sendfile(dst, src int, offset *int64, count int) (int, error) {
	return unix.Sendfile(dst, src, offset, count)
}
