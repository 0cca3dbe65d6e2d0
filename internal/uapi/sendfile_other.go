//go:build !linux

package uapi

import "syscall"

// SendfileSupported is false outside Linux; callers must use the
// portable pread-then-write loop unconditionally (§4.B Open Question 3).
const SendfileSupported = false

// Sendfile is unavailable; the file-backed write strategy never calls it
// when SendfileSupported is false.
func Sendfile(dst, src int, offset *int64, count int) (int, error) {
	return 0, syscall.ENOSYS
}
