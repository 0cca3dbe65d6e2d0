//go:build !linux

package uapi

// somaxconn has no portable probe outside Linux's /proc interface;
// ListenTCP falls back to constants.DefaultBacklog.
func somaxconn() int {
	return 0
}
