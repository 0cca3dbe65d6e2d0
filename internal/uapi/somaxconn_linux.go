//go:build linux

package uapi

import "os"

// somaxconn reads /proc/sys/net/core/somaxconn, the Linux source of
// truth for the maximum listen backlog.
func somaxconn() int {
	data, err := os.ReadFile("/proc/sys/net/core/somaxconn")
	if err != nil {
		return 0
	}
	n := 0
	for _, c := range data {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
