// Package uapi wraps the raw, non-blocking, stream-socket OS surface:
// socket/bind/listen/accept/connect, SO_REUSEADDR, O_NONBLOCK, pread,
// sendfile, and the RLIMIT_NOFILE capacity probe. It sits below the
// core as a thin layer calling directly into golang.org/x/sys/unix and
// syscall, the same shape sock.c's raw fd plumbing takes below
// facil.io's connection layer.
package uapi

import (
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kflux-io/sockbuf/internal/constants"
)

// ListenTCP opens a non-blocking, SO_REUSEADDR listening socket bound to
// addr:port with a backlog of the system max (§4.H listen).
func ListenTCP(addr string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		ips, err := net.LookupIP(addr)
		if err != nil || len(ips) == 0 {
			unix.Close(fd)
			return -1, unix.EINVAL
		}
		ip = ips[0]
	}
	var sa unix.SockaddrInet4
	copy(sa.Addr[:], ip.To4())
	sa.Port = port
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, Backlog()); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := SetNonblock(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// AcceptNonblock accepts one connection from a listening socket and
// marks it non-blocking (§4.H accept).
func AcceptNonblock(listenFD int) (int, error) {
	fd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// ConnectTCP opens a non-blocking socket and starts connecting to
// addr:port. EINPROGRESS is treated as success, per §4.H connect.
func ConnectTCP(addr string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := SetNonblock(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		ips, lerr := net.LookupIP(addr)
		if lerr != nil || len(ips) == 0 {
			unix.Close(fd)
			return -1, unix.EINVAL
		}
		ip = ips[0]
	}
	var sa unix.SockaddrInet4
	copy(sa.Addr[:], ip.To4())
	sa.Port = port
	err = unix.Connect(fd, &sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// LocalPort returns the port a socket fd is bound to, for a caller that
// listened on port 0 and needs to learn the kernel-assigned ephemeral
// port before handing it to a peer.
func LocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, unix.EINVAL
	}
	return sa4.Port, nil
}

// SetNonblock sets O_NONBLOCK on fd.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// ShutdownClose performs shutdown(RDWR) followed by close, as
// force_close requires (§4.H force_close).
func ShutdownClose(fd int) error {
	_ = unix.Shutdown(fd, unix.SHUT_RDWR)
	return unix.Close(fd)
}

// Close closes a plain (non-socket) fd, used to dispose of a
// file-backed enqueue's source descriptor on packet free (§4.G's
// is_fd=1, move=1 path).
func Close(fd int) error {
	return unix.Close(fd)
}

// Read and Write pass straight through to the raw syscalls; the default
// Hooks implementation (internal/hook) calls these directly, and the
// transient/fatal errno translation (§7) happens in the flush engine and
// the public Read.
func Read(fd int, buf []byte) (int, error)  { return unix.Read(fd, buf) }
func Write(fd int, buf []byte) (int, error) { return unix.Write(fd, buf) }

// Pread reads from fd at off without moving the shared file offset, used
// by the portable file-backed write strategy (§4.B).
func Pread(fd int, buf []byte, off int64) (int, error) {
	return unix.Pread(fd, buf, off)
}

var backlogOnce struct {
	sync.Once
	n int
}

// Backlog returns the platform's maximum listen backlog, falling back
// to constants.DefaultBacklog when it cannot be resolved.
func Backlog() int {
	backlogOnce.Do(func() {
		backlogOnce.n = readSomaxconn()
	})
	return backlogOnce.n
}

func readSomaxconn() int {
	n := somaxconn()
	if n <= 0 {
		return constants.DefaultBacklog
	}
	return n
}

var raiseRlimitOnce sync.Once

// RaiseFDLimit raises RLIMIT_NOFILE to its hard limit once per process,
// the same startup-time capacity raise sock.c performs before accepting
// connections.
func RaiseFDLimit() {
	raiseRlimitOnce.Do(func() {
		var rl unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
			return
		}
		rl.Cur = rl.Max
		_ = unix.Setrlimit(unix.RLIMIT_NOFILE, &rl)
	})
}

// MaxCapacity returns the process's current RLIMIT_NOFILE soft limit,
// after RaiseFDLimit has been called.
func MaxCapacity() (uint64, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	return rl.Cur, nil
}
