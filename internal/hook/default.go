// Package hook provides the default RW hook vtable (component F),
// wrapping the raw OS calls in internal/uapi. A caller may install any
// other interfaces.Hooks value (TLS, a test double, ...) via the public
// package's HookSet; HookSet fills any nil Read, Write, Flush or OnClear
// field on the replacement with Default's corresponding function first,
// so a transport only needs to populate the fields it actually
// intercepts. RawFD is not filled in this way.
package hook

import (
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// Default returns the hook set plain sockets use: Flush is a no-op
// (plain sockets have no internal buffering to drain), OnClear does
// nothing, and RawFD is populated so the packet package's sendfile fast
// path may target the fd directly, per §4.E.
func Default() interfaces.Hooks {
	return interfaces.Hooks{
		Read:    read,
		Write:   write,
		Flush:   flush,
		OnClear: onClear,
		RawFD:   rawFD,
	}
}

func read(uuid int64, buf []byte) (int, error) {
	return uapi.Read(int(fdtable.UUID(uuid).FD()), buf)
}

func write(uuid int64, buf []byte) (int, error) {
	return uapi.Write(int(fdtable.UUID(uuid).FD()), buf)
}

func flush(uuid int64) (int, error) {
	return 0, nil
}

func onClear(uuid int64) {}

// rawFD exposes the raw socket fd a Write ultimately targets, so the
// packet package's sendfile fast path (§4.B, default-hook only) knows
// it is safe to bypass Write and hand the kernel the fd directly.
func rawFD(uuid int64) (int, bool) {
	return int(fdtable.UUID(uuid).FD()), true
}
