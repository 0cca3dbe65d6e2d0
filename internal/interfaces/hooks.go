// Package interfaces provides internal interface definitions for sockbuf.
// These are separate from the root package's types to avoid circular
// imports between the root package and the internal packages it wires
// together (fdtable, packet, flush, hook).
package interfaces

import "io"

// Hooks is the per-connection read/write/flush/on_clear vtable (component
// F), modeled as a small function-pointer table rather than a Go
// interface: §9 allows either rendering, and a function-pointer table
// lets HookSet fill any unset field with the default implementation's
// corresponding function before installing a caller's transport,
// exactly as §4.E's hook_set describes ("fills any null method with the
// default before installing").
//
// Read and Write follow the same contract as OS read(2)/write(2): n>0
// means bytes moved, n==0 with err==nil means EOF (read) or no-op
// (write), and a non-nil err is fatal unless it is a transient errno
// (EAGAIN/EWOULDBLOCK/EINTR/ENOTCONN).
type Hooks struct {
	Read  func(uuid int64, buf []byte) (int, error)
	Write func(uuid int64, buf []byte) (int, error)

	// Flush lets a buffering transport (e.g. TLS) drain its own internal
	// state. It returns (>0, nil) if it wants to be called again, (0,
	// nil) once internally drained, or a transient/fatal error.
	Flush func(uuid int64) (int, error)

	// OnClear is invoked after a record has been torn down; the
	// transport owns any cleanup of its own per-connection state.
	OnClear func(uuid int64)

	// RawFD is set only by the package default: it exposes the raw
	// socket fd a Write ultimately targets, so the packet package's
	// sendfile fast path (§4.B, default-hook only) knows it is safe to
	// bypass Write and hand the kernel the fd directly. A custom
	// transport leaves this nil, which disables the fast path for that
	// fd.
	RawFD func(uuid int64) (int, bool)
}

// Fill returns a copy of h with every nil Read, Write, Flush and OnClear
// field replaced by d's corresponding field. RawFD is left as h has it,
// so a transport that leaves it nil does not take on d's sendfile fast
// path.
func (h Hooks) Fill(d Hooks) Hooks {
	if h.Read == nil {
		h.Read = d.Read
	}
	if h.Write == nil {
		h.Write = d.Write
	}
	if h.Flush == nil {
		h.Flush = d.Flush
	}
	if h.OnClear == nil {
		h.OnClear = d.OnClear
	}
	return h
}

// Logger is the minimal logging seam internal packages depend on, so
// they never need to import internal/logging directly (or the root
// package, which would cycle).
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer is the metrics collection seam (component H's counterpart in
// the ambient stack). Implementations must be safe for concurrent use:
// methods may be called from any fd's flush path.
type Observer interface {
	ObserveEnqueue(bytes int, urgent bool)
	ObserveFlush(bytes int, latencyNs uint64, err error)
	ObserveClose(forced bool)
	ObservePoolWait()
}

// EOF is returned by a Hooks.Read implementation when the peer has
// closed the connection for reading cleanly; the public Read wrapper
// translates this (like a (0, nil) return) into the fatal/ECONNRESET
// case per §7.
var EOF = io.EOF
