package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/constants"
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

func closeRawFD(fd int) error { return uapi.Close(fd) }

// WriteOptions is the single enqueue entry point's option set (§4.G).
type WriteOptions struct {
	// UUID is the target connection handle.
	UUID int64

	// Buffer holds the memory payload (Offset/IsFD unset), or, when IsFD
	// is true, is ignored in favor of FD.
	Buffer []byte

	// FD is the source file descriptor for a file-backed enqueue
	// (IsFD=true). Offset is where to start reading.
	FD int

	// Offset is the starting offset: into Buffer for a Move enqueue, or
	// into FD for a file-backed one. Negative is a range error.
	Offset int

	// Length is the number of logical bytes to emit. For a memory
	// enqueue this defaults to len(Buffer)-Offset if zero.
	Length int

	// Dealloc, if set, releases Buffer (or closes FD, for a file-backed
	// move) exactly once when the packet is freed. Defaults to closing
	// FD for an IsFD move, and to nothing otherwise; an IsFD enqueue
	// without Move never closes FD.
	Dealloc func([]byte)

	// IsFD marks a file-backed enqueue: Buffer is ignored, FD and
	// Offset are used instead.
	IsFD bool

	// Move transfers ownership of Buffer (or, with IsFD, of FD) to the
	// packet rather than copying it.
	Move bool

	// Urgent inserts at the head of the queue instead of the tail,
	// splicing in after a half-sent head instead of before it (§4.G).
	Urgent bool
}

// Write2 is the single enqueue entry point (§4.G). It returns nil on
// success (the packet has been queued and a synchronous flush attempted)
// or a *Error with CodeBadDescriptor / CodeRange on a validation
// failure. A Move payload (memory or, with IsFD, a file descriptor) is
// disposed via Dealloc on every failure path, including the
// negative-offset check, so the caller never reclaims a moved payload.
// An IsFD enqueue without Move leaves the fd with the caller.
func (m *Manager) Write2(opts WriteOptions) error {
	if opts.Offset < 0 {
		m.disposeFailed(opts)
		return NewUUIDError("write2", opts.UUID, CodeRange, "negative offset")
	}
	rec, ok := m.table.Validate(fdtable.UUID(opts.UUID))
	if !ok || !rec.IsOpen() {
		m.disposeFailed(opts)
		return NewUUIDError("write2", opts.UUID, CodeBadDescriptor, "invalid handle")
	}

	pkt := m.pool.Grab()
	if err := m.fillPacket(pkt, opts); err != nil {
		m.pool.Free(pkt)
		m.disposeFailed(opts)
		return err
	}

	if !rec.Enqueue(pkt, opts.Urgent) {
		m.pool.Free(pkt)
		return NewUUIDError("write2", opts.UUID, CodeBadDescriptor, "record closed during enqueue")
	}
	if m.obs != nil {
		m.obs.ObserveEnqueue(pkt.Length, opts.Urgent)
	}

	m.engine.Flush(fdtable.UUID(opts.UUID))
	m.Touch(opts.UUID)
	return nil
}

// fillPacket installs opts' payload into pkt per §4.G's four paths:
// copy, copy-then-move, move, and file-backed.
func (m *Manager) fillPacket(pkt interface {
	FillInline([]byte)
	FillExternal([]byte, int, int, func([]byte))
	FillFile(int, int64, int, func() error)
}, opts WriteOptions) error {
	if opts.IsFD {
		var closeFn func() error
		switch {
		case !opts.Move:
			// Caller retains ownership of the source fd.
			closeFn = nil
		case opts.Dealloc != nil:
			dealloc := opts.Dealloc
			closeFn = func() error { dealloc(nil); return nil }
		default:
			closeFn = func() error { return closeRawFD(opts.FD) }
		}
		pkt.FillFile(opts.FD, int64(opts.Offset), opts.Length, closeFn)
		return nil
	}

	length := opts.Length
	if length == 0 {
		length = len(opts.Buffer) - opts.Offset
	}
	if length < 0 || opts.Offset > len(opts.Buffer) {
		return NewUUIDError("write2", opts.UUID, CodeRange, "offset beyond buffer")
	}

	if !opts.Move {
		if length <= constants.PacketSize {
			pkt.FillInline(opts.Buffer[opts.Offset : opts.Offset+length])
			return nil
		}
		heapCopy := make([]byte, length)
		copy(heapCopy, opts.Buffer[opts.Offset:opts.Offset+length])
		pkt.FillExternal(heapCopy, 0, length, func(b []byte) {})
		return nil
	}

	dealloc := opts.Dealloc
	if dealloc == nil {
		dealloc = func([]byte) {}
	}
	pkt.FillExternal(opts.Buffer, opts.Offset, length, dealloc)
	return nil
}

// disposeFailed releases a moved or fd-owned payload on a path that
// never reached the pool, so the caller-supplied dealloc still fires
// exactly once per §4.G's ownership-transfer rule.
func (m *Manager) disposeFailed(opts WriteOptions) {
	if opts.IsFD {
		if !opts.Move {
			return
		}
		if opts.Dealloc != nil {
			opts.Dealloc(nil)
		} else {
			closeRawFD(opts.FD)
		}
		return
	}
	if opts.Move && opts.Dealloc != nil {
		opts.Dealloc(opts.Buffer)
	}
}
