package packet

import (
	"syscall"

	"github.com/kflux-io/sockbuf/internal/constants"
	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// kind tags which of the three variants a Packet currently holds. A
// kind enum plus a switch in Write/release is the idiomatic Go
// rendering of the polymorphism sock.c's packet metadata
// (write_func/free_func pointers) provides via function pointers.
type kind int

const (
	kindInline kind = iota
	kindExternal
	kindFile
)

// Packet is a node in a per-fd, singly linked, null-terminated queue. A
// packet is owned by exactly one queue at a time, by the pool's free
// list, or transiently by the caller between Grab and enqueue.
type Packet struct {
	next *Packet

	kind   kind
	Length int // logical bytes remaining to emit for this packet

	// inline memory variant
	inlineBuf [constants.PacketSize]byte

	// external (moved) memory variant
	extOrigin  []byte
	extCursor  int // offset into extOrigin where this packet's data starts
	extDealloc func([]byte)

	// file-backed variant
	fileFD      int
	fileOffset  int64
	fileScratch [constants.FileReadSize]byte
	fileClose   func() error
}

// Next returns the next packet in the queue, or nil at the tail.
func (p *Packet) Next() *Packet { return p.next }

// SetNext links p to the next packet in the queue.
func (p *Packet) SetNext(n *Packet) { p.next = n }

// reset clears a packet's metadata back to the zero state Grab promises.
func (p *Packet) reset() {
	p.next = nil
	p.kind = kindInline
	p.Length = 0
	p.extOrigin = nil
	p.extCursor = 0
	p.extDealloc = nil
	p.fileFD = 0
	p.fileOffset = 0
	p.fileClose = nil
}

// release disposes of any payload this packet owns. Called by Pool.Free
// before the packet metadata is reset, mirroring sock_packet_clear
// invoking free_func before resetting metadata.
func (p *Packet) release() {
	switch p.kind {
	case kindExternal:
		if p.extDealloc != nil {
			p.extDealloc(p.extOrigin)
		}
	case kindFile:
		if p.fileClose != nil {
			p.fileClose()
		}
	}
}

// FillInline copies payload into the packet's inline buffer. Caller must
// ensure len(payload) <= constants.PacketSize.
func (p *Packet) FillInline(payload []byte) {
	p.kind = kindInline
	p.Length = len(payload)
	copy(p.inlineBuf[:], payload)
}

// FillExternal installs a moved memory buffer. origin is released via
// dealloc exactly once, on packet free, regardless of how emission
// ended. cursor is the offset into origin where this packet's logical
// data begins (§4.G "offset").
func (p *Packet) FillExternal(origin []byte, cursor int, length int, dealloc func([]byte)) {
	p.kind = kindExternal
	p.extOrigin = origin
	p.extCursor = cursor
	p.Length = length
	p.extDealloc = dealloc
}

// FillFile installs a file-backed payload. srcFD is read from via pread
// starting at offset; closeFn (if non-nil) is invoked exactly once on
// packet free, whether or not move semantics were requested by the
// caller.
func (p *Packet) FillFile(srcFD int, offset int64, length int, closeFn func() error) {
	p.kind = kindFile
	p.fileFD = srcFD
	p.fileOffset = offset
	p.Length = length
	p.fileClose = closeFn
}

// BufferCheckout exposes the packet's inline buffer for the zero-copy
// checkout/fill/submit path (component H's buffer_checkout). Valid only
// before the packet is enqueued.
func (p *Packet) BufferCheckout() []byte {
	p.kind = kindInline
	return p.inlineBuf[:]
}

// BufferCommit finalizes the length of a checked-out inline buffer after
// the caller has filled it directly.
func (p *Packet) BufferCommit(n int) {
	p.Length = n
}

// Write drains one step of this packet through hooks, per §4.B's
// write_fn contract translated to Go idiom: (n, nil) with n>0 means
// bytes were emitted (packet may or may not be complete yet); (0, nil)
// means transient — try again later; a non-nil, non-transient err is
// fatal and the caller must close the fd. sent is how many bytes of
// Length have already been emitted for this packet (tracked by the
// caller, the fd record, across repeated calls).
func (p *Packet) Write(uuid int64, hooks interfaces.Hooks, sent int) (int, error) {
	switch p.kind {
	case kindInline:
		return hooks.Write(uuid, p.inlineBuf[sent:p.Length])
	case kindExternal:
		start := p.extCursor + sent
		return hooks.Write(uuid, p.extOrigin[start:p.extCursor+p.Length])
	case kindFile:
		return p.writeFile(uuid, hooks, sent)
	default:
		return 0, syscall.EINVAL
	}
}

// UseSendfile gates the fast path; set from Config.UseSendfile by the
// root package's New (default true, and only ever effective when
// uapi.SendfileSupported is also true).
var UseSendfile = uapi.SendfileSupported

// writeFile dispatches to the kernel-resident sendfile fast path when
// the active hook is the default (RawFD set) and the platform supports
// it, otherwise to the portable pread-then-write loop unconditionally
// (§4.B, Open Question 3). A custom transport leaves RawFD nil, which
// disables the fast path for that fd regardless of UseSendfile.
func (p *Packet) writeFile(uuid int64, hooks interfaces.Hooks, sent int) (int, error) {
	if UseSendfile && uapi.SendfileSupported && hooks.RawFD != nil {
		if dstFD, ok := hooks.RawFD(uuid); ok {
			return p.sendfileWrite(dstFD, sent)
		}
	}
	return p.portableWriteFile(uuid, hooks, sent)
}

// sendfileWrite copies bytes directly from the source fd into dstFD via
// the kernel, without passing through userspace. A short source file
// (EOF before Length bytes are available) is treated as completion.
func (p *Packet) sendfileWrite(dstFD, sent int) (int, error) {
	remaining := p.Length - sent
	if remaining <= 0 {
		return 0, nil
	}
	off := p.fileOffset + int64(sent)
	n, err := uapi.Sendfile(dstFD, p.fileFD, &off, remaining)
	if err != nil {
		if isTransient(err) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return remaining, nil
	}
	return n, nil
}

// portableWriteFile implements the portable read-then-write loop of
// §4.B: pread up to FileReadSize bytes from the source at offset+sent,
// then write the bytes just read. EOF on the source before Length is
// satisfied is treated as completion (a short file), matching the
// spec's "short file" rule.
func (p *Packet) portableWriteFile(uuid int64, hooks interfaces.Hooks, sent int) (int, error) {
	remaining := p.Length - sent
	if remaining <= 0 {
		return 0, nil
	}
	chunkLen := remaining
	if chunkLen > len(p.fileScratch) {
		chunkLen = len(p.fileScratch)
	}
	rn, err := uapi.Pread(p.fileFD, p.fileScratch[:chunkLen], p.fileOffset+int64(sent))
	if err != nil {
		if isTransient(err) {
			return 0, nil
		}
		return 0, err
	}
	if rn == 0 {
		// EOF before Length bytes were available: short file, treat the
		// remainder as already "emitted" so the caller rotates the packet.
		return remaining, nil
	}
	wn, err := hooks.Write(uuid, p.fileScratch[:rn])
	if err != nil {
		return wn, err
	}
	return wn, nil
}

func isTransient(err error) bool {
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false
	}
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK || errno == syscall.EINTR
}
