package fdtable

import (
	"sync"

	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/packet"
)

// Record is the per-fd state (component C). Every update that reads
// more than one field holds mu; the one exception, per §4.C, is
// validating a handle's generation byte, which may be read racily
// before the lock is (re)acquired to actually mutate state.
type Record struct {
	mu sync.Mutex

	generation   uint8
	open         bool
	closePending bool
	errorFlag    bool

	sent      int // bytes already emitted from queueHead
	queueHead *packet.Packet
	queueTail *packet.Packet

	hooks        interfaces.Hooks
	defaultHooks interfaces.Hooks
}

// Lock and Unlock expose the record's critical section to the flush
// engine, which must hold it across a hook call (§5's one documented
// exception to "no lock held across a user hook call").
func (r *Record) Lock()   { r.mu.Lock() }
func (r *Record) Unlock() { r.mu.Unlock() }

// Generation returns the current generation byte. Safe to call without
// the lock per §4.C; a concurrent Clear may race this read, but the
// caller re-validates under the lock before mutating anything.
func (r *Record) Generation() uint8 {
	r.mu.Lock()
	g := r.generation
	r.mu.Unlock()
	return g
}

// IsOpen reports whether the record is open (not yet force-closed).
func (r *Record) IsOpen() bool {
	r.mu.Lock()
	o := r.open
	r.mu.Unlock()
	return o
}

// IsOpenLocked is IsOpen for a caller already holding the lock via
// Lock(), e.g. the flush engine driving a hook call across the
// critical section (§5).
func (r *Record) IsOpenLocked() bool { return r.open }

// HasPending reports whether the record is open and its queue is
// non-empty (component H's has_pending).
func (r *Record) HasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open && r.queueHead != nil
}

// Hooks returns the record's currently installed hook vtable.
func (r *Record) Hooks() interfaces.Hooks {
	r.mu.Lock()
	h := r.hooks
	r.mu.Unlock()
	return h
}

// HooksLocked is Hooks for a caller already holding the lock.
func (r *Record) HooksLocked() interfaces.Hooks { return r.hooks }

// SetHooks installs a transport, filling any nil Read/Write/Flush/OnClear
// field with the record's default hook's corresponding function first
// (component F's hook_set never installs a partially-nil vtable). RawFD
// is not filled, so a custom transport without it never uses sendfile.
func (r *Record) SetHooks(h interfaces.Hooks) {
	r.mu.Lock()
	r.hooks = h.Fill(r.defaultHooks)
	r.mu.Unlock()
}

// Enqueue appends pkt to the tail of the queue, or, if urgent is set,
// inserts it at the head — unless the current head has already begun
// emission (r.sent > 0), in which case it is inserted immediately after
// the head instead, so a half-sent packet is never split or interleaved
// (§4.G). Returns false if the record is not open.
func (r *Record) Enqueue(pkt *packet.Packet, urgent bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return false
	}
	if r.queueHead == nil {
		r.queueHead = pkt
		r.queueTail = pkt
		return true
	}
	if urgent {
		if r.sent > 0 {
			// Head is half-sent: splice pkt in right after it.
			pkt.SetNext(r.queueHead.Next())
			r.queueHead.SetNext(pkt)
			if r.queueTail == r.queueHead {
				r.queueTail = pkt
			}
		} else {
			pkt.SetNext(r.queueHead)
			r.queueHead = pkt
		}
		return true
	}
	r.queueTail.SetNext(pkt)
	r.queueTail = pkt
	return true
}

// Head returns the current queue head and the bytes already sent from
// it, for the flush engine to drive.
func (r *Record) Head() (*packet.Packet, int) {
	return r.queueHead, r.sent
}

// Advance records that n additional bytes of the head packet were
// emitted. If the head packet is now fully sent, it is rotated out of
// the queue and released to pool; the caller must hold the lock across
// this call through the hook invocation that produced n, per §5.
func (r *Record) Advance(n int, pool *packet.Pool) {
	r.sent += n
	if r.queueHead == nil || r.sent < r.queueHead.Length {
		return
	}
	done := r.queueHead
	r.queueHead = done.Next()
	if r.queueHead == nil {
		r.queueTail = nil
	}
	r.sent = 0
	pool.Free(done)
}

// MarkDraining sets close_pending (component H's close()).
func (r *Record) MarkDraining() {
	r.mu.Lock()
	r.closePending = true
	r.mu.Unlock()
}

// ClosePending reports the draining flag.
func (r *Record) ClosePending() bool {
	r.mu.Lock()
	cp := r.closePending
	r.mu.Unlock()
	return cp
}

// ClosePendingLocked is ClosePending for a caller already holding the
// lock.
func (r *Record) ClosePendingLocked() bool { return r.closePending }

// MarkError flags the record as having hit a fatal I/O error; used by
// callers that want to distinguish a clean close from an error-driven
// one before calling Clear.
func (r *Record) MarkError() {
	r.mu.Lock()
	r.errorFlag = true
	r.mu.Unlock()
}

// clear reinitializes the record: bumps the generation, releases every
// queued packet back to pool, resets the flag bits, invokes the
// outgoing hook's OnClear (outside the lock, per §5), and installs
// defaultHooks. Returns the new generation byte.
//
// Called under the table's per-fd slot, never concurrently with itself
// for the same fd (the table serializes Clear calls per fd via the
// record's own lock).
func (r *Record) clear(fd int32, open bool, defaultHooks interfaces.Hooks, pool *packet.Pool) uint8 {
	r.mu.Lock()
	oldHooks := r.hooks
	var toFree []*packet.Packet
	for p := r.queueHead; p != nil; {
		next := p.Next()
		toFree = append(toFree, p)
		p = next
	}
	r.queueHead = nil
	r.queueTail = nil
	r.sent = 0
	r.open = open
	r.closePending = false
	r.errorFlag = false
	r.generation++
	r.defaultHooks = defaultHooks
	r.hooks = defaultHooks
	gen := r.generation
	r.mu.Unlock()

	for _, p := range toFree {
		pool.Free(p)
	}
	if oldHooks.OnClear != nil {
		oldHooks.OnClear(int64(Encode(fd, gen)))
	}
	return gen
}
