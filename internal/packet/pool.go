// Package packet implements the packet pool and the three packet
// variants/write strategies (components A and B): inline memory,
// external (moved) memory, and file-backed packets.
package packet

import (
	"sync"

	"github.com/kflux-io/sockbuf/internal/constants"
)

// Pool is a process-wide, fixed-size free-list of reusable packets.
// Grab blocks a caller once the list is exhausted rather than
// overflowing to the heap, so the number of live packets is always
// bounded by constants.PoolSize: exhausting the pool is the system's
// only backpressure mechanism, and a caller that never releases a
// packet deadlocks every other caller exactly as a bounded channel
// would. A single fixed array plus an explicit free-list head serves
// here in place of a bucketed sync.Pool because packets are
// polymorphic records reused across enqueue/flush/free rather than
// bare byte slices.
type Pool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	free      *Packet
	initd     bool
	arr       [constants.PoolSize]Packet
	onExhaust func()
}

// NewPool constructs an empty pool. onExhaust, if non-nil, is invoked
// by Grab every time the free list and the array are both exhausted,
// before it blocks waiting for a release; it's normally wired to
// Observer.ObservePoolWait plus a FlushAll pass, since draining other
// fds' queues is what frees packets back to the pool in a
// single-threaded caller (§4.A's "self-clocking system under load").
func NewPool(onExhaust func()) *Pool {
	p := &Pool{onExhaust: onExhaust}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// lazyInit links the fixed array into the free list on first use: entry
// 0 is reserved for the immediate caller, entries 1..N-1 become the
// initial free list. Must be called with p.mu held.
func (p *Pool) lazyInit() *Packet {
	p.initd = true
	for i := 1; i < len(p.arr); i++ {
		p.arr[i].next = p.free
		p.free = &p.arr[i]
	}
	return &p.arr[0]
}

// Grab returns a cleared packet from the free list, lazily initialized
// from the fixed array on first use. If the pool is exhausted, Grab
// calls onExhaust to let the caller try to make progress elsewhere,
// then blocks until a concurrent Free signals a packet is available.
func (p *Pool) Grab() *Packet {
	p.mu.Lock()
	if !p.initd {
		pkt := p.lazyInit()
		p.mu.Unlock()
		return pkt
	}
	for p.free == nil {
		p.mu.Unlock()
		if p.onExhaust != nil {
			p.onExhaust()
		}
		p.mu.Lock()
		if p.free != nil {
			break
		}
		p.cond.Wait()
	}
	pkt := p.free
	p.free = pkt.next
	p.mu.Unlock()
	pkt.next = nil
	return pkt
}

// Free releases pkt's owned payload (via its current release strategy),
// resets its metadata, and returns it to the free list, waking any
// caller blocked in Grab.
func (p *Pool) Free(pkt *Packet) {
	pkt.release()
	pkt.reset()
	p.mu.Lock()
	pkt.next = p.free
	p.free = pkt
	p.cond.Signal()
	p.mu.Unlock()
}
