// Package loopback provides a hermetic, in-memory stand-in for a
// connected socket, used to drive the flush engine and public API in
// tests without binding real ports. It implements the hook contract
// directly rather than net.Conn, so it exercises the exact same code
// path a real non-blocking socket would.
package loopback

import (
	"sync"
	"syscall"

	"github.com/kflux-io/sockbuf/internal/interfaces"
)

// Pipe accumulates every byte passed to Write in Sent, and serves bytes
// queued via Feed back out through Read. Tests can prime Write/Read
// with one-shot errno injections to exercise the transient-retry paths
// (EINTR, EAGAIN) the way a real socket under load would produce them.
type Pipe struct {
	mu   sync.Mutex
	sent []byte
	feed []byte

	closed bool

	writeErrs []error
	readErrs  []error
}

// New returns an empty Pipe.
func New() *Pipe {
	return &Pipe{}
}

// Hooks returns the interfaces.Hooks vtable backed by this pipe. Flush
// is a no-op (the pipe has no internal buffering of its own to drain)
// and RawFD is left nil, since a loopback pipe is never eligible for
// the sendfile fast path.
func (p *Pipe) Hooks() interfaces.Hooks {
	return interfaces.Hooks{
		Read:    p.read,
		Write:   p.write,
		Flush:   func(int64) (int, error) { return 0, nil },
		OnClear: func(int64) {},
	}
}

// InjectWriteError queues a one-shot error to return from the next
// Write call instead of copying bytes.
func (p *Pipe) InjectWriteError(err error) {
	p.mu.Lock()
	p.writeErrs = append(p.writeErrs, err)
	p.mu.Unlock()
}

// InjectReadError queues a one-shot error to return from the next Read
// call instead of copying bytes.
func (p *Pipe) InjectReadError(err error) {
	p.mu.Lock()
	p.readErrs = append(p.readErrs, err)
	p.mu.Unlock()
}

// Feed appends data to the buffer Read serves from, simulating bytes
// arriving from the peer.
func (p *Pipe) Feed(data []byte) {
	p.mu.Lock()
	p.feed = append(p.feed, data...)
	p.mu.Unlock()
}

// Sent returns a copy of every byte accepted by Write so far, in order.
func (p *Pipe) Sent() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.sent))
	copy(out, p.sent)
	return out
}

// Close marks the pipe as closed: further writes fail with EPIPE and
// reads of an empty buffer report EOF instead of EAGAIN.
func (p *Pipe) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Pipe) write(uuid int64, buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writeErrs) > 0 {
		err := p.writeErrs[0]
		p.writeErrs = p.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	if p.closed {
		return 0, syscall.EPIPE
	}
	p.sent = append(p.sent, buf...)
	return len(buf), nil
}

func (p *Pipe) read(uuid int64, buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.readErrs) > 0 {
		err := p.readErrs[0]
		p.readErrs = p.readErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	if len(p.feed) == 0 {
		if p.closed {
			return 0, nil
		}
		return 0, syscall.EAGAIN
	}
	n := copy(buf, p.feed)
	p.feed = p.feed[n:]
	return n, nil
}
