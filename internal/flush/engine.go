// Package flush implements the flush engine (component G): it drains a
// per-fd packet queue through the installed rw-hooks, handles partial
// writes, rotates completed packets back to the pool, and translates
// errno into the transient/fatal split the rest of the system relies
// on.
package flush

import (
	"syscall"

	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/packet"
)

// Engine ties together the descriptor table, the packet pool, and the
// raw fd teardown a force-close needs. closeRaw performs shutdown(RDWR)
// + close(2) on the underlying OS descriptor; the engine never touches
// the fd directly beyond that, since ordinary reads and writes go
// through the installed hooks. onClosed, if non-nil, is invoked with
// the just-closed (pre-bump) uuid after the record has been cleared,
// so a caller can relay the weakly linked reactor_on_close
// notification (§6) with the handle its readiness source is keyed by.
type Engine struct {
	table    *fdtable.Table
	pool     *packet.Pool
	log      interfaces.Logger
	obs      interfaces.Observer
	closeRaw func(fd int32) error
	onClosed func(uuid fdtable.UUID)
}

// New constructs a flush engine. log, obs, and onClosed may be nil.
func New(table *fdtable.Table, pool *packet.Pool, log interfaces.Logger, obs interfaces.Observer, closeRaw func(fd int32) error, onClosed func(uuid fdtable.UUID)) *Engine {
	return &Engine{table: table, pool: pool, log: log, obs: obs, closeRaw: closeRaw, onClosed: onClosed}
}

// Flush drains as much of uuid's queue as the hooks will currently
// accept. It returns (-1, EBADF) for an invalid or closed handle,
// (-1, err) after a fatal I/O error has force-closed the fd, or (0,
// nil) once the hooks stop accepting more (transient backpressure, or
// the queue genuinely ran dry).
func (e *Engine) Flush(uuid fdtable.UUID) (int, error) {
	rec, ok := e.table.Validate(uuid)
	if !ok {
		return -1, syscall.EBADF
	}
	rec.Lock()
	if !rec.IsOpenLocked() {
		rec.Unlock()
		return -1, syscall.EBADF
	}
	hooks := rec.HooksLocked()

	if hooks.Flush != nil {
		for {
			n, err := hooks.Flush(int64(uuid))
			if err != nil {
				if isEINTR(err) {
					continue
				}
				if isFlushTransient(err) {
					break
				}
				rec.Unlock()
				e.fail(uuid, err)
				return -1, err
			}
			if n <= 0 {
				break
			}
		}
	}

	for {
		head, sent := rec.Head()
		if head == nil {
			break
		}
		n, err := head.Write(int64(uuid), hooks, sent)
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if isFlushTransient(err) {
				break
			}
			rec.Unlock()
			e.fail(uuid, err)
			return -1, err
		}
		if n == 0 {
			break
		}
		if e.obs != nil {
			e.obs.ObserveFlush(n, 0, nil)
		}
		rec.Advance(n, e.pool)
	}

	drainedHead, _ := rec.Head()
	closeNow := rec.ClosePendingLocked() && drainedHead == nil
	if closeNow {
		rec.Unlock()
		e.ForceClose(uuid)
		return 0, nil
	}
	rec.Unlock()
	return 0, nil
}

// FlushAll drains every open record with a non-empty queue. Errors from
// individual fds are not propagated; a fatal error on one fd force-
// closes only that fd.
func (e *Engine) FlushAll() {
	e.table.ForEachOpen(func(uuid fdtable.UUID, rec *fdtable.Record) {
		e.Flush(uuid)
	})
}

// FlushStrong busy-loops Flush until the fd's queue is empty or Flush
// fails. This resolves the "forever on success" ambiguity in the
// documented source behavior: rather than blocking until the peer
// closes the connection, it stops as soon as there is nothing left to
// drain.
func (e *Engine) FlushStrong(uuid fdtable.UUID) (int, error) {
	for {
		n, err := e.Flush(uuid)
		if err != nil {
			return n, err
		}
		rec, ok := e.table.Validate(uuid)
		if !ok || !rec.HasPending() {
			return 0, nil
		}
	}
}

// fail force-closes uuid's fd and records the triggering error.
func (e *Engine) fail(uuid fdtable.UUID, err error) {
	if e.obs != nil {
		e.obs.ObserveFlush(0, 0, err)
	}
	if e.log != nil {
		e.log.Debugf("flush: fd %d fatal: %v", uuid.FD(), err)
	}
	e.ForceClose(uuid)
}

// ForceClose performs the OS-level teardown and reinitializes the
// record as closed, bumping its generation so the old handle is
// permanently invalidated (§4.H force_close).
func (e *Engine) ForceClose(uuid fdtable.UUID) {
	fd := uuid.FD()
	if e.closeRaw != nil {
		if err := e.closeRaw(fd); err != nil && e.log != nil {
			e.log.Debugf("flush: close fd %d: %v", fd, err)
		}
	}
	if _, err := e.table.Clear(fd, false, e.pool); err != nil && e.log != nil {
		e.log.Printf("flush: clear fd %d: %v", fd, err)
	}
	if e.obs != nil {
		e.obs.ObserveClose(true)
	}
	if e.onClosed != nil {
		e.onClosed(uuid)
	}
}

func isEINTR(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno == syscall.EINTR
}

// isFlushTransient reports whether err is one of the errno values that
// leave a transport's Flush hook retriable later rather than fatal.
func isFlushTransient(err error) bool {
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false
	}
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK || errno == syscall.ENOTCONN
}
