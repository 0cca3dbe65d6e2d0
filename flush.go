package sockbuf

import (
	"syscall"

	"github.com/kflux-io/sockbuf/internal/fdtable"
)

// Flush drains as much of uuid's queue as the hooks currently accept
// (§4.F). Returns a *Error with CodeBadDescriptor for an invalid or
// closed handle, or wraps a fatal I/O error after force-closing the fd.
func (m *Manager) Flush(uuid int64) error {
	n, err := m.engine.Flush(fdtable.UUID(uuid))
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok && errno == syscall.EBADF {
			return NewUUIDError("flush", uuid, CodeBadDescriptor, "invalid handle")
		}
		return WrapError("flush", uuid, err)
	}
	if n >= 0 {
		m.Touch(uuid)
	}
	return nil
}

// FlushAll drains every open record with a non-empty queue (§4.F).
func (m *Manager) FlushAll() {
	m.engine.FlushAll()
}

// FlushStrong busy-loops Flush until uuid's queue is fully drained or
// Flush fails (§4.F, §9 Open Question 1: loops on pending data rather
// than until the peer closes the connection).
func (m *Manager) FlushStrong(uuid int64) error {
	_, err := m.engine.FlushStrong(fdtable.UUID(uuid))
	if err != nil {
		return WrapError("flush_strong", uuid, err)
	}
	m.Touch(uuid)
	return nil
}
