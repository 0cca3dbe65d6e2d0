package sockbuf

import (
	"syscall"

	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/interfaces"
)

// Read passes buf through uuid's installed read hook (§4.H read).
// Transient errno (EAGAIN/EWOULDBLOCK/EINTR/ENOTCONN) is reported as (0, nil) so
// the caller retries once its readiness source fires again. A clean
// EOF from the hook is mapped to fatal with ECONNRESET per §7, since a
// peer closing for reading is observed as a connection loss here, not
// as a quiet zero-length read; the fd is force-closed either way.
func (m *Manager) Read(uuid int64, buf []byte) (int, error) {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	if !ok {
		return -1, NewUUIDError("read", uuid, CodeBadDescriptor, "invalid handle")
	}
	rec.Lock()
	if !rec.IsOpenLocked() {
		rec.Unlock()
		return -1, NewUUIDError("read", uuid, CodeBadDescriptor, "record not open")
	}
	hooks := rec.HooksLocked()
	n, err := hooks.Read(uuid, buf)
	rec.Unlock()
	if err != nil {
		if err == interfaces.EOF {
			m.engine.ForceClose(fdtable.UUID(uuid))
			return -1, NewUUIDError("read", uuid, CodeIOError, "connection reset").withErrno(syscall.ECONNRESET)
		}
		if errno, ok := err.(syscall.Errno); ok && isReadTransient(errno) {
			return 0, nil
		}
		m.engine.ForceClose(fdtable.UUID(uuid))
		return -1, WrapError("read", uuid, err)
	}
	if n == 0 {
		m.engine.ForceClose(fdtable.UUID(uuid))
		return -1, NewUUIDError("read", uuid, CodeIOError, "connection reset").withErrno(syscall.ECONNRESET)
	}
	m.Touch(uuid)
	return n, nil
}

func isReadTransient(errno syscall.Errno) bool {
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK || errno == syscall.EINTR || errno == syscall.ENOTCONN
}
