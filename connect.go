package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// Connect starts a non-blocking TCP connection to addr:port. EINPROGRESS
// is treated as success, per §4.H connect; the caller drives the rest
// of the handshake through its own readiness source and observes
// completion via a write or read returning successfully.
func (m *Manager) Connect(addr string, port int) (int64, error) {
	fd, err := uapi.ConnectTCP(addr, port)
	if err != nil {
		return 0, WrapError("connect", 0, err)
	}
	uuid, err := m.table.Clear(int32(fd), true, m.pool)
	if err != nil {
		uapi.ShutdownClose(fd)
		return 0, NewError("connect", CodeCapacity, err.Error())
	}
	return int64(uuid), nil
}
