package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// Listen opens a non-blocking, SO_REUSEADDR listening TCP socket bound
// to addr:port with the platform's maximum backlog, and installs it as
// a new record (§4.H listen).
func (m *Manager) Listen(addr string, port int) (int64, error) {
	fd, err := uapi.ListenTCP(addr, port)
	if err != nil {
		return 0, WrapError("listen", 0, err)
	}
	uuid, err := m.table.Clear(int32(fd), true, m.pool)
	if err != nil {
		uapi.ShutdownClose(fd)
		return 0, NewError("listen", CodeCapacity, err.Error())
	}
	return int64(uuid), nil
}
