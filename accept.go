package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// Accept accepts one pending connection from the listening socket srv
// and installs it as a new, non-blocking record (§4.H accept).
func (m *Manager) Accept(srv int64) (int64, error) {
	rec, ok := m.table.Validate(fdtable.UUID(srv))
	if !ok || !rec.IsOpen() {
		return 0, NewUUIDError("accept", srv, CodeBadDescriptor, "invalid listening handle")
	}
	listenFD := fdtable.UUID(srv).FD()
	fd, err := uapi.AcceptNonblock(int(listenFD))
	if err != nil {
		return 0, WrapError("accept", srv, err)
	}
	uuid, err := m.table.Clear(int32(fd), true, m.pool)
	if err != nil {
		uapi.ShutdownClose(fd)
		return 0, NewError("accept", CodeCapacity, err.Error())
	}
	return int64(uuid), nil
}
