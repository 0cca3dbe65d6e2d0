package sockbuf

// Open adopts a caller-provided, already-established fd (e.g. a socket
// obtained from outside the package, or one inherited across exec) and
// reinitializes its record exactly as listen/accept/connect do (§4.H
// open). The caller is responsible for the fd already being in
// non-blocking mode.
func (m *Manager) Open(fd int) (int64, error) {
	uuid, err := m.table.Clear(int32(fd), true, m.pool)
	if err != nil {
		return 0, NewError("open", CodeCapacity, err.Error())
	}
	return int64(uuid), nil
}
