package sockbuf

import "github.com/kflux-io/sockbuf/internal/fdtable"

// Touch notifies Config.OnTouch (if set) that uuid just saw activity,
// the same role sock.c's sock_touch weak symbol plays for its
// keep-alive reactor. Read, Write2 and Flush call this on every
// successful operation; a caller driving I/O outside those entry points
// may call it directly to keep an externally owned idle-timeout reactor
// from reaping an otherwise-live connection. A stale or invalid uuid is
// silently ignored.
func (m *Manager) Touch(uuid int64) {
	if m.onTouch == nil {
		return
	}
	if _, ok := m.table.Validate(fdtable.UUID(uuid)); !ok {
		return
	}
	m.onTouch(uuid)
}
