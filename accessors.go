package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// IsValid reports whether uuid still validates and its record is open
// (§4.H isvalid).
func (m *Manager) IsValid(uuid int64) bool {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	return ok && rec.IsOpen()
}

// FD2UUID returns the latest handle for a raw fd, or -1 if it is not
// currently open (§4.H fd2uuid).
func (m *Manager) FD2UUID(fd int) int64 {
	return int64(m.table.FD2UUID(int32(fd)))
}

// UUIDToFD decodes uuid back to its raw OS descriptor, for callers that
// need to hand the fd to an unrelated OS API (e.g. SO_KEEPALIVE) without
// going through the hook layer, the same role sock.c's sock_uuid2fd
// plays. It does not validate that the handle is still current; pair
// with IsValid first if that matters.
func (m *Manager) UUIDToFD(uuid int64) int {
	return int(fdtable.UUID(uuid).FD())
}

// HasPending reports whether uuid is open and its queue is non-empty
// (§4.H has_pending).
func (m *Manager) HasPending(uuid int64) bool {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	return ok && rec.HasPending()
}

// MaxCapacity returns the process's current RLIMIT_NOFILE soft limit,
// the same role sock.c's sock_max_capacity plays.
func MaxCapacity() (uint64, error) {
	return uapi.MaxCapacity()
}
