package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/loopback"
)

// OpenLoopback adopts fd and immediately installs an in-memory loopback
// transport in place of the OS hooks, for tests that want to drive
// Read/Write2/Flush deterministically without a real socket. It returns
// the new handle together with the *loopback.Pipe backing it, so a test
// can inspect Sent(), Feed() peer data, or inject transient errnos via
// InjectWriteError/InjectReadError.
//
// fd only needs to be a value distinct from every other fd this Manager
// has open; it is never read from or written to directly.
func (m *Manager) OpenLoopback(fd int) (int64, *loopback.Pipe, error) {
	uuid, err := m.Open(fd)
	if err != nil {
		return 0, nil, err
	}
	pipe := loopback.New()
	if err := m.HookSet(uuid, pipe.Hooks()); err != nil {
		return 0, nil, err
	}
	return uuid, pipe, nil
}
