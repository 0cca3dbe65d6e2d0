package sockbuf

import "github.com/kflux-io/sockbuf/internal/fdtable"

// Close marks uuid draining and triggers an immediate flush (§4.H
// close): close_pending is set, so the engine force-closes the fd on
// its own once the queue is fully drained (§9 Open Question 2's
// defensive "close on drain" check, performed inside Flush).
func (m *Manager) Close(uuid int64) error {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	if !ok {
		return NewUUIDError("close", uuid, CodeBadDescriptor, "invalid handle")
	}
	rec.MarkDraining()
	return m.Flush(uuid)
}

// ForceClose performs shutdown(RDWR), closes the raw fd, and clears the
// record, bumping its generation so the old handle is permanently
// invalidated (§4.H force_close).
func (m *Manager) ForceClose(uuid int64) error {
	if _, ok := m.table.Validate(fdtable.UUID(uuid)); !ok {
		return NewUUIDError("force_close", uuid, CodeBadDescriptor, "invalid handle")
	}
	m.engine.ForceClose(fdtable.UUID(uuid))
	return nil
}
