package sockbuf

import "github.com/kflux-io/sockbuf/internal/fdtable"

// HookGet returns uuid's currently installed hook vtable (§4.H
// hook_get).
func (m *Manager) HookGet(uuid int64) (Hooks, error) {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	if !ok {
		return Hooks{}, NewUUIDError("hook_get", uuid, CodeBadDescriptor, "invalid handle")
	}
	return rec.Hooks(), nil
}

// HookSet installs a transport on uuid, filling any nil Read, Write,
// Flush or OnClear field of h with the default implementation's
// corresponding function first (§4.E hook_set / component F). RawFD is
// not filled from the default.
func (m *Manager) HookSet(uuid int64, h Hooks) error {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	if !ok {
		return NewUUIDError("hook_set", uuid, CodeBadDescriptor, "invalid handle")
	}
	rec.SetHooks(h)
	return nil
}
