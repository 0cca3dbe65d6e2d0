package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/packet"
)

// BufferHandle is a checked-out packet awaiting BufferSend or
// BufferFree. It must not be used from more than one goroutine at a
// time and must be submitted or freed exactly once.
type BufferHandle struct {
	uuid int64
	pkt  *packet.Packet
}

// BufferCheckout hands the caller a packet's inline buffer directly,
// avoiding the intermediate copy Write2 performs for small payloads
// (§4.H buffer_checkout). The caller fills up to len(buf) bytes and
// calls BufferSend with however many it actually wrote.
func (m *Manager) BufferCheckout(uuid int64) (*BufferHandle, []byte, error) {
	rec, ok := m.table.Validate(fdtable.UUID(uuid))
	if !ok || !rec.IsOpen() {
		return nil, nil, NewUUIDError("buffer_checkout", uuid, CodeBadDescriptor, "invalid handle")
	}
	pkt := m.pool.Grab()
	return &BufferHandle{uuid: uuid, pkt: pkt}, pkt.BufferCheckout(), nil
}

// BufferSend commits n bytes of a checked-out buffer and enqueues the
// packet (§4.H buffer_send). n must not exceed the buffer BufferCheckout
// returned.
func (m *Manager) BufferSend(h *BufferHandle, n int, urgent bool) error {
	rec, ok := m.table.Validate(fdtable.UUID(h.uuid))
	if !ok || !rec.IsOpen() {
		m.pool.Free(h.pkt)
		return NewUUIDError("buffer_send", h.uuid, CodeBadDescriptor, "invalid handle")
	}
	h.pkt.BufferCommit(n)
	if !rec.Enqueue(h.pkt, urgent) {
		m.pool.Free(h.pkt)
		return NewUUIDError("buffer_send", h.uuid, CodeBadDescriptor, "record closed during enqueue")
	}
	if m.obs != nil {
		m.obs.ObserveEnqueue(n, urgent)
	}
	m.engine.Flush(fdtable.UUID(h.uuid))
	m.Touch(h.uuid)
	return nil
}

// BufferFree abandons a checked-out buffer without sending it, returning
// the packet to the pool unused (§4.H buffer_free).
func (m *Manager) BufferFree(h *BufferHandle) {
	m.pool.Free(h.pkt)
}
