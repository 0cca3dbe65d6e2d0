package fdtable

import (
	"fmt"
	"sync"

	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/packet"
)

// maxFD bounds how far the table will grow; beyond this a Clear call
// fails the way a real allocator failure would (§4.D "reallocation
// failure propagates -1 from clear").
const maxFD = 1 << 24

// Table is the growable fd -> *Record index (component D). Capacity
// doubles on demand starting from an initial 16 slots.
type Table struct {
	mu           sync.Mutex
	records      []*Record
	defaultHooks interfaces.Hooks
}

// NewTable constructs an empty table. defaultHooks is installed on every
// newly created slot and reinstalled by Clear after a record's old
// transport is torn down.
func NewTable(defaultHooks interfaces.Hooks) *Table {
	return &Table{defaultHooks: defaultHooks}
}

// ensureCapacity grows the table, if needed, so index fd is addressable.
// Must be called with t.mu held.
func (t *Table) ensureCapacity(fd int32) error {
	if fd < 0 || int64(fd) >= maxFD {
		return fmt.Errorf("fdtable: fd %d out of range", fd)
	}
	if int(fd) < len(t.records) {
		return nil
	}
	newCap := len(t.records)
	if newCap == 0 {
		newCap = 16
	}
	for newCap <= int(fd) {
		newCap *= 2
	}
	grown := make([]*Record, newCap)
	copy(grown, t.records)
	for i := len(t.records); i < newCap; i++ {
		grown[i] = &Record{hooks: t.defaultHooks, defaultHooks: t.defaultHooks}
	}
	t.records = grown
	return nil
}

// recordAt returns the (possibly newly grown) record slot for fd.
func (t *Table) recordAt(fd int32) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureCapacity(fd); err != nil {
		return nil, err
	}
	return t.records[fd], nil
}

// Validate decodes uuid and reports whether it still refers to the
// current incarnation of its fd: the fd must be within the table and
// the generation byte must match the record's current generation
// (component E).
func (t *Table) Validate(uuid UUID) (*Record, bool) {
	fd := uuid.FD()
	t.mu.Lock()
	if fd < 0 || int(fd) >= len(t.records) {
		t.mu.Unlock()
		return nil, false
	}
	rec := t.records[fd]
	t.mu.Unlock()
	if rec.Generation() != uuid.Generation() {
		return nil, false
	}
	return rec, true
}

// FD2UUID returns the latest handle for a raw fd if it is open, or
// Invalid otherwise.
func (t *Table) FD2UUID(fd int32) UUID {
	t.mu.Lock()
	if fd < 0 || int(fd) >= len(t.records) {
		t.mu.Unlock()
		return Invalid
	}
	rec := t.records[fd]
	t.mu.Unlock()
	if !rec.IsOpen() {
		return Invalid
	}
	return Encode(fd, rec.Generation())
}

// Clear reinitializes the record for fd (growing the table if needed)
// and returns its new handle.
func (t *Table) Clear(fd int32, open bool, pool *packet.Pool) (UUID, error) {
	rec, err := t.recordAt(fd)
	if err != nil {
		return Invalid, err
	}
	gen := rec.clear(fd, open, t.defaultHooks, pool)
	return Encode(fd, gen), nil
}

// ForEachOpen invokes fn for every currently-open record with a
// non-empty queue, used by flush_all (component G).
func (t *Table) ForEachOpen(fn func(UUID, *Record)) {
	t.mu.Lock()
	records := t.records
	t.mu.Unlock()
	for fd, rec := range records {
		if rec == nil {
			continue
		}
		if !rec.HasPending() {
			continue
		}
		fn(Encode(int32(fd), rec.Generation()), rec)
	}
}
