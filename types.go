package sockbuf

import (
	"errors"

	"github.com/kflux-io/sockbuf/internal/interfaces"
)

// Hooks is the per-connection read/write/flush/on_clear plug-point
// vtable (component F, §4.E). It is a type alias for the internal
// function-pointer table so custom transports (TLS, a test double, a
// rate limiter) can be built without reaching into an internal
// package.
type Hooks = interfaces.Hooks

// Logger is the minimal logging seam Manager depends on.
type Logger = interfaces.Logger

// Observer receives enqueue/flush/close/pool-wait counters (component
// H's ambient metrics hook).
type Observer = interfaces.Observer

// Reactor is the weakly linked external readiness/cleanup collaborator
// described in §6: OnClose notifies that a record has been torn down,
// Remove is a best-effort detach from a readiness source. A nil
// Reactor supplied to Config is replaced by NoOpReactor.
type Reactor interface {
	OnClose(uuid int64)
	Remove(uuid int64) error
}

// errNoReactor is what NoOpReactor.Remove returns, mirroring
// reactor_remove's documented "-1 if absent" when no reactor is wired.
var errNoReactor = errors.New("sockbuf: no reactor installed")

// NoOpReactor is the default Reactor: OnClose is ignored, Remove always
// reports that no reactor is installed.
type NoOpReactor struct{}

func (NoOpReactor) OnClose(uuid int64)      {}
func (NoOpReactor) Remove(uuid int64) error { return errNoReactor }

var _ Reactor = NoOpReactor{}
