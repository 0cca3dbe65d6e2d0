// Package sockbuf implements a non-blocking, user-land socket
// buffering layer: stable UUID/generation connection handles that
// survive descriptor reuse, a per-connection outbound packet queue
// that absorbs kernel send-buffer backpressure, a pluggable read/write
// hook layer so a transport can be interposed transparently, and a
// flush engine that drains queued packets through those hooks.
//
// A Manager owns one descriptor table, one packet pool, and one flush
// engine; a process typically constructs a single Manager and drives
// every connection's Read/Write2/Flush calls through it from an
// externally supplied event loop, since the core never blocks on I/O
// itself.
package sockbuf

import (
	"github.com/kflux-io/sockbuf/internal/fdtable"
	"github.com/kflux-io/sockbuf/internal/flush"
	"github.com/kflux-io/sockbuf/internal/hook"
	"github.com/kflux-io/sockbuf/internal/packet"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// Manager is the entry point for every operation in §4.H.
type Manager struct {
	table  *fdtable.Table
	pool   *packet.Pool
	engine *flush.Engine

	cfg     Config
	metrics *Metrics
	log     Logger
	obs     Observer
	reactor Reactor
	onTouch func(uuid int64)
}

// New constructs a Manager. A nil cfg uses DefaultConfig().
func New(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Logger == nil {
		c.Logger = DefaultConfig().Logger
	}
	metrics := NewMetrics()
	if c.Observer == nil {
		c.Observer = NewMetricsObserver(metrics)
	}
	if c.Reactor == nil {
		c.Reactor = NoOpReactor{}
	}
	if c.RaiseFDLimit {
		uapi.RaiseFDLimit()
	}
	packet.UseSendfile = c.UseSendfile && uapi.SendfileSupported

	m := &Manager{cfg: c, log: c.Logger, obs: c.Observer, reactor: c.Reactor, onTouch: c.OnTouch, metrics: metrics}
	m.pool = packet.NewPool(func() {
		m.obs.ObservePoolWait()
		m.FlushAll()
	})
	m.table = fdtable.NewTable(hook.Default())
	m.engine = flush.New(m.table, m.pool, m.log, m.obs,
		func(fd int32) error {
			return uapi.ShutdownClose(int(fd))
		},
		func(uuid fdtable.UUID) {
			m.reactor.OnClose(int64(uuid))
		},
	)
	return m
}

// Metrics returns the Manager's built-in metrics instance. It is
// updated only if Config.Observer was left nil, so New installed a
// MetricsObserver wrapping it; a custom Observer bypasses it entirely
// and this snapshot stays at zero.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}
