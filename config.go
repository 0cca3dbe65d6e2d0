package sockbuf

import "github.com/kflux-io/sockbuf/internal/logging"

// Config holds the runtime-tunable behavior of a Manager. The
// compile-time sizing knobs (inline packet capacity, file scratch
// size, pool cardinality — §6's "compile-time tunables") live in
// internal/constants and are fixed for a given build; Config covers
// what actually varies from one Manager to the next.
type Config struct {
	// UseSendfile gates the Linux sendfile(2) fast path for file-backed
	// writes through the default hook (§4.B). Ignored on platforms
	// without sendfile support, where the portable pread+write loop is
	// always used.
	UseSendfile bool

	// Logger receives flush-engine and descriptor-table diagnostics.
	// Defaults to logging.Default() if nil.
	Logger *logging.Logger

	// Observer receives enqueue/flush/close/pool-wait counters. Left
	// nil, New installs a MetricsObserver wrapping the Manager's own
	// Metrics(); pass NoOpObserver{} explicitly to opt out.
	Observer Observer

	// Reactor is notified when a record is torn down and is
	// consulted for best-effort readiness-source detachment (§6's
	// weakly linked reactor hooks). Defaults to NoOpReactor if nil.
	Reactor Reactor

	// RaiseFDLimit raises the process's soft RLIMIT_NOFILE to the hard
	// limit once, on the first Manager constructed with it set, mirroring
	// sock.c's startup-time fd-limit raise.
	RaiseFDLimit bool

	// OnTouch, if non-nil, is invoked with a connection's uuid by
	// Touch and by every successful Read/Write2/Flush call, the same
	// role sock.c's sock_touch keep-alive weak symbol plays. A typical
	// use is resetting an idle timeout keyed by uuid in an externally
	// owned reactor.
	OnTouch func(uuid int64)
}

// DefaultConfig returns the configuration New uses when passed nil:
// sendfile enabled, default logger, no-op reactor, an FD-limit raise on
// construction, and Observer left nil so New installs the built-in
// MetricsObserver.
func DefaultConfig() *Config {
	return &Config{
		UseSendfile:  true,
		Logger:       logging.Default(),
		Reactor:      NoOpReactor{},
		RaiseFDLimit: true,
	}
}
