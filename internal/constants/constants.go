// Package constants holds the compile-time tunables for the socket
// buffering core (§6).
package constants

const (
	// PacketSize is the inline capacity of a memory packet (bytes).
	// Payloads at or below this size are copied into the packet's
	// fixed buffer; larger payloads go through the heap-copy or move
	// path instead.
	PacketSize = 64 * 1024

	// FileReadSize is the scratch buffer size used by the portable
	// file-backed write strategy's pread-then-write loop.
	//
	// PacketSize must be >= FileReadSize + 64; init below panics
	// otherwise. The file-backed packet's scratch buffer is a separate
	// array from the inline buffer within the same packet record.
	FileReadSize = 48 * 1024

	// PoolSize is the cardinality of the packet pool's fixed array.
	// Once it is exhausted, Grab blocks until a packet is released.
	PoolSize = 1024

	// DefaultBacklog is used when the platform's SOMAXCONN cannot be
	// resolved.
	DefaultBacklog = 128
)

func init() {
	if PacketSize < FileReadSize+64 {
		panic("constants: PacketSize must be >= FileReadSize + 64")
	}
}
