package sockbuf

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/kflux-io/sockbuf/internal/constants"
	"github.com/kflux-io/sockbuf/internal/uapi"
)

// S1: listen, accept one connection, write "PING", drain; the peer
// observes exactly the bytes 50 49 4E 47.
func TestScenarioListenAcceptWritePING(t *testing.T) {
	m := New(&Config{})
	srv, err := m.Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port, err := uapi.LocalPort(m.UUIDToFD(srv))
	if err != nil {
		t.Fatalf("LocalPort: %v", err)
	}

	peerDone := make(chan net.Conn, 1)
	go func() {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			peerDone <- nil
			return
		}
		peerDone <- conn
	}()

	var conn int64
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = m.Accept(srv)
		if err == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	peer := <-peerDone
	if peer == nil {
		t.Fatal("peer dial failed")
	}
	defer peer.Close()

	if err := m.Write2(WriteOptions{UUID: conn, Buffer: []byte("PING")}); err != nil {
		t.Fatalf("Write2: %v", err)
	}
	if err := m.FlushStrong(conn); err != nil {
		t.Fatalf("FlushStrong: %v", err)
	}

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4)
	if _, err := readFull(peer, buf); err != nil {
		t.Fatalf("peer read: %v", err)
	}
	want := []byte{0x50, 0x49, 0x4E, 0x47}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d: want %02X got %02X", i, want[i], buf[i])
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// S2: connect, then immediately write "X" before the socket necessarily
// reports connected; a transient EAGAIN on the first attempt must not
// prevent later delivery, and the byte must never be duplicated.
func TestScenarioConnectThenImmediateWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		// Drain any further (erroneous, duplicate) bytes within a short
		// window so the assertion below can catch duplication.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		for {
			extra, err := conn.Read(buf[n:])
			if err != nil || extra == 0 {
				break
			}
			n += extra
		}
		received <- buf[:n]
	}()

	m := New(&Config{})
	uuid, err := m.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := m.Write2(WriteOptions{UUID: uuid, Buffer: []byte("X")}); err != nil {
		t.Fatalf("Write2: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.HasPending(uuid) && time.Now().Before(deadline) {
		if err := m.Flush(uuid); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if m.HasPending(uuid) {
		t.Fatal("expected the queued byte to drain before the deadline")
	}

	got := <-received
	if string(got) != "X" {
		t.Fatalf("expected exactly \"X\" with no duplication, got %q", got)
	}
}

// S3: a 10,000-byte file enqueued with move=1 drains to an exact
// concatenation of the file's bytes, and the source fd is closed
// exactly once.
func TestScenarioFileBackedMoveEnqueue(t *testing.T) {
	const size = 10000
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	f, err := os.CreateTemp("", "scenario-s3-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	src, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	fd := 9100
	m := New(&Config{})
	uuid, pipe, err := m.OpenLoopback(fd)
	if err != nil {
		t.Fatalf("OpenLoopback: %v", err)
	}

	closeCalls := 0
	err = m.Write2(WriteOptions{
		UUID:   uuid,
		IsFD:   true,
		FD:     int(src.Fd()),
		Offset: 0,
		Length: size,
		Move:   true,
		Dealloc: func([]byte) {
			closeCalls++
			src.Close()
		},
	})
	if err != nil {
		t.Fatalf("Write2: %v", err)
	}
	if err := m.FlushStrong(uuid); err != nil {
		t.Fatalf("FlushStrong: %v", err)
	}

	got := pipe.Sent()
	if len(got) != size {
		t.Fatalf("expected %d bytes, got %d", size, len(got))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d mismatch: want %02x got %02x", i, payload[i], got[i])
		}
	}
	if closeCalls != 1 {
		t.Fatalf("expected the source fd to be closed exactly once, got %d", closeCalls)
	}
}

// S4: A is half-sent (2 of 4 bytes), then C is enqueued urgent. The
// urgent splice rule (§4.G, round-trip property 8) finishes the
// in-flight head before servicing the urgent packet, then falls through
// to the rest of the queue: A[0..2] + A[2..4] + C + B. See DESIGN.md
// Open Question decision 5b for why this departs from S4's literal,
// internally inconsistent byte string.
func TestScenarioUrgentSpliceAfterHalfSentHead(t *testing.T) {
	fd := 9101
	m := New(&Config{})

	var written []byte
	calls := 0
	stall := true

	uuid, _, err := m.OpenLoopback(fd)
	if err != nil {
		t.Fatalf("OpenLoopback: %v", err)
	}

	err = m.HookSet(uuid, Hooks{
		Read: func(int64, []byte) (int, error) { return 0, syscall.EAGAIN },
		Write: func(_ int64, buf []byte) (int, error) {
			calls++
			if calls == 1 {
				written = append(written, buf[:2]...)
				return 2, nil
			}
			if stall {
				return 0, syscall.EAGAIN
			}
			written = append(written, buf...)
			return len(buf), nil
		},
	})
	if err != nil {
		t.Fatalf("HookSet: %v", err)
	}

	if err := m.Write2(WriteOptions{UUID: uuid, Buffer: []byte("AAAA")}); err != nil {
		t.Fatalf("Write2 A: %v", err)
	}
	if err := m.Write2(WriteOptions{UUID: uuid, Buffer: []byte("BBBB")}); err != nil {
		t.Fatalf("Write2 B: %v", err)
	}
	if err := m.Write2(WriteOptions{UUID: uuid, Buffer: []byte("CCCC"), Urgent: true}); err != nil {
		t.Fatalf("Write2 C (urgent): %v", err)
	}

	stall = false
	if err := m.FlushStrong(uuid); err != nil {
		t.Fatalf("FlushStrong: %v", err)
	}

	if string(written) != "AAAACCCCBBBB" {
		t.Fatalf("expected \"AAAACCCCBBBB\", got %q", written)
	}
}

// S5: force-closing a uuid mid-flight invalidates it immediately; a
// later read or write reports bad-descriptor, and repeating the cycle
// well past the pool's cardinality never blocks (a leaked packet would
// eventually exhaust the pool and hang Grab forever).
func TestScenarioForceCloseMidFlightReclaimsPool(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		large := make([]byte, constants.PacketSize+1024)
		m := New(&Config{})
		for i := 0; i < constants.PoolSize*2; i++ {
			uuid, pipe, err := m.OpenLoopback(9200 + i)
			if err != nil {
				t.Errorf("OpenLoopback: %v", err)
				return
			}
			// Stall the automatic flush Write2 triggers so the packet is
			// still mid-flight, not already drained, at force-close time.
			pipe.InjectWriteError(syscall.EAGAIN)
			if err := m.Write2(WriteOptions{UUID: uuid, Buffer: large}); err != nil {
				t.Errorf("Write2: %v", err)
				return
			}
			if err := m.ForceClose(uuid); err != nil {
				t.Errorf("ForceClose: %v", err)
				return
			}
			if _, err := m.Read(uuid, make([]byte, 4)); !IsCode(err, CodeBadDescriptor) {
				t.Errorf("expected Read to report CodeBadDescriptor after force_close, got %v", err)
				return
			}
			if err := m.Write2(WriteOptions{UUID: uuid, Buffer: []byte("x")}); !IsCode(err, CodeBadDescriptor) {
				t.Errorf("expected Write2 to report CodeBadDescriptor after force_close, got %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("expected the force-close/reopen cycle to complete without the pool deadlocking")
	}
}

// S6: a custom hook returns EINTR twice, then succeeds; the total bytes
// delivered equal the enqueued length with no loss.
func TestScenarioEINTRRetrySucceedsWithNoLoss(t *testing.T) {
	fd := 9300
	m, uuid := newLoopbackManager(t, fd)

	var written []byte
	eintrLeft := 2
	err := m.HookSet(uuid, Hooks{
		Read: func(int64, []byte) (int, error) { return 0, syscall.EAGAIN },
		Write: func(_ int64, buf []byte) (int, error) {
			if eintrLeft > 0 {
				eintrLeft--
				return 0, syscall.EINTR
			}
			written = append(written, buf...)
			return len(buf), nil
		},
	})
	if err != nil {
		t.Fatalf("HookSet: %v", err)
	}

	payload := []byte("no bytes lost across EINTR retries")
	if err := m.Write2(WriteOptions{UUID: uuid, Buffer: payload}); err != nil {
		t.Fatalf("Write2: %v", err)
	}
	if err := m.FlushStrong(uuid); err != nil {
		t.Fatalf("FlushStrong: %v", err)
	}

	if string(written) != string(payload) {
		t.Fatalf("expected %q, got %q", payload, written)
	}
	if eintrLeft != 0 {
		t.Fatalf("expected both injected EINTRs to be consumed, got %d remaining", eintrLeft)
	}
}
