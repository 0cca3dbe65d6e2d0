package fdtable

import (
	"testing"

	"github.com/kflux-io/sockbuf/internal/interfaces"
	"github.com/kflux-io/sockbuf/internal/packet"
)

func testHooks() interfaces.Hooks {
	return interfaces.Hooks{
		Read:    func(int64, []byte) (int, error) { return 0, nil },
		Write:   func(int64, []byte) (int, error) { return 0, nil },
		Flush:   func(int64) (int, error) { return 0, nil },
		OnClear: func(int64) {},
	}
}

func TestRecordClearBumpsGeneration(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks()}
	pool := packet.NewPool(nil)

	g1 := r.clear(3, true, testHooks(), pool)
	if g1 != 1 {
		t.Fatalf("expected generation 1 after first clear, got %d", g1)
	}
	g2 := r.clear(3, true, testHooks(), pool)
	if g2 != 2 {
		t.Fatalf("expected generation 2 after second clear, got %d", g2)
	}
}

func TestRecordEnqueueRequiresOpen(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks()}
	pool := packet.NewPool(nil)
	pkt := pool.Grab()
	pkt.FillInline([]byte("hi"))

	if r.Enqueue(pkt, false) {
		t.Fatal("expected Enqueue to fail on an unopened record")
	}
}

func TestRecordEnqueueOrderFIFO(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks(), open: true}
	pool := packet.NewPool(nil)

	a := pool.Grab()
	a.FillInline([]byte("AAAA"))
	b := pool.Grab()
	b.FillInline([]byte("BBBB"))

	r.Enqueue(a, false)
	r.Enqueue(b, false)

	head, sent := r.Head()
	if head != a || sent != 0 {
		t.Fatal("expected A to be the head of the queue")
	}
	if head.Next() != b {
		t.Fatal("expected B to follow A in submission order")
	}
}

func TestRecordUrgentSplicesAfterHalfSentHead(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks(), open: true}
	pool := packet.NewPool(nil)

	a := pool.Grab()
	a.FillInline([]byte("AAAA"))
	b := pool.Grab()
	b.FillInline([]byte("BBBB"))
	r.Enqueue(a, false)
	r.Enqueue(b, false)

	r.sent = 2 // A half-sent

	c := pool.Grab()
	c.FillInline([]byte("CCCC"))
	r.Enqueue(c, true)

	head, _ := r.Head()
	if head != a {
		t.Fatal("expected A to remain the head (already half-sent)")
	}
	if head.Next() != c {
		t.Fatal("expected C to be spliced in right after the half-sent head")
	}
	if c.Next() != b {
		t.Fatal("expected B to follow C")
	}
}

func TestRecordUrgentAtHeadWhenUntouched(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks(), open: true}
	pool := packet.NewPool(nil)

	a := pool.Grab()
	a.FillInline([]byte("AAAA"))
	r.Enqueue(a, false)

	c := pool.Grab()
	c.FillInline([]byte("CCCC"))
	r.Enqueue(c, true)

	head, sent := r.Head()
	if head != c || sent != 0 {
		t.Fatal("expected urgent C to jump ahead of untouched A")
	}
}

func TestRecordAdvanceRotatesCompletedPacket(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks(), open: true}
	pool := packet.NewPool(nil)

	a := pool.Grab()
	a.FillInline([]byte("AAAA"))
	b := pool.Grab()
	b.FillInline([]byte("BBBB"))
	r.Enqueue(a, false)
	r.Enqueue(b, false)

	r.Advance(4, pool)

	head, sent := r.Head()
	if head != b || sent != 0 {
		t.Fatal("expected B to be rotated to the head after A completes")
	}
}

func TestRecordHasPending(t *testing.T) {
	r := &Record{hooks: testHooks(), defaultHooks: testHooks(), open: true}
	pool := packet.NewPool(nil)

	if r.HasPending() {
		t.Fatal("expected no pending data on an empty queue")
	}
	pkt := pool.Grab()
	pkt.FillInline([]byte("x"))
	r.Enqueue(pkt, false)
	if !r.HasPending() {
		t.Fatal("expected pending data after enqueue")
	}
}

func TestRecordSetHooksFillsNilFields(t *testing.T) {
	def := testHooks()
	r := &Record{hooks: def, defaultHooks: def, open: true}

	custom := interfaces.Hooks{
		Write: func(int64, []byte) (int, error) { return 99, nil },
	}
	r.SetHooks(custom)

	h := r.Hooks()
	if h.Read == nil || h.Flush == nil || h.OnClear == nil {
		t.Fatal("expected SetHooks to fill unset fields from defaults")
	}
	n, _ := h.Write(0, nil)
	if n != 99 {
		t.Fatal("expected the custom Write to survive Fill")
	}
}
