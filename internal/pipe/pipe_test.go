package pipe

import (
	"context"
	"testing"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

// TestPipeOrder reproduces spec.md §8's pipe-order invariant: if write(a)
// happens-before write(b), a reader sees a before b.
func TestPipeOrder(t *testing.T) {
	a, b := NewPair()
	if err := a.Write(kgr.Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := a.Write(kgr.Int(2)); err != nil {
		t.Fatal(err)
	}

	v1, ok := b.Read()
	if !ok || v1.AsInt() != 1 {
		t.Fatalf("got %+v, %v", v1, ok)
	}
	v2, ok := b.Read()
	if !ok || v2.AsInt() != 2 {
		t.Fatalf("got %+v, %v", v2, ok)
	}
	if _, ok := b.Read(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestPipeCloseDrainsThenReportsClosed(t *testing.T) {
	a, b := NewPair()
	if err := a.Write(kgr.Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Write(kgr.Int(2)); !slkerr.Is(err, slkerr.DocumentClosed) {
		t.Fatalf("got %v, want DocumentClosed", err)
	}

	v, ok := b.Read()
	if !ok || v.AsInt() != 1 {
		t.Fatalf("expected to drain the queued value first, got %+v %v", v, ok)
	}
	if !b.Closed() {
		t.Fatal("expected b to report closed once drained")
	}
}

func TestPipeListenerFiresOncePerEmptyToNonEmpty(t *testing.T) {
	a, b := NewPair()
	var fired int
	b.SetListener(func() { fired++ })

	if err := a.Write(kgr.Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := a.Write(kgr.Int(2)); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1 (only the empty->nonempty transition)", fired)
	}

	b.Read()
	b.Read()
	if err := a.Write(kgr.Int(3)); err != nil {
		t.Fatal(err)
	}
	if fired != 2 {
		t.Fatalf("fired = %d, want 2 after draining and refilling", fired)
	}
}

func TestPipeReadWaitBlocksUntilWrite(t *testing.T) {
	a, b := NewPair()
	done := make(chan kgr.Value, 1)
	go func() {
		v, _ := b.ReadWait(context.Background())
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	if err := a.Write(kgr.String("hi")); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-done:
		if v.AsString() != "hi" {
			t.Fatalf("got %q", v.AsString())
		}
	case <-time.After(time.Second):
		t.Fatal("ReadWait did not return after write")
	}
}

func TestDeferredQueueRetriesUntilDone(t *testing.T) {
	var dq DeferredQueue
	attempts := 0
	dq.Push(func() bool {
		attempts++
		return attempts < 3
	})

	for dq.StepOne() {
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestManagerPollsContextsToExhaustion(t *testing.T) {
	a, b := NewPair()
	var received []int64
	ctx := NewPipeContext(b, func(v kgr.Value) { received = append(received, v.AsInt()) })

	m := NewManager()
	m.Add(ctx)

	a.Write(kgr.Int(1))
	a.Write(kgr.Int(2))
	a.Write(kgr.Int(3))

	m.RunOnce()
	if len(received) != 3 || received[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", received)
	}
}
