package netif

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

func newConnPair(t *testing.T, timeout time.Duration) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca := NewConn(a, timeout)
	cb := NewConn(b, timeout)
	go ca.Serve()
	go cb.Serve()
	t.Cleanup(func() { ca.Close(); cb.Close() })
	return ca, cb
}

// TestNetBridging reproduces spec.md §8 scenario 4: a peer registers
// "echo" that responds with its params, the other invokes it.
func TestNetBridging(t *testing.T) {
	master, slave := newConnPair(t, time.Second)

	master.RegisterMethod("echo", func(method string, params kgr.Value, r Responder) {
		r.Result(params)
	})

	om := kgr.NewOrderedMap()
	om.Set("x", kgr.Int(1))
	params := kgr.Object(om)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := slave.Invoke(ctx, "echo", params)
	if err != nil {
		t.Fatal(err)
	}
	xv, ok := result.AsObject().Get("x")
	if !ok || xv.AsInt() != 1 {
		t.Fatalf("got %+v", result)
	}
}

func TestUnknownMethodRepliesError(t *testing.T) {
	master, slave := newConnPair(t, time.Second)
	_ = master

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := slave.Invoke(ctx, "nope", kgr.Null())
	if !slkerr.Is(err, slkerr.PathNotFound) {
		t.Fatalf("got %v, want PathNotFound", err)
	}
}

func TestInvokeTimesOutOnSilence(t *testing.T) {
	master, slave := newConnPair(t, 50*time.Millisecond)
	master.RegisterMethod("slow", func(method string, params kgr.Value, r Responder) {
		// never responds
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := slave.Invoke(ctx, "slow", kgr.Null())
	if !slkerr.Is(err, slkerr.Timeout) {
		t.Fatalf("got %v, want Timeout", err)
	}
}
