package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/pipe"
)

func echoService() named.ServiceFunc {
	return named.ServiceFunc(func(endpoint *pipe.Pipe) {
		go func() {
			for {
				v, ok := endpoint.ReadWait(context.Background())
				if !ok {
					return
				}
				endpoint.Write(v)
			}
		}()
	})
}

func newBridgePair(t *testing.T, namedA, namedB *named.Server) (*Bridge, *Bridge) {
	t.Helper()
	a, b := net.Pipe()
	connA := netif.NewConn(a, time.Second)
	connB := netif.NewConn(b, time.Second)
	go connA.Serve()
	go connB.Serve()
	t.Cleanup(func() { connA.Close(); connB.Close() })
	return New(connA, namedA), New(connB, namedB)
}

// TestConnectActivateSendRoundtrip exercises connect/activate/send across
// a bridge pair: the local side connects to the peer's "/echo" service and
// reads its own data back.
func TestConnectActivateSendRoundtrip(t *testing.T) {
	namedB := named.NewServer()
	if err := namedB.Register("/echo", echoService()); err != nil {
		t.Fatal(err)
	}

	bridgeA, _ := newBridgePair(t, named.NewServer(), namedB)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, id, err := bridgeA.Connect(ctx, "/echo")
	if err != nil {
		t.Fatal(err)
	}
	if err := bridgeA.Activate(ctx, id); err != nil {
		t.Fatal(err)
	}

	if err := client.Write(kgr.String("hi")); err != nil {
		t.Fatal(err)
	}

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	v, ok := client.ReadWait(readCtx)
	if !ok {
		t.Fatal("expected echoed value, got none")
	}
	if v.AsString() != "hi" {
		t.Fatalf("got %q, want %q", v.AsString(), "hi")
	}
}

// TestConnectUnknownServiceFails checks that connecting to a path the
// peer never registered surfaces as an error rather than hanging.
func TestConnectUnknownServiceFails(t *testing.T) {
	bridgeA, _ := newBridgePair(t, named.NewServer(), named.NewServer())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, _, err := bridgeA.Connect(ctx, "/nope"); err == nil {
		t.Fatal("expected an error connecting to an unregistered service")
	}
}

// TestBindInstallsProxyThatForwardsConnect reproduces the bind/unbind
// handshake: side A owns "/echo" and announces it, so side B's Named
// Server gets a local proxy that tunnels connects back to A.
func TestBindInstallsProxyThatForwardsConnect(t *testing.T) {
	namedA := named.NewServer()
	if err := namedA.Register("/echo", echoService()); err != nil {
		t.Fatal(err)
	}
	namedB := named.NewServer()

	bridgeA, _ := newBridgePair(t, namedA, namedB)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bridgeA.Bind(ctx, "/echo"); err != nil {
		t.Fatal(err)
	}

	endpoint, err := namedB.Connect("/echo")
	if err != nil {
		t.Fatal(err)
	}

	if err := endpoint.Write(kgr.String("proxied")); err != nil {
		t.Fatal(err)
	}

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	v, ok := endpoint.ReadWait(readCtx)
	if !ok {
		t.Fatal("expected echoed value via proxy, got none")
	}
	if v.AsString() != "proxied" {
		t.Fatalf("got %q, want %q", v.AsString(), "proxied")
	}
}
