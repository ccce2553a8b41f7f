package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/auth"
	"github.com/sloked/sloked/internal/bridge"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
	"github.com/sloked/sloked/internal/server"
	"github.com/sloked/sloked/internal/slkerr"
)

// TestAclDeniedKeepsSessionOpen reproduces spec.md §8 scenario 5: a
// principal whose Access whitelist names only "/document" gets AclDenied
// calling screen.manager.getInfo("/"), and the session stays usable
// afterward (the denial closes nothing but the one connect attempt).
func TestAclDeniedKeepsSessionOpen(t *testing.T) {
	netA, netB := net.Pipe()
	serverConn := netif.NewConn(netA, time.Second)
	clientConn := netif.NewConn(netB, time.Second)
	go serverConn.Serve()
	go clientConn.Serve()
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })

	tree := screen.NewTree()
	local := named.NewServer()
	if err := local.Register("/screen/manager", server.NewScreenManagerService(tree, 1)); err != nil {
		t.Fatal(err)
	}
	br := bridge.New(serverConn, local)

	secret := []byte("shared-secret")
	factory := auth.NewHKDFAuthenticator(secret)
	factory.Register("bob", &auth.Principal{ID: uuid.New(), Name: "bob", Access: []string{"/document"}})
	auth.Serve(serverConn, factory, func(p *auth.Principal) { br.SetAuthorizer(p) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := auth.Login(ctx, clientConn, "bob", func(nonce []byte) []byte {
		return auth.DeriveResponse(secret, "bob", nonce)
	}); err != nil {
		t.Fatal(err)
	}

	clientBridge := bridge.New(clientConn, named.NewServer())
	if _, _, err := clientBridge.Connect(ctx, "/screen/manager"); !slkerr.Is(err, slkerr.AclDenied) {
		t.Fatalf("got %v, want AclDenied", err)
	}

	// The session itself is untouched by the denial: a service bob's
	// whitelist does allow still connects and answers normally.
	if err := local.Register("/document/manager", named.ServiceFunc(func(endpoint *pipe.Pipe) {
		go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
			"ping": func(kgr.Value) (kgr.Value, error) { return kgr.String("pong"), nil },
		})
	})); err != nil {
		t.Fatal(err)
	}
	allowedPipe, id, err := clientBridge.Connect(ctx, "/document/manager")
	if err != nil {
		t.Fatalf("expected the allowed service to still connect, got %v", err)
	}
	if err := clientBridge.Activate(ctx, id); err != nil {
		t.Fatal(err)
	}
	result, err := pipe.NewClient(allowedPipe).Invoke(ctx, "ping", kgr.Null())
	if err != nil {
		t.Fatal(err)
	}
	if result.AsString() != "pong" {
		t.Fatalf("expected pong, got %q", result.AsString())
	}
}
