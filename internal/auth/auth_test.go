package auth

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/slkerr"
)

func newConnPair(t *testing.T) (*netif.Conn, *netif.Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca := netif.NewConn(a, time.Second)
	cb := netif.NewConn(b, time.Second)
	go ca.Serve()
	go cb.Serve()
	t.Cleanup(func() { ca.Close(); cb.Close() })
	return ca, cb
}

func TestHandshakeSucceedsWithCorrectSecret(t *testing.T) {
	secret := []byte("shared-secret")
	server, client := newConnPair(t)

	factory := NewHKDFAuthenticator(secret)
	factory.Register("alice", &Principal{ID: uuid.New(), Name: "alice", Access: []string{"/document"}})

	var got *Principal
	Serve(server, factory, func(p *Principal) { got = p })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := Login(ctx, client, "alice", func(nonce []byte) []byte {
		return DeriveResponse(secret, "alice", nonce)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "alice" {
		t.Fatalf("server never recorded the principal: %+v", got)
	}
}

func TestHandshakeFailsWithWrongSecret(t *testing.T) {
	server, client := newConnPair(t)

	factory := NewHKDFAuthenticator([]byte("correct-secret"))
	factory.Register("alice", &Principal{ID: uuid.New(), Name: "alice"})
	Serve(server, factory, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := Login(ctx, client, "alice", func(nonce []byte) []byte {
		return DeriveResponse([]byte("wrong-secret"), "alice", nonce)
	})
	if !slkerr.Is(err, slkerr.AuthDenied) {
		t.Fatalf("got %v, want AuthDenied", err)
	}
}

func TestHandshakeFailsForUnknownUser(t *testing.T) {
	server, client := newConnPair(t)
	factory := NewHKDFAuthenticator([]byte("secret"))
	Serve(server, factory, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := Login(ctx, client, "ghost", func(nonce []byte) []byte {
		return DeriveResponse([]byte("secret"), "ghost", nonce)
	})
	if !slkerr.Is(err, slkerr.AuthDenied) {
		t.Fatalf("got %v, want AuthDenied", err)
	}
}

func TestPrincipalAccessACL(t *testing.T) {
	p := &Principal{Name: "u", Access: []string{"/document"}}

	if err := p.Access("/document"); err != nil {
		t.Fatalf("exact prefix match should be allowed: %v", err)
	}
	if err := p.Access("/document/manager"); err != nil {
		t.Fatalf("sub-path should be allowed: %v", err)
	}
	if err := p.Access("/screen/manager"); !slkerr.Is(err, slkerr.AclDenied) {
		t.Fatalf("got %v, want AclDenied", err)
	}
}

func TestPrincipalUnrestrictedWhenACLEmpty(t *testing.T) {
	p := &Principal{Name: "u"}
	if err := p.Access("/anything"); err != nil {
		t.Fatalf("empty ACL should be unrestricted: %v", err)
	}
	if err := p.Modify("/anything"); err != nil {
		t.Fatalf("empty ACL should be unrestricted: %v", err)
	}
}
