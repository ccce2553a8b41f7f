// Package auth implements the Authenticator hook point (spec.md §4.12,
// §6 "Authentication handshake"): a pluggable challenge/response
// AuthenticatorFactory, a default HKDF-backed implementation, and the
// per-principal access/modification ACLs the Bridge enforces once a
// session is authenticated.
//
// The core only specifies the hook points and the wire shape of the
// handshake; concrete cryptography is explicitly an external collaborator
// (spec.md's Non-goals). The default implementation here exists for
// tests and single-host deployments, the way the teacher's own default
// configs are meant to be replaced in a real deployment, not relied on.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/slkerr"
)

// Principal is the identity attached to a session once it authenticates
// (spec.md §6 step 4). Access and Modify are path-prefix whitelists
// checked by connect() and send() respectively; an empty list means
// unrestricted (no authenticator factory configured behaves the same
// way a session with Access == nil does).
type Principal struct {
	ID     uuid.UUID
	Name   string
	Access []string
	Modify []string
}

func allowsPrefix(list []string, path string) bool {
	if len(list) == 0 {
		return true
	}
	for _, prefix := range list {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Access implements bridge.Authorizer structurally: *Principal can be
// passed straight to Bridge.SetAuthorizer without internal/bridge having
// to import internal/auth.
func (p *Principal) Access(service string) error {
	if !allowsPrefix(p.Access, service) {
		return slkerr.New(slkerr.AclDenied, "auth: %s is not in %s's access ACL", service, p.Name)
	}
	return nil
}

func (p *Principal) Modify(service string) error {
	if !allowsPrefix(p.Modify, service) {
		return slkerr.New(slkerr.AclDenied, "auth: %s is not in %s's modification ACL", service, p.Name)
	}
	return nil
}

// Challenge is what a server hands back from auth/login: a nonce to mix
// into the response and an opaque id identifying this attempt.
type Challenge struct {
	Nonce []byte
	KeyID string
}

// AuthenticatorFactory is the pluggable crypto hook (spec.md §4.12).
// Challenge is called on auth/login; Verify is called on auth/respond
// with whatever bytes the client computed over the challenge.
type AuthenticatorFactory interface {
	Challenge(user string) (Challenge, error)
	Verify(user string, challenge Challenge, response []byte) (*Principal, error)
}

// DeriveResponse computes the expected auth/respond payload for (secret,
// user, nonce): an HKDF-SHA256 key derived from secret, salted with
// nonce and keyed to user. Shared by HKDFAuthenticator.Verify and by
// clients that know the same secret out of band, so both sides compute
// identically without the secret ever crossing the wire.
func DeriveResponse(secret []byte, user string, nonce []byte) []byte {
	kdf := hkdf.New(sha256.New, secret, nonce, []byte(user))
	out := make([]byte, 32)
	io.ReadFull(kdf, out)
	return out
}

type pendingChallenge struct {
	user      string
	nonce     []byte
	challenge Challenge
}

// HKDFAuthenticator is the default, in-tree AuthenticatorFactory: it
// derives each challenge's expected response via DeriveResponse and
// compares with crypto/subtle.ConstantTimeCompare. golang.org/x/crypto is
// already a pack dependency (minimega uses it for host key handling);
// this reuses it for the hook point the core leaves open.
type HKDFAuthenticator struct {
	secret []byte

	mu      sync.Mutex
	users   map[string]*Principal
	pending map[string]pendingChallenge
}

func NewHKDFAuthenticator(secret []byte) *HKDFAuthenticator {
	return &HKDFAuthenticator{
		secret:  secret,
		users:   make(map[string]*Principal),
		pending: make(map[string]pendingChallenge),
	}
}

// Register enrolls a principal under user, replacing any prior entry.
func (a *HKDFAuthenticator) Register(user string, p *Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[user] = p
}

func (a *HKDFAuthenticator) Challenge(user string) (Challenge, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.users[user]; !ok {
		return Challenge{}, slkerr.New(slkerr.AuthDenied, "auth: unknown user %q", user)
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return Challenge{}, err
	}
	ch := Challenge{Nonce: nonce, KeyID: uuid.NewString()}
	a.pending[ch.KeyID] = pendingChallenge{user: user, nonce: nonce, challenge: ch}
	return ch, nil
}

// Verify checks response against the one-shot pending challenge
// identified by challenge.KeyID, consuming it either way.
func (a *HKDFAuthenticator) Verify(user string, challenge Challenge, response []byte) (*Principal, error) {
	a.mu.Lock()
	pc, ok := a.pending[challenge.KeyID]
	delete(a.pending, challenge.KeyID)
	principal := a.users[user]
	a.mu.Unlock()

	if !ok || pc.user != user {
		return nil, slkerr.New(slkerr.AuthDenied, "auth: no such challenge for %q", user)
	}
	expected := DeriveResponse(a.secret, user, pc.nonce)
	if subtle.ConstantTimeCompare(expected, response) != 1 {
		return nil, slkerr.New(slkerr.AuthDenied, "auth: response mismatch for %q", user)
	}
	if principal == nil {
		return nil, slkerr.New(slkerr.AuthDenied, "auth: unknown user %q", user)
	}
	return principal, nil
}

// Handshake wires auth/login and auth/respond onto conn's method table
// per spec.md §6's four-step sequence, calling onAuth with the resulting
// Principal once auth/respond succeeds. It is strictly sequential on one
// connection — login, then respond — so a single pending slot (rather
// than a map) is enough; a fresh login simply replaces whatever the
// previous one left pending.
type Handshake struct {
	factory AuthenticatorFactory
	onAuth  func(*Principal)

	mu      sync.Mutex
	pending *pendingChallenge
}

func Serve(conn *netif.Conn, factory AuthenticatorFactory, onAuth func(*Principal)) *Handshake {
	h := &Handshake{factory: factory, onAuth: onAuth}
	conn.RegisterMethod("auth/login", h.handleLogin)
	conn.RegisterMethod("auth/respond", h.handleRespond)
	return h
}

func (h *Handshake) handleLogin(method string, params kgr.Value, r netif.Responder) {
	user, _ := params.AsObject().Get("user")

	ch, err := h.factory.Challenge(user.AsString())
	if err != nil {
		kind, ok := slkerr.Of(err)
		if !ok {
			kind = slkerr.AuthDenied
		}
		r.Error(kind, err.Error())
		return
	}

	h.mu.Lock()
	h.pending = &pendingChallenge{user: user.AsString(), nonce: ch.Nonce, challenge: ch}
	h.mu.Unlock()

	om := kgr.NewOrderedMap()
	om.Set("nonce", kgr.String(base64.StdEncoding.EncodeToString(ch.Nonce)))
	om.Set("key_id", kgr.String(ch.KeyID))
	r.Result(kgr.Object(om))
}

func (h *Handshake) handleRespond(method string, params kgr.Value, r netif.Responder) {
	respVal, _ := params.AsObject().Get("response")
	response, err := base64.StdEncoding.DecodeString(respVal.AsString())
	if err != nil {
		r.Error(slkerr.MalformedMessage, "auth: response is not valid base64")
		return
	}

	h.mu.Lock()
	pc := h.pending
	h.pending = nil
	h.mu.Unlock()
	if pc == nil {
		r.Error(slkerr.AuthDenied, "auth: no pending login")
		return
	}

	principal, err := h.factory.Verify(pc.user, pc.challenge, response)
	if err != nil {
		kind, ok := slkerr.Of(err)
		if !ok {
			kind = slkerr.AuthDenied
		}
		r.Error(kind, err.Error())
		return
	}

	if h.onAuth != nil {
		h.onAuth(principal)
	}
	r.Result(kgr.Bool(true))
}

// Login drives the client side of the handshake: it sends auth/login,
// derives the response via solve (typically DeriveResponse with a
// shared secret), and sends auth/respond.
func Login(ctx context.Context, conn *netif.Conn, user string, solve func(nonce []byte) []byte) error {
	om := kgr.NewOrderedMap()
	om.Set("user", kgr.String(user))
	resp, err := conn.Invoke(ctx, "auth/login", kgr.Object(om))
	if err != nil {
		return err
	}

	nonceVal, _ := resp.AsObject().Get("nonce")
	nonce, err := base64.StdEncoding.DecodeString(nonceVal.AsString())
	if err != nil {
		return slkerr.New(slkerr.MalformedMessage, "auth: server nonce is not valid base64")
	}

	response := solve(nonce)
	om2 := kgr.NewOrderedMap()
	om2.Set("response", kgr.String(base64.StdEncoding.EncodeToString(response)))
	_, err = conn.Invoke(ctx, "auth/respond", kgr.Object(om2))
	return err
}
