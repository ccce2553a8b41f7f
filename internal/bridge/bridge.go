// Package bridge implements the Master/Slave Server component (spec.md
// §4.11): it extends a Net Interface with service-transport semantics,
// bridging a local Named Server to a peer across connect/activate/send/
// close/bind/unbind verbs.
//
// Pipe ids are allocated the way minitunnel.Tunnel picks its TIDs: a
// random int63 per connect response rather than a per-side counter. Two
// independent Bridge instances (one per side) would otherwise have to
// coordinate id spaces — one side's "ids I allocated while serving the
// peer's connect calls" and "ids the peer allocated for connects I
// initiated" land in the same local map, so a monotonic counter on both
// ends could collide; minitunnel accepts the same birthday-bound
// collision risk for its TIDs, and so do we.
package bridge

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
)

// Authorizer checks a principal's access and modification ACLs (spec.md
// §4.12's hook point). The default Bridge authorizes everything; install
// a stricter one once the authentication handshake (internal/auth) has
// identified the peer's principal.
type Authorizer interface {
	Access(service string) error
	Modify(service string) error
}

type allowAll struct{}

func (allowAll) Access(string) error { return nil }
func (allowAll) Modify(string) error { return nil }

// remotePipe is one end of a bridged connection tracked locally: either
// the service-side pipe (we allocated the id, serving the peer's
// connect) or the client-side pipe (the peer allocated the id, replying
// to a connect we issued). service is the path the original connect
// named, kept so a later send can be checked against the modification
// ACL by service name rather than by the opaque pipe id.
type remotePipe struct {
	mu      sync.Mutex
	local   *pipe.Pipe
	service string
	frozen  bool
	queued  []kgr.Value
}

// Bridge bridges a local named.Server to a peer across conn.
type Bridge struct {
	conn  *netif.Conn
	local *named.Server
	rnum  *rand.Rand

	mu    sync.Mutex
	pipes map[int64]*remotePipe

	authMu sync.RWMutex
	auth   Authorizer
}

func New(conn *netif.Conn, local *named.Server) *Bridge {
	b := &Bridge{
		conn:  conn,
		local: local,
		rnum:  rand.New(rand.NewSource(time.Now().UnixNano())),
		pipes: make(map[int64]*remotePipe),
		auth:  allowAll{},
	}
	conn.RegisterMethod("connect", b.handleConnect)
	conn.RegisterMethod("activate", b.handleActivate)
	conn.RegisterMethod("send", b.handleSend)
	conn.RegisterMethod("close", b.handleClose)
	conn.RegisterMethod("bind", b.handleBind)
	conn.RegisterMethod("unbind", b.handleUnbind)
	return b
}

// SetAuthorizer installs the ACL hook, normally done once the
// authentication handshake (internal/auth) has identified the peer's
// principal.
func (b *Bridge) SetAuthorizer(a Authorizer) {
	b.authMu.Lock()
	b.auth = a
	b.authMu.Unlock()
}

func (b *Bridge) authorizer() Authorizer {
	b.authMu.RLock()
	defer b.authMu.RUnlock()
	return b.auth
}

func serviceParam(params kgr.Value) string {
	if !params.IsObject() {
		return ""
	}
	v, _ := params.AsObject().Get("service")
	return v.AsString()
}

func pipeIDParam(params kgr.Value) int64 {
	if !params.IsObject() {
		return 0
	}
	v, _ := params.AsObject().Get("pipe_id")
	return v.AsInt()
}

func resultWithPipeID(id int64) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("pipe_id", kgr.Int(id))
	return kgr.Object(om)
}

// handleConnect serves an inbound connect(service_name): it connects our
// local Named Server, allocates a pipe id, and wires a listener that
// forwards the service's output back over the wire once activated.
func (b *Bridge) handleConnect(method string, params kgr.Value, r netif.Responder) {
	service := serviceParam(params)
	if err := b.authorizer().Access(service); err != nil {
		r.Error(slkerr.AclDenied, err.Error())
		return
	}

	local, err := b.local.Connect(service)
	if err != nil {
		kind, ok := slkerr.Of(err)
		if !ok {
			kind = slkerr.PathNotFound
		}
		r.Error(kind, err.Error())
		return
	}

	rp := &remotePipe{local: local, service: service, frozen: true}
	id := b.register(rp)
	local.SetListener(func() { go b.drain(id, rp) })

	r.Result(resultWithPipeID(id))
}

func (b *Bridge) register(rp *remotePipe) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		id := b.rnum.Int63()
		if id == 0 {
			continue
		}
		if _, exists := b.pipes[id]; exists {
			continue
		}
		b.pipes[id] = rp
		return id
	}
}

func (b *Bridge) lookup(id int64) (*remotePipe, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rp, ok := b.pipes[id]
	return rp, ok
}

func (b *Bridge) forget(id int64) {
	b.mu.Lock()
	delete(b.pipes, id)
	b.mu.Unlock()
}

// drain forwards rp.local's queued reads onward: over the wire via
// send(pipe_id, v) once thawed, or into rp.queued while frozen.
func (b *Bridge) drain(id int64, rp *remotePipe) {
	for {
		v, ok := rp.local.Read()
		if !ok {
			if rp.local.Closed() {
				b.forget(id)
				b.sendClose(id)
			}
			return
		}

		rp.mu.Lock()
		frozen := rp.frozen
		if frozen {
			rp.queued = append(rp.queued, v)
		}
		rp.mu.Unlock()

		if !frozen {
			b.sendData(id, v)
		}
	}
}

func (b *Bridge) sendData(id int64, v kgr.Value) {
	om := kgr.NewOrderedMap()
	om.Set("pipe_id", kgr.Int(id))
	om.Set("data", v)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.conn.Invoke(ctx, "send", kgr.Object(om))
}

func (b *Bridge) sendClose(id int64) {
	om := kgr.NewOrderedMap()
	om.Set("pipe_id", kgr.Int(id))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.conn.Invoke(ctx, "close", kgr.Object(om))
}

// handleActivate thaws a frozen pipe and flushes whatever it queued.
func (b *Bridge) handleActivate(method string, params kgr.Value, r netif.Responder) {
	id := pipeIDParam(params)
	rp, ok := b.lookup(id)
	if !ok {
		r.Error(slkerr.PathNotFound, "bridge: unknown pipe")
		return
	}

	rp.mu.Lock()
	rp.frozen = false
	queued := rp.queued
	rp.queued = nil
	rp.mu.Unlock()

	for _, v := range queued {
		b.sendData(id, v)
	}
	r.Result(kgr.Null())
}

// Activate is the local-initiator's counterpart: call it once the caller
// has installed whatever local forwarding it wants, per spec.md §9's
// "frozen until activate" handshake.
func (b *Bridge) Activate(ctx context.Context, id int64) error {
	om := kgr.NewOrderedMap()
	om.Set("pipe_id", kgr.Int(id))
	if _, err := b.conn.Invoke(ctx, "activate", kgr.Object(om)); err != nil {
		return err
	}
	// Thaw our own end too, flushing what the caller wrote before this.
	if rp, ok := b.lookup(id); ok {
		rp.mu.Lock()
		rp.frozen = false
		queued := rp.queued
		rp.queued = nil
		rp.mu.Unlock()
		for _, v := range queued {
			b.sendData(id, v)
		}
	}
	return nil
}

// handleSend forwards inbound wire data into the local end of the
// identified pipe.
func (b *Bridge) handleSend(method string, params kgr.Value, r netif.Responder) {
	id := pipeIDParam(params)
	rp, ok := b.lookup(id)
	if !ok {
		r.Error(slkerr.PathNotFound, "bridge: unknown pipe")
		return
	}
	if err := b.authorizer().Modify(rp.service); err != nil {
		r.Error(slkerr.AclDenied, err.Error())
		return
	}

	data, _ := params.AsObject().Get("data")
	if err := rp.local.Write(data); err != nil {
		r.Error(slkerr.DocumentClosed, err.Error())
		return
	}
	r.Result(kgr.Null())
}

// handleClose closes and forgets the identified pipe.
func (b *Bridge) handleClose(method string, params kgr.Value, r netif.Responder) {
	id := pipeIDParam(params)
	if rp, ok := b.lookup(id); ok {
		b.forget(id)
		rp.local.Close()
	}
	r.Result(kgr.Null())
}

// Connect bridges to a service on the peer: it invokes connect(service)
// over the wire, allocates a local pipe pair, registers the peer-assigned
// id under it, and installs the outbound-forwarding listener. The
// returned pipe is the caller's endpoint; Activate must be called before
// either side forwards anything (writes made earlier are queued).
func (b *Bridge) Connect(ctx context.Context, service string) (*pipe.Pipe, int64, error) {
	om := kgr.NewOrderedMap()
	om.Set("service", kgr.String(service))
	resp, err := b.conn.Invoke(ctx, "connect", kgr.Object(om))
	if err != nil {
		return nil, 0, err
	}
	idVal, _ := resp.AsObject().Get("pipe_id")
	id := idVal.AsInt()

	client, ours := pipe.NewPair()
	rp := &remotePipe{local: ours, service: service, frozen: true}
	b.mu.Lock()
	b.pipes[id] = rp
	b.mu.Unlock()
	ours.SetListener(func() { go b.drain(id, rp) })

	return client, id, nil
}

// Bind announces that we own service locally to the peer, so the peer
// registers a proxy that forwards connects back to us.
func (b *Bridge) Bind(ctx context.Context, service string) error {
	om := kgr.NewOrderedMap()
	om.Set("service", kgr.String(service))
	_, err := b.conn.Invoke(ctx, "bind", kgr.Object(om))
	return err
}

func (b *Bridge) Unbind(ctx context.Context, service string) error {
	om := kgr.NewOrderedMap()
	om.Set("service", kgr.String(service))
	_, err := b.conn.Invoke(ctx, "unbind", kgr.Object(om))
	return err
}

// handleBind registers a proxy service at the announced path: on attach,
// the proxy connects back to the peer for the real service and wires the
// two pipes together.
func (b *Bridge) handleBind(method string, params kgr.Value, r netif.Responder) {
	service := serviceParam(params)
	proxy := named.ServiceFunc(func(endpoint *pipe.Pipe) {
		go b.serveProxy(endpoint, service)
	})
	if err := b.local.Register(service, proxy); err != nil {
		kind, ok := slkerr.Of(err)
		if !ok {
			kind = slkerr.AlreadyRegistered
		}
		r.Error(kind, err.Error())
		return
	}
	r.Result(kgr.Null())
}

func (b *Bridge) handleUnbind(method string, params kgr.Value, r netif.Responder) {
	b.local.Deregister(serviceParam(params))
	r.Result(kgr.Null())
}

// serveProxy connects back to the peer for service and splices endpoint
// (the local caller's pipe) to the remote connection: local writes become
// send() calls to the peer, and the remote's forwarded data (delivered
// via handleSend into remote) is relayed onward to endpoint.
func (b *Bridge) serveProxy(endpoint *pipe.Pipe, service string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remote, id, err := b.Connect(ctx, service)
	if err != nil {
		endpoint.Close()
		return
	}
	if err := b.Activate(ctx, id); err != nil {
		endpoint.Close()
		remote.Close()
		return
	}

	endpoint.SetListener(func() {
		go func() {
			for {
				v, ok := endpoint.Read()
				if !ok {
					return
				}
				remote.Write(v)
			}
		}()
	})
	remote.SetListener(func() {
		go func() {
			for {
				v, ok := remote.Read()
				if !ok {
					return
				}
				endpoint.Write(v)
			}
		}()
	})
	// Relay anything the caller wrote before the listener was installed.
	for {
		v, ok := endpoint.Read()
		if !ok {
			break
		}
		remote.Write(v)
	}
}
