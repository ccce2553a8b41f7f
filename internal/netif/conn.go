package netif

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

// Responder lets a method handler reply to exactly one invoke.
type Responder interface {
	Result(v kgr.Value) error
	Error(kind slkerr.Kind, message string) error
}

// MethodFunc handles one invoke request.
type MethodFunc func(method string, params kgr.Value, r Responder)

// Conn is one Net Interface endpoint over a byte-oriented stream
// transport (spec.md §4.10). Writes are serialized by writeMu so frames
// never interleave; reads run on a single goroutine started by Serve,
// mirroring minitunnel.Tunnel's single mux-reader-loop structure.
type Conn struct {
	transport io.ReadWriteCloser
	writeMu   sync.Mutex
	broker    *broker

	methodsMu sync.RWMutex
	methods   map[string]MethodFunc
	// Unknown dispatches invokes for methods with no registered handler;
	// the default replies with a PathNotFound error (spec.md §4.10
	// "invoke_method" hook). The reply carries only that kind: no
	// "Unknown method" text and no method name reach the caller.
	Unknown MethodFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps transport. timeout is the per-invoke inactivity window
// (ResponseTimeout); zero disables it.
func NewConn(transport io.ReadWriteCloser, timeout time.Duration) *Conn {
	c := &Conn{
		transport: transport,
		broker:    newBroker(timeout),
		methods:   make(map[string]MethodFunc),
		closed:    make(chan struct{}),
	}
	c.Unknown = func(method string, params kgr.Value, r Responder) {
		r.Error(slkerr.PathNotFound, "unknown method "+method)
	}
	return c
}

// RegisterMethod binds name to fn in this connection's method table.
func (c *Conn) RegisterMethod(name string, fn MethodFunc) {
	c.methodsMu.Lock()
	c.methods[name] = fn
	c.methodsMu.Unlock()
}

func (c *Conn) methodFor(name string) MethodFunc {
	c.methodsMu.RLock()
	fn, ok := c.methods[name]
	c.methodsMu.RUnlock()
	if ok {
		return fn
	}
	return c.Unknown
}

// Serve runs the receive loop until the transport errors or Close is
// called. It dispatches "invoke" frames to the method table, routes
// "response" frames to the broker, and tears the connection down on
// "close".
func (c *Conn) Serve() error {
	for {
		v, err := readFrame(c.transport)
		if err != nil {
			c.teardown(err)
			return err
		}
		if !v.IsObject() {
			continue
		}
		obj := v.AsObject()
		action, _ := obj.Get("action")
		switch action.AsString() {
		case "invoke":
			go c.handleInvoke(obj)
		case "response":
			c.handleResponse(obj)
		case "close":
			c.teardown(nil)
			return nil
		}
	}
}

func (c *Conn) handleInvoke(obj *kgr.OrderedMap) {
	idVal, _ := obj.Get("id")
	methodVal, _ := obj.Get("method")
	params, hasParams := obj.Get("params")
	if !hasParams {
		params = kgr.Null()
	}

	r := &responder{conn: c, id: idVal.AsInt()}
	c.methodFor(methodVal.AsString())(methodVal.AsString(), params, r)
}

func (c *Conn) handleResponse(obj *kgr.OrderedMap) {
	idVal, _ := obj.Get("id")
	id := idVal.AsInt()

	if result, ok := obj.Get("result"); ok {
		c.broker.feed(id, response{Result: result})
		return
	}
	if errVal, ok := obj.Get("error"); ok {
		c.broker.feed(id, response{Err: slkerr.New(slkerr.Kind(errVal.AsString()), "remote error")})
		return
	}
	c.broker.feed(id, response{Result: kgr.Null()})
}

// Invoke sends an "invoke" frame and blocks for the matching response,
// honoring both ctx and the connection's ResponseTimeout.
func (c *Conn) Invoke(ctx context.Context, method string, params kgr.Value) (kgr.Value, error) {
	id, deliver := c.broker.openChannel()

	om := kgr.NewOrderedMap()
	om.Set("action", kgr.String("invoke"))
	om.Set("id", kgr.Int(id))
	om.Set("method", kgr.String(method))
	om.Set("params", params)

	if err := c.write(kgr.Object(om)); err != nil {
		c.broker.drop(id)
		return kgr.Value{}, err
	}

	select {
	case resp := <-deliver:
		return resp.Result, resp.Err
	case <-ctx.Done():
		c.broker.drop(id)
		return kgr.Value{}, ctx.Err()
	}
}

func (c *Conn) write(v kgr.Value) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.transport, v)
}

func (c *Conn) teardown(err error) {
	if err == nil {
		err = slkerr.New(slkerr.Cancelled, "netif: connection closed")
	}
	c.broker.closeAll(err)
}

// Close sends a "close" frame and closes the transport.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		om := kgr.NewOrderedMap()
		om.Set("action", kgr.String("close"))
		c.write(kgr.Object(om))
		close(c.closed)
		err = c.transport.Close()
	})
	return err
}

// responder implements Responder for one invoke id.
type responder struct {
	conn *Conn
	id   int64
}

func (r *responder) Result(v kgr.Value) error {
	om := kgr.NewOrderedMap()
	om.Set("action", kgr.String("response"))
	om.Set("id", kgr.Int(r.id))
	om.Set("result", v)
	return r.conn.write(kgr.Object(om))
}

func (r *responder) Error(kind slkerr.Kind, message string) error {
	om := kgr.NewOrderedMap()
	om.Set("action", kgr.String("response"))
	om.Set("id", kgr.Int(r.id))
	om.Set("error", kgr.String(string(kind)))
	return r.conn.write(kgr.Object(om))
}
