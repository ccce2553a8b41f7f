package pipe

import (
	"context"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

// This file generalizes the method/params/result/error envelope
// netif.Conn uses on the wire (spec.md §4.10) to a local Pipe: a Service
// reached through named.Server.Connect has no network framing to worry
// about, but a client still wants to "invoke a method and get a result"
// rather than hand-roll ad-hoc KgrValue shapes per endpoint. Since a pipe
// delivers FIFO and a Client only ever has one request outstanding, no id
// correlation is needed here the way netif's broker needs one for
// concurrent invokes over a shared connection.

// EncodeRequest builds the {method, params} envelope a Handler dispatches
// on.
func EncodeRequest(method string, params kgr.Value) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("method", kgr.String(method))
	om.Set("params", params)
	return kgr.Object(om)
}

// DecodeRequest splits a request envelope back into method and params.
func DecodeRequest(v kgr.Value) (method string, params kgr.Value) {
	if !v.IsObject() {
		return "", kgr.Null()
	}
	obj := v.AsObject()
	m, _ := obj.Get("method")
	p, ok := obj.Get("params")
	if !ok {
		p = kgr.Null()
	}
	return m.AsString(), p
}

// EncodeResult and EncodeError build the two possible response shapes.
func EncodeResult(v kgr.Value) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("result", v)
	return kgr.Object(om)
}

func EncodeError(kind slkerr.Kind, message string) kgr.Value {
	om := kgr.NewOrderedMap()
	errObj := kgr.NewOrderedMap()
	errObj.Set("kind", kgr.String(string(kind)))
	errObj.Set("message", kgr.String(message))
	om.Set("error", kgr.Object(errObj))
	return kgr.Object(om)
}

// DecodeResponse splits a response envelope into its result or error.
func DecodeResponse(v kgr.Value) (kgr.Value, error) {
	if !v.IsObject() {
		return kgr.Null(), nil
	}
	obj := v.AsObject()
	if result, ok := obj.Get("result"); ok {
		return result, nil
	}
	if errVal, ok := obj.Get("error"); ok {
		errObj := errVal.AsObject()
		kindVal, _ := errObj.Get("kind")
		msgVal, _ := errObj.Get("message")
		return kgr.Null(), slkerr.New(slkerr.Kind(kindVal.AsString()), "%s", msgVal.AsString())
	}
	return kgr.Null(), nil
}

// Client drives request/response calls over one Pipe endpoint.
type Client struct {
	pipe *Pipe
}

func NewClient(p *Pipe) *Client { return &Client{pipe: p} }

// Invoke writes method(params) and blocks for the matching response.
func (c *Client) Invoke(ctx context.Context, method string, params kgr.Value) (kgr.Value, error) {
	if err := c.pipe.Write(EncodeRequest(method, params)); err != nil {
		return kgr.Null(), err
	}
	v, ok := c.pipe.ReadWait(ctx)
	if !ok {
		return kgr.Null(), slkerr.New(slkerr.Cancelled, "pipe: closed waiting for response")
	}
	return DecodeResponse(v)
}

func (c *Client) Close() error { return c.pipe.Close() }

// Handler is a server-side method table, keyed by method name (spec.md
// §4.10's invoke_method hook generalized to a local Pipe).
type Handler func(params kgr.Value) (kgr.Value, error)

// Serve runs a dispatch loop over endpoint until it closes, calling the
// matching Handler for each request and writing back its result or
// error. Intended to run in its own goroutine, spawned from a
// named.Service's Attach.
func Serve(ctx context.Context, endpoint *Pipe, methods map[string]Handler) {
	for {
		v, ok := endpoint.ReadWait(ctx)
		if !ok {
			return
		}
		method, params := DecodeRequest(v)
		fn, known := methods[method]
		if !known {
			endpoint.Write(EncodeError(slkerr.PathNotFound, "unknown method "+method))
			continue
		}
		result, err := fn(params)
		if err != nil {
			if kind, ok := slkerr.Of(err); ok {
				endpoint.Write(EncodeError(kind, err.Error()))
			} else {
				endpoint.Write(EncodeError(slkerr.TypeMismatch, err.Error()))
			}
			continue
		}
		endpoint.Write(EncodeResult(result))
	}
}
