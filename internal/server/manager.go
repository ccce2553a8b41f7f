// Package server wires the document and screen packages onto a
// named.Server as the RPC endpoints spec.md §6 lists, and provides the
// two small process-lifecycle services (/editor/shutdown,
// /editor/authorization). Reading and writing document bytes against a
// real filesystem or other namespace is explicitly out of scope (spec.md
// §1); DocumentManagerService's open/save family only tracks the
// upstream path string a document was associated with.
package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/document"
	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
)

// DocumentManagerService implements /document/manager (spec.md §6): one
// connection tracks a single "current" document, matching the
// new/open/close/getId/getUpstream call sequence the endpoint describes.
type DocumentManagerService struct {
	Set *document.Set
}

func NewDocumentManagerService(set *document.Set) *DocumentManagerService {
	return &DocumentManagerService{Set: set}
}

func (s *DocumentManagerService) Attach(endpoint *pipe.Pipe) {
	conn := &managerConn{set: s.Set}
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"new":         conn.new,
		"open":        conn.open,
		"openById":    conn.openByID,
		"save":        conn.save,
		"saveAs":      conn.saveAs,
		"close":       conn.close,
		"getId":       conn.getID,
		"getUpstream": conn.getUpstream,
	})
}

type managerConn struct {
	set     *document.Set
	current *document.Document
}

func idValue(id uuid.UUID) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("id", kgr.String(id.String()))
	return kgr.Object(om)
}

func resolveEncoding(params kgr.Value) (encoding.Encoding, error) {
	name, err := kgr.FieldString(params, "encoding")
	if err != nil {
		return encoding.UTF8, nil
	}
	return encoding.Get(name)
}

func (c *managerConn) new(params kgr.Value) (kgr.Value, error) {
	enc, err := resolveEncoding(params)
	if err != nil {
		return kgr.Null(), err
	}
	c.current = c.set.OpenDocument("", nil, enc)
	return idValue(c.current.ID), nil
}

// open associates a document with upstream path — no bytes are read from
// it, since filesystem access is an external collaborator this core
// doesn't implement.
func (c *managerConn) open(params kgr.Value) (kgr.Value, error) {
	path, err := kgr.FieldString(params, "path")
	if err != nil {
		return kgr.Null(), err
	}
	enc, err := resolveEncoding(params)
	if err != nil {
		return kgr.Null(), err
	}
	c.current = c.set.OpenDocument(path, nil, enc)
	return idValue(c.current.ID), nil
}

func (c *managerConn) openByID(params kgr.Value) (kgr.Value, error) {
	idStr, err := kgr.FieldString(params, "id")
	if err != nil {
		return kgr.Null(), err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "document manager: invalid id %q", idStr)
	}
	doc, err := c.set.Get(id)
	if err != nil {
		return kgr.Null(), err
	}
	c.current = doc
	return idValue(doc.ID), nil
}

func (c *managerConn) requireCurrent() error {
	if c.current == nil {
		return slkerr.New(slkerr.DocumentClosed, "document manager: no document open on this connection")
	}
	return nil
}

func (c *managerConn) save(kgr.Value) (kgr.Value, error) {
	return kgr.Null(), c.requireCurrent()
}

func (c *managerConn) saveAs(params kgr.Value) (kgr.Value, error) {
	if err := c.requireCurrent(); err != nil {
		return kgr.Null(), err
	}
	path, err := kgr.FieldString(params, "path")
	if err != nil {
		return kgr.Null(), err
	}
	c.current.Upstream = path
	return kgr.Null(), nil
}

func (c *managerConn) close(kgr.Value) (kgr.Value, error) {
	if err := c.requireCurrent(); err != nil {
		return kgr.Null(), err
	}
	err := c.set.Close(c.current.ID)
	c.current = nil
	return kgr.Null(), err
}

func (c *managerConn) getID(kgr.Value) (kgr.Value, error) {
	if err := c.requireCurrent(); err != nil {
		return kgr.Null(), err
	}
	return idValue(c.current.ID), nil
}

func (c *managerConn) getUpstream(kgr.Value) (kgr.Value, error) {
	if err := c.requireCurrent(); err != nil {
		return kgr.Null(), err
	}
	om := kgr.NewOrderedMap()
	om.Set("upstream", kgr.String(c.current.Upstream))
	return kgr.Object(om), nil
}
