package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
)

// RenderService implements /document/render (spec.md §6):
// attach{document} binds a connection to an open Document; render
// {line,height,partial?} drives render.Engine.Render and returns the
// resulting (line, fragments) pairs.
type RenderService struct {
	Set *Set
}

func NewRenderService(set *Set) *RenderService { return &RenderService{Set: set} }

func (s *RenderService) Attach(endpoint *pipe.Pipe) {
	conn := &renderConn{}
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"attach": s.handleAttach(conn),
		"render": conn.render,
	})
}

type renderConn struct {
	doc *Document
}

func (s *RenderService) handleAttach(conn *renderConn) pipe.Handler {
	return func(params kgr.Value) (kgr.Value, error) {
		idStr, err := kgr.FieldString(params, "document")
		if err != nil {
			return kgr.Null(), err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "render: invalid document id %q", idStr)
		}
		doc, err := s.Set.Get(id)
		if err != nil {
			return kgr.Null(), err
		}
		conn.doc = doc
		return kgr.Null(), nil
	}
}

func lineEntry(line uint64, value kgr.Value) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("line", kgr.Int(int64(line)))
	om.Set("value", value)
	return kgr.Object(om)
}

func (c *renderConn) render(params kgr.Value) (kgr.Value, error) {
	if c.doc == nil {
		return kgr.Null(), slkerr.New(slkerr.DocumentClosed, "render: not attached to a document")
	}
	line, err := kgr.FieldInt(params, "line")
	if err != nil {
		return kgr.Null(), err
	}
	height, err := kgr.FieldInt(params, "height")
	if err != nil {
		return kgr.Null(), err
	}
	partial, _ := kgr.FieldBool(params, "partial", false)

	vals, updated, err := c.doc.Render.Render(uint64(line), uint64(height), !partial)
	if err != nil {
		return kgr.Null(), err
	}

	if !partial {
		out := make([]kgr.Value, 0, len(vals))
		for i, v := range vals {
			out = append(out, lineEntry(uint64(line)+uint64(i), v))
		}
		return kgr.Array(out...), nil
	}

	out := make([]kgr.Value, 0, len(updated))
	for _, e := range updated {
		out = append(out, lineEntry(e.Key, e.Value))
	}
	return kgr.Array(out...), nil
}
