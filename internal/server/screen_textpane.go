package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/widgets"
)

// TextPaneService implements /screen/component/text/pane (spec.md §6):
// bind{path, documentId} traverses to a *screen.TextPane and wires a
// widgets.TextEditor to it, reusing the driver's own key-table and
// render logic rather than reimplementing it behind the wire. The
// editor talks to /document/cursor and /document/render the same way a
// remote client would, just over an in-process named.Server.Connect
// pipe instead of a bridge.
type TextPaneService struct {
	Tree   *screen.Tree
	Holder screen.HolderID
	Local  *named.Server
}

func NewTextPaneService(tree *screen.Tree, holder screen.HolderID, local *named.Server) *TextPaneService {
	return &TextPaneService{Tree: tree, Holder: holder, Local: local}
}

func (s *TextPaneService) Attach(endpoint *pipe.Pipe) {
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"bind": s.bind,
	})
}

func (s *TextPaneService) bind(params kgr.Value) (kgr.Value, error) {
	path, err := kgr.FieldString(params, "path")
	if err != nil {
		return kgr.Null(), err
	}
	idStr, err := kgr.FieldString(params, "documentId")
	if err != nil {
		return kgr.Null(), err
	}
	documentID, err := uuid.Parse(idStr)
	if err != nil {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "screen text pane: invalid documentId %q", idStr)
	}

	component, err := s.Tree.Traverse(s.Holder, path+"/self")
	if err != nil {
		return kgr.Null(), err
	}
	pane, ok := component.(*screen.TextPane)
	if !ok {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "screen text pane: %q is not a text pane", path)
	}

	cursorPipe, err := s.Local.Connect("/document/cursor")
	if err != nil {
		return kgr.Null(), err
	}
	renderPipe, err := s.Local.Connect("/document/render")
	if err != nil {
		cursorPipe.Close()
		return kgr.Null(), err
	}

	ctx := context.Background()
	if _, err := widgets.NewTextEditor(ctx, pipe.NewClient(cursorPipe), pipe.NewClient(renderPipe), documentID, pane); err != nil {
		cursorPipe.Close()
		renderPipe.Close()
		return kgr.Null(), err
	}
	return kgr.Null(), nil
}
