package server

import (
	"context"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
)

// ScreenManagerService implements /screen/manager (spec.md §4.12–§4.13,
// §6): getInfo(path) reports a component's kind; input{path,event}
// dispatches an event down to the component at path. Rendering itself is
// driven per-pane by internal/widgets.TextEditor talking directly to
// /document/render, not through this endpoint.
type ScreenManagerService struct {
	Tree   *screen.Tree
	Holder screen.HolderID
}

func NewScreenManagerService(tree *screen.Tree, holder screen.HolderID) *ScreenManagerService {
	return &ScreenManagerService{Tree: tree, Holder: holder}
}

func (s *ScreenManagerService) Attach(endpoint *pipe.Pipe) {
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"getInfo": s.getInfo,
		"input":   s.input,
	})
}

func (s *ScreenManagerService) getInfo(params kgr.Value) (kgr.Value, error) {
	path := params.AsString()
	component, err := s.Tree.Traverse(s.Holder, path)
	if err != nil {
		return kgr.Null(), err
	}
	om := kgr.NewOrderedMap()
	om.Set("kind", kgr.String(component.Kind().String()))
	return kgr.Object(om), nil
}

// input traverses to path and dispatches ev in one critical section, per
// spec.md's "the screen-server loop locks the component tree and
// dispatches the event" (§2's data-flow description).
func (s *ScreenManagerService) input(params kgr.Value) (kgr.Value, error) {
	return dispatchInput(s.Tree, s.Holder, params)
}

// decodeEvent reads the {path, event:{key,rune}} shape every
// input-dispatching endpoint in this package shares.
func decodeEvent(params kgr.Value) (path string, ev screen.Event, err error) {
	path, err = kgr.FieldString(params, "path")
	if err != nil {
		return "", screen.Event{}, err
	}
	evVal, err := kgr.Field(params, "event")
	if err != nil {
		return "", screen.Event{}, err
	}
	keyVal, _ := evVal.AsObject().Get("key")
	runeVal, _ := evVal.AsObject().Get("rune")
	return path, screen.Event{Key: keyVal.AsString(), Rune: rune(runeVal.AsInt())}, nil
}

// dispatchInput backs both /screen/manager's "input" method and
// /screen/component/input/forward: the two endpoints spec.md §6 lists
// for the same operation, kept as one implementation so they can't
// drift apart.
func dispatchInput(tree *screen.Tree, holder screen.HolderID, params kgr.Value) (kgr.Value, error) {
	path, ev, err := decodeEvent(params)
	if err != nil {
		return kgr.Null(), err
	}
	consumed, err := tree.TraverseInput(holder, path, ev)
	if err != nil {
		return kgr.Null(), err
	}
	om := kgr.NewOrderedMap()
	om.Set("consumed", kgr.Bool(consumed))
	return kgr.Object(om), nil
}
