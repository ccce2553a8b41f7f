package server

import (
	"context"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
)

// ComponentInputForwardService implements /screen/component/input/forward
// (spec.md §6): a standalone request/response path for the same dispatch
// dispatchInput backs /screen/manager's "input" method, for callers that
// want the narrower, single-purpose endpoint.
type ComponentInputForwardService struct {
	Tree   *screen.Tree
	Holder screen.HolderID
}

func NewComponentInputForwardService(tree *screen.Tree, holder screen.HolderID) *ComponentInputForwardService {
	return &ComponentInputForwardService{Tree: tree, Holder: holder}
}

func (s *ComponentInputForwardService) Attach(endpoint *pipe.Pipe) {
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"forward": func(params kgr.Value) (kgr.Value, error) {
			return dispatchInput(s.Tree, s.Holder, params)
		},
	})
}

// ComponentInputNotifyService implements /screen/component/input/notify
// (spec.md §6): a push stream of every input event observed at a Handle
// path, without consuming it — the listener registered through
// screen.Handle.AddInputListener always returns false, so normal
// dispatch into the child component still happens exactly as if no
// observer were attached.
type ComponentInputNotifyService struct {
	Tree   *screen.Tree
	Holder screen.HolderID
}

func NewComponentInputNotifyService(tree *screen.Tree, holder screen.HolderID) *ComponentInputNotifyService {
	return &ComponentInputNotifyService{Tree: tree, Holder: holder}
}

func (s *ComponentInputNotifyService) Attach(endpoint *pipe.Pipe) {
	go s.serve(endpoint)
}

func (s *ComponentInputNotifyService) serve(endpoint *pipe.Pipe) {
	msg, ok := endpoint.ReadWait(context.Background())
	if !ok {
		return
	}
	path, err := kgr.FieldString(msg, "path")
	if err != nil {
		endpoint.Close()
		return
	}

	component, err := s.Tree.Traverse(s.Holder, path)
	if err != nil {
		endpoint.Close()
		return
	}
	handle, ok := component.(*screen.Handle)
	if !ok {
		endpoint.Write(kgr.Null())
		endpoint.Close()
		return
	}

	unsubscribe := handle.AddInputListener(func(ev screen.Event) bool {
		om := kgr.NewOrderedMap()
		om.Set("key", kgr.String(ev.Key))
		om.Set("rune", kgr.Int(int64(ev.Rune)))
		endpoint.Write(kgr.Object(om))
		return false
	})
	defer unsubscribe()

	for {
		if _, ok := endpoint.ReadWait(context.Background()); !ok {
			return
		}
	}
}
