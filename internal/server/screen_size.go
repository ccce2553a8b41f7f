package server

import (
	"context"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
)

// SizeNotifyService implements /screen/size/notify (spec.md §6): a push
// stream that writes the tree's current size as soon as a client
// connects, then writes it again every time something calls
// screen.Tree.Resize. There is no request/response past that — this pipe
// is read-only from the client's side.
type SizeNotifyService struct {
	Tree *screen.Tree
}

func NewSizeNotifyService(tree *screen.Tree) *SizeNotifyService {
	return &SizeNotifyService{Tree: tree}
}

func (s *SizeNotifyService) Attach(endpoint *pipe.Pipe) {
	go s.serve(endpoint)
}

func (s *SizeNotifyService) serve(endpoint *pipe.Pipe) {
	writeSize := func(sz screen.Size) {
		om := kgr.NewOrderedMap()
		om.Set("width", kgr.Int(int64(sz.Width)))
		om.Set("height", kgr.Int(int64(sz.Height)))
		endpoint.Write(kgr.Object(om))
	}

	writeSize(s.Tree.Size())
	unsubscribe := s.Tree.OnResize(writeSize)
	defer unsubscribe()

	for {
		if _, ok := endpoint.ReadWait(context.Background()); !ok {
			return
		}
	}
}
