package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/txn"
)

// NotifyService implements /document/notify (spec.md §6): a push stream
// that, once the caller sends a connect message naming a document,
// writes {line: u64} every time that document commits an edit. There is
// no request/response on this pipe past the initial connect — the
// client only ever reads.
type NotifyService struct {
	Set *Set
}

func NewNotifyService(set *Set) *NotifyService {
	return &NotifyService{Set: set}
}

func (s *NotifyService) Attach(endpoint *pipe.Pipe) {
	go s.serve(endpoint)
}

func (s *NotifyService) serve(endpoint *pipe.Pipe) {
	msg, ok := endpoint.ReadWait(context.Background())
	if !ok {
		return
	}
	idStr, err := kgr.FieldString(msg, "documentId")
	if err != nil {
		endpoint.Close()
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		endpoint.Close()
		return
	}
	doc, err := s.Set.Get(id)
	if err != nil {
		endpoint.Close()
		return
	}

	unsubscribe := doc.Hub.OnCommit(func(tx txn.Transaction) {
		line := tx.Position().Line
		om := kgr.NewOrderedMap()
		om.Set("line", kgr.Int(int64(line)))
		endpoint.Write(kgr.Object(om))
	})
	defer unsubscribe()

	// Block until the caller disconnects; this pipe never receives
	// anything past the initial connect message.
	for {
		if _, ok := endpoint.ReadWait(context.Background()); !ok {
			return
		}
	}
}
