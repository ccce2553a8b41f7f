package txn

import (
	"sync"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/notify"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/textblock"
)

// entry is one committed transaction plus the inverse needed to undo it.
type entry struct {
	tx      Transaction
	inverse Transaction
}

// Stream is an independent undo/redo cursor over a shared Block. Several
// Streams may wrap one Block; each has its own journal and cursor, but
// every Stream sharing a Block observes every other Stream's commits as
// external edits (spec.md §4.4) via the shared Block's notification hub.
type Stream struct {
	mu    sync.Mutex
	block *textblock.Block
	enc   encoding.Encoding
	hub   *Hub

	journal []entry
	cursor  int // number of entries currently applied, i.e. index of the next redo
}

// Hub is the per-Block fan-out of commit/rollback/revert notifications
// shared by every Stream over that Block, and the external-edit bridge
// each Stream registers itself into.
type Hub struct {
	commit   *notify.Registry[Transaction]
	rollback *notify.Registry[Transaction]
	revert   *notify.Registry[Transaction]
}

func NewHub() *Hub {
	return &Hub{
		commit:   notify.NewRegistry[Transaction](),
		rollback: notify.NewRegistry[Transaction](),
		revert:   notify.NewRegistry[Transaction](),
	}
}

// OnCommit, OnRollback and OnRevert let a consumer that does not hold a
// Stream of its own (e.g. a TagIterator) observe every edit made through
// any Stream over this Hub's Block.
func (h *Hub) OnCommit(fn func(Transaction)) notify.Unsubscribe   { return h.commit.Subscribe(fn) }
func (h *Hub) OnRollback(fn func(Transaction)) notify.Unsubscribe { return h.rollback.Subscribe(fn) }
func (h *Hub) OnRevert(fn func(Transaction)) notify.Unsubscribe   { return h.revert.Subscribe(fn) }

// NewStream creates a Stream over block, sharing hub with any other
// Stream over the same block.
func NewStream(block *textblock.Block, enc encoding.Encoding, hub *Hub) *Stream {
	return &Stream{block: block, enc: enc, hub: hub}
}

// OnCommit, OnRollback and OnRevert subscribe to this stream's hub;
// listeners fire for commits made through ANY Stream sharing the Block.
func (s *Stream) OnCommit(fn func(Transaction)) notify.Unsubscribe     { return s.hub.commit.Subscribe(fn) }
func (s *Stream) OnRollback(fn func(Transaction)) notify.Unsubscribe   { return s.hub.rollback.Subscribe(fn) }
func (s *Stream) OnRevert(fn func(Transaction)) notify.Unsubscribe     { return s.hub.revert.Subscribe(fn) }

// Commit applies tx to the Block, truncates any redo suffix, appends tx
// to the journal, advances the cursor, and notifies OnCommit listeners.
func (s *Stream) Commit(tx Transaction) error {
	_, err := s.CommitPatch(tx)
	return err
}

// CommitPatch is Commit, additionally returning the position patch the
// edit produced — a cursor service needs this to advance its own
// position past whatever it just inserted or deleted (spec.md §4.13's
// key table: insert/newLine/delete all move the cursor).
func (s *Stream) CommitPatch(tx Transaction) (Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inverse, patch, err := tx.Commit(s.block, s.enc)
	if err != nil {
		return nil, err
	}
	s.journal = append(s.journal[:s.cursor], entry{tx: tx, inverse: inverse})
	s.cursor++
	s.hub.commit.Emit(tx)
	return patch, nil
}

// Undo applies the inverse of the transaction at the cursor, retreats the
// cursor, and notifies OnRollback listeners.
func (s *Stream) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == 0 {
		return slkerr.New(slkerr.TypeMismatch, "txn: nothing to undo")
	}
	e := s.journal[s.cursor-1]
	if _, _, err := e.inverse.Commit(s.block, s.enc); err != nil {
		return err
	}
	s.cursor--
	s.hub.rollback.Emit(e.tx)
	return nil
}

// Redo re-applies the transaction at the cursor and notifies OnRevert
// listeners.
func (s *Stream) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.journal) {
		return slkerr.New(slkerr.TypeMismatch, "txn: nothing to redo")
	}
	e := s.journal[s.cursor]
	// Re-apply the original transaction; recompute its inverse in case
	// intervening edits changed what it deletes (kept consistent since
	// redo only runs directly after an undo with no intervening commits
	// from this stream, matching spec.md §4.4's linear journal model).
	inverse, _, err := e.tx.Commit(s.block, s.enc)
	if err != nil {
		return err
	}
	s.journal[s.cursor] = entry{tx: e.tx, inverse: inverse}
	s.cursor++
	s.hub.revert.Emit(e.tx)
	return nil
}

func (s *Stream) HasUndoable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor > 0
}

func (s *Stream) HasRedoable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor < len(s.journal)
}

// Block returns the underlying textblock.Block.
func (s *Stream) Block() *textblock.Block { return s.block }
