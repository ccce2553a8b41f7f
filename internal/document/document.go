// Package document implements the document pipeline's process-wide
// bookkeeping (spec.md §4.1's DocumentSet and the RPC-facing services
// layered over it): one Document bundles a textblock.Block with its
// encoding, transaction hub, tagger chain and render engine; DocumentSet
// tracks every open Document by id so the cursor and render services
// (cursor.go, render.go) can look one up by the id a client connects
// with.
package document

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/render"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/tagger"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

// Document is one open text buffer plus everything the RPC-facing
// services need to serve it: a shared Hub so every cursor stream over it
// observes every other stream's edits, and a Render Engine wired to the
// default tab tagger (spec.md §8.1's worked example).
type Document struct {
	ID       uuid.UUID
	Upstream string // the external namespace path this document was opened from, for DocumentSet.UpstreamOf

	Block    *textblock.Block
	Encoding encoding.Encoding
	Hub      *txn.Hub
	Render   *render.Engine

	tagIter *tagger.TabIterator
}

// Open creates a fresh Document over blank text (or, if contents is
// non-nil, over pre-loaded lines — loading the bytes themselves is the
// external namespace adapter's job, out of scope here per spec.md §1).
func Open(upstream string, contents []string, enc encoding.Encoding) *Document {
	block := textblock.FromLines(contents)
	hub := txn.NewHub()

	iter := tagger.NewTabIterator(block, enc)
	iter.Attach(hub)
	lazy := tagger.NewLazyTagger[bool](iter)
	cached := tagger.NewCacheTagger[bool](lazy)

	engine := render.NewEngine(block, enc, cached)
	engine.AttachTransactions(hub)

	return &Document{
		ID:       uuid.New(),
		Upstream: upstream,
		Block:    block,
		Encoding: enc,
		Hub:      hub,
		Render:   engine,
		tagIter:  iter,
	}
}

// NewStream opens a fresh, independent undo/redo cursor over the
// Document's Block.
func (d *Document) NewStream() *txn.Stream {
	return txn.NewStream(d.Block, d.Encoding, d.Hub)
}

func (d *Document) Close() {
	d.Render.Close()
}

// Set tracks every open Document by id (spec.md §4.1 "DocumentSet").
type Set struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
}

func NewSet() *Set {
	return &Set{docs: make(map[uuid.UUID]*Document)}
}

// OpenDocument opens contents under upstream and registers it.
func (s *Set) OpenDocument(upstream string, contents []string, enc encoding.Encoding) *Document {
	doc := Open(upstream, contents, enc)
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc
}

// Get looks a Document up by id.
func (s *Set) Get(id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, slkerr.New(slkerr.PathNotFound, "document: %s is not open", id)
	}
	return doc, nil
}

// Close closes and forgets the document with id.
func (s *Set) Close(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return slkerr.New(slkerr.PathNotFound, "document: %s is not open", id)
	}
	doc.Close()
	delete(s.docs, id)
	return nil
}

// List enumerates every open document's id (restored from the original
// C++ DocumentSet.cpp per SPEC_FULL.md §6 — dropped by the distillation,
// not excluded by any Non-goal).
func (s *Set) List() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	return ids
}

// UpstreamOf returns the external namespace path a document was opened
// from (also restored from DocumentSet.cpp).
func (s *Set) UpstreamOf(id uuid.UUID) (string, error) {
	doc, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return doc.Upstream, nil
}
