// Package render implements the Render Engine (spec.md §4.7): per-document
// state that turns a (document, viewport) request into a stream of tagged
// line fragments, backed by an Ordered Cache and a Tagger, invalidating
// exactly the lines a transaction or tag change touched.
package render

import (
	"sync"

	"github.com/sloked/sloked/internal/cache"
	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/notify"
	"github.com/sloked/sloked/internal/tagger"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

// Tagger is the subset of the three layered tagger producers (spec.md
// §4.5) the render engine consults: a per-position lookup for the
// codepoint walk and a change feed to drive invalidation.
type Tagger interface {
	Get(pos textblock.Position) (tagger.Fragment[bool], bool)
	OnChange(fn func(tagger.Range)) notify.Unsubscribe
}

// Engine is the per-document render state.
type Engine struct {
	mu    sync.Mutex
	block *textblock.Block
	enc   encoding.Encoding
	tg    Tagger
	cache *cache.OrderedCache[kgr.Value]

	invalidated []tagger.Range
	unsubs      []notify.Unsubscribe
}

func NewEngine(block *textblock.Block, enc encoding.Encoding, tg Tagger) *Engine {
	e := &Engine{block: block, enc: enc, tg: tg, cache: cache.New[kgr.Value]()}
	e.unsubs = append(e.unsubs, tg.OnChange(e.invalidate))
	return e
}

// AttachTransactions enqueues an invalidation from the edit position to
// the end of the document on every commit/rollback/revert observed
// through hub, matching the tagger's own on_change contract (spec.md
// §4.7's last invariant: "every commit/tag change enqueues a range that
// covers every line whose text or tagging actually changed").
func (e *Engine) AttachTransactions(hub *txn.Hub) {
	onEdit := func(tx txn.Transaction) {
		e.invalidate(tagger.Range{Start: tx.Position(), End: textblock.Max})
	}
	e.unsubs = append(e.unsubs,
		hub.OnCommit(onEdit), hub.OnRollback(onEdit), hub.OnRevert(onEdit))
}

func (e *Engine) Close() {
	for _, u := range e.unsubs {
		u()
	}
}

func (e *Engine) invalidate(r tagger.Range) {
	e.mu.Lock()
	e.invalidated = append(e.invalidated, r)
	e.mu.Unlock()
}

func (e *Engine) drain() {
	e.mu.Lock()
	ranges := e.invalidated
	e.invalidated = nil
	e.mu.Unlock()

	for _, r := range ranges {
		endLine := r.End.Line
		if last := e.block.LastLine(); endLine > last {
			endLine = last
		}
		e.cache.Drop(r.Start.Line, endLine)
	}
}

func (e *Engine) supplier(from, to uint64) ([]kgr.Value, error) {
	vals := make([]kgr.Value, 0, to-from+1)
	for l := from; l <= to; l++ {
		v, err := e.renderLine(l)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// renderLine walks line l codepoint by codepoint, switching output
// fragments on tag-fragment boundaries, and returns the KgrArray of
// {tag: bool, content: string} objects spec.md §3 calls a TaggedFrame
// cache entry. A codepoint with no enclosing tag fragment is treated as
// tag=false.
func (e *Engine) renderLine(l uint64) (kgr.Value, error) {
	line, err := e.block.GetLine(l)
	if err != nil {
		return kgr.Value{}, err
	}

	bytes := []byte(line)
	count := e.enc.CodepointCount(bytes)

	makeFragment := func(tag bool, content string) kgr.Value {
		obj := kgr.NewOrderedMap()
		obj.Set("tag", kgr.Bool(tag))
		obj.Set("content", kgr.String(content))
		return kgr.Object(obj)
	}

	if count == 0 {
		return kgr.Array(makeFragment(false, "")), nil
	}

	var out []kgr.Value
	runStart, runTag := 0, e.tagAt(l, 0)

	flush := func(endCol int) {
		startOff, _, _ := e.enc.GetCodepoint(bytes, runStart)
		endOff := len(line)
		if endCol < count {
			endOff, _, _ = e.enc.GetCodepoint(bytes, endCol)
		}
		out = append(out, makeFragment(runTag, line[startOff:endOff]))
	}

	for col := 1; col < count; col++ {
		tag := e.tagAt(l, col)
		if tag != runTag {
			flush(col)
			runStart, runTag = col, tag
		}
	}
	flush(count)

	return kgr.Array(out...), nil
}

func (e *Engine) tagAt(line uint64, col int) bool {
	f, ok := e.tg.Get(textblock.Position{Line: line, Column: uint64(col)})
	return ok && f.Tag
}

// Render implements spec.md §4.7's render(line, height) request. full=true
// fetches and returns every value in [line, end_line]; full=false
// (a "partial" request) returns only the (line, value) pairs filled since
// the last call that actually touched the cache.
func (e *Engine) Render(line, height uint64, full bool) ([]kgr.Value, []cache.Entry[kgr.Value], error) {
	e.drain()

	endLine := line + height
	if last := e.block.LastLine(); endLine > last {
		endLine = last
	}
	if line > endLine {
		return nil, nil, nil
	}

	if full {
		vals, err := e.cache.Fetch(line, endLine, e.supplier)
		return vals, nil, err
	}
	updated, err := e.cache.FetchUpdated(line, endLine, e.supplier)
	return nil, updated, err
}
