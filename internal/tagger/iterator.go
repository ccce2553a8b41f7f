package tagger

import (
	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/notify"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

// TagIterator is a forward fragment producer: Next yields fragments in
// position order; Rewind invalidates cached work at or past a position;
// OnChange emits ranges whose tags may have changed because the
// underlying text mutated.
type TagIterator[T any] interface {
	Next() (Fragment[T], bool)
	Rewind(pos textblock.Position)
	OnChange(fn func(Range)) notify.Unsubscribe
}

// TabIterator is the built-in TagIterator used by the worked example in
// spec.md §8.1: it classifies runs of the codepoint '\t' as Tag=true and
// everything else as Tag=false.
type TabIterator struct {
	block   *textblock.Block
	enc     encoding.Encoding
	pos     textblock.Position
	changes *notify.Registry[Range]
}

func NewTabIterator(block *textblock.Block, enc encoding.Encoding) *TabIterator {
	return &TabIterator{block: block, enc: enc, changes: notify.NewRegistry[Range]()}
}

// Attach subscribes the iterator to a transaction Hub so it rewinds and
// emits a change whenever any Stream over the same Block commits, rolls
// back, or redoes a transaction (spec.md §4.5 "on_change"). The emitted
// range conservatively covers from the edit position to the end of the
// document; this is a deliberate simplification recorded in DESIGN.md —
// it satisfies the "covers every line that actually changed" invariant
// without tracking the exact shifted span.
func (it *TabIterator) Attach(hub *txn.Hub) []notify.Unsubscribe {
	onEdit := func(tx txn.Transaction) {
		start := tx.Position()
		it.Rewind(start)
		it.changes.Emit(Range{Start: start, End: textblock.Max})
	}
	return []notify.Unsubscribe{
		hub.OnCommit(onEdit),
		hub.OnRollback(onEdit),
		hub.OnRevert(onEdit),
	}
}

func (it *TabIterator) Rewind(pos textblock.Position) {
	if pos.Less(it.pos) {
		it.pos = pos
	}
}

func (it *TabIterator) OnChange(fn func(Range)) notify.Unsubscribe {
	return it.changes.Subscribe(fn)
}

type codepoint struct {
	start, length int
	cp            rune
}

func (it *TabIterator) Next() (Fragment[bool], bool) {
	for {
		if it.pos.Line > it.block.LastLine() {
			return Fragment[bool]{}, false
		}
		line, err := it.block.GetLine(it.pos.Line)
		if err != nil {
			return Fragment[bool]{}, false
		}

		var cps []codepoint
		it.enc.IterateCodepoints([]byte(line), func(s, l int, c rune) bool {
			cps = append(cps, codepoint{s, l, c})
			return true
		})
		count := uint64(len(cps))

		if it.pos.Column >= count {
			if it.pos.Line == it.block.LastLine() {
				return Fragment[bool]{}, false
			}
			it.pos = textblock.Position{Line: it.pos.Line + 1, Column: 0}
			continue
		}

		start := it.pos
		isTab := cps[start.Column].cp == '\t'
		col := start.Column + 1
		for col < count && (cps[col].cp == '\t') == isTab {
			col++
		}
		end := textblock.Position{Line: start.Line, Column: col}
		it.pos = end
		return Fragment[bool]{Start: start, End: end, Tag: isTab}, true
	}
}
