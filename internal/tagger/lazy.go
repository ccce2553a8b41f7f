package tagger

import (
	"sync"

	"github.com/sloked/sloked/internal/notify"
	"github.com/sloked/sloked/internal/textblock"
)

// LazyTagger wraps a TagIterator, remembering every fragment it has
// produced so far and answering Get by driving the iterator forward only
// as far as needed (spec.md §4.5 "Lazy tagger"). On an upstream change it
// drops every cached fragment intersecting the changed range, rewinds the
// iterator, and re-emits the change to its own listeners.
type LazyTagger[T any] struct {
	mu      sync.Mutex
	src     TagIterator[T]
	frags   []Fragment[T] // ordered by Start, pairwise disjoint, gap-free prefix from position zero
	done    bool          // src exhausted past the last cached fragment
	changes *notify.Registry[Range]
	unsub   notify.Unsubscribe
}

func NewLazyTagger[T any](src TagIterator[T]) *LazyTagger[T] {
	lt := &LazyTagger[T]{src: src, changes: notify.NewRegistry[Range]()}
	lt.unsub = src.OnChange(lt.onUpstreamChange)
	return lt
}

// Close unsubscribes from the wrapped iterator.
func (lt *LazyTagger[T]) Close() {
	if lt.unsub != nil {
		lt.unsub()
	}
}

func (lt *LazyTagger[T]) onUpstreamChange(r Range) {
	lt.mu.Lock()
	kept := lt.frags[:0:0]
	for _, f := range lt.frags {
		if f.Range().Intersects(r) {
			break
		}
		kept = append(kept, f)
	}
	if len(kept) < len(lt.frags) {
		lt.done = false
	}
	lt.frags = kept
	lt.src.Rewind(r.Start)
	lt.mu.Unlock()

	lt.changes.Emit(r)
}

func (lt *LazyTagger[T]) OnChange(fn func(Range)) notify.Unsubscribe {
	return lt.changes.Subscribe(fn)
}

// ensure pulls fragments from src until one covers pos, or the source is
// exhausted. Caller must hold lt.mu.
func (lt *LazyTagger[T]) ensure(pos textblock.Position) {
	for {
		if n := len(lt.frags); n > 0 && pos.Less(lt.frags[n-1].End) {
			return
		}
		if lt.done {
			return
		}
		f, ok := lt.src.Next()
		if !ok {
			lt.done = true
			return
		}
		lt.frags = append(lt.frags, f)
	}
}

// Get returns the fragment enclosing pos, if any.
func (lt *LazyTagger[T]) Get(pos textblock.Position) (Fragment[T], bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.ensure(pos)
	for _, f := range lt.frags {
		if f.Range().Contains(pos) {
			return f, true
		}
	}
	return Fragment[T]{}, false
}

// GetLine returns every fragment intersecting line, ordered by Start.
func (lt *LazyTagger[T]) GetLine(line uint64) []Fragment[T] {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	end := textblock.Position{Line: line, Column: ^uint64(0)}
	// A fragment's End sentinel column only exceeds any real column when
	// End.Line > line, so this pulls fragments until one crosses past the
	// end of the requested line (or the source is exhausted).
	lt.ensure(textblock.Position{Line: line, Column: ^uint64(0)})

	lineRange := Range{Start: textblock.Position{Line: line}, End: end}
	var out []Fragment[T]
	for _, f := range lt.frags {
		if f.Range().Intersects(lineRange) {
			out = append(out, f)
		}
	}
	return out
}
