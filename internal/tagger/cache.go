package tagger

import (
	"sync"

	"github.com/sloked/sloked/internal/notify"
	"github.com/sloked/sloked/internal/textblock"
)

// Source is what a CacheTagger pulls from: any of the three layered
// producers satisfy it, since Get/GetLine/OnChange is the common
// interface spec.md §4.5 gives all three.
type Source[T any] interface {
	Get(pos textblock.Position) (Fragment[T], bool)
	GetLine(line uint64) []Fragment[T]
	OnChange(fn func(Range)) notify.Unsubscribe
}

// CacheTagger materializes per-line fragment lists for fast repeated
// reads, invalidating lines overlapping each upstream change range
// (spec.md §4.5 "Cache tagger"). It is typically layered over a
// LazyTagger so repeated GetLine calls for the same line (as the render
// engine issues on every redraw) skip re-walking the iterator.
type CacheTagger[T any] struct {
	mu      sync.Mutex
	src     Source[T]
	lines   map[uint64][]Fragment[T]
	changes *notify.Registry[Range]
	unsub   notify.Unsubscribe
}

func NewCacheTagger[T any](src Source[T]) *CacheTagger[T] {
	ct := &CacheTagger[T]{src: src, lines: make(map[uint64][]Fragment[T]), changes: notify.NewRegistry[Range]()}
	ct.unsub = src.OnChange(ct.onUpstreamChange)
	return ct
}

func (ct *CacheTagger[T]) Close() {
	if ct.unsub != nil {
		ct.unsub()
	}
}

func (ct *CacheTagger[T]) onUpstreamChange(r Range) {
	ct.mu.Lock()
	for line := range ct.lines {
		lineRange := Range{Start: textblock.Position{Line: line}, End: textblock.Position{Line: line + 1}}
		if lineRange.Intersects(r) {
			delete(ct.lines, line)
		}
	}
	ct.mu.Unlock()

	ct.changes.Emit(r)
}

func (ct *CacheTagger[T]) OnChange(fn func(Range)) notify.Unsubscribe {
	return ct.changes.Subscribe(fn)
}

func (ct *CacheTagger[T]) GetLine(line uint64) []Fragment[T] {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if frags, ok := ct.lines[line]; ok {
		return frags
	}
	frags := ct.src.GetLine(line)
	ct.lines[line] = frags
	return frags
}

func (ct *CacheTagger[T]) Get(pos textblock.Position) (Fragment[T], bool) {
	for _, f := range ct.GetLine(pos.Line) {
		if f.Range().Contains(pos) {
			return f, true
		}
	}
	return Fragment[T]{}, false
}
