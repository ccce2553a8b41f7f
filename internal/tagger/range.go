// Package tagger implements the Tagger abstraction (spec.md §4.5): three
// layered producers (TagIterator, LazyTagger, CacheTagger) that decorate
// text ranges with a generic tag value and emit change notifications when
// the underlying text (or the tagging itself) mutates.
package tagger

import "github.com/sloked/sloked/internal/textblock"

// Range is a half-open span of positions whose tags may have changed.
type Range struct {
	Start, End textblock.Position
}

func (r Range) Intersects(other Range) bool {
	return !r.End.Less(other.Start) && !other.End.Less(r.Start)
}

func (r Range) Contains(pos textblock.Position) bool {
	return !pos.Less(r.Start) && pos.Less(r.End)
}

// Fragment is a tagged span of text: Start <= position < End all carry Tag.
type Fragment[T any] struct {
	Start, End textblock.Position
	Tag        T
}

func (f Fragment[T]) Range() Range { return Range{Start: f.Start, End: f.End} }
