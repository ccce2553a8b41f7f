// Package textblock implements the Text Block component (spec.md §4.2):
// line-indexed, mutable text storage. A blank block always holds exactly
// one empty line; line indices are dense over [0, LastLine()].
package textblock

import "github.com/sloked/sloked/internal/slkerr"

// Position is a (line, column) pair; column is a codepoint index into the
// line, not a byte offset (spec.md §3).
type Position struct {
	Line   uint64
	Column uint64
}

// Max is a sentinel position greater than any real position.
var Max = Position{Line: ^uint64(0), Column: ^uint64(0)}

// Less reports whether p sorts before o (lexicographic on Line then
// Column).
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

func (p Position) Equal(o Position) bool { return p.Line == o.Line && p.Column == o.Column }

// Block is a line-indexed mutable text store.
type Block struct {
	lines []string
}

// New returns a blank Block: one empty line.
func New() *Block {
	return &Block{lines: []string{""}}
}

// FromLines builds a Block from existing lines. An empty slice is
// normalized to a single empty line.
func FromLines(lines []string) *Block {
	if len(lines) == 0 {
		return New()
	}
	b := &Block{lines: append([]string(nil), lines...)}
	return b
}

// LastLine returns the index of the last line (0-based).
func (b *Block) LastLine() uint64 { return uint64(len(b.lines) - 1) }

func (b *Block) GetLine(i uint64) (string, error) {
	if i > b.LastLine() {
		return "", slkerr.New(slkerr.TypeMismatch, "textblock: line %d out of range (last=%d)", i, b.LastLine())
	}
	return b.lines[i], nil
}

// Visit calls fn for exactly min(count, LastLine()-from+1) lines starting
// at from, in order; fn's string argument is valid only until fn returns
// (spec.md §4.2). Visit stops early if fn returns false.
func (b *Block) Visit(from, count uint64, fn func(i uint64, line string) bool) error {
	if from > b.LastLine() {
		return slkerr.New(slkerr.TypeMismatch, "textblock: visit from %d out of range (last=%d)", from, b.LastLine())
	}
	end := from + count
	if end > b.LastLine()+1 {
		end = b.LastLine() + 1
	}
	for i := from; i < end; i++ {
		if !fn(i, b.lines[i]) {
			return nil
		}
	}
	return nil
}

func (b *Block) SetLine(i uint64, s string) error {
	if i > b.LastLine() {
		return slkerr.New(slkerr.TypeMismatch, "textblock: set line %d out of range (last=%d)", i, b.LastLine())
	}
	b.lines[i] = s
	return nil
}

// InsertLine inserts s as a new line at index i, shifting lines at and
// after i down by one. i may equal LastLine()+1 to append.
func (b *Block) InsertLine(i uint64, s string) error {
	if i > b.LastLine()+1 {
		return slkerr.New(slkerr.TypeMismatch, "textblock: insert at %d out of range (last=%d)", i, b.LastLine())
	}
	b.lines = append(b.lines, "")
	copy(b.lines[i+1:], b.lines[i:])
	b.lines[i] = s
	return nil
}

// EraseLine removes line i. Erasing the only remaining line replaces it
// with an empty line, preserving the "empty file has one empty line"
// invariant.
func (b *Block) EraseLine(i uint64) error {
	if i > b.LastLine() {
		return slkerr.New(slkerr.TypeMismatch, "textblock: erase %d out of range (last=%d)", i, b.LastLine())
	}
	if len(b.lines) == 1 {
		b.lines[0] = ""
		return nil
	}
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	return nil
}
