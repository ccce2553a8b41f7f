package encoding

// Iterator is a resumable codepoint cursor over a byte string, used by
// the render engine (spec.md §4.7) to walk a line codepoint by codepoint
// while switching output fragments at tag boundaries.
type Iterator struct {
	enc Encoding
	b   []byte
	pos int
}

func NewIterator(enc Encoding, b []byte) *Iterator {
	return &Iterator{enc: enc, b: b}
}

// Pos returns the current byte offset.
func (it *Iterator) Pos() int { return it.pos }

// Seek resumes iteration at the given byte offset.
func (it *Iterator) Seek(pos int) { it.pos = pos }

// Next returns the next codepoint, or ok=false at end of string.
func (it *Iterator) Next() (start, length int, cp rune, ok bool) {
	if it.pos >= len(it.b) {
		return 0, 0, 0, false
	}
	start = it.pos
	found := false
	it.enc.IterateCodepoints(it.b[it.pos:], func(s, l int, c rune) bool {
		length = l
		cp = c
		found = true
		return false
	})
	if !found {
		return 0, 0, 0, false
	}
	it.pos += length
	return start, length, cp, true
}
