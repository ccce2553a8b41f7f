package encoding

import "unicode/utf8"

// UTF8 is the native, zero-conversion fast path used by the system's
// reference encoding (spec.md §4.3).
var UTF8 Encoding = utf8Encoding{}

type utf8Encoding struct{}

func (utf8Encoding) Name() string { return "UTF-8" }

func (utf8Encoding) IterateCodepoints(b []byte, fn func(start, length int, cp rune) bool) {
	for i := 0; i < len(b); {
		cp, size := utf8.DecodeRune(b[i:])
		if !fn(i, size, cp) {
			return
		}
		i += size
	}
}

func (utf8Encoding) CodepointCount(b []byte) int {
	return utf8.RuneCount(b)
}

func (e utf8Encoding) GetCodepoint(b []byte, index int) (int, int, bool) {
	i, n := 0, 0
	for i < len(b) {
		_, size := utf8.DecodeRune(b[i:])
		if n == index {
			return i, size, true
		}
		i += size
		n++
	}
	return 0, 0, false
}
