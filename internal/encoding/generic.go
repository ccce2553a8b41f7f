package encoding

import (
	"unicode/utf8"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// generic wraps any golang.org/x/text/encoding.Encoding (charmaps,
// UTF-16, …) behind the Encoding interface. Because such encodings can
// use a variable, encoding-specific number of source bytes per
// codepoint, each codepoint is decoded by probing increasing byte
// windows through a fresh transform.Transformer until one yields exactly
// one rune — the same incremental-decode shape x/text's own
// transform.Reader uses internally, just driven one rune at a time so we
// can report the source byte offset/length spec.md §4.3 requires.
type generic struct {
	name string
	enc  xenc.Encoding
}

func (g *generic) Name() string { return g.name }

const maxCodepointBytes = 8

func (g *generic) decodeOne(b []byte) (cp rune, n int, ok bool) {
	limit := maxCodepointBytes
	if limit > len(b) {
		limit = len(b)
	}
	var dst [16]byte
	for k := 1; k <= limit; k++ {
		t := g.enc.NewDecoder()
		nDst, nSrc, err := t.Transform(dst[:], b[:k], k == len(b))
		if err == transform.ErrShortSrc {
			continue
		}
		if err != nil || nDst == 0 || nSrc == 0 {
			continue
		}
		r, size := utf8.DecodeRune(dst[:nDst])
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		return r, nSrc, true
	}
	return utf8.RuneError, 1, false
}

func (g *generic) IterateCodepoints(b []byte, fn func(start, length int, cp rune) bool) {
	for i := 0; i < len(b); {
		cp, n, ok := g.decodeOne(b[i:])
		if !ok {
			n = 1
			cp = utf8.RuneError
		}
		if !fn(i, n, cp) {
			return
		}
		i += n
	}
}

func (g *generic) CodepointCount(b []byte) int {
	count := 0
	g.IterateCodepoints(b, func(int, int, rune) bool {
		count++
		return true
	})
	return count
}

func (g *generic) GetCodepoint(b []byte, index int) (int, int, bool) {
	found := -1
	start, length := 0, 0
	n := 0
	g.IterateCodepoints(b, func(s, l int, _ rune) bool {
		if n == index {
			found = n
			start, length = s, l
			return false
		}
		n++
		return true
	})
	return start, length, found == index
}
