// Package encoding implements the Encoding component (spec.md §4.3): a
// uniform codepoint-iteration and offset-mapping abstraction that every
// serializer and every byte↔codepoint traversal in the core goes through,
// so the rest of the module never hardcodes UTF-8 offsets.
//
// Non-UTF-8 encodings are resolved and transcoded through
// golang.org/x/text (encoding, transform, ianaindex) — already a
// dependency of stlalpha/vision3's terminal layer for codepage handling —
// rather than hand-rolling charmap tables.
package encoding

import (
	"fmt"

	"golang.org/x/text/encoding/ianaindex"
)

// Encoding decodes a byte string into a sequence of codepoints and maps
// codepoint indices back to byte offsets.
type Encoding interface {
	Name() string

	// IterateCodepoints calls fn(start, length, codepoint) for each
	// codepoint in b in order; it stops early if fn returns false.
	IterateCodepoints(b []byte, fn func(start, length int, cp rune) bool)

	// CodepointCount returns the number of codepoints in b.
	CodepointCount(b []byte) int

	// GetCodepoint returns the byte offset and length of the codepoint at
	// the given codepoint index, or ok=false if index is out of range.
	GetCodepoint(b []byte, index int) (start, length int, ok bool)
}

// Get resolves an IANA/common encoding name ("utf-8", "utf-16",
// "windows-1252", "iso-8859-1", ...) to an Encoding. "" and "utf-8"
// resolve to the fast native UTF-8 path.
func Get(name string) (Encoding, error) {
	if name == "" || name == "utf-8" || name == "UTF-8" {
		return UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding: unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding: unsupported encoding %q", name)
	}
	canonical, _ := ianaindex.IANA.Name(enc)
	if canonical == "" {
		canonical = name
	}
	return &generic{name: canonical, enc: enc}, nil
}

// Converter transcodes bytes from one Encoding to another, going through
// UTF-8 as the system reference encoding when a direct path is
// unavailable (spec.md §4.3).
type Converter struct {
	From, To Encoding
}

func NewConverter(from, to Encoding) *Converter {
	return &Converter{From: from, To: to}
}

// Convert transcodes b (encoded in c.From) into c.To's encoding.
func (c *Converter) Convert(b []byte) ([]byte, error) {
	if c.From.Name() == c.To.Name() {
		return append([]byte(nil), b...), nil
	}
	utf8Bytes, err := toUTF8(c.From, b)
	if err != nil {
		return nil, err
	}
	if c.To.Name() == "UTF-8" {
		return utf8Bytes, nil
	}
	return fromUTF8(c.To, utf8Bytes)
}

func toUTF8(e Encoding, b []byte) ([]byte, error) {
	if g, ok := e.(*generic); ok {
		return g.enc.NewDecoder().Bytes(b)
	}
	return b, nil // already UTF8
}

func fromUTF8(e Encoding, b []byte) ([]byte, error) {
	if g, ok := e.(*generic); ok {
		return g.enc.NewEncoder().Bytes(b)
	}
	return b, nil
}
