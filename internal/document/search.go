package document

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

// SearchService implements /document/search (spec.md §6): connect binds
// a document, matcher picks "plain" or "regex" matching, match runs a
// query over every line and caches the hits, rewind/get walk the cached
// hits, and replace/replaceAll commit a ClearRegion+Insert transaction
// per hit through the document's own stream (so undo/redo, render
// invalidation and cursor notification all see a replace the same way
// they'd see a manual edit). Matching is line-local, not cross-line:
// spec.md's examples never show a multi-line query, and keeping matches
// within one line keeps occurence indices stable across edits to other
// lines.
type SearchService struct {
	Set *Set
}

func NewSearchService(set *Set) *SearchService {
	return &SearchService{Set: set}
}

func (s *SearchService) Attach(endpoint *pipe.Pipe) {
	conn := &searchConn{set: s.Set, matcherType: "plain"}
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"connect":    conn.connect,
		"matcher":    conn.matcher,
		"match":      conn.match,
		"rewind":     conn.rewind,
		"get":        conn.get,
		"replace":    conn.replace,
		"replaceAll": conn.replaceAll,
	})
}

type hit struct {
	Line     uint64
	From, To uint64
}

type searchConn struct {
	set *Set

	doc         *Document
	stream      *txn.Stream
	matcherType string
	hits        []hit
	cursor      int
}

func (c *searchConn) requireDoc() error {
	if c.doc == nil {
		return slkerr.New(slkerr.DocumentClosed, "document search: connect to a document first")
	}
	return nil
}

func (c *searchConn) connect(params kgr.Value) (kgr.Value, error) {
	idStr, err := kgr.FieldString(params, "documentId")
	if err != nil {
		return kgr.Null(), err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "document search: invalid documentId %q", idStr)
	}
	doc, err := c.set.Get(id)
	if err != nil {
		return kgr.Null(), err
	}
	c.doc = doc
	c.stream = doc.NewStream()
	return kgr.Null(), nil
}

func (c *searchConn) matcher(params kgr.Value) (kgr.Value, error) {
	kind, err := kgr.FieldString(params, "type")
	if err != nil {
		return kgr.Null(), err
	}
	if kind != "plain" && kind != "regex" {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "document search: unknown matcher type %q", kind)
	}
	c.matcherType = kind
	c.hits = nil
	c.cursor = 0
	return kgr.Null(), nil
}

func (c *searchConn) match(params kgr.Value) (kgr.Value, error) {
	if err := c.requireDoc(); err != nil {
		return kgr.Null(), err
	}
	query, err := kgr.FieldString(params, "query")
	if err != nil {
		return kgr.Null(), err
	}
	flags, _ := kgr.OptField(params, "flags", kgr.String(""))
	caseInsensitive := strings.Contains(flags.AsString(), "i")

	hits, err := collectHits(c.doc.Block, c.doc.Encoding, c.matcherType, query, caseInsensitive)
	if err != nil {
		return kgr.Null(), err
	}
	c.hits = hits
	c.cursor = 0
	om := kgr.NewOrderedMap()
	om.Set("count", kgr.Int(int64(len(hits))))
	return kgr.Object(om), nil
}

func collectHits(b *textblock.Block, enc encoding.Encoding, kind, query string, caseInsensitive bool) ([]hit, error) {
	var re *regexp.Regexp
	if kind == "regex" {
		pattern := query
		if caseInsensitive {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, slkerr.New(slkerr.MalformedMessage, "document search: invalid regex: %v", err)
		}
		re = compiled
	}

	var hits []hit
	last := b.LastLine()
	for i := uint64(0); i <= last; i++ {
		line, err := b.GetLine(i)
		if err != nil {
			return nil, err
		}
		for _, byteRange := range findByteRanges(line, kind, query, caseInsensitive, re) {
			fromCols := enc.CodepointCount([]byte(line[:byteRange[0]]))
			toCols := enc.CodepointCount([]byte(line[:byteRange[1]]))
			hits = append(hits, hit{Line: i, From: uint64(fromCols), To: uint64(toCols)})
		}
	}
	return hits, nil
}

func findByteRanges(line, kind, query string, caseInsensitive bool, re *regexp.Regexp) [][2]int {
	if kind == "regex" {
		var out [][2]int
		for _, m := range re.FindAllStringIndex(line, -1) {
			out = append(out, [2]int{m[0], m[1]})
		}
		return out
	}

	haystack, needle := line, query
	if caseInsensitive {
		haystack, needle = strings.ToLower(line), strings.ToLower(query)
	}
	if needle == "" {
		return nil
	}
	var out [][2]int
	start := 0
	for {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			break
		}
		from := start + idx
		to := from + len(needle)
		out = append(out, [2]int{from, to})
		start = to
	}
	return out
}

func (c *searchConn) rewind(params kgr.Value) (kgr.Value, error) {
	line, err := kgr.FieldInt(params, "line")
	if err != nil {
		return kgr.Null(), err
	}
	column, err := kgr.FieldInt(params, "column")
	if err != nil {
		return kgr.Null(), err
	}
	pos := textblock.Position{Line: uint64(line), Column: uint64(column)}
	for i, h := range c.hits {
		hitPos := textblock.Position{Line: h.Line, Column: h.From}
		if !hitPos.Less(pos) {
			c.cursor = i
			return kgr.Null(), nil
		}
	}
	c.cursor = len(c.hits)
	return kgr.Null(), nil
}

func hitValue(h hit) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("line", kgr.Int(int64(h.Line)))
	om.Set("from", kgr.Int(int64(h.From)))
	om.Set("to", kgr.Int(int64(h.To)))
	return kgr.Object(om)
}

func (c *searchConn) get(kgr.Value) (kgr.Value, error) {
	if c.cursor >= len(c.hits) {
		return kgr.Null(), nil
	}
	h := c.hits[c.cursor]
	c.cursor++
	return hitValue(h), nil
}

func (c *searchConn) replace(params kgr.Value) (kgr.Value, error) {
	if err := c.requireDoc(); err != nil {
		return kgr.Null(), err
	}
	occurence, err := kgr.FieldInt(params, "occurence")
	if err != nil {
		return kgr.Null(), err
	}
	by, err := kgr.FieldString(params, "by")
	if err != nil {
		return kgr.Null(), err
	}
	if occurence < 0 || int(occurence) >= len(c.hits) {
		return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "document search: occurence %d out of range", occurence)
	}
	return kgr.Null(), c.replaceOne(int(occurence), by)
}

func (c *searchConn) replaceOne(index int, by string) error {
	h := c.hits[index]
	from := textblock.Position{Line: h.Line, Column: h.From}
	to := textblock.Position{Line: h.Line, Column: h.To}
	if err := c.stream.Commit(&txn.ClearRegion{From: from, To: to}); err != nil {
		return err
	}
	if by != "" {
		if err := c.stream.Commit(&txn.Insert{Pos: from, Text: by}); err != nil {
			return err
		}
	}
	return nil
}

// replaceAll replaces every cached hit with by, working from the last
// hit on each line backward so earlier column offsets on that line stay
// valid across the edit.
func (c *searchConn) replaceAll(params kgr.Value) (kgr.Value, error) {
	if err := c.requireDoc(); err != nil {
		return kgr.Null(), err
	}
	by, err := kgr.FieldString(params, "by")
	if err != nil {
		return kgr.Null(), err
	}
	for i := len(c.hits) - 1; i >= 0; i-- {
		if err := c.replaceOne(i, by); err != nil {
			return kgr.Null(), err
		}
	}
	om := kgr.NewOrderedMap()
	om.Set("count", kgr.Int(int64(len(c.hits))))
	return kgr.Object(om), nil
}
