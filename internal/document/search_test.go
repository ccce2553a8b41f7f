package document

import (
	"context"
	"testing"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/pipe"
)

func newSearchClient(t *testing.T, set *Set, doc *Document) *pipe.Client {
	t.Helper()
	server := named.NewServer()
	if err := server.Register("/document/search", NewSearchService(set)); err != nil {
		t.Fatal(err)
	}
	searchPipe, err := server.Connect("/document/search")
	if err != nil {
		t.Fatal(err)
	}
	client := pipe.NewClient(searchPipe)
	if _, err := client.Invoke(context.Background(), "connect", connectParams(map[string]kgr.Value{
		"documentId": kgr.String(doc.ID.String()),
	})); err != nil {
		t.Fatal(err)
	}
	return client
}

func TestSearchPlainMatchAndGet(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", []string{"foo bar foo", "baz foo"}, encoding.UTF8)
	ctx := context.Background()
	client := newSearchClient(t, set, doc)

	result, err := client.Invoke(ctx, "match", connectParams(map[string]kgr.Value{
		"query": kgr.String("foo"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	countVal, _ := result.AsObject().Get("count")
	if countVal.AsInt() != 3 {
		t.Fatalf("expected 3 matches, got %d", countVal.AsInt())
	}

	first, err := client.Invoke(ctx, "get", kgr.Null())
	if err != nil {
		t.Fatal(err)
	}
	lineVal, _ := first.AsObject().Get("line")
	fromVal, _ := first.AsObject().Get("from")
	if lineVal.AsInt() != 0 || fromVal.AsInt() != 0 {
		t.Fatalf("expected first hit at (0,0), got (%d,%d)", lineVal.AsInt(), fromVal.AsInt())
	}
}

func TestSearchCaseInsensitiveFlag(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", []string{"Foo FOO foo"}, encoding.UTF8)
	ctx := context.Background()
	client := newSearchClient(t, set, doc)

	result, err := client.Invoke(ctx, "match", connectParams(map[string]kgr.Value{
		"query": kgr.String("foo"),
		"flags": kgr.String("i"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	countVal, _ := result.AsObject().Get("count")
	if countVal.AsInt() != 3 {
		t.Fatalf("expected 3 case-insensitive matches, got %d", countVal.AsInt())
	}
}

func TestSearchRegexMatcher(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", []string{"a1 b22 c333"}, encoding.UTF8)
	ctx := context.Background()
	client := newSearchClient(t, set, doc)

	if _, err := client.Invoke(ctx, "matcher", connectParams(map[string]kgr.Value{
		"type": kgr.String("regex"),
	})); err != nil {
		t.Fatal(err)
	}
	result, err := client.Invoke(ctx, "match", connectParams(map[string]kgr.Value{
		"query": kgr.String(`\d+`),
	}))
	if err != nil {
		t.Fatal(err)
	}
	countVal, _ := result.AsObject().Get("count")
	if countVal.AsInt() != 3 {
		t.Fatalf("expected 3 regex matches, got %d", countVal.AsInt())
	}
}

func TestSearchReplaceAllKeepsOffsetsStable(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", []string{"foo bar foo"}, encoding.UTF8)
	ctx := context.Background()
	client := newSearchClient(t, set, doc)

	if _, err := client.Invoke(ctx, "match", connectParams(map[string]kgr.Value{
		"query": kgr.String("foo"),
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Invoke(ctx, "replaceAll", connectParams(map[string]kgr.Value{
		"by": kgr.String("quux"),
	})); err != nil {
		t.Fatal(err)
	}
	line, err := doc.Block.GetLine(0)
	if err != nil {
		t.Fatal(err)
	}
	if line != "quux bar quux" {
		t.Fatalf("expected both occurences replaced, got %q", line)
	}
}

func TestSearchRewindSkipsEarlierHits(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", []string{"foo foo foo"}, encoding.UTF8)
	ctx := context.Background()
	client := newSearchClient(t, set, doc)

	if _, err := client.Invoke(ctx, "match", connectParams(map[string]kgr.Value{
		"query": kgr.String("foo"),
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Invoke(ctx, "rewind", connectParams(map[string]kgr.Value{
		"line":   kgr.Int(0),
		"column": kgr.Int(5),
	})); err != nil {
		t.Fatal(err)
	}
	result, err := client.Invoke(ctx, "get", kgr.Null())
	if err != nil {
		t.Fatal(err)
	}
	fromVal, _ := result.AsObject().Get("from")
	if fromVal.AsInt() != 8 {
		t.Fatalf("expected rewind to land on the third hit at column 8, got %d", fromVal.AsInt())
	}
}
