package document

import (
	"context"
	"testing"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/pipe"
)

func newTestServer(t *testing.T) (*Set, *named.Server) {
	t.Helper()
	set := NewSet()
	server := named.NewServer()
	if err := server.Register("/document/cursor", NewCursorService(set)); err != nil {
		t.Fatal(err)
	}
	if err := server.Register("/document/render", NewRenderService(set)); err != nil {
		t.Fatal(err)
	}
	return set, server
}

func connectParams(fields map[string]kgr.Value) kgr.Value {
	om := kgr.NewOrderedMap()
	for k, v := range fields {
		om.Set(k, v)
	}
	return kgr.Object(om)
}

// TestEditAndReRender reproduces spec.md §8 scenario 1.
func TestEditAndReRender(t *testing.T) {
	set, server := newTestServer(t)
	doc := set.OpenDocument("", nil, encoding.UTF8)

	cursorPipe, err := server.Connect("/document/cursor")
	if err != nil {
		t.Fatal(err)
	}
	cursor := pipe.NewClient(cursorPipe)
	ctx := context.Background()

	if _, err := cursor.Invoke(ctx, "connect", connectParams(map[string]kgr.Value{
		"documentId": kgr.String(doc.ID.String()),
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := cursor.Invoke(ctx, "insert", connectParams(map[string]kgr.Value{
		"text": kgr.String("Hello\tWorld"),
	})); err != nil {
		t.Fatal(err)
	}

	renderPipe, err := server.Connect("/document/render")
	if err != nil {
		t.Fatal(err)
	}
	renderClient := pipe.NewClient(renderPipe)
	if _, err := renderClient.Invoke(ctx, "attach", connectParams(map[string]kgr.Value{
		"document": kgr.String(doc.ID.String()),
	})); err != nil {
		t.Fatal(err)
	}

	result, err := renderClient.Invoke(ctx, "render", connectParams(map[string]kgr.Value{
		"line":   kgr.Int(0),
		"height": kgr.Int(10),
	}))
	if err != nil {
		t.Fatal(err)
	}
	lines := result.AsArray()
	if len(lines) != 1 {
		t.Fatalf("expected one rendered line, got %d", len(lines))
	}
	fragments, _ := lines[0].AsObject().Get("value")
	frags := fragments.AsArray()
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(frags), frags)
	}
	wantTag := []bool{false, true, false}
	wantContent := []string{"Hello", "\t", "World"}
	for i, f := range frags {
		tagVal, _ := f.AsObject().Get("tag")
		contentVal, _ := f.AsObject().Get("content")
		if tagVal.AsBool() != wantTag[i] || contentVal.AsString() != wantContent[i] {
			t.Fatalf("fragment %d = {%v,%q}, want {%v,%q}", i, tagVal.AsBool(), contentVal.AsString(), wantTag[i], wantContent[i])
		}
	}
}

// TestUndoRedoRoundtrip reproduces spec.md §8 scenario 2.
func TestUndoRedoRoundtrip(t *testing.T) {
	set, server := newTestServer(t)
	doc := set.OpenDocument("", nil, encoding.UTF8)
	ctx := context.Background()

	cursorPipe, _ := server.Connect("/document/cursor")
	cursor := pipe.NewClient(cursorPipe)
	cursor.Invoke(ctx, "connect", connectParams(map[string]kgr.Value{"documentId": kgr.String(doc.ID.String())}))
	cursor.Invoke(ctx, "insert", connectParams(map[string]kgr.Value{"text": kgr.String("Hello\tWorld")}))

	if _, err := cursor.Invoke(ctx, "undo", kgr.Null()); err != nil {
		t.Fatal(err)
	}
	if doc.Block.LastLine() != 0 {
		t.Fatalf("expected one line after undo, last=%d", doc.Block.LastLine())
	}
	line, _ := doc.Block.GetLine(0)
	if line != "" {
		t.Fatalf("expected empty line after undo, got %q", line)
	}

	if _, err := cursor.Invoke(ctx, "redo", kgr.Null()); err != nil {
		t.Fatal(err)
	}
	line, _ = doc.Block.GetLine(0)
	if line != "Hello\tWorld" {
		t.Fatalf("expected restored text after redo, got %q", line)
	}
}

// TestPartialRenderSecondCallIsEmpty reproduces spec.md §8 scenario 3.
func TestPartialRenderSecondCallIsEmpty(t *testing.T) {
	set, server := newTestServer(t)
	doc := set.OpenDocument("", []string{"one", "two"}, encoding.UTF8)
	ctx := context.Background()

	renderPipe, _ := server.Connect("/document/render")
	renderClient := pipe.NewClient(renderPipe)
	renderClient.Invoke(ctx, "attach", connectParams(map[string]kgr.Value{"document": kgr.String(doc.ID.String())}))

	params := connectParams(map[string]kgr.Value{
		"line":    kgr.Int(0),
		"height":  kgr.Int(10),
		"partial": kgr.Bool(true),
	})
	first, err := renderClient.Invoke(ctx, "render", params)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.AsArray()) == 0 {
		t.Fatal("expected the first partial render to report filled lines")
	}

	second, err := renderClient.Invoke(ctx, "render", params)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.AsArray()) != 0 {
		t.Fatalf("expected the second partial render to be empty, got %v", second.AsArray())
	}
}
