package render

import (
	"testing"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/tagger"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

func newTestEngine() (*Engine, *txn.Stream, *textblock.Block) {
	block := textblock.New()
	hub := txn.NewHub()
	stream := txn.NewStream(block, encoding.UTF8, hub)

	it := tagger.NewTabIterator(block, encoding.UTF8)
	it.Attach(hub)
	lazy := tagger.NewLazyTagger[bool](it)

	e := NewEngine(block, encoding.UTF8, lazy)
	e.AttachTransactions(hub)
	return e, stream, block
}

// TestEditAndReRender reproduces spec.md §8 scenario 1.
func TestEditAndReRender(t *testing.T) {
	e, stream, _ := newTestEngine()

	if err := stream.Commit(&txn.Insert{Text: "Hello\tWorld"}); err != nil {
		t.Fatal(err)
	}

	vals, _, err := e.Render(0, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("got %d rendered lines, want 1", len(vals))
	}

	frags := vals[0].AsArray()
	if len(frags) != 3 {
		t.Fatalf("got %d fragments, want 3: %+v", len(frags), frags)
	}
	wantTag := []bool{false, true, false}
	wantContent := []string{"Hello", "\t", "World"}
	for i, f := range frags {
		obj := f.AsObject()
		tagVal, _ := obj.Get("tag")
		contentVal, _ := obj.Get("content")
		if tagVal.AsBool() != wantTag[i] || contentVal.AsString() != wantContent[i] {
			t.Fatalf("fragment %d: got tag=%v content=%q, want tag=%v content=%q",
				i, tagVal.AsBool(), contentVal.AsString(), wantTag[i], wantContent[i])
		}
	}
}

// TestUndoRedoRerender reproduces spec.md §8 scenario 2.
func TestUndoRedoRerender(t *testing.T) {
	e, stream, block := newTestEngine()

	if err := stream.Commit(&txn.Insert{Text: "Hello\tWorld"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Render(0, 10, true); err != nil {
		t.Fatal(err)
	}

	if err := stream.Undo(); err != nil {
		t.Fatal(err)
	}
	if block.LastLine() != 0 {
		t.Fatalf("LastLine = %d, want 0", block.LastLine())
	}
	if line, _ := block.GetLine(0); line != "" {
		t.Fatalf("got %q, want empty", line)
	}

	vals, _, err := e.Render(0, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	frags := vals[0].AsArray()
	if len(frags) != 1 {
		t.Fatalf("got %d fragments after undo, want 1 (empty line)", len(frags))
	}
	content, _ := frags[0].AsObject().Get("content")
	if content.AsString() != "" {
		t.Fatalf("got %q, want empty content", content.AsString())
	}

	if err := stream.Redo(); err != nil {
		t.Fatal(err)
	}
	if line, _ := block.GetLine(0); line != "Hello\tWorld" {
		t.Fatalf("got %q after redo", line)
	}
}

// TestPartialRenderTwiceYieldsEmptySecondResponse reproduces spec.md §8
// scenario 3.
func TestPartialRenderTwiceYieldsEmptySecondResponse(t *testing.T) {
	e, stream, _ := newTestEngine()
	if err := stream.Commit(&txn.Insert{Text: "Hello\tWorld"}); err != nil {
		t.Fatal(err)
	}

	_, first, err := e.Render(0, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("first partial render: got %d filled lines, want 1", len(first))
	}

	_, second, err := e.Render(0, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Fatalf("second partial render: got %d filled lines, want 0 (nothing new)", len(second))
	}
}
