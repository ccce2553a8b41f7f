package widgets

import (
	"context"
	"testing"

	"github.com/sloked/sloked/internal/document"
	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/screen"
)

func newWiredEditor(t *testing.T) (*TextEditor, *document.Document) {
	t.Helper()
	set := document.NewSet()
	server := named.NewServer()
	if err := server.Register("/document/cursor", document.NewCursorService(set)); err != nil {
		t.Fatal(err)
	}
	if err := server.Register("/document/render", document.NewRenderService(set)); err != nil {
		t.Fatal(err)
	}
	doc := set.OpenDocument("", nil, encoding.UTF8)

	cursorPipe, err := server.Connect("/document/cursor")
	if err != nil {
		t.Fatal(err)
	}
	renderPipe, err := server.Connect("/document/render")
	if err != nil {
		t.Fatal(err)
	}

	pane := screen.NewTextPane()
	editor, err := NewTextEditor(context.Background(), pipe.NewClient(cursorPipe), pipe.NewClient(renderPipe), doc.ID, pane)
	if err != nil {
		t.Fatal(err)
	}
	return editor, doc
}

func TestTextEditorInsertAndRender(t *testing.T) {
	editor, doc := newWiredEditor(t)

	for _, r := range "Hi" {
		if !editor.pane.ProcessInput(screen.Event{Rune: r}) {
			t.Fatalf("expected rune %q to be consumed", r)
		}
	}

	line, err := doc.Block.GetLine(0)
	if err != nil {
		t.Fatal(err)
	}
	if line != "Hi" {
		t.Fatalf("expected document to contain %q, got %q", "Hi", line)
	}

	surface, err := editor.pane.RenderSurface(10, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range "Hi" {
		cell := surface.At(0, i)
		if cell == nil || cell.Rune != want {
			t.Fatalf("surface[0][%d] = %+v, want rune %q", i, cell, want)
		}
	}
}

func TestTextEditorEnterAndBackspace(t *testing.T) {
	editor, doc := newWiredEditor(t)

	editor.pane.ProcessInput(screen.Event{Rune: 'a'})
	editor.pane.ProcessInput(screen.Event{Key: "enter"})
	editor.pane.ProcessInput(screen.Event{Rune: 'b'})

	if doc.Block.LastLine() != 1 {
		t.Fatalf("expected two lines after Enter, last=%d", doc.Block.LastLine())
	}

	editor.pane.ProcessInput(screen.Event{Key: "backspace"})
	line1, _ := doc.Block.GetLine(1)
	if line1 != "" {
		t.Fatalf("expected second line empty after backspace, got %q", line1)
	}
}

func TestTextEditorUndoBinding(t *testing.T) {
	editor, doc := newWiredEditor(t)
	editor.pane.ProcessInput(screen.Event{Rune: 'x'})
	editor.pane.ProcessInput(screen.Event{Key: defaultBindings.Undo})

	line, _ := doc.Block.GetLine(0)
	if line != "" {
		t.Fatalf("expected undo to empty the line, got %q", line)
	}
}
