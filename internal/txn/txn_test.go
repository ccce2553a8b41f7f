package txn

import (
	"testing"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/textblock"
)

func newTestStream() (*Stream, *textblock.Block) {
	b := textblock.New()
	hub := NewHub()
	return NewStream(b, encoding.UTF8, hub), b
}

func TestUndoRedoRoundtrip(t *testing.T) {
	s, b := newTestStream()

	if err := s.Commit(&Insert{Pos: textblock.Position{}, Text: "Hello\tWorld"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if line, _ := b.GetLine(0); line != "Hello\tWorld" {
		t.Fatalf("after insert: got %q", line)
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if b.LastLine() != 0 {
		t.Fatalf("after undo: LastLine = %d, want 0", b.LastLine())
	}
	if line, _ := b.GetLine(0); line != "" {
		t.Fatalf("after undo: got %q, want empty", line)
	}
	if !s.HasRedoable() {
		t.Fatal("expected HasRedoable() = true after undo")
	}

	if err := s.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if line, _ := b.GetLine(0); line != "Hello\tWorld" {
		t.Fatalf("after redo: got %q", line)
	}
}

func TestCommitTruncatesRedoSuffix(t *testing.T) {
	s, b := newTestStream()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.Commit(&Insert{Pos: textblock.Position{}, Text: "abc"}))
	must(s.Undo())
	must(s.Commit(&Insert{Pos: textblock.Position{}, Text: "xyz"}))

	if s.HasRedoable() {
		t.Fatal("expected redo suffix to be discarded after a new commit")
	}
	if line, _ := b.GetLine(0); line != "xyz" {
		t.Fatalf("got %q", line)
	}
}

func TestMultipleStreamsObserveEachOthersCommits(t *testing.T) {
	b := textblock.New()
	hub := NewHub()
	s1 := NewStream(b, encoding.UTF8, hub)
	s2 := NewStream(b, encoding.UTF8, hub)

	var seenByS2 []Transaction
	s2.OnCommit(func(tx Transaction) { seenByS2 = append(seenByS2, tx) })

	if err := s1.Commit(&Insert{Pos: textblock.Position{}, Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if len(seenByS2) != 1 {
		t.Fatalf("expected stream 2 to observe stream 1's commit, got %d notifications", len(seenByS2))
	}
}

func TestNewLineSplitsAndUndoes(t *testing.T) {
	s, b := newTestStream()
	if err := s.Commit(&Insert{Pos: textblock.Position{}, Text: "abcdef"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(&NewLine{Pos: textblock.Position{Line: 0, Column: 3}}); err != nil {
		t.Fatal(err)
	}
	if b.LastLine() != 1 {
		t.Fatalf("LastLine = %d, want 1", b.LastLine())
	}
	l0, _ := b.GetLine(0)
	l1, _ := b.GetLine(1)
	if l0 != "abc" || l1 != "def" {
		t.Fatalf("got %q / %q", l0, l1)
	}

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if b.LastLine() != 0 {
		t.Fatalf("after undo LastLine = %d, want 0", b.LastLine())
	}
	l0, _ = b.GetLine(0)
	if l0 != "abcdef" {
		t.Fatalf("after undo got %q", l0)
	}
}
