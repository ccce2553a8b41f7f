// Package widgets implements the Editor Widgets component (spec.md
// §4.13 / SPEC_FULL.md §4.14): TextEditor, a screen.TextPane driver that
// consumes the cursor and render RPC services and turns key events and
// render requests into calls over them.
package widgets

import (
	"context"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/screen"
)

// Invoker is the client-side shape both pipe.Client and netif.Conn
// satisfy: invoke a named method with params and get a result back.
// TextEditor is built against this interface rather than a concrete
// transport so the same widget works whether the cursor/render services
// are reached through a local named.Server.Connect pipe or across a
// Bridge over the wire.
type Invoker interface {
	Invoke(ctx context.Context, method string, params kgr.Value) (kgr.Value, error)
}

// KeyBinding names the chord TextEditor treats as undo/redo toggles;
// callers set these once at construction since the core has no concept
// of a configurable keymap beyond this single pair (spec.md §4.13).
type KeyBinding struct {
	Undo string
	Redo string
}

var defaultBindings = KeyBinding{Undo: "ctrl+z", Redo: "ctrl+y"}

// TextEditor drives one screen.TextPane from a pair of document RPC
// clients. Fragment draw attributes are two lipgloss.Styles (spec.md
// §4.13 "the configured graphics attributes"): one for untagged and one
// for tagged fragments; there is no per-tag style table.
type TextEditor struct {
	cursor Invoker
	render Invoker

	pane     *screen.TextPane
	bindings KeyBinding

	plainStyle lipgloss.Style
	tagStyle   lipgloss.Style

	offset   position
	cursorAt position
}

type position struct {
	Line, Column uint64
}

// NewTextEditor connects cursor and render to documentID and wires the
// resulting widget to pane via SetDrawFunc/SetInputFunc.
func NewTextEditor(ctx context.Context, cursor, render Invoker, documentID uuid.UUID, pane *screen.TextPane) (*TextEditor, error) {
	e := &TextEditor{
		cursor:   cursor,
		render:   render,
		pane:     pane,
		bindings: defaultBindings,
		tagStyle: lipgloss.NewStyle().Bold(true),
	}

	connectParams := kgr.NewOrderedMap()
	connectParams.Set("documentId", kgr.String(documentID.String()))
	connectParams.Set("sendResponses", kgr.Bool(true))
	if _, err := e.cursor.Invoke(ctx, "connect", kgr.Object(connectParams)); err != nil {
		return nil, err
	}

	attachParams := kgr.NewOrderedMap()
	attachParams.Set("document", kgr.String(documentID.String()))
	if _, err := e.render.Invoke(ctx, "attach", kgr.Object(attachParams)); err != nil {
		return nil, err
	}

	pane.SetDrawFunc(e.draw)
	pane.SetInputFunc(e.handleInput)
	return e, nil
}

// SetStyle overrides the draw attributes used for untagged and tagged
// fragments respectively.
func (e *TextEditor) SetStyle(plain, tag lipgloss.Style) {
	e.plainStyle, e.tagStyle = plain, tag
}

// handleInput is the key table spec.md §4.13 describes: arrows move the
// cursor, Enter commits a new line, printable runes insert, Backspace/
// Delete remove, and the bound chord undoes/redoes.
func (e *TextEditor) handleInput(ev screen.Event) bool {
	ctx := context.Background()
	countParams := func() kgr.Value {
		om := kgr.NewOrderedMap()
		om.Set("count", kgr.Int(1))
		return kgr.Object(om)
	}

	switch ev.Key {
	case e.bindings.Undo:
		e.invokeCursor(ctx, "undo", kgr.Null())
		return true
	case e.bindings.Redo:
		e.invokeCursor(ctx, "redo", kgr.Null())
		return true
	case "up":
		e.invokeCursor(ctx, "moveUp", countParams())
		return true
	case "down":
		e.invokeCursor(ctx, "moveDown", countParams())
		return true
	case "left":
		e.invokeCursor(ctx, "moveBackward", countParams())
		return true
	case "right":
		e.invokeCursor(ctx, "moveForward", countParams())
		return true
	case "enter":
		params := kgr.NewOrderedMap()
		params.Set("content", kgr.String(""))
		e.invokeCursor(ctx, "newLine", kgr.Object(params))
		return true
	case "backspace":
		e.invokeCursor(ctx, "deleteBackward", kgr.Null())
		return true
	case "delete":
		e.invokeCursor(ctx, "deleteForward", kgr.Null())
		return true
	}

	if ev.Rune != 0 {
		params := kgr.NewOrderedMap()
		params.Set("text", kgr.String(string(ev.Rune)))
		e.invokeCursor(ctx, "insert", kgr.Object(params))
		return true
	}
	return false
}

// invokeCursor calls method on the cursor client and, since connect was
// made with sendResponses=true, updates e.cursorAt from the returned
// position.
func (e *TextEditor) invokeCursor(ctx context.Context, method string, params kgr.Value) {
	result, err := e.cursor.Invoke(ctx, method, params)
	if err != nil || !result.IsObject() {
		return
	}
	line, lerr := kgr.FieldInt(result, "line")
	column, cerr := kgr.FieldInt(result, "column")
	if lerr == nil && cerr == nil {
		e.cursorAt = position{Line: uint64(line), Column: uint64(column)}
	}
}

// draw requests a (height, width) viewport from the render service and
// paints each returned line's fragments, then positions the cursor at
// (cursor.line - offset.line, cursor.column - offset.column) (spec.md
// §4.13).
func (e *TextEditor) draw(width, height int) (*screen.Surface, error) {
	e.syncPosition(context.Background())
	e.adjustOffset(width, height)

	params := kgr.NewOrderedMap()
	params.Set("line", kgr.Int(int64(e.offset.Line)))
	params.Set("height", kgr.Int(int64(height)))
	result, err := e.render.Invoke(context.Background(), "render", kgr.Object(params))
	if err != nil {
		return nil, err
	}

	surface := screen.NewSurface(width, height)
	for _, entry := range result.AsArray() {
		lineVal, _ := entry.AsObject().Get("line")
		line := uint64(lineVal.AsInt())
		if line < e.offset.Line {
			continue
		}
		row := int(line - e.offset.Line)
		if row >= height {
			continue
		}
		valueVal, _ := entry.AsObject().Get("value")
		e.drawFragments(surface, row, valueVal.AsArray())
	}

	if cursorRow := int(e.cursorAt.Line) - int(e.offset.Line); cursorRow >= 0 && cursorRow < height {
		cursorCol := int(e.cursorAt.Column) - int(e.offset.Column)
		if cell := surface.At(cursorRow, cursorCol); cell != nil {
			cell.Style = cell.Style.Reverse(true)
		}
	}
	return surface, nil
}

// drawFragments paints one rendered line's {tag, content} fragments
// starting at column 0 of row.
func (e *TextEditor) drawFragments(surface *screen.Surface, row int, fragments []kgr.Value) {
	col := 0
	for _, frag := range fragments {
		tagVal, _ := frag.AsObject().Get("tag")
		contentVal, _ := frag.AsObject().Get("content")
		style := e.plainStyle
		if tagVal.AsBool() {
			style = e.tagStyle
		}
		for _, r := range contentVal.AsString() {
			surface.Set(row, col, screen.Cell{Rune: r, Style: style})
			col++
		}
	}
}

// syncPosition refreshes e.cursorAt from the cursor service, for when
// the cursor moved through a path this widget didn't itself drive (e.g.
// another stream's edit shifting this one's position).
func (e *TextEditor) syncPosition(ctx context.Context) {
	result, err := e.cursor.Invoke(ctx, "getPosition", kgr.Null())
	if err != nil || !result.IsObject() {
		return
	}
	line, lerr := kgr.FieldInt(result, "line")
	column, cerr := kgr.FieldInt(result, "column")
	if lerr == nil && cerr == nil {
		e.cursorAt = position{Line: uint64(line), Column: uint64(column)}
	}
}

// adjustOffset scrolls the viewport just enough to keep the cursor
// visible within (width, height).
func (e *TextEditor) adjustOffset(width, height int) {
	if height > 0 {
		if e.cursorAt.Line < e.offset.Line {
			e.offset.Line = e.cursorAt.Line
		}
		if e.cursorAt.Line >= e.offset.Line+uint64(height) {
			e.offset.Line = e.cursorAt.Line - uint64(height) + 1
		}
	}
	if width > 0 {
		if e.cursorAt.Column < e.offset.Column {
			e.offset.Column = e.cursorAt.Column
		}
		if e.cursorAt.Column >= e.offset.Column+uint64(width) {
			e.offset.Column = e.cursorAt.Column - uint64(width) + 1
		}
	}
}
