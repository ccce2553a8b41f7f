package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/textblock"
	"github.com/sloked/sloked/internal/txn"
)

// CursorService implements /document/cursor (spec.md §6): a connection
// attaches to one open Document and drives an independent undo/redo
// stream with an own (line, column) position, moved by insert/move/
// delete/undo/redo calls.
type CursorService struct {
	Set *Set
}

func NewCursorService(set *Set) *CursorService { return &CursorService{Set: set} }

func (s *CursorService) Attach(endpoint *pipe.Pipe) {
	conn := &cursorConn{}
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"connect":        s.handleConnect(conn),
		"insert":         conn.insert,
		"moveUp":         conn.moveVertical(-1),
		"moveDown":       conn.moveVertical(1),
		"moveBackward":   conn.moveHorizontal(-1),
		"moveForward":    conn.moveHorizontal(1),
		"newLine":        conn.newLine,
		"deleteBackward": conn.deleteBackward,
		"deleteForward":  conn.deleteForward,
		"undo":           conn.undo,
		"redo":           conn.redo,
		"getPosition":    conn.getPosition,
		"moveTo":         conn.moveTo,
		"clearRegion":    conn.clearRegion,
	})
}

// cursorConn is the per-connection state: which document and stream this
// endpoint is bound to, its own cursor position, and whether mutating
// calls should echo the resulting position back (connect's
// sendResponses).
type cursorConn struct {
	doc           *Document
	stream        *txn.Stream
	pos           textblock.Position
	sendResponses bool
}

func (s *CursorService) handleConnect(conn *cursorConn) pipe.Handler {
	return func(params kgr.Value) (kgr.Value, error) {
		idStr, err := kgr.FieldString(params, "documentId")
		if err != nil {
			return kgr.Null(), err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return kgr.Null(), slkerr.New(slkerr.TypeMismatch, "cursor: invalid documentId %q", idStr)
		}
		doc, err := s.Set.Get(id)
		if err != nil {
			return kgr.Null(), err
		}
		sendResponses, _ := kgr.FieldBool(params, "sendResponses", false)

		conn.doc = doc
		conn.stream = doc.NewStream()
		conn.pos = textblock.Position{}
		conn.sendResponses = sendResponses
		return kgr.Null(), nil
	}
}

func positionValue(pos textblock.Position) kgr.Value {
	om := kgr.NewOrderedMap()
	om.Set("line", kgr.Int(int64(pos.Line)))
	om.Set("column", kgr.Int(int64(pos.Column)))
	return kgr.Object(om)
}

// ack returns the updated cursor position if the connection asked for
// it (sendResponses=true), or null otherwise.
func (c *cursorConn) ack() kgr.Value {
	if !c.sendResponses {
		return kgr.Null()
	}
	return positionValue(c.pos)
}

func (c *cursorConn) requireConnected() error {
	if c.doc == nil {
		return slkerr.New(slkerr.DocumentClosed, "cursor: not connected to a document")
	}
	return nil
}

func (c *cursorConn) commit(tx txn.Transaction) error {
	patch, err := c.stream.CommitPatch(tx)
	if err != nil {
		return err
	}
	c.pos = patch(c.pos)
	return nil
}

func (c *cursorConn) insert(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	text, err := kgr.FieldString(params, "text")
	if err != nil {
		return kgr.Null(), err
	}
	if err := c.commit(&txn.Insert{Pos: c.pos, Text: text}); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) newLine(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	prefix, _ := kgr.FieldString(params, "content")
	if err := c.commit(&txn.NewLine{Pos: c.pos, Prefix: prefix}); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) deleteBackward(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	if err := c.commit(&txn.DeleteBackward{Pos: c.pos}); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) deleteForward(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	if err := c.commit(&txn.DeleteForward{Pos: c.pos}); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

// decodePosition reads a {line, column} object field.
func decodePosition(v kgr.Value) (textblock.Position, error) {
	line, err := kgr.FieldInt(v, "line")
	if err != nil {
		return textblock.Position{}, err
	}
	column, err := kgr.FieldInt(v, "column")
	if err != nil {
		return textblock.Position{}, err
	}
	return textblock.Position{Line: uint64(line), Column: uint64(column)}, nil
}

func (c *cursorConn) clearRegion(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	from := c.pos
	if fromVal, err := kgr.Field(params, "from"); err == nil {
		from, err = decodePosition(fromVal)
		if err != nil {
			return kgr.Null(), err
		}
	}
	toVal, err := kgr.Field(params, "to")
	if err != nil {
		return kgr.Null(), err
	}
	to, err := decodePosition(toVal)
	if err != nil {
		return kgr.Null(), err
	}
	if err := c.commit(&txn.ClearRegion{From: from, To: to}); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) undo(kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	if err := c.stream.Undo(); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) redo(kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	if err := c.stream.Redo(); err != nil {
		return kgr.Null(), err
	}
	return c.ack(), nil
}

func (c *cursorConn) getPosition(kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	return positionValue(c.pos), nil
}

func (c *cursorConn) moveTo(params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	pos, err := decodePosition(params)
	if err != nil {
		return kgr.Null(), err
	}
	c.pos = pos
	return c.ack(), nil
}

// moveHorizontal returns a handler that steps the cursor one codepoint
// at a time, count times (default 1), in direction dir (+1/-1), wrapping
// across line boundaries the same way Backspace/Delete do.
func (c *cursorConn) handlerMoveHorizontal(dir int, params kgr.Value) (kgr.Value, error) {
	if err := c.requireConnected(); err != nil {
		return kgr.Null(), err
	}
	count, _ := kgr.OptFieldInt(params, "count", 1)
	pos := c.pos
	for i := int64(0); i < count; i++ {
		if dir < 0 {
			pos = txn.PrevPosition(c.doc.Block, c.doc.Encoding, pos)
		} else {
			pos = txn.NextPosition(c.doc.Block, c.doc.Encoding, pos)
		}
	}
	c.pos = pos
	return c.ack(), nil
}

func (c *cursorConn) moveHorizontal(dir int) pipe.Handler {
	return func(params kgr.Value) (kgr.Value, error) {
		return c.handlerMoveHorizontal(dir, params)
	}
}

// moveVertical returns a handler that moves the cursor dir lines (default
// 1 line per call), clamping the column to the destination line's length.
func (c *cursorConn) moveVertical(dir int) pipe.Handler {
	return func(params kgr.Value) (kgr.Value, error) {
		if err := c.requireConnected(); err != nil {
			return kgr.Null(), err
		}
		count, _ := kgr.OptFieldInt(params, "count", 1)
		line := int64(c.pos.Line) + int64(dir)*count
		if line < 0 {
			line = 0
		}
		if last := int64(c.doc.Block.LastLine()); line > last {
			line = last
		}
		target, err := c.doc.Block.GetLine(uint64(line))
		if err != nil {
			return kgr.Null(), err
		}
		column := c.pos.Column
		if max := uint64(c.doc.Encoding.CodepointCount([]byte(target))); column > max {
			column = max
		}
		c.pos = textblock.Position{Line: uint64(line), Column: column}
		return c.ack(), nil
	}
}
