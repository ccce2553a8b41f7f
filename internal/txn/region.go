package txn

import (
	"strings"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/slkerr"
	"github.com/sloked/sloked/internal/textblock"
)

// byteOffset returns the byte offset of codepoint column col within line,
// treating col == codepoint count as "end of line" (a valid insert
// point).
func byteOffset(enc encoding.Encoding, line string, col uint64) (int, error) {
	count := uint64(enc.CodepointCount([]byte(line)))
	if col == count {
		return len(line), nil
	}
	start, _, ok := enc.GetCodepoint([]byte(line), int(col))
	if !ok {
		return 0, slkerr.New(slkerr.TypeMismatch, "column %d out of range (line has %d codepoints)", col, count)
	}
	return start, nil
}

// sliceText returns the text in [from, to) across possibly multiple
// lines of b.
func sliceText(b *textblock.Block, enc encoding.Encoding, from, to textblock.Position) (string, error) {
	if to.Less(from) {
		from, to = to, from
	}
	if from.Line == to.Line {
		line, err := b.GetLine(from.Line)
		if err != nil {
			return "", err
		}
		fb, err := byteOffset(enc, line, from.Column)
		if err != nil {
			return "", err
		}
		tb, err := byteOffset(enc, line, to.Column)
		if err != nil {
			return "", err
		}
		return line[fb:tb], nil
	}

	var sb strings.Builder
	firstLine, err := b.GetLine(from.Line)
	if err != nil {
		return "", err
	}
	fb, err := byteOffset(enc, firstLine, from.Column)
	if err != nil {
		return "", err
	}
	sb.WriteString(firstLine[fb:])
	for l := from.Line + 1; l < to.Line; l++ {
		sb.WriteByte('\n')
		mid, err := b.GetLine(l)
		if err != nil {
			return "", err
		}
		sb.WriteString(mid)
	}
	sb.WriteByte('\n')
	lastLine, err := b.GetLine(to.Line)
	if err != nil {
		return "", err
	}
	tb, err := byteOffset(enc, lastLine, to.Column)
	if err != nil {
		return "", err
	}
	sb.WriteString(lastLine[:tb])
	return sb.String(), nil
}

// deleteText removes [from, to) from b, returning the removed text.
func deleteText(b *textblock.Block, enc encoding.Encoding, from, to textblock.Position) (string, error) {
	if to.Less(from) {
		from, to = to, from
	}
	deleted, err := sliceText(b, enc, from, to)
	if err != nil {
		return "", err
	}
	if from.Line == to.Line {
		line, _ := b.GetLine(from.Line)
		fb, _ := byteOffset(enc, line, from.Column)
		tb, _ := byteOffset(enc, line, to.Column)
		if err := b.SetLine(from.Line, line[:fb]+line[tb:]); err != nil {
			return "", err
		}
		return deleted, nil
	}

	firstLine, _ := b.GetLine(from.Line)
	fb, _ := byteOffset(enc, firstLine, from.Column)
	lastLine, _ := b.GetLine(to.Line)
	tb, _ := byteOffset(enc, lastLine, to.Column)
	merged := firstLine[:fb] + lastLine[tb:]
	for l := to.Line; l > from.Line; l-- {
		if err := b.EraseLine(l); err != nil {
			return "", err
		}
	}
	if err := b.SetLine(from.Line, merged); err != nil {
		return "", err
	}
	return deleted, nil
}

// insertText inserts text at pos, splitting it on '\n' across new lines
// as needed, and returns the position immediately after the inserted
// text.
func insertText(b *textblock.Block, enc encoding.Encoding, pos textblock.Position, text string) (textblock.Position, error) {
	line, err := b.GetLine(pos.Line)
	if err != nil {
		return textblock.Position{}, err
	}
	at, err := byteOffset(enc, line, pos.Column)
	if err != nil {
		return textblock.Position{}, err
	}
	prefix, suffix := line[:at], line[at:]

	chunks := strings.Split(text, "\n")
	if len(chunks) == 1 {
		if err := b.SetLine(pos.Line, prefix+chunks[0]+suffix); err != nil {
			return textblock.Position{}, err
		}
		return textblock.Position{Line: pos.Line, Column: pos.Column + uint64(enc.CodepointCount([]byte(chunks[0])))}, nil
	}

	if err := b.SetLine(pos.Line, prefix+chunks[0]); err != nil {
		return textblock.Position{}, err
	}
	for i := 1; i < len(chunks); i++ {
		content := chunks[i]
		if i == len(chunks)-1 {
			content = content + suffix
		}
		if err := b.InsertLine(pos.Line+uint64(i), content); err != nil {
			return textblock.Position{}, err
		}
	}
	lastChunk := chunks[len(chunks)-1]
	return textblock.Position{
		Line:   pos.Line + uint64(len(chunks)-1),
		Column: uint64(enc.CodepointCount([]byte(lastChunk))),
	}, nil
}

// PrevPosition and NextPosition expose the codepoint-stepping helpers a
// cursor service uses for arrow-key movement, so it doesn't have to
// reimplement line-wrap-aware stepping outside the package that already
// needs it for Backspace/Delete.
func PrevPosition(b *textblock.Block, enc encoding.Encoding, pos textblock.Position) textblock.Position {
	return prevPosition(b, enc, pos)
}

func NextPosition(b *textblock.Block, enc encoding.Encoding, pos textblock.Position) textblock.Position {
	return nextPosition(b, enc, pos)
}

// prevPosition returns the position immediately before pos in b, or
// pos unchanged if pos is already (0,0).
func prevPosition(b *textblock.Block, enc encoding.Encoding, pos textblock.Position) textblock.Position {
	if pos.Column > 0 {
		return textblock.Position{Line: pos.Line, Column: pos.Column - 1}
	}
	if pos.Line == 0 {
		return pos
	}
	prevLine, err := b.GetLine(pos.Line - 1)
	if err != nil {
		return pos
	}
	return textblock.Position{Line: pos.Line - 1, Column: uint64(enc.CodepointCount([]byte(prevLine)))}
}

// nextPosition returns the position immediately after pos in b, or pos
// unchanged if pos is already at the end of the block.
func nextPosition(b *textblock.Block, enc encoding.Encoding, pos textblock.Position) textblock.Position {
	line, err := b.GetLine(pos.Line)
	if err != nil {
		return pos
	}
	count := uint64(enc.CodepointCount([]byte(line)))
	if pos.Column < count {
		return textblock.Position{Line: pos.Line, Column: pos.Column + 1}
	}
	if pos.Line == b.LastLine() {
		return pos
	}
	return textblock.Position{Line: pos.Line + 1, Column: 0}
}
