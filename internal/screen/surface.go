// Package screen implements the Screen Component Tree (spec.md §4.13): a
// tree of Handle/Multiplexer/Splitter/Tabber/TextPane components behind a
// single monitor, with path addressing, input dispatch, and a render
// pass. Concrete terminal/SDL rendering is explicitly out of scope
// (spec.md §1 Non-goals); this package only produces the cell grid a
// backend would paint.
package screen

import "github.com/charmbracelet/lipgloss"

// Cell is one glyph and its draw attributes. Style carries
// foreground/background/bold/underline the way a terminal backend would
// want them, via lipgloss.Style — see DESIGN.md for why Surface itself
// stays a plain in-tree struct rather than adopting a full TUI framework.
type Cell struct {
	Rune  rune
	Style lipgloss.Style
}

// Surface is a rectangular glyph buffer: a component's rendered output.
type Surface struct {
	Width, Height int
	cells         []Cell
}

func NewSurface(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{Width: width, Height: height, cells: make([]Cell, width*height)}
}

func (s *Surface) inBounds(row, col int) bool {
	return row >= 0 && row < s.Height && col >= 0 && col < s.Width
}

// At returns a pointer to the cell at (row, col), or nil if out of
// bounds.
func (s *Surface) At(row, col int) *Cell {
	if !s.inBounds(row, col) {
		return nil
	}
	return &s.cells[row*s.Width+col]
}

// Set writes a cell at (row, col); out-of-bounds writes are silently
// dropped, matching a clamped paint rather than a panic.
func (s *Surface) Set(row, col int, c Cell) {
	if cell := s.At(row, col); cell != nil {
		*cell = c
	}
}

// Fill paints every cell with r/style.
func (s *Surface) Fill(r rune, style lipgloss.Style) {
	for i := range s.cells {
		s.cells[i] = Cell{Rune: r, Style: style}
	}
}

// Blit composites src onto s with its top-left corner at (row, col),
// clipping whatever falls outside s. Used by containers to implement
// show_surface's "composite children, focused window last" rule: callers
// blit in back-to-front order.
func (s *Surface) Blit(src *Surface, row, col int) {
	if src == nil {
		return
	}
	for r := 0; r < src.Height; r++ {
		for c := 0; c < src.Width; c++ {
			if cell := src.At(r, c); cell != nil {
				s.Set(row+r, col+c, *cell)
			}
		}
	}
}
