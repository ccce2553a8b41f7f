package screen

import (
	"sync"

	"github.com/sloked/sloked/internal/slkerr"
)

// Multiplexer arranges windows as free-floating rectangles on a shared
// canvas; overlap is resolved by focus order, the most recently focused
// window drawn (and dispatched input) last/on top.
type Multiplexer struct {
	mu      sync.Mutex
	windows []*Window
	order   []int // window indices, least to most recently focused
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{}
}

func (m *Multiplexer) Kind() Kind { return KindMultiplexer }

// AddWindow appends a window at rect and focuses it.
func (m *Multiplexer) AddWindow(rect Rect) *Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &Window{handle: NewHandle(), rect: rect}
	m.windows = append(m.windows, w)
	m.order = append(m.order, len(m.windows)-1)
	return w
}

func (m *Multiplexer) WindowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *Multiplexer) WindowAt(idx int) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= len(m.windows) {
		return nil, slkerr.New(slkerr.PathNotFound, "screen: multiplexer window %d out of range", idx)
	}
	return m.windows[idx], nil
}

// Focus moves win to the front of the focus order. A no-op if win isn't
// one of m's windows.
func (m *Multiplexer) Focus(win *Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, w := range m.windows {
		if w == win {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for i, o := range m.order {
		if o == idx {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, idx)
}

func (m *Multiplexer) focusedIndex() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return 0, false
	}
	return m.order[len(m.order)-1], true
}

// ProcessInput forwards to the topmost-focused window only.
func (m *Multiplexer) ProcessInput(ev Event) bool {
	idx, ok := m.focusedIndex()
	if !ok {
		return false
	}
	win, err := m.WindowAt(idx)
	if err != nil {
		return false
	}
	return win.Handle().ProcessInput(ev)
}

// RenderSurface composites every window's own surface onto a canvas of
// (width, height), back-to-front in focus order, so the focused window
// paints last (spec.md §4.13 "show_surface... focused window last").
func (m *Multiplexer) RenderSurface(width, height int) (*Surface, error) {
	m.mu.Lock()
	order := append([]int(nil), m.order...)
	windows := append([]*Window(nil), m.windows...)
	m.mu.Unlock()

	out := NewSurface(width, height)
	for _, idx := range order {
		win := windows[idx]
		sub, err := win.handle.RenderSurface(win.rect.Width, win.rect.Height)
		if err != nil {
			return nil, err
		}
		out.Blit(sub, win.rect.Y, win.rect.X)
	}
	return out, nil
}
