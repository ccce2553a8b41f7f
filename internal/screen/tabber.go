package screen

import (
	"sync"

	"github.com/sloked/sloked/internal/slkerr"
)

// Tabber shares one rect among its windows; only one is visible (and
// receives input) at a time.
type Tabber struct {
	mu      sync.Mutex
	windows []*Window
	visible int
}

func NewTabber() *Tabber {
	return &Tabber{}
}

func (t *Tabber) Kind() Kind { return KindTabber }

func (t *Tabber) AddWindow() *Window {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := &Window{handle: NewHandle()}
	t.windows = append(t.windows, w)
	return w
}

func (t *Tabber) WindowCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

func (t *Tabber) WindowAt(idx int) (*Window, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.windows) {
		return nil, slkerr.New(slkerr.PathNotFound, "screen: tabber window %d out of range", idx)
	}
	return t.windows[idx], nil
}

// Show switches the visible window to idx.
func (t *Tabber) Show(idx int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.windows) {
		return slkerr.New(slkerr.PathNotFound, "screen: tabber window %d out of range", idx)
	}
	t.visible = idx
	return nil
}

func (t *Tabber) visibleIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

func (t *Tabber) ProcessInput(ev Event) bool {
	win, err := t.WindowAt(t.visibleIndex())
	if err != nil {
		return false
	}
	return win.Handle().ProcessInput(ev)
}

func (t *Tabber) RenderSurface(width, height int) (*Surface, error) {
	win, err := t.WindowAt(t.visibleIndex())
	if err != nil {
		return NewSurface(width, height), nil
	}
	return win.handle.RenderSurface(width, height)
}
