package screen

import (
	"sync"

	"github.com/sloked/sloked/internal/slkerr"
)

type Kind int

const (
	KindHandle Kind = iota
	KindMultiplexer
	KindSplitter
	KindTabber
	KindTextPane
)

func (k Kind) String() string {
	switch k {
	case KindHandle:
		return "handle"
	case KindMultiplexer:
		return "multiplexer"
	case KindSplitter:
		return "splitter"
	case KindTabber:
		return "tabber"
	case KindTextPane:
		return "text_pane"
	default:
		return "unknown"
	}
}

// Event is an opaque input event forwarded down the tree; widgets.go's
// key table is what actually interprets one.
type Event struct {
	Key   string
	Rune  rune
	Extra map[string]interface{}
}

// Component is one node of the screen tree (spec.md §4.13's five
// variants). ProcessInput returns true if it consumed ev.
// RenderSurface produces this component's own glyph buffer at the given
// size.
type Component interface {
	Kind() Kind
	ProcessInput(ev Event) bool
	RenderSurface(width, height int) (*Surface, error)
}

// Container is a Component that arranges an ordered list of windows,
// each wrapping a Handle (Multiplexer, Splitter, Tabber).
type Container interface {
	Component
	WindowAt(idx int) (*Window, error)
	WindowCount() int
}

// Window is one container's slot: a Handle plus whatever positioning
// metadata the owning container needs. Multiplexer uses Rect; Splitter
// uses Constraint; Tabber uses neither — one shared struct, since the
// three containers never need more than these two fields between them
// and a separate type per container would just be three near-identical
// wrappers around *Handle.
type Window struct {
	handle     *Handle
	rect       Rect
	constraint Constraint
}

func (w *Window) Handle() *Handle { return w.handle }
func (w *Window) Rect() Rect      { return w.rect }

// Rect is a window's position and size on a Multiplexer's canvas.
type Rect struct {
	X, Y, Width, Height int
}

// Constraint is a Splitter window's share of the available run, clamped
// to [Min, Max].
type Constraint struct {
	Share    float32
	Min, Max uint32
}

// Handle owns at most one child component of any variant (spec.md
// §4.13). It also carries the ordered input-listener list that
// process_input consults before descending into the child.
type Handle struct {
	mu    sync.Mutex
	child Component

	listenersMu sync.Mutex
	nextID      uint64
	listeners   []listenerEntry
}

type listenerEntry struct {
	id uint64
	fn func(Event) bool
}

func NewHandle() *Handle {
	return &Handle{}
}

func (h *Handle) Kind() Kind { return KindHandle }

func (h *Handle) Child() Component {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.child
}

func (h *Handle) SetChild(c Component) {
	h.mu.Lock()
	h.child = c
	h.mu.Unlock()
}

// AddInputListener inserts fn at the end of the listener list, run
// before the wrapped component on every ProcessInput. The returned
// Unsubscribe removes it; safe to call from within fn itself.
func (h *Handle) AddInputListener(fn func(Event) bool) func() {
	h.listenersMu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners = append(h.listeners, listenerEntry{id: id, fn: fn})
	h.listenersMu.Unlock()

	return func() {
		h.listenersMu.Lock()
		defer h.listenersMu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

func (h *Handle) snapshotListeners() []func(Event) bool {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	out := make([]func(Event) bool, len(h.listeners))
	for i, l := range h.listeners {
		out[i] = l.fn
	}
	return out
}

// ProcessInput runs the listener list first (spec.md §4.13 "Input
// dispatch"); a listener returning true consumes the event and stops
// further dispatch, otherwise it descends into the wrapped component.
func (h *Handle) ProcessInput(ev Event) bool {
	for _, fn := range h.snapshotListeners() {
		if fn(ev) {
			return true
		}
	}
	child := h.Child()
	if child == nil {
		return false
	}
	return child.ProcessInput(ev)
}

// RenderSurface renders the wrapped child at (width, height), or a blank
// surface if there is none.
func (h *Handle) RenderSurface(width, height int) (*Surface, error) {
	child := h.Child()
	if child == nil {
		return NewSurface(width, height), nil
	}
	return child.RenderSurface(width, height)
}

// asContainer unwraps a Handle to its child container, the step
// Traverse performs between every pair of numeric path segments.
func asContainer(c Component) (Container, error) {
	h, ok := c.(*Handle)
	if !ok {
		return nil, slkerr.New(slkerr.TypeMismatch, "screen: expected a handle, got %s", c.Kind())
	}
	child := h.Child()
	if child == nil {
		return nil, slkerr.New(slkerr.PathNotFound, "screen: handle has no child")
	}
	cont, ok := child.(Container)
	if !ok {
		return nil, slkerr.New(slkerr.TypeMismatch, "screen: handle's child is a %s, not a container", child.Kind())
	}
	return cont, nil
}
