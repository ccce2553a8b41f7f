package screen

import "github.com/sloked/sloked/internal/notify"

// Size is a tree-level terminal size, reported by whatever owns the
// actual display and broadcast to /screen/size/notify subscribers.
type Size struct {
	Width, Height int
}

// Tree is the whole screen component tree behind its monitor (spec.md
// §4.13 "Global serialization"): traversal, input dispatch and rendering
// take the monitor (Root, Resize, Size and OnResize do not), and
// callers pass their own HolderID so a handler that's already inside the
// lock can detect re-entry and fail with DeadlockPrevented instead of
// hanging.
type Tree struct {
	monitor *Monitor
	root    *Handle

	size     Size
	resizers *notify.Registry[Size]
}

func NewTree() *Tree {
	return &Tree{monitor: NewMonitor(), root: NewHandle(), resizers: notify.NewRegistry[Size]()}
}

func (t *Tree) Monitor() *Monitor { return t.monitor }

// Root returns the tree's root handle without taking the monitor;
// structural wiring (SetChild, AddWindow, ...) during setup doesn't need
// the same serialization guarantee as a live, input-dispatching tree.
func (t *Tree) Root() *Handle { return t.root }

func (t *Tree) Traverse(id HolderID, path string) (Component, error) {
	var result Component
	err := t.monitor.WithLock(id, func() error {
		v, err := Traverse(t.root, path)
		result = v
		return err
	})
	return result, err
}

func (t *Tree) ProcessInput(id HolderID, ev Event) (bool, error) {
	var consumed bool
	err := t.monitor.WithLock(id, func() error {
		consumed = t.root.ProcessInput(ev)
		return nil
	})
	return consumed, err
}

// TraverseInput looks up path and dispatches ev to it as one atomic step
// under the monitor, so a caller never observes the tree between the two.
func (t *Tree) TraverseInput(id HolderID, path string, ev Event) (bool, error) {
	var consumed bool
	err := t.monitor.WithLock(id, func() error {
		component, err := Traverse(t.root, path)
		if err != nil {
			return err
		}
		consumed = component.ProcessInput(ev)
		return nil
	})
	return consumed, err
}

// Resize records the tree's current size and notifies every
// /screen/size/notify subscriber. It does not itself re-render anything;
// callers still follow up with RenderSurface at the new dimensions.
func (t *Tree) Resize(width, height int) {
	t.size = Size{Width: width, Height: height}
	t.resizers.Emit(t.size)
}

// Size reports the size last passed to Resize.
func (t *Tree) Size() Size { return t.size }

// OnResize subscribes fn to every future Resize call.
func (t *Tree) OnResize(fn func(Size)) notify.Unsubscribe {
	return t.resizers.Subscribe(fn)
}

// RenderSurface renders the whole tree at (width, height) under the
// monitor.
func (t *Tree) RenderSurface(id HolderID, width, height int) (*Surface, error) {
	var surface *Surface
	err := t.monitor.WithLock(id, func() error {
		s, err := t.root.RenderSurface(width, height)
		surface = s
		return err
	})
	return surface, err
}
