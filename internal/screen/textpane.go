package screen

import "sync"

// TextPane is the leaf component a TextEditor widget (spec.md §4.14)
// drives: rendering and input are both supplied externally, so the
// widget owns the actual cursor/render RPC clients and this type just
// holds the hook points the tree calls into.
type TextPane struct {
	mu    sync.Mutex
	draw  func(width, height int) (*Surface, error)
	input func(Event) bool
}

func NewTextPane() *TextPane {
	return &TextPane{}
}

func (p *TextPane) Kind() Kind { return KindTextPane }

func (p *TextPane) SetDrawFunc(fn func(width, height int) (*Surface, error)) {
	p.mu.Lock()
	p.draw = fn
	p.mu.Unlock()
}

func (p *TextPane) SetInputFunc(fn func(Event) bool) {
	p.mu.Lock()
	p.input = fn
	p.mu.Unlock()
}

func (p *TextPane) RenderSurface(width, height int) (*Surface, error) {
	p.mu.Lock()
	draw := p.draw
	p.mu.Unlock()
	if draw == nil {
		return NewSurface(width, height), nil
	}
	return draw(width, height)
}

func (p *TextPane) ProcessInput(ev Event) bool {
	p.mu.Lock()
	input := p.input
	p.mu.Unlock()
	if input == nil {
		return false
	}
	return input(ev)
}
