package screen

import (
	"sync"

	"github.com/sloked/sloked/internal/slkerr"
)

type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

// Splitter arranges windows along a direction, each with a share/min/max
// constraint; the layout algorithm distributes the available run
// proportional to share, clamped to [min, max] (spec.md §4.13).
type Splitter struct {
	mu        sync.Mutex
	direction Direction
	windows   []*Window
	focused   int
}

func NewSplitter(dir Direction) *Splitter {
	return &Splitter{direction: dir}
}

func (s *Splitter) Kind() Kind { return KindSplitter }

func (s *Splitter) AddWindow(c Constraint) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &Window{handle: NewHandle(), constraint: c}
	s.windows = append(s.windows, w)
	s.focused = len(s.windows) - 1
	return w
}

func (s *Splitter) WindowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *Splitter) WindowAt(idx int) (*Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.windows) {
		return nil, slkerr.New(slkerr.PathNotFound, "screen: splitter window %d out of range", idx)
	}
	return s.windows[idx], nil
}

func (s *Splitter) Focus(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx >= 0 && idx < len(s.windows) {
		s.focused = idx
	}
}

func (s *Splitter) ProcessInput(ev Event) bool {
	win, err := s.WindowAt(s.focusedIndex())
	if err != nil {
		return false
	}
	return win.Handle().ProcessInput(ev)
}

func (s *Splitter) focusedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// distribute splits total among constraints proportional to Share,
// clamped to [Min, Max]. Clamped windows take their clamp value; the
// remainder is redistributed among the unclamped windows proportional to
// their relative share. One redistribution pass, not a fixed-point
// iteration — good enough for the window counts a screen tree actually
// has, and simpler than chasing exact conservation when every window
// clamps simultaneously.
func distribute(total int, constraints []Constraint) []int {
	n := len(constraints)
	out := make([]int, n)
	if n == 0 || total <= 0 {
		return out
	}

	var shareSum float32
	for _, c := range constraints {
		shareSum += c.Share
	}
	if shareSum <= 0 {
		shareSum = float32(n)
		for i := range constraints {
			constraints[i].Share = 1
		}
	}

	var clampedTotal int
	var unclampedShare float32
	var unclamped []int
	for i, c := range constraints {
		raw := int(float32(total) * c.Share / shareSum)
		lo, hi := int(c.Min), int(c.Max)
		if hi > 0 && raw > hi {
			raw = hi
		}
		if raw < lo {
			raw = lo
		}
		if (hi > 0 && raw == hi) || raw == lo {
			out[i] = raw
			clampedTotal += raw
		} else {
			unclampedShare += c.Share
			unclamped = append(unclamped, i)
		}
	}

	// The last unclamped window absorbs whatever integer division drops,
	// so the windows always sum to exactly `total` (modulo whatever a
	// window's own clamp forces).
	remaining := total - clampedTotal
	if remaining > 0 && unclampedShare > 0 {
		var assigned int
		for j, i := range unclamped {
			if j == len(unclamped)-1 {
				out[i] = remaining - assigned
				continue
			}
			share := int(float32(remaining) * constraints[i].Share / unclampedShare)
			out[i] = share
			assigned += share
		}
	}
	return out
}

func (s *Splitter) RenderSurface(width, height int) (*Surface, error) {
	s.mu.Lock()
	windows := append([]*Window(nil), s.windows...)
	dir := s.direction
	s.mu.Unlock()

	out := NewSurface(width, height)
	if len(windows) == 0 {
		return out, nil
	}

	constraints := make([]Constraint, len(windows))
	for i, w := range windows {
		constraints[i] = w.constraint
	}

	total := width
	if dir == Vertical {
		total = height
	}
	sizes := distribute(total, constraints)

	offset := 0
	for i, win := range windows {
		w, h := width, sizes[i]
		x, y := 0, offset
		if dir == Horizontal {
			w, h = sizes[i], height
			x, y = offset, 0
		}
		sub, err := win.handle.RenderSurface(w, h)
		if err != nil {
			return nil, err
		}
		out.Blit(sub, y, x)
		offset += sizes[i]
	}
	return out, nil
}
