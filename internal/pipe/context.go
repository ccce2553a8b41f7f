package pipe

import (
	"context"
	"sync"

	"github.com/sloked/sloked/internal/kgr"
)

// Context is a service-side handler bound to one endpoint pipe, polled by
// a Manager. Step processes at most one unit of ready work — an incoming
// message or a retryable deferred task — and reports whether it did
// anything; the Manager keeps calling Step until it returns false (spec.md
// §4.8: "advancing it until it yields").
type Context interface {
	Step() bool
}

// DeferredQueue holds closures re-queued for a later attempt — used to
// retry work that depended on a currently-held lock (spec.md §4.8's
// example: the screen monitor). A task returning true asks to be retried;
// false removes it.
type DeferredQueue struct {
	mu    sync.Mutex
	tasks []func() bool
}

func (d *DeferredQueue) Push(fn func() bool) {
	d.mu.Lock()
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
}

// StepOne runs the oldest deferred task, if any, re-queueing it at the
// back if it asks to be retried. Reports whether a task ran.
func (d *DeferredQueue) StepOne() bool {
	d.mu.Lock()
	if len(d.tasks) == 0 {
		d.mu.Unlock()
		return false
	}
	fn := d.tasks[0]
	d.tasks = d.tasks[1:]
	d.mu.Unlock()

	if fn() {
		d.Push(fn)
	}
	return true
}

func (d *DeferredQueue) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// PipeContext is the common Context shape: a pipe plus a handler invoked
// once per inbound message, plus a deferred-task queue for retries.
type PipeContext struct {
	Pipe     *Pipe
	Handle   func(kgr.Value)
	Deferred DeferredQueue
}

func NewPipeContext(p *Pipe, handle func(kgr.Value)) *PipeContext {
	return &PipeContext{Pipe: p, Handle: handle}
}

func (c *PipeContext) Defer(fn func() bool) { c.Deferred.Push(fn) }

func (c *PipeContext) Step() bool {
	if v, ok := c.Pipe.Read(); ok {
		c.Handle(v)
		return true
	}
	return c.Deferred.StepOne()
}

// Manager is the cooperative, single-threaded context scheduler (spec.md
// §4.8). It holds a set of Contexts and polls each in round-robin,
// draining every ready Step before moving to the next. A wake channel
// lets Add and pipe listeners nudge the Run loop without busy-polling.
type Manager struct {
	mu       sync.Mutex
	contexts []Context
	wake     chan struct{}
}

func NewManager() *Manager {
	return &Manager{wake: make(chan struct{}, 1)}
}

// Add registers c with the manager and wakes the Run loop.
func (m *Manager) Add(c Context) {
	m.mu.Lock()
	m.contexts = append(m.contexts, c)
	m.mu.Unlock()
	m.Wake()
}

// Wake nudges the Run loop to poll all contexts again; safe to call from
// any goroutine, including from inside a pipe listener.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// RunOnce polls every registered context to exhaustion once. Exposed for
// tests and for single-threaded embedders that drive their own loop.
func (m *Manager) RunOnce() {
	m.mu.Lock()
	contexts := append([]Context(nil), m.contexts...)
	m.mu.Unlock()

	for _, c := range contexts {
		for c.Step() {
		}
	}
}

// Run blocks, polling whenever woken, until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}
		m.RunOnce()
	}
}
