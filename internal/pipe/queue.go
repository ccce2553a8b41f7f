// Package pipe implements the Pipe & Context Manager component (spec.md
// §4.8): a full-duplex typed value channel plus a cooperative, single-
// threaded scheduler for the service-side handlers bound to one endpoint
// each. Modeled on minitunnel.Tunnel's single-goroutine mux loop (one
// queue per direction, routed by a listener rather than a TID) and on
// ron's periodic reaper for the deferred-task retry pattern.
package pipe

import (
	"context"
	"sync"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

// queue is one direction's FIFO of kgr.Value, with fire-once-per-empty-
// to-nonempty-transition listener semantics (spec.md §9 "per-pipe message
// listener").
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []kgr.Value
	closed   bool
	listener func()
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) write(v kgr.Value) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return slkerr.New(slkerr.DocumentClosed, "pipe: write to a closed pipe")
	}
	wasEmpty := len(q.items) == 0
	q.items = append(q.items, v)
	listener := q.listener
	q.cond.Broadcast()
	q.mu.Unlock()

	if wasEmpty && listener != nil {
		listener()
	}
	return nil
}

func (q *queue) read() (kgr.Value, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return kgr.Value{}, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// readWait blocks until non-empty or closed, or until ctx is done. ok is
// false when it returned because the queue closed (or ctx ended) with
// nothing left to drain.
func (q *queue) readWait(ctx context.Context) (kgr.Value, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stop := context.AfterFunc(ctx, q.cond.Broadcast)
	defer stop()

	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return kgr.Value{}, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

func (q *queue) setListener(fn func()) {
	q.mu.Lock()
	q.listener = fn
	q.mu.Unlock()
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}
