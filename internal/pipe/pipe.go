package pipe

import (
	"context"

	"github.com/sloked/sloked/internal/kgr"
)

// Pipe is one endpoint of a full-duplex kgr.Value channel (spec.md §3
// "Pipe"). Writes on this endpoint are read on the peer endpoint and vice
// versa. NewPair returns the two ends of a freshly allocated pipe.
type Pipe struct {
	out *queue // this endpoint writes here; the peer reads it
	in  *queue // this endpoint reads here; the peer writes it
}

// NewPair allocates a connected pipe pair.
func NewPair() (*Pipe, *Pipe) {
	q1, q2 := newQueue(), newQueue()
	return &Pipe{out: q1, in: q2}, &Pipe{out: q2, in: q1}
}

// Write enqueues v for the peer. Fails if this end has been closed.
func (p *Pipe) Write(v kgr.Value) error { return p.out.write(v) }

// Read dequeues a value without blocking; ok is false if nothing is
// queued (whether or not the pipe is closed).
func (p *Pipe) Read() (kgr.Value, bool) { return p.in.read() }

// ReadWait blocks until a value is available, the pipe closes, or ctx
// ends. ok is false exactly when it returns with nothing to deliver.
func (p *Pipe) ReadWait(ctx context.Context) (kgr.Value, bool) { return p.in.readWait(ctx) }

// SetListener installs fn to be called at most once per empty→non-empty
// transition of the inbound queue. Setting it again replaces the prior
// listener; setting the same behavior twice is idempotent in effect.
func (p *Pipe) SetListener(fn func()) { p.in.setListener(fn) }

// Close marks this endpoint closed: further Writes fail, and the peer's
// reads drain whatever is still queued before reporting closed.
func (p *Pipe) Close() error {
	p.out.close()
	return nil
}

// Closed reports whether this endpoint has nothing left to read and its
// peer has closed its writing side.
func (p *Pipe) Closed() bool { return p.in.isClosed() }
