package netif

import (
	"sync"
	"time"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

// response is delivered to the invoking goroutine: exactly one of
// Result/Err is populated.
type response struct {
	Result kgr.Value
	Err    error
}

// channel is one open response slot in the broker: a buffered delivery
// point plus the inactivity timer that drops it after ResponseTimeout of
// silence. An invoke gets a single response frame, so the timer is never
// rearmed: feed stops it and retires the channel.
type channel struct {
	deliver chan response
	timer   *time.Timer
}

// broker maps invoke id -> channel, per spec.md §4.10's "Response
// broker". id allocation is monotonically increasing per Net Interface
// per direction, matching the RemotePipeId model (spec.md §3).
type broker struct {
	mu       sync.Mutex
	nextID   int64
	channels map[int64]*channel
	timeout  time.Duration
}

func newBroker(timeout time.Duration) *broker {
	return &broker{channels: make(map[int64]*channel), timeout: timeout}
}

// openChannel allocates a fresh id and its delivery channel, arming the
// inactivity timer that drops it with Timeout if nothing arrives.
func (b *broker) openChannel() (int64, <-chan response) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	c := &channel{deliver: make(chan response, 1)}
	if b.timeout > 0 {
		c.timer = time.AfterFunc(b.timeout, func() { b.timeoutChannel(id) })
	}
	b.channels[id] = c
	return id, c.deliver
}

func (b *broker) timeoutChannel(id int64) {
	b.mu.Lock()
	c, ok := b.channels[id]
	if ok {
		delete(b.channels, id)
	}
	b.mu.Unlock()
	if ok {
		c.deliver <- response{Err: slkerr.New(slkerr.Timeout, "netif: no response for invoke id %d", id)}
	}
}

// feed delivers a response to id's channel, if still open, and retires
// it. A response for an unknown or already-retired id is silently
// dropped (the caller gave up, e.g. on timeout).
func (b *broker) feed(id int64, resp response) {
	b.mu.Lock()
	c, ok := b.channels[id]
	if ok {
		delete(b.channels, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.deliver <- resp
}

// drop retires id's channel without delivering a response, e.g. on
// connection close.
func (b *broker) drop(id int64) {
	b.mu.Lock()
	c, ok := b.channels[id]
	if ok {
		delete(b.channels, id)
	}
	b.mu.Unlock()
	if ok && c.timer != nil {
		c.timer.Stop()
	}
}

// closeAll retires every open channel with err, used when the
// connection itself closes.
func (b *broker) closeAll(err error) {
	b.mu.Lock()
	channels := b.channels
	b.channels = make(map[int64]*channel)
	b.mu.Unlock()

	for _, c := range channels {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.deliver <- response{Err: err}
	}
}
