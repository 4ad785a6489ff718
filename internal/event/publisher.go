package event

import (
	"sync"
	"sync/atomic"
)

// Publisher delivers events to an append-only list of handlers.
//
// The handler list is copy-on-write: Subscribe builds a new slice under mu
// and swaps it in, Publish loads the current slice without locking. A
// publish therefore sees either the old or the new list, never a torn one.
type Publisher struct {
	mu       sync.Mutex
	handlers atomic.Pointer[[]Handler]
	clock    Sequencer
}

// NewPublisher creates a publisher stamping events from clock.
// A nil clock gets a fresh Clock.
func NewPublisher(clock Sequencer) *Publisher {
	if clock == nil {
		clock = NewClock()
	}
	p := &Publisher{clock: clock}
	empty := []Handler{}
	p.handlers.Store(&empty)
	return p
}

// Subscribe appends h. The same handler may be subscribed more than once
// and is then called once per subscription.
func (p *Publisher) Subscribe(h Handler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := *p.handlers.Load()
	next := make([]Handler, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, h)
	p.handlers.Store(&next)
}

// Publish stamps e with the next sequence number and calls every handler
// synchronously in subscription order. It returns the stamped event.
func (p *Publisher) Publish(e Event) Event {
	e.Seq = p.clock.Next()
	for _, h := range *p.handlers.Load() {
		h(e)
	}
	return e
}

// Len returns the number of subscriptions.
func (p *Publisher) Len() int {
	return len(*p.handlers.Load())
}
