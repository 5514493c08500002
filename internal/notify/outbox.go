package notify

import "sync"

// outbox is a bounded FIFO feeding a single writer goroutine, which keeps
// per-subscriber delivery order.
type outbox struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
	done   chan struct{}
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = 64
	}
	return &outbox{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

func (o *outbox) push(ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrNotWritable
	}
	select {
	case o.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.done)
	}
}
