package task

import (
	"context"
	"sync"
	"sync/atomic"
)

type EventKind string

const (
	EventStarted         EventKind = "started"
	EventProgress        EventKind = "progress"
	EventCancelRequested EventKind = "cancel_requested"
	EventFinished        EventKind = "finished"
)

// Event is a lifecycle message travelling from a task to its observer.
type Event struct {
	TaskID   string
	Kind     EventKind
	Selector Selector
	Done     int
	Total    int
	Outcome  Outcome
}

// Channel is an unbounded, ordered, single-consumer event queue. Publishing
// never blocks and events published while nobody drains are kept until the
// next Drain. After Close, publishing is a no-op.
type Channel struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	ready    chan struct{}
	draining atomic.Bool
}

func NewChannel() *Channel {
	return &Channel{ready: make(chan struct{}, 1)}
}

// Publish queues ev and reports whether it was accepted.
func (c *Channel) Publish(ev Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.pending = append(c.pending, ev)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain delivers queued events to fn in publish order on the calling
// goroutine until ctx is done or the channel is closed. Events left in the
// queue when ctx ends stay there for the next Drain.
func (c *Channel) Drain(ctx context.Context, fn func(Event)) error {
	if !c.draining.CompareAndSwap(false, true) {
		return ErrChannelBusy
	}
	defer c.draining.Store(false)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok, closed := c.next()
		if closed {
			return nil
		}
		if ok {
			fn(ev)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ready:
		}
	}
}

func (c *Channel) next() (Event, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Event{}, false, true
	}
	if len(c.pending) == 0 {
		return Event{}, false, false
	}
	ev := c.pending[0]
	c.pending[0] = Event{}
	c.pending = c.pending[1:]
	return ev, true, false
}

func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close marks the consumer as permanently gone and drops pending events.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.pending = nil
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}
