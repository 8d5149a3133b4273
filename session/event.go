package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/letsshare/file"
)

// EventKind classifies a session event.
type EventKind uint8

const (
	// EventStatus reports a status transition.
	EventStatus EventKind = iota
	// EventProgress carries a transfer progress snapshot.
	EventProgress
	// EventCompleted reports a successful transfer. It follows the
	// Completed status event.
	EventCompleted
	// EventFailed reports a failed transfer with its error. It follows the
	// Failed status event.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is an immutable notification from a session to its owner.
type Event struct {
	SessionID string
	Kind      EventKind
	Status    Status
	Progress  file.Progress
	Message   string
	Err       error
	Time      time.Time
}

// eventBuffer is the capacity of the channel returned by Session.Events.
const eventBuffer = 64

// publisher delivers events in order without ever blocking the publisher.
// Events wait in an unbounded queue drained by one dispatcher goroutine; a
// progress event still queued is replaced by a newer one, so the queue only
// grows with status and terminal events.
type publisher struct {
	mu      sync.Mutex
	queue   []Event
	closed  bool
	notify  chan struct{}
	closing chan struct{}
	out     chan Event
}

func newPublisher() *publisher {
	p := &publisher{
		notify:  make(chan struct{}, 1),
		closing: make(chan struct{}),
		out:     make(chan Event, eventBuffer),
	}
	go p.run()
	return p
}

func (p *publisher) events() <-chan Event {
	return p.out
}

func (p *publisher) publish(e Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if n := len(p.queue); e.Kind == EventProgress && n > 0 && p.queue[n-1].Kind == EventProgress {
		p.queue[n-1] = e
	} else {
		p.queue = append(p.queue, e)
	}
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// close stops accepting events. Queued events are still handed over while
// the owner reads; once it stops, whatever fits the channel buffer is kept
// and the channel is closed.
func (p *publisher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.closing)
}

func (p *publisher) run() {
	defer close(p.out)
	for {
		e, ok := p.next()
		if !ok {
			return
		}
		select {
		case p.out <- e:
			continue
		case <-p.closing:
		}

		p.drain(e)
		return
	}
}

// next pops the oldest queued event, waiting for one. It returns false once
// the publisher is closed and empty.
func (p *publisher) next() (Event, bool) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			e := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return e, true
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return Event{}, false
		}

		select {
		case <-p.notify:
		case <-p.closing:
		}
	}
}

// drain hands over first and the rest of the queue without blocking.
func (p *publisher) drain(first Event) {
	p.mu.Lock()
	rest := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, e := range append([]Event{first}, rest...) {
		select {
		case p.out <- e:
		default:
			return
		}
	}
}
