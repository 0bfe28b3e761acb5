package events

import (
	"context"
	"log"
	"sync"
	"time"
)

// Async hands events to next on a background goroutine so slow observers
// (network publishers) stay off the request path. When the buffer is full
// the event is dropped and logged.
type Async struct {
	next    Emitter
	queue   chan Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(next Emitter, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		next:    next,
		queue:   make(chan Event, buffer),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit queues e. Events emitted after Close are dropped.
func (a *Async) Emit(_ context.Context, e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		log.Printf("event_dropped type=%s booking_id=%d reason=closed", e.Type, e.BookingID)
		return
	}
	select {
	case a.queue <- e:
	default:
		log.Printf("event_dropped type=%s booking_id=%d reason=queue_full", e.Type, e.BookingID)
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		a.next.Emit(ctx, e)
		cancel()
	}
}

// Close drains queued events and stops the worker.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}
