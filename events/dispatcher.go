// dispatcher.go - Background queue between handlers and the event publisher

package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher forwards events to a Publisher from a background goroutine so
// request handlers never wait on the broker. When the buffer is full the
// event is dropped and counted.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(p Publisher, bufferSize int) *Dispatcher {
	if p == nil {
		p = NopPublisher{}
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d := &Dispatcher{
		publisher: p,
		timeout:   5 * time.Second,
		ch:        make(chan Event, bufferSize),
		done:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, e); err != nil {
		log.Printf("events: publish %s for user %d failed: %v", e.Type, e.UserID, err)
	}
}

// Emit queues e without blocking. A nil Dispatcher discards events.
func (d *Dispatcher) Emit(e Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case d.ch <- e:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close drains queued events and closes the publisher.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var err error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
		err = d.publisher.Close()
	})
	return err
}
