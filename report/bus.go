package report

import "sync"

// DefaultBuffer is the number of events a Bus queues before Report blocks
const DefaultBuffer = 256

// Bus is a Reporter that delivers events in order to its sinks from a single
// goroutine
type Bus struct {
	ch    chan Event
	sinks []Sink
	done  chan struct{}
	once  sync.Once
}

// NewBus starts a bus delivering to sinks.  Close it when the session is over.
func NewBus(sinks ...Sink) *Bus {
	b := &Bus{
		ch:    make(chan Event, DefaultBuffer),
		sinks: sinks,
		done:  make(chan struct{})}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for e := range b.ch {
		for _, s := range b.sinks {
			s.Handle(e)
		}
	}
}

// Report queues e.  It must not be called after Close.
func (b *Bus) Report(e Event) {
	b.ch <- e
}

// Close stops accepting events and returns once every queued event has been
// delivered
func (b *Bus) Close() {
	b.once.Do(func() { close(b.ch) })
	<-b.done
}
