package event

import (
	"reflect"
	"sync"
)

// Bus queues events raised while the scheduler changes state and delivers
// them in emission order once Flush is called. Each queued event reaches
// each handler at most once.
type Bus struct {
	mu         sync.Mutex // only protects handler registration
	queue      []any
	handlers   map[reflect.Type][]func(any)
	observers  []func(any)
	delivering bool
}

func NewBus() *Bus {
	return &Bus{
		queue:    make([]any, 0, 16),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event for the next Flush.
func Emit[T any](b *Bus, event T) {
	b.queue = append(b.queue, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SubscribeAll registers a handler that sees every event, after the typed
// handlers of that event.
func (b *Bus) SubscribeAll(fn func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int { return len(b.queue) }

// Delivering reports whether Flush is currently running handlers.
func (b *Bus) Delivering() bool { return b.delivering }

// Flush delivers all queued events and returns how many were delivered.
// Events emitted by handlers are delivered by the same Flush, after the
// events that were already queued.
func (b *Bus) Flush() int {
	if b.delivering {
		return 0
	}
	b.delivering = true
	defer func() { b.delivering = false }()

	n := 0
	for len(b.queue) > 0 {
		batch := b.queue
		b.queue = make([]any, 0, cap(batch))
		for _, ev := range batch {
			for _, h := range b.handlers[reflect.TypeOf(ev)] {
				h(ev)
			}
			for _, h := range b.observers {
				h(ev)
			}
			n++
		}
	}
	return n
}
