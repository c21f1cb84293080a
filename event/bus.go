// Package event is the in-process publish/subscribe bus that connects the
// layer packages to their host (panels, timeline, thumbnails) and to an
// asynchronous renderer.
//
// Publish dispatches synchronously on the caller's goroutine, at most once
// per subscriber, with no ordering guarantee across subscribers. Post is
// safe from any goroutine: it queues the event until the owning event loop
// calls Drain.
package event

import (
	"sync"

	"github.com/gogpu/layerkit"
)

// Handler receives published events.
type Handler func(Event)

// Event is one published notification.
type Event struct {
	Name    Name
	Payload any
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus routes events by name.
type Bus struct {
	mu      sync.Mutex
	subs    map[Name][]subscription
	nextID  uint64
	pending []Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Name][]subscription)}
}

// Subscribe registers h for events called name and returns a function that
// removes the subscription. Calling the returned function twice is safe.
// Subscribing to a nil bus is a no-op.
func (b *Bus) Subscribe(name Name, h Handler) (unsubscribe func()) {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to the current subscribers of name. Handlers
// subscribed or removed during delivery take effect from the next publish.
func (b *Bus) Publish(name Name, payload any) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := b.subs[name]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	b.mu.Unlock()

	ev := Event{Name: name, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
}

// Post queues an event for the next Drain. It may be called from any
// goroutine, typically by a renderer finishing work off the event loop.
func (b *Bus) Post(name Name, payload any) {
	b.mu.Lock()
	b.pending = append(b.pending, Event{Name: name, Payload: payload})
	b.mu.Unlock()
}

// Drain publishes every queued event in arrival order and returns how many
// were delivered. Events posted by handlers during Drain wait for the next
// call.
func (b *Bus) Drain() int {
	b.mu.Lock()
	queued := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ev := range queued {
		b.Publish(ev.Name, ev.Payload)
	}
	if len(queued) > 0 {
		layerkit.Logger().Debug("event: drained", "count", len(queued))
	}
	return len(queued)
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
