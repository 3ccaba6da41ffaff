package events

import (
	"context"
	"fmt"
	"sync"
)

// Handler consumes a published event.
type Handler func(ctx context.Context, evt Event) error

// Publisher is the side of the bus used by services.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus dispatches events to subscribers in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]namedHandler)}
}

// Subscribe registers fn for the named event. The subscriber name shows up in
// errors.
func (b *Bus) Subscribe(event, subscriber string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], namedHandler{name: subscriber, fn: fn})
}

// Publish delivers evt to every subscriber and stops at the first failure.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	handlers := append([]namedHandler(nil), b.handlers[evt.EventName()]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		if err := h.fn(ctx, evt); err != nil {
			return fmt.Errorf("events: %s handling %s: %w", h.name, evt.EventName(), err)
		}
	}
	return nil
}

// Recorder is a Publisher that keeps every event, for tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evt)
	return nil
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, evt := range r.Events {
		if evt.EventName() == name {
			out = append(out, evt)
		}
	}
	return out
}
