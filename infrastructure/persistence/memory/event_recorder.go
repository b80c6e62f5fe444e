package memory

import (
	"context"
	"sync"

	"catalog/domain/events"
)

// EventRecorder is an in-process ports.EventPublisher that keeps what it
// was given.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

// NewEventRecorder creates an empty recorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish implements ports.EventPublisher
func (r *EventRecorder) Publish(ctx context.Context, event events.DomainEvent) error {
	return r.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch implements ports.EventPublisher
func (r *EventRecorder) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, batch...)
	return nil
}

// Types returns the event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.GetEventType()
	}
	return out
}

// Events returns a copy of everything published.
func (r *EventRecorder) Events() []events.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}
