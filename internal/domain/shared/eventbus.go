package shared

import "context"

// EventHandler reacts to published domain events
type EventHandler interface {
	// Handle processes one event; returning an error does not stop delivery
	// to other handlers
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants. An empty slice
	// subscribes it to everything.
	EventTypes() []string
}

// EventPublisher is the write side of the bus
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the registration side of the bus
type EventSubscriber interface {
	// Subscribe registers a handler, optionally narrowed to eventTypes
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe drops every registration of the handler
	Unsubscribe(handler EventHandler)
}

// EventBus is a publisher that also accepts subscriptions
type EventBus interface {
	EventPublisher
	EventSubscriber
}
