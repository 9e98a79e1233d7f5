package events

import (
	"encoding/json"
	"fmt"
)

// EventFactory creates a zero-value event of one type.
type EventFactory func() Event

// Registry maps event types to factories so persisted payloads can be
// decoded back into concrete events.
type Registry struct {
	factories map[string]EventFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]EventFactory)}
}

// Register adds an event type to the registry.
func (r *Registry) Register(eventType string, factory EventFactory) {
	r.factories[eventType] = factory
}

// Unmarshal decodes a raw event into its concrete type.
func (r *Registry) Unmarshal(raw RawEvent) (Event, error) {
	factory, ok := r.factories[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", raw.EventType)
	}
	event := factory()
	if err := json.Unmarshal([]byte(raw.Payload), event); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", raw.EventType, err)
	}
	return event, nil
}

// DefaultRegistry returns a registry with every reelbox event type.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(EventDeliveryStarted, func() Event { return &DeliveryStarted{} })
	r.Register(EventDeliveryProgressed, func() Event { return &DeliveryProgressed{} })
	r.Register(EventDeliveryCompleted, func() Event { return &DeliveryCompleted{} })
	r.Register(EventDeliveryFailed, func() Event { return &DeliveryFailed{} })

	r.Register(EventFileAdded, func() Event { return &FileAdded{} })
	r.Register(EventGroupDeleted, func() Event { return &GroupDeleted{} })
	r.Register(EventCleanupCompleted, func() Event { return &CleanupCompleted{} })

	return r
}
