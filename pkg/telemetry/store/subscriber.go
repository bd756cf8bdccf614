package store

import (
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

// Subscriber bridges the event bus into the store: every published topic
// is ingested for durable persistence.
type Subscriber struct {
	store *TimeSeriesStore
}

// NewSubscriber creates a bus subscriber feeding the given store.
func NewSubscriber(s *TimeSeriesStore) *Subscriber {
	return &Subscriber{store: s}
}

// Register subscribes the handler to every known topic.
func (s *Subscriber) Register(b *bus.Bus) {
	for _, topic := range events.AllTopics {
		b.Subscribe(topic, s.HandleEvent)
	}
}

// HandleEvent implements bus.Handler.
func (s *Subscriber) HandleEvent(_ string, e events.Event) {
	s.store.Ingest(e)
}
