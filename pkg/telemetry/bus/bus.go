package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"mercator-hq/saturn/pkg/telemetry/events"
)

// Handler receives events published on a subscribed topic.
// Handlers must be safe for concurrent invocation: under asynchronous
// dispatch two events may be delivered to the same handler at once.
type Handler func(topic string, event events.Event)

// Config contains configuration for the event bus.
type Config struct {
	// Workers is the number of dispatch goroutines for async publishing.
	// Default: 4
	Workers int

	// QueueSize is the capacity of the pending-dispatch queue. When the
	// queue is full, async publishes are dropped and counted rather than
	// blocking the publisher.
	// Default: 1024
	QueueSize int

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default event bus configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 1024,
	}
}

// dispatch is one queued subscriber invocation.
type dispatch struct {
	topic   string
	event   events.Event
	handler Handler
}

// Bus is an in-process publish/subscribe hub with bounded asynchronous
// dispatch. The zero value is not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	closed      bool

	tasks   chan dispatch
	wg      sync.WaitGroup
	dropped atomic.Int64
	logger  *slog.Logger
}

// New creates a started event bus. The caller owns the bus and must call
// Shutdown when finished.
func New(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		subscribers: make(map[string][]Handler),
		tasks:       make(chan dispatch, cfg.QueueSize),
		logger:      logger.With("component", "event_bus"),
	}

	for i := 0; i < cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	return b
}

// Subscribe registers a handler for a topic. Multiple handlers per topic are
// allowed; synchronous dispatch invokes them in subscription order.
func (b *Bus) Subscribe(topic string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish delivers the event to every subscriber of the topic via the worker
// pool. It never blocks: if the dispatch queue is full the delivery is
// dropped and counted. Publishing to a topic with no subscribers is a no-op,
// and publishing after Shutdown is logged and dropped.
func (b *Bus) Publish(topic string, event events.Event) {
	// The read lock is held across the sends: Shutdown marks the bus
	// closed under the write lock before closing the task channel, so a
	// publisher that observed the bus open cannot race the close.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("publish after shutdown dropped", "topic", topic)
		return
	}

	for _, h := range b.subscribers[topic] {
		select {
		case b.tasks <- dispatch{topic: topic, event: event, handler: h}:
		default:
			b.dropped.Add(1)
			b.logger.Warn("dispatch queue full, event dropped",
				"topic", topic,
				"dropped_total", b.dropped.Load(),
			)
		}
	}
}

// PublishSync delivers the event to every subscriber of the topic on the
// calling goroutine, in subscription order. Handler panics are recovered so
// that one failing subscriber cannot prevent delivery to the rest.
func (b *Bus) PublishSync(topic string, event events.Event) {
	b.mu.RLock()
	handlers := b.subscribers[topic]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(topic, event, h)
	}
}

// Dropped returns the number of async dispatches discarded because the
// queue was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Shutdown stops accepting new async dispatch. If wait is true it blocks
// until all queued dispatches have been delivered.
func (b *Bus) Shutdown(wait bool) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.tasks)
	if wait {
		b.wg.Wait()
	}
	b.logger.Info("event bus shut down", "dropped_total", b.dropped.Load())
}

// worker drains the dispatch queue until Shutdown closes it.
func (b *Bus) worker() {
	defer b.wg.Done()
	for d := range b.tasks {
		b.invoke(d.topic, d.event, d.handler)
	}
}

// invoke runs a single handler, isolating panics.
func (b *Bus) invoke(topic string, event events.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"topic", topic,
				"event_type", event.EventType,
				"panic", r,
			)
		}
	}()
	h(topic, event)
}
