package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus built for a tick-driven
// simulation.
//
// Key characteristics:
//   - Type-based fan-out: handlers subscribe by Event.Type() string.
//   - Deferred delivery by default: Publish enqueues; Drain delivers every
//     queued event in order, typically once per simulation tick. Handlers run
//     in the draining goroutine, after the systems have finished, so they can
//     mutate the world without racing a running tick.
//   - Immediate path: PublishNow delivers in the caller goroutine for the rare
//     case that cannot wait for the tick boundary.
//   - Error aggregation: handler errors across one delivery are joined.
//   - Optional observability: metrics are produced only when observers are
//     registered.
//
// Handlers should be quick or offload heavy work to avoid stretching the
// tick. All methods are safe for concurrent use.
type EventBus interface {
	// Publish enqueues the event for the next Drain. It never blocks on
	// handlers and never returns handler errors.
	Publish(event Event)
	// PublishNow delivers the event synchronously to all active subscribers
	// of event.Type(). If one or more handlers return an error, a joined
	// error is returned.
	PublishNow(event Event) error
	// PublishWithFilters enqueues the event unless a filter rejects it.
	// Rejected events are dropped silently.
	PublishWithFilters(event Event, filters ...EventFilter)
	// Drain delivers every event queued since the previous Drain, in
	// priority order (stable within equal priority), and returns the number
	// of delivered events together with the joined handler errors.
	Drain() (int, error)

	// Subscribe registers a handler for a specific event type and returns a
	// Subscription handle that can be used to cancel later.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Safe to call with nil.
	Unsubscribe(Subscription) error

	// AddObserver registers an observer to receive delivery callbacks.
	AddObserver(obs Observer)
	// RemoveObserver unregisters a previously added observer.
	RemoveObserver(obs Observer)
	// Metrics returns a best-effort snapshot of accumulated counters.
	// Counters advance only while at least one observer is registered.
	Metrics() Metrics

	// Pending returns the number of queued, not yet drained events.
	Pending() int
	// Clear drops every queued event without delivering it.
	Clear()
}

// Event is an immutable message transported by the EventBus.
//
// Fields:
// - Type: routing key used to select handlers.
// - Source: identifier of the publisher (free-form).
// - Timestamp: creation time of the event.
// - Data: opaque payload for consumers.
// - Priority: drain ordering hint; higher drains first.
// - Metadata: small key/value annotations for additional context.
//
// Implementations should treat Event values as read-only.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Priority() int
	Metadata() map[string]any
}

// EventHandler is a user callback invoked per delivered event. Returned
// errors are aggregated by the delivering call.
type (
	EventHandler func(event Event) error
	// EventFilter decides whether an event should be enqueued. If any filter
	// returns false, the event is dropped silently.
	EventFilter func(event Event) bool
)

// Subscription represents a registered handler bound to an event type.
// Use Cancel or EventBus.Unsubscribe to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the event type this subscription listens to.
	EventType() string
	// Handler returns the callback associated with this subscription.
	Handler() EventHandler
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries and errors. Implementations can
// export metrics, tracing, or logs. Observers should return quickly.
type Observer interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

// Metrics is a minimal set of counters; it advances only when at least one
// observer is registered.
type Metrics struct {
	Published         uint64
	Delivered         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
