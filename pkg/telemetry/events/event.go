package events

import (
	"time"

	"github.com/google/uuid"
)

// Severity indicates the importance of an event.
type Severity string

// Event severities, ordered from least to most important.
const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Event is the universal telemetry record exchanged on the event bus and
// persisted to the time-series store.
//
// TimestampUTC is an RFC 3339 string rather than a time.Time so that the
// serialized form is identical in memory, on the bus, and in storage.
type Event struct {
	// EventID uniquely identifies this event.
	EventID string `json:"event_id"`

	// EventType is the topic name (see topics.go).
	EventType string `json:"event_type"`

	// EventSource names the component that emitted the event,
	// e.g. "failover_engine" or "resource_guard:openai".
	EventSource string `json:"event_source"`

	// TimestampUTC is the emission time in RFC 3339 format with
	// nanosecond precision.
	TimestampUTC string `json:"timestamp_utc"`

	// Severity is the event's log level.
	Severity Severity `json:"severity"`

	// Payload carries event-specific structured data.
	Payload map[string]any `json:"payload,omitempty"`
}

// New creates an Event stamped with a fresh ID and the current UTC time.
func New(eventType, source string, severity Severity, payload map[string]any) Event {
	return Event{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventSource:  source,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Severity:     severity,
		Payload:      payload,
	}
}

// Timestamp parses TimestampUTC. It returns the zero time if the field is
// malformed; callers that need strict validation should parse it themselves.
func (e Event) Timestamp() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.TimestampUTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
