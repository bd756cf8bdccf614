// Package telemetry groups the gateway's observability subsystems.
//
// # Components
//
//   - events: the event vocabulary shared by every publisher and consumer
//   - bus: in-process publish/subscribe with bounded async dispatch
//   - store: durable batched persistence of events in SQLite
//   - metrics: Prometheus collectors derived from bus events
//   - logging: structured logger construction with credential redaction
//
// Every resilience decision the failover engine makes is published as an
// event. Consumers subscribe independently: the store persists for
// offline analysis, the metrics collector aggregates for dashboards, and
// the online learner feeds scores back into provider ranking. Core
// packages never import their consumers.
package telemetry
