// Package metrics exposes the gateway's resilience activity as
// Prometheus metrics.
//
// The Collector is wired as an event bus subscriber, so core components
// stay metrics-agnostic: every counter and gauge here is derived from the
// same events that feed the time-series store.
package metrics
