// Package events defines the universal telemetry event schema and the
// standard topic names used across Saturn.
//
// Every observability fact in the system — API call attempts, failovers,
// circuit trips, ledger entries — is expressed as an Event and published on
// a topic from this package. Keeping the schema and topic names in one place
// guarantees that producers (the failover engine, guards, breakers) and
// consumers (the time-series store, the learning subscribers, metrics) agree
// on the wire format.
package events
