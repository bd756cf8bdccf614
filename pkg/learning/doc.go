// Package learning turns the gateway's telemetry into routing signals.
//
// Two consumers share the ledger's audit stream. The offline Engine
// replays persisted ledger entries from the time-series store and
// aggregates them into per provider and model performance analyses. The
// OnlineSubscriber listens on the live event bus and feeds each
// finished request's resilience score straight into the ranking engine,
// closing the loop between observed behavior and provider ordering.
package learning
