// Package ledger builds the immutable audit record of each completed
// request.
//
// One Entry captures the request outcome, mitigation facts, final
// provider and model, token usage and estimated cost, the resilience
// score, and the raw resilience events observed along the way. Entries
// are published on the event bus for persistence and learning and are
// never mutated after construction.
package ledger
