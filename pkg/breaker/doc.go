// Package breaker implements a per-service circuit breaker and a registry
// for sharing breaker instances across concurrent requests.
//
// A breaker guards calls against a single downstream service — in Saturn,
// one provider/model combination. It moves between three states:
//
//	CLOSED    -> normal operation; failures are counted
//	OPEN      -> calls are rejected until the reset timeout elapses
//	HALF_OPEN -> a single trial call is allowed through
//
// A breaker's state transitions are totally ordered per instance: all
// mutations happen under the instance's mutex.
package breaker
