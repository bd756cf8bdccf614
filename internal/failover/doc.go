// Package failover provides scriptable test doubles for the failover
// engine: a mock provider whose per-call outcomes are queued in advance,
// and a mock rewriter with fixed behavior.
package failover
