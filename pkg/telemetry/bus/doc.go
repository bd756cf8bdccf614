// Package bus provides the in-process publish/subscribe hub that decouples
// Saturn's core pipeline from its observability consumers.
//
// The bus is an explicitly constructed, dependency-injected instance — there
// is no package-level singleton. Asynchronous publishing hands each
// subscriber invocation to a bounded worker pool so that a slow subscriber
// (for example a database flush) can never stall the failover engine.
// Subscriber failures are isolated: a panicking handler is recovered and
// logged without affecting other subscribers or the publisher.
package bus
