// Package failover implements the request orchestrator at the heart of
// the gateway.
//
// Given a prioritized map of providers to candidate models, the Engine
// walks the full search space: it checks circuit breakers and the cost
// cap, rotates credentials from each provider's resource pool, classifies
// every failure, mitigates content-policy rejections by rewriting the
// prompt once per request, and keeps going until one attempt succeeds or
// everything is exhausted. Every step is recorded as a resilience event,
// and every finished request produces a bias-ledger entry and a learning
// feedback signal regardless of outcome.
package failover
