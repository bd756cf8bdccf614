package events

// Request lifecycle topics.
const (
	TopicRequestStart       = "api.request.start"
	TopicRequestEnd         = "api.request.end"
	TopicCallAttempt        = "api.call.attempt"
	TopicCallSuccess        = "api.call.success"
	TopicCallFailure        = "api.call.failure"
	TopicServiceUnavailable = "api.service.unavailable"
)

// Resilience mechanism topics.
const (
	TopicProviderFailover   = "provider.failover"
	TopicModelFailover      = "model.failover"
	TopicKeyRotation        = "api_key.rotation"
	TopicCircuitTripped     = "circuit.tripped"
	TopicCircuitReset       = "circuit.reset"
	TopicMitigationAttempt  = "mitigation.attempt"
	TopicMitigationSuccess  = "mitigation.success"
	TopicMitigationFailure  = "mitigation.failure"
	TopicAllProvidersFailed = "all_providers.failed"
	TopicModelSkippedCost   = "model.skipped.cost_cap"
)

// Learning and ledger topics.
const (
	TopicLearningFeedback   = "learning.feedback.published"
	TopicLedgerEntryCreated = "ledger.entry.created"
)

// Resource health topics.
const (
	TopicResourcePenalized = "resource.penalized"
	TopicResourceRestored  = "resource.health.restored"
)

// AllTopics lists every topic a persistence subscriber should follow.
var AllTopics = []string{
	TopicRequestStart,
	TopicRequestEnd,
	TopicCallAttempt,
	TopicCallSuccess,
	TopicCallFailure,
	TopicServiceUnavailable,
	TopicProviderFailover,
	TopicModelFailover,
	TopicKeyRotation,
	TopicCircuitTripped,
	TopicCircuitReset,
	TopicMitigationAttempt,
	TopicMitigationSuccess,
	TopicMitigationFailure,
	TopicAllProvidersFailed,
	TopicModelSkippedCost,
	TopicLearningFeedback,
	TopicLedgerEntryCreated,
	TopicResourcePenalized,
	TopicResourceRestored,
}
