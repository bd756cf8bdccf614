package failover

import (
	"fmt"
	"strings"
)

// Failover reason codes recorded when the preferred provider is demoted
// or the whole search space is exhausted.
const (
	ReasonPreferredCircuitOpen   = "PREFERRED_PROVIDER_CIRCUIT_OPEN"
	ReasonPreferredKeysUnhealthy = "ALL_PREFERRED_KEYS_UNHEALTHY"
	ReasonPreferredOverCostCap   = "ALL_PREFERRED_MODELS_EXCEED_COST_CAP_INITIAL_CHECK"
	ReasonAllProvidersFailed     = "ALL_DYNAMIC_PROVIDERS_FAILED"
)

// AllProvidersFailedError is returned when every provider, model, and
// credential combination has been tried or skipped without a success.
type AllProvidersFailedError struct {
	// RequestID identifies the failed request.
	RequestID string

	// Reasons aggregates the per-attempt failure descriptions in the
	// order they occurred.
	Reasons []string
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("all providers failed for request %s", e.RequestID)
	}
	return fmt.Sprintf("all providers failed for request %s: %s",
		e.RequestID, strings.Join(e.Reasons, "; "))
}

// UnknownProviderError is returned when the request names a provider the
// engine has no adapter or resource pool for.
type UnknownProviderError struct {
	Provider string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no adapter or resource pool configured for provider %q", e.Provider)
}
