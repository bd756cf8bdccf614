package providers

import (
	"context"
	"errors"
	"time"
)

// Category buckets a provider failure by how the failover engine should
// react to it.
type Category string

const (
	// CategoryTransient failures are worth retrying with another
	// credential or model (rate limits, timeouts, 5xx responses).
	CategoryTransient Category = "TRANSIENT"

	// CategoryContentPolicy failures can be mitigated once per request by
	// rewriting the prompt.
	CategoryContentPolicy Category = "CONTENT_POLICY"

	// CategoryFatal failures will not succeed on retry with the same
	// model (bad credentials, unknown model).
	CategoryFatal Category = "FATAL"

	// CategoryUnknown covers everything the classifier cannot place.
	// Treated like fatal by the engine.
	CategoryUnknown Category = "UNKNOWN"
)

// ErrorDetails is the classifier's verdict on one failure.
type ErrorDetails struct {
	// Category is the failure bucket.
	Category Category

	// Retriable reports whether a retry against the same model could
	// succeed.
	Retriable bool

	// RetryAfter is the provider-suggested backoff, zero when none was
	// given.
	RetryAfter time.Duration
}

// Classifier maps a raw adapter error to routing guidance.
// Implementations must be pure: same error in, same verdict out.
type Classifier interface {
	Classify(err error, provider string) ErrorDetails
}

// DefaultClassifier classifies the typed errors adapters in this package
// produce. Errors of unknown dynamic type land in CategoryUnknown.
type DefaultClassifier struct{}

// Classify implements Classifier.
func (DefaultClassifier) Classify(err error, provider string) ErrorDetails {
	var (
		rateLimit     *RateLimitError
		timeout       *TimeoutError
		contentPolicy *ContentPolicyError
		auth          *AuthError
		modelNotFound *ModelNotFoundError
		providerErr   *ProviderError
	)
	switch {
	case errors.As(err, &rateLimit):
		return ErrorDetails{Category: CategoryTransient, Retriable: true, RetryAfter: rateLimit.RetryAfter}
	case errors.As(err, &timeout):
		return ErrorDetails{Category: CategoryTransient, Retriable: true}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorDetails{Category: CategoryTransient, Retriable: true}
	case errors.As(err, &contentPolicy):
		return ErrorDetails{Category: CategoryContentPolicy, Retriable: true}
	case errors.As(err, &auth):
		return ErrorDetails{Category: CategoryFatal}
	case errors.As(err, &modelNotFound):
		return ErrorDetails{Category: CategoryFatal}
	case errors.As(err, &providerErr):
		// 5xx responses are server-side and transient; 4xx means the
		// request itself is bad.
		if providerErr.StatusCode >= 500 || providerErr.StatusCode == 0 {
			return ErrorDetails{Category: CategoryTransient, Retriable: true}
		}
		return ErrorDetails{Category: CategoryFatal}
	default:
		return ErrorDetails{Category: CategoryUnknown}
	}
}
