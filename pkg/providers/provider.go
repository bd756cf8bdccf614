package providers

import "context"

// Provider is the contract every backend adapter implements.
//
// Complete performs one attempt against one model with one credential.
// It returns a response with Success set, or an error from this package's
// taxonomy. Adapters must honor ctx cancellation on the network call.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Complete executes a single completion attempt.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
