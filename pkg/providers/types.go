package providers

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
// It is provider-agnostic and transformed to vendor formats by adapters.
type ChatMessage struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for one completed request.
type TokenUsage struct {
	// InputTokens is the number of tokens in the prompt
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of tokens in the generated completion
	OutputTokens int `json:"output_tokens"`
}

// CompletionRequest represents a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier (e.g., "gpt-4o", "claude-3-opus")
	Model string `json:"model"`

	// Messages is the conversation history
	Messages []ChatMessage `json:"messages"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0, typically 0.0 to 1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// APIKeyOverride, when set, is the credential the adapter must use for
	// this call instead of its configured default. The failover engine
	// sets it from the resource pool. Never serialized.
	APIKeyOverride string `json:"-"`
}

// CompletionResponse is the result of one provider attempt.
// Immutable once constructed.
type CompletionResponse struct {
	// Success reports whether the provider returned a usable completion
	Success bool `json:"success"`

	// Content is the generated text (empty on failure)
	Content string `json:"content,omitempty"`

	// ModelUsed is the model that actually served the request
	ModelUsed string `json:"model_used,omitempty"`

	// Usage is the token accounting, nil when the provider did not report it
	Usage *TokenUsage `json:"usage,omitempty"`

	// LatencyMS is the wall-clock duration of the attempt in milliseconds
	LatencyMS int64 `json:"latency_ms"`

	// ErrorMessage describes the failure when Success is false
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata carries free-form attempt context. On success it must
	// include "provider_name".
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProviderName returns the "provider_name" metadata entry, or "" when the
// response carries none.
func (r *CompletionResponse) ProviderName() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	name, _ := r.Metadata["provider_name"].(string)
	return name
}
