package costs

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/saturn/pkg/providers"
)

// DefaultProfileKey is the per-provider fallback profile applied to any
// model without an explicit entry.
const DefaultProfileKey = "_default"

// charsPerToken is the heuristic used to estimate prompt tokens from raw
// message text when no real tokenizer is in play.
const charsPerToken = 4

// worstCaseOutputTokens bounds the output estimate when a request does
// not set MaxTokens.
const worstCaseOutputTokens = 1024

// Profile is the price of one model: USD per million input and output
// tokens.
type Profile struct {
	// InputCPM is the USD cost per million input tokens.
	InputCPM float64 `yaml:"input_cpm" json:"input_cpm"`

	// OutputCPM is the USD cost per million output tokens.
	OutputCPM float64 `yaml:"output_cpm" json:"output_cpm"`
}

// Profiles maps provider name to model name to pricing.
type Profiles map[string]map[string]Profile

// LoadProfiles reads a yaml profile file.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cost profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes yaml profile data.
func ParseProfiles(data []byte) (Profiles, error) {
	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse cost profiles: %w", err)
	}
	for provider, models := range p {
		for model, profile := range models {
			if profile.InputCPM < 0 || profile.OutputCPM < 0 {
				return nil, fmt.Errorf("negative price for %s/%s", provider, model)
			}
		}
	}
	return p, nil
}

// Table is the live pricing lookup used during requests. Safe for
// concurrent lookups while a watcher replaces the underlying profiles.
type Table struct {
	mu       sync.RWMutex
	profiles Profiles
}

// NewTable creates a Table over the given profiles. A nil profile set is
// valid and simply resolves nothing.
func NewTable(profiles Profiles) *Table {
	return &Table{profiles: profiles}
}

// Replace atomically swaps in a new profile set.
func (t *Table) Replace(profiles Profiles) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profiles = profiles
}

// Lookup resolves pricing for a provider and model: the model's own
// profile first, then the provider's "_default", then nil.
func (t *Table) Lookup(provider, model string) *Profile {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models, ok := t.profiles[provider]
	if !ok {
		return nil
	}
	if p, ok := models[model]; ok {
		return &p
	}
	if p, ok := models[DefaultProfileKey]; ok {
		return &p
	}
	return nil
}

// EstimateUSD prices a known token count against a profile, rounded to
// six decimal places.
func EstimateUSD(p *Profile, inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)*p.InputCPM/1e6 + float64(outputTokens)*p.OutputCPM/1e6
	return math.Round(cost*1e6) / 1e6
}

// EstimateTokens approximates the prompt token count of a conversation
// from its character length.
func EstimateTokens(messages []providers.ChatMessage) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / charsPerToken
}

// EstimateRequestUSD returns the worst-case cost of a request before it
// is sent: estimated prompt tokens plus the full output budget. The
// second result is false when no profile resolves for the model.
func (t *Table) EstimateRequestUSD(provider, model string, messages []providers.ChatMessage, maxTokens int) (float64, bool) {
	p := t.Lookup(provider, model)
	if p == nil {
		return 0, false
	}
	if maxTokens <= 0 {
		maxTokens = worstCaseOutputTokens
	}
	return EstimateUSD(p, EstimateTokens(messages), maxTokens), true
}
