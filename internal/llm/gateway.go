package llm

import "context"

// Gateway sends a text prompt to a language model and returns the raw text
// response. No semantics beyond transport: callers own parsing.
type Gateway interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Config represents gateway configuration
type Config struct {
	Provider    string  `json:"provider"` // openai, anthropic, ollama, local
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderLocal     = "local"
)

// StaticGateway answers every prompt with a fixed response. Useful for
// offline runs and as the terminal link of a fallback chain.
type StaticGateway struct {
	Response string
}

// Chat returns the configured response
func (g *StaticGateway) Chat(_ context.Context, _ string) (string, error) {
	return g.Response, nil
}
