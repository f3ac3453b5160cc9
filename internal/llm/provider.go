package llm

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs a single system+user prompt and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one prompt sent to a provider
type CompletionRequest struct {
	// System sets the assistant's role for the call
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length (0 = provider config)
	MaxTokens int

	// Temperature controls sampling (0 = provider config)
	Temperature float32
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", "compatible", "deepseek"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (Ollama, OpenAI-compatible servers)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens caps every response when set; otherwise each operation uses its own limit
	MaxTokens int

	// Temperature for sampling
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-3.5-turbo",
		Timeout:     60,
		Temperature: 0.3,
	}
}

// resolve fills request fields left empty from the provider config
func (c Config) resolve(req CompletionRequest, defaultModel string, defaultMaxTokens int) CompletionRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.Temperature
	}
	return req
}
