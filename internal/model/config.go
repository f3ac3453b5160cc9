package model

// Config holds all runtime configuration for verbatim
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Ingest       IngestConfig       `yaml:"ingest" mapstructure:"ingest"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the text generation provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider" validate:"oneof=openai anthropic ollama gemini compatible deepseek"`
	Model       string  `yaml:"model" mapstructure:"model"`                   // Empty means provider default
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`     // Prefer env vars
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`   // Ollama / compatible endpoints
	Timeout     int     `yaml:"timeout" mapstructure:"timeout" validate:"gte=1"` // Seconds per request
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// StoreConfig configures the SQLite database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// CacheConfig configures caching of LLM completions
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir       string `yaml:"dir" mapstructure:"dir"`
	MemoryTTL int    `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gte=0"` // Minutes
	DiskTTL   int    `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"gte=0"`     // Minutes
}

// RateLimitingConfig bounds outgoing LLM requests per provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr" validate:"required"`
	RequestTimeout int    `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gte=1"` // Seconds
}

// IngestConfig configures reading text from URLs
type IngestConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=1"` // Seconds
	MaxBodyBytes  int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=1024"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Timeout:     60,
			MaxTokens:   0,
			Temperature: 0.3,
		},
		Store: StoreConfig{
			Path: "verbatim.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".verbatim-cache",
			MemoryTTL: 60,
			DiskTTL:   60 * 24,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 300,
		},
		Ingest: IngestConfig{
			UserAgent:     "verbatim/0.1 (+https://github.com/ppiankov/verbatim)",
			Timeout:       20,
			MaxBodyBytes:  5 * 1024 * 1024,
			RespectRobots: true,
		},
	}
}
