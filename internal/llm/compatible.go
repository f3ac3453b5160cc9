package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ppiankov/verbatim/internal/util"
)

const deepSeekBaseURL = "https://api.deepseek.com/v1"

// CompatibleProvider talks to any OpenAI-compatible chat endpoint (DeepSeek,
// vLLM, LM Studio) through the official openai-go SDK.
type CompatibleProvider struct {
	name   string
	client openaisdk.Client
	config Config
}

// NewCompatibleProvider creates a provider for an OpenAI-compatible endpoint.
// name is reported by Name and selects defaults ("deepseek" fills in its base URL).
func NewCompatibleProvider(name string, config Config) (*CompatibleProvider, error) {
	if name == "deepseek" && config.BaseURL == "" {
		config.BaseURL = deepSeekBaseURL
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%s provider requires a base URL", name)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(1),
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)},
		}))
	}

	return &CompatibleProvider{
		name:   name,
		client: openaisdk.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *CompatibleProvider) Name() string {
	return p.name
}

// IsAvailable checks the endpoint lists models
func (p *CompatibleProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx)
	return err == nil
}

// Complete runs a chat completion
func (p *CompatibleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	defaultModel := ""
	if p.name == "deepseek" {
		defaultModel = "deepseek-chat"
	}
	req = p.config.resolve(req, defaultModel, 1000)
	if req.Model == "" {
		return nil, fmt.Errorf("%s model must be specified", p.name)
	}

	msgs := []openaisdk.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.System))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(req.Model),
		Messages:    msgs,
		MaxTokens:   openaisdk.Int(int64(req.MaxTokens)),
		Temperature: openaisdk.Float(float64(req.Temperature)),
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty choices", p.name)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      resp.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
