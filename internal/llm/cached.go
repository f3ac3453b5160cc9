package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ppiankov/verbatim/internal/cache"
)

// CachedProvider serves repeated identical requests from a cache.
// Only successful completions are stored.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
	model string
}

// NewCachedProvider wraps next. model is the configured model name, folded
// into the key so switching models does not return stale completions.
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration, model string) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl, model: model}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Complete returns a cached response when one exists
func (p *CachedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := p.key(req)

	if data, ok := p.cache.Get(key); ok {
		var resp CompletionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
		_ = p.cache.Delete(key)
	}

	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		_ = p.cache.Set(key, data, p.ttl)
	}
	return resp, nil
}

func (p *CachedProvider) key(req CompletionRequest) string {
	model := req.Model
	if model == "" {
		model = p.model
	}
	return cache.Key(
		p.next.Name(),
		model,
		req.System,
		req.Prompt,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(float64(req.Temperature), 'f', -1, 32),
	)
}
