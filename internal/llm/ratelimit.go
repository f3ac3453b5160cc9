package llm

import (
	"context"
	"fmt"
)

// Waiter blocks until a request for key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimitedProvider delays calls through a Waiter keyed by provider name
type RateLimitedProvider struct {
	next   Provider
	waiter Waiter
}

// NewRateLimitedProvider wraps next
func NewRateLimitedProvider(next Provider, w Waiter) *RateLimitedProvider {
	return &RateLimitedProvider{next: next, waiter: w}
}

// Name returns the wrapped provider's name
func (p *RateLimitedProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates without waiting
func (p *RateLimitedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Complete waits for clearance, then calls the wrapped provider
func (p *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.waiter.Wait(ctx, p.next.Name()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return p.next.Complete(ctx, req)
}
