package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/verbatim/internal/cache"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	responses []string
	err       error
	requests  []CompletionRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	text := ""
	if len(m.responses) > 0 {
		text = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	return &CompletionResponse{Text: text, Model: "mock-model", TokensUsed: 10}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestGenerator_GeneratePrimarySummary(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"  The summary.  "}}
	gen := NewGenerator(mock, Config{Temperature: 0.3}, nil)

	got, err := gen.GeneratePrimarySummary(context.Background(), "Original text body.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "The summary." {
		t.Errorf("Expected trimmed summary, got %q", got)
	}

	req := mock.requests[0]
	if req.MaxTokens != 500 {
		t.Errorf("Expected max tokens 500, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.3 {
		t.Errorf("Expected temperature 0.3, got %v", req.Temperature)
	}
	if !strings.HasPrefix(req.Prompt, "Please summarize the following text:\n\n") {
		t.Errorf("Unexpected prompt: %q", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "Original text body.") {
		t.Error("Expected prompt to include the text")
	}
}

func TestGenerator_MaxTokensOverride(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"ok"}}
	gen := NewGenerator(mock, Config{MaxTokens: 1234}, nil)

	if _, err := gen.GeneratePrimarySummary(context.Background(), "x"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mock.requests[0].MaxTokens != 1234 {
		t.Errorf("Expected configured max tokens, got %d", mock.requests[0].MaxTokens)
	}
}

func TestGenerator_ExtractFragments(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "exactly ten",
			response: "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g\n8. h\n9. i\n10. j",
			want:     []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		},
		{
			name:     "padded",
			response: "1) first\n2: second",
			want: []string{"first", "second",
				"Fragment 3 not extracted", "Fragment 4 not extracted", "Fragment 5 not extracted",
				"Fragment 6 not extracted", "Fragment 7 not extracted", "Fragment 8 not extracted",
				"Fragment 9 not extracted", "Fragment 10 not extracted"},
		},
		{
			name:     "truncated",
			response: "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g\n8. h\n9. i\n10. j\n11. k\n12. l",
			want:     []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockProvider{name: "mock", responses: []string{tt.response}}
			gen := NewGenerator(mock, Config{}, nil)

			got, err := gen.ExtractFragments(context.Background(), "text")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(got) != FragmentCount {
				t.Fatalf("Expected %d fragments, got %d", FragmentCount, len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Fragment %d: expected %q, got %q", i+1, tt.want[i], got[i])
				}
			}
			if mock.requests[0].MaxTokens != 800 {
				t.Errorf("Expected max tokens 800, got %d", mock.requests[0].MaxTokens)
			}
		})
	}
}

func TestGenerator_ExtractFragments_EmptyResponse(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"   "}}
	gen := NewGenerator(mock, Config{}, nil)

	_, err := gen.ExtractFragments(context.Background(), "text")
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
}

func TestGenerator_GenerateSecondarySummary(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"S2 summary"}}
	gen := NewGenerator(mock, Config{}, nil)

	got, err := gen.GenerateSecondarySummary(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "S2 summary" {
		t.Errorf("Unexpected summary: %q", got)
	}

	want := "Create a summary based on these text fragments:\n\n- one\n- two"
	if mock.requests[0].Prompt != want {
		t.Errorf("Expected prompt %q, got %q", want, mock.requests[0].Prompt)
	}

	if _, err := gen.GenerateSecondarySummary(context.Background(), nil); !errors.Is(err, ErrGeneration) {
		t.Errorf("Expected ErrGeneration for no fragments, got %v", err)
	}
}

func TestGenerator_ExtractJustification(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"  \"quoted words\"  "}}
	gen := NewGenerator(mock, Config{}, nil)

	got, err := gen.ExtractJustification(context.Background(), "original text", "A sentence.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "quoted words" {
		t.Errorf("Expected quotes stripped, got %q", got)
	}

	req := mock.requests[0]
	if !strings.HasPrefix(req.Prompt, "Summary sentence: \"A sentence.\"\n\nOriginal text: original text") {
		t.Errorf("Unexpected prompt: %q", req.Prompt)
	}
	if req.MaxTokens != 300 {
		t.Errorf("Expected max tokens 300, got %d", req.MaxTokens)
	}
}

func TestGenerator_ProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	mock := &MockProvider{name: "mock", err: cause}
	gen := NewGenerator(mock, Config{}, nil)

	_, err := gen.GeneratePrimarySummary(context.Background(), "text")
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected provider error in chain, got %v", err)
	}
	if gen.ProviderName() != "mock" {
		t.Errorf("Expected provider name mock, got %s", gen.ProviderName())
	}
}

func TestCachedProvider(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"first", "second"}}
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, "m")

	req := CompletionRequest{System: "s", Prompt: "p", MaxTokens: 10}
	a, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.Text != "first" || b.Text != "first" {
		t.Errorf("Expected cached response, got %q then %q", a.Text, b.Text)
	}
	if len(mock.requests) != 1 {
		t.Errorf("Expected 1 provider call, got %d", len(mock.requests))
	}

	req.Prompt = "other"
	c, _ := p.Complete(context.Background(), req)
	if c.Text != "second" {
		t.Errorf("Expected a new completion for a different prompt, got %q", c.Text)
	}
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	mock := &MockProvider{name: "mock", err: errors.New("boom")}
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, "m")

	for i := 0; i < 2; i++ {
		if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "p"}); err == nil {
			t.Fatal("Expected error")
		}
	}
	if len(mock.requests) != 2 {
		t.Errorf("Expected errors to bypass the cache, got %d calls", len(mock.requests))
	}
}

type recordingWaiter struct {
	keys []string
	err  error
}

func (w *recordingWaiter) Wait(ctx context.Context, key string) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestRateLimitedProvider(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"ok"}}
	w := &recordingWaiter{}
	p := NewRateLimitedProvider(mock, w)

	if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(w.keys) != 1 || w.keys[0] != "mock" {
		t.Errorf("Expected wait keyed by provider name, got %v", w.keys)
	}

	w.err = context.Canceled
	if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "p"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wait error, got %v", err)
	}
	if len(mock.requests) != 1 {
		t.Errorf("Expected provider not called after wait failure, got %d calls", len(mock.requests))
	}
}
