package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/extract"
)

// FragmentCount is the number of key fragments extracted from a text
const FragmentCount = 10

// ErrGeneration reports an empty, malformed or failed provider response
var ErrGeneration = errors.New("generation failed")

// Per-operation response limits, used when Config.MaxTokens is unset
const (
	primarySummaryTokens   = 500
	fragmentsTokens        = 800
	secondarySummaryTokens = 500
	justificationTokens    = 300
)

const (
	primarySummarySystem = "You are a skilled text summarizer. Create a concise, accurate summary " +
		"that captures the main points and key information from the provided text. " +
		"The summary should be approximately 20-30% of the original length."

	fragmentsSystem = "You are a text analyst. Extract exactly 10 important phrases or sentences " +
		"VERBATIM from the provided text. These should be the most significant, informative, " +
		"or representative parts of the text. Copy them exactly as they appear, with no changes. " +
		"Return them as a numbered list from 1 to 10, one per line."

	secondarySummarySystem = "You are a text summarizer. Create a coherent summary based solely " +
		"on the provided text fragments. Connect the ideas logically and create a flowing narrative. " +
		"Do not add information that is not present in the fragments."

	justificationSystem = "You are a text analyst. For the given summary sentence, find a VERBATIM " +
		"quote from the original text that best supports or justifies it. The quote must be copied " +
		"exactly from the original text. Return only the exact quote, with no explanation."
)

// Generator produces summaries and quoted fragments through a Provider
type Generator struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewGenerator wraps a provider. A nil logger disables logging.
func NewGenerator(provider Provider, config Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, config: config, logger: logger}
}

// ProviderName returns the name of the underlying provider
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}

// GeneratePrimarySummary summarizes the original text (S1)
func (g *Generator) GeneratePrimarySummary(ctx context.Context, text string) (string, error) {
	return g.complete(ctx, "primary summary", primarySummarySystem,
		"Please summarize the following text:\n\n"+text, primarySummaryTokens)
}

// ExtractFragments asks for exactly FragmentCount verbatim fragments (F1).
// Short lists are padded with placeholders and long ones truncated.
func (g *Generator) ExtractFragments(ctx context.Context, text string) ([]string, error) {
	out, err := g.complete(ctx, "fragments", fragmentsSystem,
		"Extract 10 verbatim fragments from this text:\n\n"+text, fragmentsTokens)
	if err != nil {
		return nil, err
	}

	items := extract.ParseNumberedList(out)
	if len(items) == 0 {
		return nil, fmt.Errorf("fragments: %w: no list items in response", ErrGeneration)
	}
	if len(items) != FragmentCount {
		g.logger.Warn("unexpected fragment count",
			zap.String("provider", g.provider.Name()),
			zap.Int("got", len(items)),
			zap.Int("want", FragmentCount))
	}
	return extract.FitToCount(items, FragmentCount), nil
}

// GenerateSecondarySummary summarizes the extracted fragments alone (S2)
func (g *Generator) GenerateSecondarySummary(ctx context.Context, fragments []string) (string, error) {
	if len(fragments) == 0 {
		return "", fmt.Errorf("secondary summary: %w: no fragments", ErrGeneration)
	}

	var b strings.Builder
	b.WriteString("Create a summary based on these text fragments:\n\n")
	for i, f := range fragments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(f)
	}

	return g.complete(ctx, "secondary summary", secondarySummarySystem, b.String(), secondarySummaryTokens)
}

// ExtractJustification finds a quote in original supporting one summary sentence (F2)
func (g *Generator) ExtractJustification(ctx context.Context, original, sentence string) (string, error) {
	prompt := fmt.Sprintf("Summary sentence: \"%s\"\n\nOriginal text: %s\n\n"+
		"Find a verbatim quote from the original text that supports this summary sentence:", sentence, original)

	out, err := g.complete(ctx, "justification", justificationSystem, prompt, justificationTokens)
	if err != nil {
		return "", err
	}

	quote := extract.CleanQuote(out)
	if quote == "" {
		return "", fmt.Errorf("justification: %w: empty quote", ErrGeneration)
	}
	return quote, nil
}

func (g *Generator) complete(ctx context.Context, op, system, prompt string, maxTokens int) (string, error) {
	if g.config.MaxTokens > 0 {
		maxTokens = g.config.MaxTokens
	}

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%s: %w: empty response", op, ErrGeneration)
	}

	g.logger.Debug("completion",
		zap.String("op", op),
		zap.String("provider", g.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed))
	return text, nil
}
