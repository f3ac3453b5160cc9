package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/cache"
	"github.com/ppiankov/verbatim/internal/ingest"
	"github.com/ppiankov/verbatim/internal/llm"
	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
	"github.com/ppiankov/verbatim/internal/report"
	"github.com/ppiankov/verbatim/internal/store"
	"github.com/ppiankov/verbatim/internal/worker"
)

// app holds the components a command needs, built from the merged configuration
type app struct {
	cfg      model.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
	provider llm.Provider // Nil unless built withGenerator
	fetcher  *ingest.Fetcher
	renderer *report.Renderer
}

// newApp opens the store and wires the pipeline. withGenerator builds the LLM
// provider chain; read-only commands skip it so they need no API key.
func newApp(ctx context.Context, withGenerator bool) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    st,
		renderer: report.NewRenderer(true),
	}

	hostLimiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	a.fetcher = ingest.NewFetcher(ingest.FetcherConfig{
		Timeout:       time.Duration(cfg.Ingest.Timeout) * time.Second,
		UserAgent:     cfg.Ingest.UserAgent,
		MaxBytes:      cfg.Ingest.MaxBodyBytes,
		RespectRobots: cfg.Ingest.RespectRobots,
		HTTPProxy:     cfg.LLM.HTTPProxy,
		HTTPSProxy:    cfg.LLM.HTTPSProxy,
		NoProxy:       cfg.LLM.NoProxy,
		Limiter:       hostLimiter,
	})

	var gen pipeline.Generator
	if withGenerator {
		provider, llmConfig, err := buildProvider(ctx, cfg)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.provider = provider
		gen = llm.NewGenerator(provider, llmConfig, logger.Named("llm"))
	}

	a.pipeline = pipeline.NewPipeline(st, gen, pipeline.WithLogger(logger.Named("pipeline")))
	return a, nil
}

// buildProvider wraps the configured provider with rate limiting and caching
func buildProvider(ctx context.Context, cfg model.Config) (llm.Provider, llm.Config, error) {
	llmConfig := llm.ConfigFromModel(cfg.LLM)

	provider, err := llm.NewProvider(ctx, llmConfig)
	if err != nil {
		return nil, llmConfig, fmt.Errorf("initialize LLM provider: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	provider = llm.NewRateLimitedProvider(provider, limiter)

	if cfg.Cache.Enabled {
		c := cache.New(cfg.Cache.Dir,
			time.Duration(cfg.Cache.MemoryTTL)*time.Minute,
			time.Duration(cfg.Cache.DiskTTL)*time.Minute)
		provider = llm.NewCachedProvider(provider, c, time.Duration(cfg.Cache.DiskTTL)*time.Minute, llmConfig.Model)
	}

	logger.Debug("LLM provider ready",
		zap.String("provider", provider.Name()),
		zap.String("model", llmConfig.Model),
		zap.Bool("cache", cfg.Cache.Enabled))
	return provider, llmConfig, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

// readSource loads text from a file, a URL, "-" for stdin, or the literal
// text when inline is set.
func (a *app) readSource(ctx context.Context, src, inline string) (*ingest.Document, error) {
	switch {
	case inline != "":
		return &ingest.Document{Title: "inline", Source: "inline", Text: inline}, nil
	case src == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &ingest.Document{Title: "stdin", Source: "stdin", Text: string(data)}, nil
	case src == "":
		return nil, fmt.Errorf("no input: pass a file, URL, '-' or --text")
	}
	return ingest.Load(ctx, a.fetcher, src)
}

// printJSON writes v as indented JSON to stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
