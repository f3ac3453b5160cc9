package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
	"github.com/ppiankov/verbatim/internal/report"
	"github.com/ppiankov/verbatim/internal/store"
)

// Service runs submissions through the pipeline; *pipeline.Pipeline implements it
type Service interface {
	Submit(ctx context.Context, text string) (*model.Submission, error)
	Process(ctx context.Context, submissionID string) (*model.Results, error)
	RunStage(ctx context.Context, submissionID string, stage pipeline.Stage) (*pipeline.StageOutput, error)
	CompileResults(ctx context.Context, submissionID string) (*model.Results, error)
}

// Submissions reads stored submissions; *store.Store implements it
type Submissions interface {
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, opts store.ListOptions) ([]*model.Submission, error)
}

// Config holds listener and timeout settings
type Config struct {
	Addr           string
	Version        string
	RequestTimeout time.Duration // Bounds each request, including a full pipeline run
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the settings used by `verbatim serve`
func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		Version:        "dev",
		RequestTimeout: 5 * time.Minute,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   6 * time.Minute,
	}
}

// Server exposes the text processing API over HTTP
type Server struct {
	config   Config
	service  Service
	subs     Submissions
	renderer *report.Renderer
	logger   *zap.Logger
}

// Option customizes server construction
type Option func(*Server)

// WithLogger overrides the default no-op logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRenderer overrides the HTML report renderer
func WithRenderer(r *report.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// New creates a server over a pipeline and its store
func New(config Config, service Service, subs Submissions, opts ...Option) *Server {
	s := &Server{
		config:   config,
		service:  service,
		subs:     subs,
		renderer: report.NewRenderer(true),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API handler with logging and request timeouts applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/text/process", s.handleProcess)
	mux.HandleFunc("POST /api/text/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/text/{id}/stages/{stage}", s.handleStage)
	mux.HandleFunc("GET /api/text/status/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/text/results/{id}", s.handleResults)
	mux.HandleFunc("GET /api/text/results/{id}/report", s.handleReport)
	mux.HandleFunc("GET /api/text/submissions", s.handleSubmissions)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	return s.logRequests(s.withTimeout(mux))
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	if s.config.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
