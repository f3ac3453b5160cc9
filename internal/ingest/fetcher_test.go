package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(robots bool) *Fetcher {
	return NewFetcher(FetcherConfig{
		Timeout:       5 * time.Second,
		UserAgent:     "verbatim-test/1.0",
		MaxBytes:      1 << 20,
		RespectRobots: robots,
	})
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(false).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Body != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(false).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.Body != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(false).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(false).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(false).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 502 Bad Gateway", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 403 Forbidden", false},
		{"unexpected status: 401 Unauthorized", false},
		{"fetch: connection refused", true},
		{"fetch: connection reset by peer", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			got := isRetryableFetchError(errors.New(tt.err))
			if got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}

	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestFetchText_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Rivers</title><script>var x = 1;</script></head>
<body><nav>Home | About</nav><p>The river floods in spring.</p><p>Farmers plant after the flood.</p></body></html>`)
	}))
	defer server.Close()

	doc, err := newTestFetcher(false).FetchText(context.Background(), server.URL+"/wiki/Nile_River")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Title != "Rivers" {
		t.Errorf("Expected title Rivers, got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "The river floods in spring.") {
		t.Errorf("Expected paragraph text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "var x") || strings.Contains(doc.Text, "Home | About") {
		t.Errorf("Expected script and nav stripped, got %q", doc.Text)
	}
}

func TestFetchText_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "Line one.   \n\n\n\nLine two.")
	}))
	defer server.Close()

	doc, err := newTestFetcher(false).FetchText(context.Background(), server.URL+"/notes/field-report.txt")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Title != "field report" {
		t.Errorf("Expected title from URL path, got %q", doc.Title)
	}
	if doc.Text != "Line one.\nLine two." {
		t.Errorf("Unexpected text: %q", doc.Text)
	}
}

func TestFetchText_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html><body>secret</body></html>")
	}))
	defer server.Close()

	_, err := newTestFetcher(true).FetchText(context.Background(), server.URL+"/private/page")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
}

func TestFetchText_InvalidURL(t *testing.T) {
	if _, err := newTestFetcher(false).FetchText(context.Background(), "ftp://example.com/file"); err == nil {
		t.Error("Expected error for non-http URL")
	}
}

type countingWaiter struct{ calls atomic.Int32 }

func (w *countingWaiter) WaitURL(ctx context.Context, rawURL string) error {
	w.calls.Add(1)
	return nil
}

func TestFetchText_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	waiter := &countingWaiter{}
	f := NewFetcher(FetcherConfig{UserAgent: "verbatim-test/1.0", Limiter: waiter})
	if _, err := f.FetchText(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if waiter.calls.Load() != 1 {
		t.Errorf("Expected 1 limiter call, got %d", waiter.calls.Load())
	}
}

func TestExtractSubject(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Nile_River", "Nile River"},
		{"https://example.com/posts/field-notes.html", "field notes"},
		{"https://example.com/", "example.com"},
	}
	for _, tt := range tests {
		if got := extractSubject(tt.url); got != tt.want {
			t.Errorf("extractSubject(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
